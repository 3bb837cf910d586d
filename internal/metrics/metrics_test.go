package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)
	assert.NotPanics(t, func() { MustRegister(reg) })

	JobsTotal.WithLabelValues("RFM_CLV", "SUCCESS").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(JobsTotal.WithLabelValues("RFM_CLV", "SUCCESS")))

	n, err := testutil.GatherAndCount(reg, "crm_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
