package repository

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/model"
)

func TestIdent(t *testing.T) {
	q, err := ident("SHOP_ELT")
	require.NoError(t, err)
	assert.Equal(t, "`SHOP_ELT`", q)

	for _, bad := range []string{"", "a b", "x;DROP", "1abc", "a`b"} {
		_, err := ident(bad)
		assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch, bad)
	}
}

func TestInsertSQL(t *testing.T) {
	target, err := qualified("SHOP_ELT", "ANALYTIC_CUSTOMER")
	require.NoError(t, err)

	q, err := insertSQL(target, []string{"UNIQUE_CUSTOMER_ID", "P1"}, 2)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `SHOP_ELT`.`ANALYTIC_CUSTOMER` (`UNIQUE_CUSTOMER_ID`, `P1`) VALUES (?, ?), (?, ?)", q)

	q, err = insertSQL("`crm`.`segment_counts`", []string{"run_id"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `crm`.`segment_counts` (`run_id`)", q)

	_, err = insertSQL(target, []string{"P-1"}, 1)
	assert.Error(t, err)
}

func TestBatches(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 1000}, {1000, 2000}, {2000, 2500}}, batches(2500, 1000))
	assert.Equal(t, [][2]int{{0, 3}}, batches(3, 1000))
	assert.Empty(t, batches(0, 1000))
}

func TestMatchColumnsAndValues(t *testing.T) {
	day := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	f, err := frame.FromColumns(
		frame.NewString("UNIQUE_CUSTOMER_ID", []string{"c1", "c2"}),
		frame.NewFloat("SCRATCH", []float64{1, 2}),
		frame.NewFloat("P3", []float64{4, math.NaN()}),
		frame.NewTime("CREATE_DATE", []time.Time{day, {}}),
		frame.NewCategory("P6", []string{"aktif müşteri"}, []int32{0, -1}),
	)
	require.NoError(t, err)

	cols := matchColumns(f, []string{"p6", "P3", "UNIQUE_CUSTOMER_ID", "CREATE_DATE", "UPDATE_DATE"})
	assert.Equal(t, []string{"UNIQUE_CUSTOMER_ID", "P3", "CREATE_DATE", "P6"}, names(cols))

	assert.Equal(t, []any{"c1", 4.0, day, "aktif müşteri"}, rowValues(nil, cols, 0))
	assert.Equal(t, []any{"c2", nil, nil, nil}, rowValues(nil, cols, 1), "nulls are sent as NULL")
}

func TestJobLogArgs(t *testing.T) {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	now := start.Add(time.Minute)

	args, err := jobLogArgs(model.JobEntry{FirmID: 7, MetricID: 4, JobType: model.JobChurnTrain, Status: model.StatusPending, Start: start}, now)
	require.NoError(t, err)
	require.Len(t, args, 8)
	assert.Equal(t, "20250601", args[3])
	assert.Equal(t, "PENDING", args[6])
	assert.Equal(t, now, args[7])

	_, err = jobLogArgs(model.JobEntry{Status: "DONE"}, now)
	assert.Error(t, err)
}
