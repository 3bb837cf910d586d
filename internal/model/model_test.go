package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAnalysis(t *testing.T) {
	cases := []struct {
		in   string
		want Analysis
		ok   bool
	}{
		{"", AnalysisAll, true},
		{" Churn ", AnalysisChurn, true},
		{"rfm", AnalysisSegmentation, true},
		{"insight", AnalysisAll, false},
	}
	for _, tc := range cases {
		got, ok := ParseAnalysis(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

func TestAnalysisIncludes(t *testing.T) {
	assert.True(t, AnalysisAll.Includes(MetricChurn))
	assert.True(t, AnalysisSegmentation.Includes(MetricSegmentation))
	assert.False(t, AnalysisSegmentation.Includes(MetricChurn))
	assert.False(t, AnalysisChurn.Includes(MetricSegmentation))
}

func TestFirmOutputSchema(t *testing.T) {
	assert.Equal(t, "SHOP_ELT", Firm{CDPSchema: "SHOP"}.OutputSchema())
	assert.Equal(t, "X_ELT", Firm{CDPSchema: "SHOP", ELTSchema: "X_ELT"}.OutputSchema())
}

func TestFirmKey(t *testing.T) {
	assert.Equal(t, "SHOP", Firm{CDPSchema: "SHOP", ELTSchema: "OTHER_ELT"}.Key())
	assert.Equal(t, "SHOP", Firm{ELTSchema: "SHOP_ELT"}.Key())
}

func TestJobStatusValid(t *testing.T) {
	assert.True(t, StatusFail.Valid())
	assert.False(t, JobStatus("DONE").Valid())
}
