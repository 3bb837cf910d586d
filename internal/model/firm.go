package model

import (
	"database/sql"
	"strings"
)

// Firm is one tenant row of FIRMS_STG.
type Firm struct {
	ID        int64  `db:"ID"`
	Name      string `db:"FIRM_NAME"`
	ELTSchema string `db:"CONN_DATA_USER_ELT"`
	CDPSchema string `db:"CONN_DATA_USER_CDP"`
}

// OutputSchema is where analytic results of the firm are written.
func (f Firm) OutputSchema() string {
	if f.ELTSchema != "" {
		return f.ELTSchema
	}
	return f.CDPSchema + "_ELT"
}

// Key names the firm's snapshots and churn model: the CDP schema, or the
// output schema without its _ELT suffix.
func (f Firm) Key() string {
	if f.CDPSchema != "" {
		return f.CDPSchema
	}
	return strings.TrimSuffix(f.ELTSchema, "_ELT")
}

// Metric ids of ANALYTIC_METRICS.
const (
	MetricSegmentation int64 = 1
	MetricSmartInsight int64 = 3
	MetricChurn        int64 = 4
)

// AnalyticMetric is one analysis a firm subscribed to.
type AnalyticMetric struct {
	MetricID    int64         `db:"METRIC_ID"`
	DisplayName string        `db:"DISPLAY_NAME"`
	PeriodDays  sql.NullInt64 `db:"WORKING_DAY_PERIOD"`
}
