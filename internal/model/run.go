package model

import (
	"strings"
	"time"
)

// Analysis selects which part of a firm run to execute.
type Analysis string

const (
	AnalysisAll          Analysis = "all"
	AnalysisSegmentation Analysis = "segmentation"
	AnalysisChurn        Analysis = "churn"
)

func (a Analysis) String() string { return string(a) }

// ParseAnalysis normalizes input; empty => all.
func ParseAnalysis(s string) (Analysis, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return AnalysisAll, true
	case "segmentation", "segment", "rfm":
		return AnalysisSegmentation, true
	case "churn":
		return AnalysisChurn, true
	default:
		return AnalysisAll, false
	}
}

// Includes reports whether a run of a covers metric id.
func (a Analysis) Includes(metricID int64) bool {
	switch a {
	case AnalysisSegmentation:
		return metricID == MetricSegmentation
	case AnalysisChurn:
		return metricID == MetricChurn
	}
	return true
}

// RunRequest is the payload of the run-request topic.
type RunRequest struct {
	ID       string   `json:"id"`                // request ULID
	FirmID   int64    `json:"firm_id,omitempty"` // 0 = every firm
	Analysis Analysis `json:"analysis,omitempty"`
}

// JobEvent is published once per finished job.
type JobEvent struct {
	RequestID string    `json:"request_id,omitempty"`
	FirmID    int64     `json:"firm_id"`
	Schema    string    `json:"schema"`
	Job       string    `json:"job"`
	Status    JobStatus `json:"status"`
	Rows      int       `json:"rows,omitempty"`
	Error     string    `json:"error,omitempty"`
	Code      string    `json:"code,omitempty"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}
