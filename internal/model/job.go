package model

import "time"

type JobStatus string

const (
	StatusPending JobStatus = "PENDING"
	StatusSuccess JobStatus = "SUCCESS"
	StatusFail    JobStatus = "FAIL"
)

func (s JobStatus) String() string { return string(s) }

func (s JobStatus) Valid() bool {
	return s == StatusPending || s == StatusSuccess || s == StatusFail
}

// Job types as they appear in STG_LOGS.JOB_TYPE.
const (
	JobSegmentationPrep = "RFM_CLV_data_prep_job"
	JobSegmentation     = "RFM_CLV"
	JobChurnPrep        = "Churn Data Preparation"
	JobChurnTrain       = "Churn Model Training"
	JobChurnScore       = "Churn Model Predictions"
)

// JobEntry is one STG_LOGS row.
type JobEntry struct {
	FirmID   int64
	MetricID int64
	JobType  string
	Status   JobStatus
	Start    time.Time
	End      time.Time // zero while pending
}
