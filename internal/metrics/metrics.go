package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_jobs_total",
			Help: "Analytics jobs by job type and final status",
		},
		[]string{"job", "status"}, // RFM_CLV|Churn Model Training|... , SUCCESS|FAIL
	)

	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_job_duration_seconds",
			Help:    "Wall time of analytics jobs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"job"},
	)

	RowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_rows_written_total",
			Help: "Rows inserted into warehouse tables",
		},
		[]string{"table"},
	)

	CustomersScored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_customers_scored_total",
			Help: "Scored customers by churn risk class",
		},
		[]string{"risk"}, // low|medium|high|unknown
	)

	ModelAUC = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crm_churn_model_validation_auc",
			Help: "Validation AUC of the latest churn model per schema",
		},
		[]string{"schema"},
	)
)

var once sync.Once

// MustRegister registers every collector once; later calls are no-ops so the
// server and the worker can share a process.
func MustRegister(r prometheus.Registerer) {
	once.Do(func() {
		r.MustRegister(
			JobsTotal,
			JobDuration,
			RowsWritten,
			CustomersScored,
			ModelAUC,
		)
	})
}
