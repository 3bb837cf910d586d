// Package shaper turns per-customer result frames into the wide, P-coded
// tables the warehouse stores.
package shaper

import "github.com/jmehdipour/crm-analytics/internal/frame"

// KeyColumn identifies a customer in every input and output table.
const KeyColumn = "UNIQUE_CUSTOMER_ID"

// Metric maps a named result column to its stable output code. Kind is the
// column kind the wide table carries: Float for numbers, Category for text.
type Metric struct {
	Name string
	Code string
	Kind frame.Kind
}

// Schema is the declared set of metrics one output table accepts.
type Schema struct {
	Name    string
	Metrics []Metric
}

func (s Schema) byName() map[string]Metric {
	m := make(map[string]Metric, len(s.Metrics))
	for _, x := range s.Metrics {
		m[x.Name] = x
	}
	return m
}

func (s Schema) byCode() map[string]Metric {
	m := make(map[string]Metric, len(s.Metrics))
	for _, x := range s.Metrics {
		m[x.Code] = x
	}
	return m
}

// Codes returns the output codes in declaration order.
func (s Schema) Codes() []string {
	out := make([]string, len(s.Metrics))
	for i, x := range s.Metrics {
		out[i] = x.Code
	}
	return out
}

func num(name, code string) Metric  { return Metric{Name: name, Code: code, Kind: frame.Float} }
func text(name, code string) Metric { return Metric{Name: name, Code: code, Kind: frame.Category} }

// SegmentationSchema feeds ANALYTIC_SEGMENTATION_RESULTS. P13 belongs to the
// churn table.
var SegmentationSchema = Schema{
	Name: "segmentation",
	Metrics: []Metric{
		text("ILK_ODEME_TARIH", "P1"),
		num("SON_ODEME_TARIH", "P2"),
		num("RECENCY", "P3"),
		num("FREQUENCY", "P4"),
		num("MONETARY", "P5"),
		text("RECENCY_SEGMENT", "P6"),
		text("MONETARY_SEGMENT", "P7"),
		text("FREQUENCY_SEGMENT", "P8"),
		text("INDIRIM_DUYARLI_SEGMENT", "P9"),
		text("INDIRIM_BEKLENTISI_SEGMENT", "P10"),
		num("CUSTOMER_LIFESPAN", "P11"),
		num("AVG_PURCHASE_VALUE", "P12"),
		num("CLV", "P14"),
		text("CLV_SEGMENT", "P15"),
	},
}

// ChurnSchema feeds ANALYTIC_CHURN_RESULTS.
var ChurnSchema = Schema{
	Name: "churn",
	Metrics: []Metric{
		num("AVG_DAYS_BETWEEN_TRANSACTIONS", "P13"),
		num("DAYS_SINCE_LAST_TRANSACTION", "P16"),
		num("CUSTOMER_LIFETIME", "P17"),
		num("DISTINCT_TRANSACTIONS", "P18"),
		num("AVG_SPENT", "P19"),
		num("MAX_SPENT", "P20"),
		num("TOTAL_USED_POINT", "P21"),
		num("CHURN_PROB", "P22"),
		text("IS_CHURN", "P23"),
		text("CHURN_CLASS", "P24"),
		text("DWH_PROGRAM_ID", "P25"),
		text("MODEL_ID", "P26"),
	},
}
