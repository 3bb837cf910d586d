package pipeline

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/logger"
	"github.com/jmehdipour/crm-analytics/internal/metrics"
	"github.com/jmehdipour/crm-analytics/internal/model"
	"github.com/jmehdipour/crm-analytics/internal/repository"
	"github.com/jmehdipour/crm-analytics/internal/segment"
	"github.com/jmehdipour/crm-analytics/internal/shaper"
	"github.com/jmehdipour/crm-analytics/internal/snapshot"
)

const (
	TableAllData  = "ANALYTIC_ALL_DATA"
	TableCustomer = "ANALYTIC_CUSTOMER"
)

// segmentationTables are emptied before the prep queries rebuild them.
var segmentationTables = []string{"RFM_STG", "ANALYTICAL_PROFILE", TableAllData, TableCustomer}

// countedSegments are reported to the run facts store.
var countedSegments = []string{
	segment.ColRecencySegment,
	segment.ColMonetarySegment,
	segment.ColFrequencySegment,
	segment.ColCLVSegment,
}

// Segmentation is the RFM/CLV job of one firm.
type Segmentation struct {
	env *Env
}

func NewSegmentation(env *Env) *Segmentation {
	return &Segmentation{env: env}
}

// Prep rebuilds ANALYTIC_ALL_DATA with the segmentation queries and
// snapshots it. It returns the number of customers fetched.
func (s *Segmentation) Prep(ctx context.Context, firm model.Firm, v Vars) (int, error) {
	out := firm.OutputSchema()
	for _, t := range segmentationTables {
		if err := s.env.Warehouse.DeleteAll(ctx, out, t); err != nil {
			return 0, err
		}
	}

	queries, err := LoadQueries(s.env.Opts.QueriesDir, "segmentation")
	if err != nil {
		return 0, err
	}
	v.Schema = firm.Key()
	for _, q := range queries {
		if err := s.env.Warehouse.Exec(ctx, Render(q.SQL, v)); err != nil {
			return 0, apperrors.Wrapf(err, "segmentation query %s", q.Name)
		}
	}

	f, err := s.env.Warehouse.Fetch(ctx, fmt.Sprintf("SELECT * FROM %s.%s", out, TableAllData))
	if err != nil {
		return 0, err
	}
	if f.Len() == 0 {
		return 0, apperrors.DataUnavailable("%s.%s is empty", out, TableAllData)
	}
	if err := snapshot.Write(snapshot.Path(s.env.Opts.DataDir, firm.Key(), snapshot.AllData), f); err != nil {
		return 0, err
	}
	return f.Len(), nil
}

// SegmentationResult summarizes one classified batch.
type SegmentationResult struct {
	RunID      int64
	Customers  int
	Dropped    int
	Written    int
	Thresholds segment.CLVThresholds
	Counts     map[string]map[string]int
}

// Run classifies the firm's snapshot and writes the P-coded rows to
// ANALYTIC_CUSTOMER.
func (s *Segmentation) Run(ctx context.Context, firm model.Firm) (*SegmentationResult, error) {
	log := s.env.logger().With(logger.Firm(firm.ID, firm.Key())...)
	now := s.env.now()

	f, err := snapshot.Read(snapshot.Path(s.env.Opts.DataDir, firm.Key(), snapshot.AllData))
	if err != nil {
		return nil, err
	}
	res, err := segment.Classify(f, now)
	if err != nil {
		return nil, err
	}
	if res.Dropped > 0 {
		log.Warn("dropped customers with invalid dates", zap.Int("dropped", res.Dropped))
	}

	wide, repeats, err := shaper.Shape(res.Frame, shaper.SegmentationSchema, shaper.Audit{FirmID: firm.ID, User: s.env.Opts.User, Now: now})
	if err != nil {
		return nil, err
	}
	if repeats > 0 {
		log.Warn("repeated customer metrics kept first value", zap.Int("repeats", repeats))
	}
	written, err := s.env.Warehouse.Insert(ctx, firm.OutputSchema(), TableCustomer, wide)
	metrics.RowsWritten.WithLabelValues(TableCustomer).Add(float64(written))
	if err != nil {
		return nil, err
	}

	out := &SegmentationResult{
		RunID:      s.env.runID(),
		Customers:  res.Frame.Len(),
		Dropped:    res.Dropped,
		Written:    written,
		Thresholds: res.Thresholds,
		Counts:     countLabels(res.Frame, countedSegments),
	}
	s.recordCounts(ctx, firm, out, log)
	log.Info("segmentation written",
		zap.Int("customers", out.Customers),
		zap.Int("rows", written),
		zap.Float64("clv_p80", res.Thresholds.VIPCLV))
	return out, nil
}

func (s *Segmentation) recordCounts(ctx context.Context, firm model.Firm, r *SegmentationResult, log *zap.Logger) {
	if s.env.Facts == nil {
		return
	}
	now := s.env.now()
	var rows []repository.SegmentCount
	for _, seg := range countedSegments {
		labels := make([]string, 0, len(r.Counts[seg]))
		for l := range r.Counts[seg] {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			rows = append(rows, repository.SegmentCount{
				RunID: r.RunID, FirmID: firm.ID, Schema: firm.Key(),
				Segment: seg, Label: l, Customers: int64(r.Counts[seg][l]), CreatedAt: now,
			})
		}
	}
	if err := s.env.Facts.InsertSegmentCounts(ctx, rows); err != nil {
		log.Warn("segment counts not recorded", zap.Error(err))
	}
}

// countLabels counts the non-null labels of every listed column.
func countLabels(f *frame.Frame, columns []string) map[string]map[string]int {
	out := make(map[string]map[string]int, len(columns))
	for _, name := range columns {
		c, err := f.Column(name)
		if err != nil {
			continue
		}
		counts := map[string]int{}
		for i := 0; i < c.Len(); i++ {
			if l, ok := c.Format(i); ok {
				counts[l]++
			}
		}
		out[name] = counts
	}
	return out
}
