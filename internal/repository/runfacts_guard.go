package repository

import (
	"context"
	"time"

	"github.com/jmehdipour/crm-analytics/internal/breaker"
)

// guardedRunFacts stops calling ClickHouse after repeated failures so a run
// over many firms does not wait out a timeout per firm.
type guardedRunFacts struct {
	inner RunFactsRepository
	br    *breaker.Breaker
}

// GuardRunFacts wraps r with a breaker that opens after threshold
// consecutive failures for openFor.
func GuardRunFacts(r RunFactsRepository, threshold int, openFor time.Duration) RunFactsRepository {
	return &guardedRunFacts{inner: r, br: breaker.New(threshold, openFor)}
}

func (g *guardedRunFacts) InsertPerformance(ctx context.Context, f PerformanceFact) error {
	return g.br.Do(func() error { return g.inner.InsertPerformance(ctx, f) })
}

func (g *guardedRunFacts) InsertImportances(ctx context.Context, fs []ImportanceFact) error {
	return g.br.Do(func() error { return g.inner.InsertImportances(ctx, fs) })
}

func (g *guardedRunFacts) InsertSegmentCounts(ctx context.Context, cs []SegmentCount) error {
	return g.br.Do(func() error { return g.inner.InsertSegmentCounts(ctx, cs) })
}

func (g *guardedRunFacts) ListPerformance(ctx context.Context, schema string, limit, offset int) ([]PerformanceFact, error) {
	var out []PerformanceFact
	err := g.br.Do(func() error {
		var err error
		out, err = g.inner.ListPerformance(ctx, schema, limit, offset)
		return err
	})
	return out, err
}
