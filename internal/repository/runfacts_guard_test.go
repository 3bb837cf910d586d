package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jmehdipour/crm-analytics/internal/breaker"
)

type downFacts struct {
	RunFactsRepository
	calls int
}

func (d *downFacts) InsertSegmentCounts(context.Context, []SegmentCount) error {
	d.calls++
	return errors.New("dial tcp: connection refused")
}

func TestGuardRunFactsShortCircuits(t *testing.T) {
	inner := &downFacts{}
	g := GuardRunFacts(inner, 2, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := g.InsertSegmentCounts(ctx, []SegmentCount{{Label: "x"}})
		assert.Error(t, err)
		if i >= 2 {
			assert.ErrorIs(t, err, breaker.ErrOpen)
		}
	}
	assert.Equal(t, 2, inner.calls)
}
