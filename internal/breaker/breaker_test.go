package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAndProbes(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := New(2, time.Minute)
	b.now = func() time.Time { return now }

	boom := errors.New("boom")
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, b.Do(fail), boom)
	assert.Equal(t, "closed", b.State())
	assert.ErrorIs(t, b.Do(fail), boom)
	assert.Equal(t, "open", b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	// failed probe re-opens
	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, b.Do(fail), boom)
	assert.Equal(t, "open", b.State())

	now = now.Add(2 * time.Minute)
	assert.NoError(t, b.Do(ok))
	assert.Equal(t, "closed", b.State())
}

func TestHalfOpenAllowsOneProbe(t *testing.T) {
	now := time.Now()
	b := New(1, time.Second)
	b.now = func() time.Time { return now }
	b.OnFailure()

	now = now.Add(2 * time.Second)
	assert.True(t, b.TryAcquire())
	assert.Equal(t, "half-open", b.State())
	assert.False(t, b.TryAcquire(), "second caller waits for the probe")
}
