package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/crm-analytics/internal/kafka"
	"github.com/jmehdipour/crm-analytics/internal/model"
	"github.com/jmehdipour/crm-analytics/internal/pipeline"
)

// fakeSource serves msgs, then blocks until ctx ends.
type fakeSource struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	fetchErrs int
	committed []int64
	drained   chan struct{}
}

func (s *fakeSource) Fetch(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	if s.fetchErrs > 0 {
		s.fetchErrs--
		s.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(s.msgs) > 0 {
		m := s.msgs[0]
		s.msgs = s.msgs[1:]
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()
	close(s.drained)
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (s *fakeSource) Commit(_ context.Context, m kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, m.Offset)
	return nil
}

type fakeRunner struct {
	reqs []model.RunRequest
	err  error
}

func (r *fakeRunner) Run(_ context.Context, req model.RunRequest) (*pipeline.Report, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	return &pipeline.Report{}, nil
}

func runUntilDrained(t *testing.T, src *fakeSource, r Runner) {
	t.Helper()
	src.drained = make(chan struct{})
	w := NewRunConsumer(src, r, nil)
	w.RetryWait = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-src.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain the source")
	}
	cancel()
	require.NoError(t, <-done)
}

func TestRunConsumerRunsAndCommits(t *testing.T) {
	src := &fakeSource{
		fetchErrs: 1,
		msgs: []kafka.Message{
			{Offset: 1, Value: []byte(`{"id":"a","firm_id":7,"analysis":"churn"}`)},
			{Offset: 2, Value: []byte(`not json`)},
			{Offset: 3, Value: []byte(`{"analysis":"rfm"}`)},
			{Offset: 4, Value: []byte(`{"analysis":"forecast"}`)},
		},
	}
	r := &fakeRunner{}
	runUntilDrained(t, src, r)

	assert.Equal(t, []int64{1, 2, 3, 4}, src.committed, "poison messages are committed too")
	require.Len(t, r.reqs, 2)
	assert.Equal(t, model.RunRequest{ID: "a", FirmID: 7, Analysis: model.AnalysisChurn}, r.reqs[0])
	assert.Equal(t, model.AnalysisSegmentation, r.reqs[1].Analysis)
	assert.Len(t, r.reqs[1].ID, 26, "missing ids get a ULID")
}

func TestRunConsumerCommitsFailedRuns(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{{Offset: 9, Value: []byte(`{"id":"x","firm_id":404}`)}}}
	r := &fakeRunner{err: errors.New("firm 404 is not registered")}
	runUntilDrained(t, src, r)

	assert.Equal(t, []int64{9}, src.committed)
}

func TestDecodeRequest(t *testing.T) {
	req, err := decodeRequest([]byte(`{"id":" r1 ","analysis":"ALL"}`))
	require.NoError(t, err)
	assert.Equal(t, model.RunRequest{ID: "r1", Analysis: model.AnalysisAll}, req)

	_, err = decodeRequest([]byte(`{"firm_id":-1}`))
	assert.Error(t, err)
}
