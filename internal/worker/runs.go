package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/crm-analytics/internal/kafka"
	"github.com/jmehdipour/crm-analytics/internal/model"
	"github.com/jmehdipour/crm-analytics/internal/pipeline"
	"github.com/jmehdipour/crm-analytics/internal/util"
)

// Source is the part of kafka.Consumer the worker needs.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Runner executes one run request.
type Runner interface {
	Run(ctx context.Context, req model.RunRequest) (*pipeline.Report, error)
}

// RunConsumer:
// - fetches run requests from Kafka,
// - runs them one at a time (a run already walks every firm),
// - commits after the run, so an interrupted run is redelivered.
type RunConsumer struct {
	Source Source
	Runner Runner
	Log    *zap.Logger

	// RetryWait is the pause after a failed fetch.
	RetryWait time.Duration
}

func NewRunConsumer(src Source, r Runner, log *zap.Logger) *RunConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &RunConsumer{Source: src, Runner: r, Log: log, RetryWait: 200 * time.Millisecond}
}

// Run blocks until ctx is cancelled.
func (w *RunConsumer) Run(ctx context.Context) error {
	for {
		m, err := w.Source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.Log.Warn("kafka fetch failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(w.RetryWait):
			}
			continue
		}
		if err := w.processOne(ctx, m); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// processOne only returns an error when the message must not be committed.
func (w *RunConsumer) processOne(ctx context.Context, m kafka.Message) error {
	req, err := decodeRequest(m.Value)
	if err != nil {
		// poison → commit, skip
		w.Log.Warn("bad run request", zap.Int64("offset", m.Offset), zap.Error(err))
		w.commit(ctx, m)
		return nil
	}

	log := w.Log.With(zap.String("request_id", req.ID), zap.Int64("firm_id", req.FirmID), zap.String("analysis", req.Analysis.String()))
	log.Info("run started")
	rep, err := w.Runner.Run(ctx, req)
	if ctx.Err() != nil {
		log.Warn("run interrupted, leaving request uncommitted")
		return ctx.Err()
	}
	if err != nil {
		log.Error("run failed", zap.Error(err))
	} else {
		log.Info("run finished", zap.Int("firms", len(rep.Firms)), zap.Int("failed_jobs", rep.Failed()))
	}
	w.commit(ctx, m)
	return nil
}

func (w *RunConsumer) commit(ctx context.Context, m kafka.Message) {
	if err := w.Source.Commit(ctx, m); err != nil {
		w.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
	}
}

// decodeRequest parses a RunRequest and fills the id when the producer left
// it out.
func decodeRequest(b []byte) (model.RunRequest, error) {
	var raw struct {
		ID       string `json:"id"`
		FirmID   int64  `json:"firm_id"`
		Analysis string `json:"analysis"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return model.RunRequest{}, err
	}
	if raw.FirmID < 0 {
		return model.RunRequest{}, errors.New("negative firm_id")
	}
	a, ok := model.ParseAnalysis(raw.Analysis)
	if !ok {
		return model.RunRequest{}, errors.New("unknown analysis " + raw.Analysis)
	}
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		id = util.NewVersion()
	}
	return model.RunRequest{ID: id, FirmID: raw.FirmID, Analysis: a}, nil
}
