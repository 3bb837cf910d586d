package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/jmehdipour/crm-analytics/internal/churn"
	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/gbdt"
	"github.com/jmehdipour/crm-analytics/internal/metrics"
)

const maxScoreRecords = 10000

type scoreReq struct {
	Records []map[string]any `json:"records"`
}

type scoreRow struct {
	CustomerID  any     `json:"customer_id,omitempty"`
	Probability float64 `json:"probability"`
	Churn       bool    `json:"churn"`
	Risk        string  `json:"risk"`
}

// errorStatus maps pipeline error codes onto HTTP statuses.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrModelNotFound):
		return http.StatusNotFound, "model not found"
	case errors.Is(err, apperrors.ErrSchemaMismatch):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperrors.ErrDataUnavailable):
		return http.StatusNotFound, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func scoreHandler(store churn.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		schema := strings.TrimSpace(c.Param("schema"))
		var req scoreReq
		if err := c.Bind(&req); err != nil || schema == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if len(req.Records) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "no records"})
		}
		if len(req.Records) > maxScoreRecords {
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": "too many records"})
		}

		ctx := c.Request().Context()
		a, err := churn.Load(ctx, store, schema)
		if err != nil {
			status, msg := errorStatus(err)
			if status == http.StatusInternalServerError {
				c.Logger().Errorf("load churn model %s: %v", schema, err)
			}
			return c.JSON(status, map[string]string{"error": msg})
		}
		prob, err := a.ScoreRecords(req.Records)
		if err != nil {
			status, msg := errorStatus(err)
			return c.JSON(status, map[string]string{"error": msg})
		}

		rows := make([]scoreRow, len(prob))
		for i, p := range prob {
			risk := churn.RiskClass(p)
			rows[i] = scoreRow{
				CustomerID:  req.Records[i][churn.ColCustomerID],
				Probability: p,
				Churn:       p >= churn.ScoreThreshold,
				Risk:        risk,
			}
			metrics.CustomersScored.WithLabelValues(risk).Inc()
		}
		return c.JSON(http.StatusOK, map[string]any{
			"schema":  schema,
			"version": a.Version,
			"run_id":  a.RunID,
			"count":   len(rows),
			"results": rows,
		})
	}
}

type modelInfo struct {
	Key           string              `json:"key"`
	Version       string              `json:"version"`
	RunID         int64               `json:"run_id"`
	TrainedAt     time.Time           `json:"trained_at"`
	Features      []string            `json:"features"`
	Levels        map[string][]string `json:"levels"`
	Trees         int                 `json:"trees"`
	BestIteration int                 `json:"best_iteration"`
	Validation    gbdt.Evaluation     `json:"validation"`
}

func modelHandler(store churn.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		schema := strings.TrimSpace(c.Param("schema"))
		a, err := churn.Load(c.Request().Context(), store, schema)
		if err != nil {
			status, msg := errorStatus(err)
			return c.JSON(status, map[string]string{"error": msg})
		}
		return c.JSON(http.StatusOK, modelInfo{
			Key:           a.Key,
			Version:       a.Version,
			RunID:         a.RunID,
			TrainedAt:     a.TrainedAt,
			Features:      a.Features,
			Levels:        a.Levels,
			Trees:         len(a.Model.Trees),
			BestIteration: a.Model.BestIteration,
			Validation:    a.Validation,
		})
	}
}
