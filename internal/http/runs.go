package http

import (
	"context"
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v4"

	"github.com/jmehdipour/crm-analytics/internal/model"
	"github.com/jmehdipour/crm-analytics/internal/util"
)

// Publisher puts run requests on the run-request topic.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type runReq struct {
	FirmID   int64  `json:"firm_id"`
	Analysis string `json:"analysis"`
}

// runHandler queues a run for the worker; the response carries the request id
// the job events will reference.
func runHandler(pub Publisher) echo.HandlerFunc {
	return func(c echo.Context) error {
		if pub == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "run queue not configured"})
		}
		var req runReq
		if err := c.Bind(&req); err != nil || req.FirmID < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		analysis, ok := model.ParseAnalysis(req.Analysis)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid analysis"})
		}

		rr := model.RunRequest{ID: util.NewVersion(), FirmID: req.FirmID, Analysis: analysis}
		if err := pub.PublishJSON(c.Request().Context(), strconv.FormatInt(rr.FirmID, 10), rr); err != nil {
			c.Logger().Errorf("publish run request: %v", err)
			return c.JSON(http.StatusBadGateway, map[string]string{"error": "queue error"})
		}
		return c.JSON(http.StatusAccepted, map[string]any{
			"queued":   true,
			"id":       rr.ID,
			"firm_id":  rr.FirmID,
			"analysis": rr.Analysis,
		})
	}
}
