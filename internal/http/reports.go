package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/jmehdipour/crm-analytics/internal/repository"
)

func listPerformanceHandler(facts repository.RunFactsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		if facts == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "reports not configured"})
		}
		schema := strings.TrimSpace(c.Param("schema"))

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		rows, err := facts.ListPerformance(c.Request().Context(), schema, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
