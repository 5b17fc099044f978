package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string             `json:"status"`
	Database string             `json:"database"`
	Dialect  string             `json:"dialect,omitempty"`
	Version  string             `json:"version,omitempty"`
	Readings map[string]float64 `json:"readings,omitempty"`
	Time     time.Time          `json:"time"`
}

// HealthCheck reports liveness and database reachability. A failed ping yields 503.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	resp := HealthResponse{Status: "ok", Database: "ok", Version: c.deps.Version, Time: time.Now().UTC()}
	status := http.StatusOK

	if c.deps.DB != nil {
		resp.Dialect = c.deps.DB.Dialect()
		if err := c.deps.DB.Ping(ctx.Request().Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	if c.deps.Metrics != nil {
		if counts, err := c.deps.Metrics.ReadingCounts(); err == nil {
			resp.Readings = counts
		}
	}
	return ctx.JSON(status, resp)
}
