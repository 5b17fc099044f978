package api

import (
	"net/http"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/repository"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// equipmentTelemetryLimit is how many readings the per-equipment view returns.
const equipmentTelemetryLimit = 100

// TelemetryRequest is the body of POST /telemetry. Value is a pointer so a missing
// value is rejected instead of being read as zero.
type TelemetryRequest struct {
	EquipmentID string    `json:"equipment_id"`
	Parameter   string    `json:"parameter"`
	Value       *float64  `json:"value"`
	ObservedAt  time.Time `json:"observed_at"`
}

// LogResponse is a page of telemetry log entries.
type LogResponse struct {
	Entries []entities.TelemetryLog `json:"entries"`
	Total   int64                   `json:"total"`
	Count   int                     `json:"count"`
	Offset  int                     `json:"offset"`
}

func (c *Controller) initTelemetryRoutes() {
	telemetry := c.Group.Group("/telemetry")

	var limiters []echo.MiddlewareFunc
	if c.deps.IngestRateLimit > 0 {
		burst := c.deps.IngestBurst
		if burst <= 0 {
			burst = int(c.deps.IngestRateLimit) + 1
		}
		limiters = append(limiters, middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: middleware.DefaultSkipper,
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(c.deps.IngestRateLimit),
				Burst:     burst,
				ExpiresIn: time.Minute,
			}),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(ctx echo.Context, err error) error {
				return ctx.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Message: cbm.MessageFailed})
			},
			DenyHandler: func(ctx echo.Context, _ string, _ error) error {
				return ctx.JSON(http.StatusTooManyRequests, ErrorResponse{
					Error:   "too many telemetry submissions, slow down",
					Message: cbm.MessageFailed,
				})
			},
		}))
	}

	telemetry.POST("", c.SubmitTelemetry, limiters...)
	telemetry.GET("/log", c.ListTelemetryLog)
	telemetry.GET("/ws", c.HandleTelemetryWS)
}

// SubmitTelemetry ingests one reading.
// POST /api/v2/telemetry
func (c *Controller) SubmitTelemetry(ctx echo.Context) error {
	var req TelemetryRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Message: cbm.MessageFailed})
	}
	if req.Value == nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "value is required", Message: cbm.MessageFailed})
	}

	result, err := c.deps.Engine.Ingest(ctx.Request().Context(), cbm.Reading{
		EquipmentID: req.EquipmentID,
		Parameter:   req.Parameter,
		Value:       *req.Value,
		ObservedAt:  req.ObservedAt,
	})
	if err != nil {
		return c.HandleError(ctx, err, cbm.MessageFailed, http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusCreated, result)
}

// ListTelemetryLog returns log entries newest first.
// GET /api/v2/telemetry/log?equipment_id=&parameter=&anomaly=true&limit=&offset=
func (c *Controller) ListTelemetryLog(ctx echo.Context) error {
	limit, err := queryInt(ctx, "limit", cbm.DefaultLogLimit)
	if err != nil {
		return badRequest(ctx, "limit must be an integer")
	}
	offset, err := queryInt(ctx, "offset", 0)
	if err != nil {
		return badRequest(ctx, "offset must be an integer")
	}

	filter := repository.TelemetryLogFilter{
		EquipmentID: ctx.QueryParam("equipment_id"),
		Parameter:   ctx.QueryParam("parameter"),
		AnomalyOnly: ctx.QueryParam("anomaly") == QueryValueTrue,
		Limit:       limit,
		Offset:      offset,
	}
	entries, total, err := c.deps.Engine.ListLog(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list telemetry log", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, LogResponse{Entries: entries, Total: total, Count: len(entries), Offset: filter.Offset})
}

func (c *Controller) initEquipmentRoutes() {
	equipment := c.Group.Group("/equipment")
	equipment.GET("", c.ListEquipment)
	equipment.GET("/:id/telemetry", c.ListEquipmentTelemetry)
	equipment.GET("/:id/tickets", c.ListEquipmentTickets)
}

// ListEquipment returns every equipment record.
// GET /api/v2/equipment
func (c *Controller) ListEquipment(ctx echo.Context) error {
	items, err := c.deps.Repos.Equipment.ListEquipment(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list equipment", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"equipment": items, "count": len(items)})
}

// ListEquipmentTelemetry returns the latest readings of one equipment.
// GET /api/v2/equipment/:id/telemetry
func (c *Controller) ListEquipmentTelemetry(ctx echo.Context) error {
	id := ctx.Param("id")
	if ok, err := c.lookupEquipment(ctx, id); !ok {
		return err
	}
	entries, total, err := c.deps.Engine.ListLog(ctx.Request().Context(), repository.TelemetryLogFilter{
		EquipmentID: id,
		Limit:       equipmentTelemetryLimit,
	})
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list equipment telemetry", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, LogResponse{Entries: entries, Total: total, Count: len(entries)})
}

// ListEquipmentTickets returns the maintenance requests of one equipment.
// GET /api/v2/equipment/:id/tickets
func (c *Controller) ListEquipmentTickets(ctx echo.Context) error {
	id := ctx.Param("id")
	if ok, err := c.lookupEquipment(ctx, id); !ok {
		return err
	}
	return c.listTickets(ctx, repository.MaintenanceRequestFilter{EquipmentID: id})
}

// lookupEquipment reports whether id exists. When it does not, the response has
// already been written and err is what the handler should return.
func (c *Controller) lookupEquipment(ctx echo.Context, id string) (ok bool, err error) {
	exists, err := c.deps.Repos.Equipment.Exists(ctx.Request().Context(), id)
	if err != nil {
		return false, c.HandleError(ctx, err, "Failed to look up equipment", http.StatusInternalServerError)
	}
	if !exists {
		return false, ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown equipment " + id, Message: "Equipment not found"})
	}
	return true, nil
}
