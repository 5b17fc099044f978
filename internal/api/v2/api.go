// Package api serves the GearGuard HTTP API under /api/v2.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/amshithnair/gearguard-odoo/internal/simulator"
	"github.com/labstack/echo/v4"
)

// QueryValueTrue is the accepted truthy query parameter value.
const QueryValueTrue = "true"

// Pinger checks datastore connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
	Dialect() string
}

// SimulatorControl is the driver surface exposed over HTTP.
type SimulatorControl interface {
	Start(ctx context.Context) error
	Stop()
	Status() simulator.Status
	Set(ctx context.Context, equipmentID, parameter string, value float64) (*cbm.IngestResult, error)
}

// ReadingCounter reports ingested readings by result.
type ReadingCounter interface {
	ReadingCounts() (map[string]float64, error)
}

// Notifier sends a test push notification to the configured services.
type Notifier interface {
	SendTest(ctx context.Context) error
}

// Deps are the collaborators the controller serves. Simulator, Metrics, Bus and Notifier are optional.
type Deps struct {
	Engine    *cbm.Engine
	Repos     cbm.Repositories
	DB        Pinger
	Simulator SimulatorControl
	Metrics   ReadingCounter
	Bus       *cbm.OutcomeBus
	Notifier  Notifier
	// IngestRateLimit is requests per second per client on POST /telemetry. 0 disables limiting.
	IngestRateLimit float64
	IngestBurst     int
	Version         string
}

// Controller handles the /api/v2 routes.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	deps Deps
	feed *outcomeFeed
	log  logger.Logger

	// ctx outlives requests; long-running work started over HTTP is bound to it.
	ctx context.Context
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New registers all routes on e. ctx bounds websocket sessions and simulator runs.
func New(ctx context.Context, e *echo.Echo, deps Deps, log logger.Logger) *Controller {
	if log == nil {
		log = logger.Global()
	}
	c := &Controller{
		Echo:  e,
		Group: e.Group("/api/v2"),
		deps:  deps,
		log:   log.Module("api"),
		ctx:   ctx,
	}
	if deps.Bus != nil {
		c.feed = newOutcomeFeed(deps.Bus)
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.initTelemetryRoutes()
	c.initEquipmentRoutes()
	c.initTriggerRoutes()
	c.initTicketRoutes()
	c.initSimulatorRoutes()
	c.initNotificationRoutes()
}

// Close detaches the live feed from the bus and disconnects its clients.
func (c *Controller) Close() {
	if c.feed != nil {
		c.feed.close()
	}
}

// HandleError writes err as an ErrorResponse. The status is derived from the error
// category when it carries one, otherwise fallback is used.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, fallback int) error {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		c.log.Error(message,
			logger.String("path", ctx.Path()),
			logger.Error(err))
	}
	return ctx.JSON(status, ErrorResponse{Error: err.Error(), Message: message})
}

func statusFor(err error, fallback int) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsPersistence(err):
		return http.StatusInternalServerError
	default:
		return fallback
	}
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Message: message})
}

// queryInt parses an optional integer query parameter.
func queryInt(ctx echo.Context, name string, def int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
