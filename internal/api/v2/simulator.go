package api

import (
	"net/http"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/simulator"
	"github.com/labstack/echo/v4"
)

// SetSensorRequest forces one simulated sensor to a value and ingests it.
type SetSensorRequest struct {
	EquipmentID string   `json:"equipment_id"`
	Parameter   string   `json:"parameter"`
	Value       *float64 `json:"value"`
}

func (c *Controller) initSimulatorRoutes() {
	sim := c.Group.Group("/simulator", c.requireSimulator)
	sim.GET("", c.GetSimulatorStatus)
	sim.POST("/start", c.StartSimulator)
	sim.POST("/stop", c.StopSimulator)
	sim.POST("/set", c.SetSensor)
}

// requireSimulator rejects simulator calls when no simulator is configured.
func (c *Controller) requireSimulator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if c.deps.Simulator == nil {
			return ctx.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   "simulator not configured",
				Message: "Simulator is not available",
			})
		}
		return next(ctx)
	}
}

// GetSimulatorStatus returns the simulator state and its sensors.
// GET /api/v2/simulator
func (c *Controller) GetSimulatorStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.deps.Simulator.Status())
}

// StartSimulator begins ticking. The run outlives the request.
// POST /api/v2/simulator/start
func (c *Controller) StartSimulator(ctx echo.Context) error {
	if err := c.deps.Simulator.Start(c.ctx); err != nil {
		if errors.Is(err, simulator.ErrAlreadyRunning) {
			return ctx.JSON(http.StatusConflict, ErrorResponse{Error: err.Error(), Message: "Simulator is already running"})
		}
		return c.HandleError(ctx, err, "Failed to start simulator", http.StatusInternalServerError)
	}
	c.log.Info("simulator started over API")
	return ctx.JSON(http.StatusOK, c.deps.Simulator.Status())
}

// StopSimulator halts ticking. Stopping a stopped simulator is a no-op.
// POST /api/v2/simulator/stop
func (c *Controller) StopSimulator(ctx echo.Context) error {
	c.deps.Simulator.Stop()
	return ctx.JSON(http.StatusOK, c.deps.Simulator.Status())
}

// SetSensor overrides a sensor value and ingests it immediately.
// POST /api/v2/simulator/set
func (c *Controller) SetSensor(ctx echo.Context) error {
	var req SetSensorRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Message: cbm.MessageFailed})
	}
	if req.Value == nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "value is required", Message: cbm.MessageFailed})
	}

	result, err := c.deps.Simulator.Set(ctx.Request().Context(), req.EquipmentID, req.Parameter, *req.Value)
	if err != nil {
		return c.HandleError(ctx, err, cbm.MessageFailed, http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, result)
}
