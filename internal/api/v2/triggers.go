package api

import (
	"net/http"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/labstack/echo/v4"
)

// TriggerRequest is the body of trigger create and update calls. IsActive is a
// pointer so that an omitted field means active rather than false.
type TriggerRequest struct {
	EquipmentID    string  `json:"equipment_id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Parameter      string  `json:"parameter"`
	Operator       string  `json:"operator"`
	Threshold      float64 `json:"threshold"`
	ActionTemplate string  `json:"action_template"`
	Priority       string  `json:"priority"`
	IsActive       *bool   `json:"is_active"`
	SortOrder      int     `json:"sort_order"`
}

// ToggleRequest is the body of PATCH /triggers/:id/toggle.
type ToggleRequest struct {
	Active *bool `json:"active"`
}

func (r *TriggerRequest) toEntity(id string) *entities.MaintenanceTrigger {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &entities.MaintenanceTrigger{
		ID:             id,
		EquipmentID:    r.EquipmentID,
		Name:           r.Name,
		Description:    r.Description,
		Parameter:      r.Parameter,
		Operator:       r.Operator,
		Threshold:      r.Threshold,
		ActionTemplate: r.ActionTemplate,
		Priority:       r.Priority,
		IsActive:       active,
		SortOrder:      r.SortOrder,
	}
}

func (c *Controller) initTriggerRoutes() {
	triggers := c.Group.Group("/triggers")
	triggers.GET("", c.ListTriggers)
	triggers.POST("", c.CreateTrigger)
	// Registered before /:id so "schema" is not read as an id.
	triggers.GET("/schema", c.GetTriggerSchema)
	triggers.GET("/:id", c.GetTrigger)
	triggers.PUT("/:id", c.UpdateTrigger)
	triggers.DELETE("/:id", c.DeleteTrigger)
	triggers.PATCH("/:id/toggle", c.ToggleTrigger)
}

// ListTriggers returns triggers in evaluation order.
// GET /api/v2/triggers?equipment_id=
func (c *Controller) ListTriggers(ctx echo.Context) error {
	rules, err := c.deps.Engine.ListRules(ctx.Request().Context(), ctx.QueryParam("equipment_id"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list triggers", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"triggers": rules,
		"count":    len(rules),
	})
}

// GetTriggerSchema returns the parameters, operators and priorities a trigger may use.
// GET /api/v2/triggers/schema
func (c *Controller) GetTriggerSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, cbm.GetSchema())
}

// GetTrigger returns a single trigger.
// GET /api/v2/triggers/:id
func (c *Controller) GetTrigger(ctx echo.Context) error {
	rule, err := c.deps.Engine.GetRule(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Trigger not found", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, rule)
}

// CreateTrigger stores a new trigger.
// POST /api/v2/triggers
func (c *Controller) CreateTrigger(ctx echo.Context) error {
	var req TriggerRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	rule := req.toEntity("")
	if err := c.deps.Engine.CreateRule(ctx.Request().Context(), rule); err != nil {
		return c.HandleError(ctx, err, "Failed to create trigger", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusCreated, rule)
}

// UpdateTrigger replaces an existing trigger.
// PUT /api/v2/triggers/:id
func (c *Controller) UpdateTrigger(ctx echo.Context) error {
	var req TriggerRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	rule := req.toEntity(ctx.Param("id"))
	if err := c.deps.Engine.UpdateRule(ctx.Request().Context(), rule); err != nil {
		return c.HandleError(ctx, err, "Failed to update trigger", http.StatusInternalServerError)
	}
	updated, err := c.deps.Engine.GetRule(ctx.Request().Context(), rule.ID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to reload trigger", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, updated)
}

// DeleteTrigger removes a trigger.
// DELETE /api/v2/triggers/:id
func (c *Controller) DeleteTrigger(ctx echo.Context) error {
	if err := c.deps.Engine.DeleteRule(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.HandleError(ctx, err, "Failed to delete trigger", http.StatusInternalServerError)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ToggleTrigger activates or deactivates a trigger. Without a body the current state is flipped.
// PATCH /api/v2/triggers/:id/toggle
func (c *Controller) ToggleTrigger(ctx echo.Context) error {
	var req ToggleRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "invalid request body")
	}

	reqCtx := ctx.Request().Context()
	id := ctx.Param("id")
	rule, err := c.deps.Engine.GetRule(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "Trigger not found", http.StatusInternalServerError)
	}

	active := !rule.IsActive
	if req.Active != nil {
		active = *req.Active
	}
	if err := c.deps.Engine.ToggleRule(reqCtx, id, active); err != nil {
		return c.HandleError(ctx, err, "Failed to toggle trigger", http.StatusInternalServerError)
	}
	rule.IsActive = active
	return ctx.JSON(http.StatusOK, rule)
}
