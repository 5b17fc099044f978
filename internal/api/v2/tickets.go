package api

import (
	"net/http"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/repository"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/labstack/echo/v4"
)

// TicketResponse is a page of maintenance requests.
type TicketResponse struct {
	Tickets []entities.MaintenanceRequest `json:"tickets"`
	Total   int64                         `json:"total"`
	Count   int                           `json:"count"`
	Offset  int                           `json:"offset"`
}

func (c *Controller) initTicketRoutes() {
	tickets := c.Group.Group("/tickets")
	tickets.GET("", c.ListTickets)
	tickets.GET("/:id", c.GetTicket)
}

// ListTickets returns maintenance requests newest first.
// GET /api/v2/tickets?equipment_id=&trigger_id=&stage=&priority=&request_type=&limit=&offset=
func (c *Controller) ListTickets(ctx echo.Context) error {
	return c.listTickets(ctx, repository.MaintenanceRequestFilter{
		EquipmentID: ctx.QueryParam("equipment_id"),
		TriggerID:   ctx.QueryParam("trigger_id"),
		Stage:       ctx.QueryParam("stage"),
		Priority:    ctx.QueryParam("priority"),
		RequestType: ctx.QueryParam("request_type"),
	})
}

// GetTicket returns one maintenance request.
// GET /api/v2/tickets/:id
func (c *Controller) GetTicket(ctx echo.Context) error {
	id := ctx.Param("id")
	ticket, err := c.deps.Repos.Requests.GetRequest(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return ctx.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown ticket " + id, Message: "Ticket not found"})
		}
		return c.HandleError(ctx, err, "Failed to get ticket", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, ticket)
}

// listTickets applies limit and offset from the query string to filter and writes the page.
func (c *Controller) listTickets(ctx echo.Context, filter repository.MaintenanceRequestFilter) error {
	limit, err := queryInt(ctx, "limit", cbm.DefaultLogLimit)
	if err != nil {
		return badRequest(ctx, "limit must be an integer")
	}
	offset, err := queryInt(ctx, "offset", 0)
	if err != nil {
		return badRequest(ctx, "offset must be an integer")
	}
	if limit <= 0 || limit > cbm.MaxLogLimit {
		limit = cbm.MaxLogLimit
	}
	filter.Limit = limit
	filter.Offset = max(offset, 0)

	tickets, total, err := c.deps.Repos.Requests.ListRequests(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list tickets", http.StatusInternalServerError)
	}
	if tickets == nil {
		tickets = []entities.MaintenanceRequest{}
	}
	return ctx.JSON(http.StatusOK, TicketResponse{Tickets: tickets, Total: total, Count: len(tickets), Offset: filter.Offset})
}
