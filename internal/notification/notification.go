// Package notification pushes maintenance tickets opened by the trigger engine
// to external services (ntfy, Slack, Telegram, SMTP, ...) through shoutrrr.
package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/google/uuid"
)

// Type is the kind of notification.
type Type string

const (
	TypeTicket Type = "ticket"
	TypeTest   Type = "test"
)

// Priority orders notifications for filtering.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

var priorityNames = map[Priority]string{
	PriorityLow:      entities.PriorityLow,
	PriorityMedium:   entities.PriorityMedium,
	PriorityHigh:     entities.PriorityHigh,
	PriorityCritical: entities.PriorityCritical,
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// ParsePriority maps a ticket priority name to a Priority, case-insensitively.
// Unknown names map to PriorityMedium, the ticket default.
func ParsePriority(name string) Priority {
	for p, n := range priorityNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return p
		}
	}
	return PriorityMedium
}

// Notification is one message handed to providers.
type Notification struct {
	ID          string
	Type        Type
	Priority    Priority
	Title       string
	Message     string
	EquipmentID string
	TicketID    string
	Timestamp   time.Time
}

// NewNotification creates a notification with a fresh id.
func NewNotification(typ Type, priority Priority, title, message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Type:      typ,
		Priority:  priority,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// FromTicket builds the notification for a ticket opened while processing reading.
func FromTicket(ticket *entities.MaintenanceRequest, reading cbm.Reading) *Notification {
	n := NewNotification(TypeTicket, ParsePriority(ticket.Priority), ticket.Title, ticketMessage(ticket, reading))
	n.EquipmentID = ticket.EquipmentID
	n.TicketID = ticket.ID
	if !ticket.CreatedAt.IsZero() {
		n.Timestamp = ticket.CreatedAt
	}
	return n
}

func ticketMessage(ticket *entities.MaintenanceRequest, reading cbm.Reading) string {
	var b strings.Builder
	if ticket.Description != "" {
		b.WriteString(ticket.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Equipment: %s\n", ticket.EquipmentID)
	fmt.Fprintf(&b, "Reading: %s = %s\n", reading.Parameter, cbm.FormatValue(reading.Value))
	fmt.Fprintf(&b, "Priority: %s\n", ticket.Priority)
	fmt.Fprintf(&b, "Ticket: %s", ticket.ID)
	return b.String()
}
