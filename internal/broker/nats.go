// Package broker publishes engine outcomes to NATS for downstream consumers.
package broker

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/nats-io/nats.go"
)

const (
	sinkName      = "nats"
	defaultPrefix = "cbm"

	subjectTicketCreated  = "ticket.created"
	subjectReadingAnomaly = "reading.anomaly"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// SinkObserver counts forward attempts.
type SinkObserver interface {
	ObserveSink(sink string, err error)
}

// AnomalyEvent is the payload of <prefix>.reading.anomaly.
type AnomalyEvent struct {
	LogEntryID      string    `json:"log_entry_id"`
	EquipmentID     string    `json:"equipment_id"`
	Parameter       string    `json:"parameter"`
	Value           float64   `json:"value"`
	ObservedAt      time.Time `json:"observed_at"`
	ViolatedRuleIDs []string  `json:"violated_rule_ids"`
	TicketIDs       []string  `json:"ticket_ids"`
}

// Publisher forwards anomalous outcomes and their tickets.
type Publisher struct {
	conn     Conn
	prefix   string
	observer SinkObserver
	log      logger.Logger
}

// Connect dials the server in settings and returns a publisher over it.
func Connect(settings *conf.NATSSettings, observer SinkObserver, log logger.Logger) (*Publisher, error) {
	if log == nil {
		log = logger.Global()
	}
	log = log.Module("broker")

	nc, err := nats.Connect(settings.URL,
		nats.Name("gearguard"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", logger.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to connect to nats: %w", err)).
			Component("broker").
			Category(errors.CategoryBroker).
			Context("url", settings.URL).
			Build()
	}
	return NewPublisher(nc, settings.SubjectPrefix, observer, log), nil
}

// NewPublisher wraps an existing connection. An empty prefix means "cbm".
func NewPublisher(conn Conn, prefix string, observer SinkObserver, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Global().Module("broker")
	}
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Publisher{conn: conn, prefix: prefix, observer: observer, log: log}
}

// Subject returns the full subject for a suffix such as "ticket.created".
func (p *Publisher) Subject(suffix string) string {
	return p.prefix + "." + suffix
}

// Handle is a cbm.OutcomeHandler. Normal readings are not forwarded.
func (p *Publisher) Handle(outcome *cbm.Outcome) {
	if !outcome.IsAnomaly() {
		return
	}

	ticketIDs := make([]string, 0, len(outcome.Tickets))
	for i := range outcome.Tickets {
		ticketIDs = append(ticketIDs, outcome.Tickets[i].ID)
		p.publish(p.Subject(subjectTicketCreated), &outcome.Tickets[i])
	}

	p.publish(p.Subject(subjectReadingAnomaly), AnomalyEvent{
		LogEntryID:      outcome.LogEntry.ID,
		EquipmentID:     outcome.LogEntry.EquipmentID,
		Parameter:       outcome.LogEntry.Parameter,
		Value:           outcome.LogEntry.Value,
		ObservedAt:      outcome.LogEntry.ObservedAt,
		ViolatedRuleIDs: outcome.ViolatedRuleIDs,
		TicketIDs:       ticketIDs,
	})
}

func (p *Publisher) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err == nil {
		err = p.conn.Publish(subject, data)
	}
	if p.observer != nil {
		p.observer.ObserveSink(sinkName, err)
	}
	if err != nil {
		p.log.Warn("failed to publish outcome",
			logger.String("subject", subject),
			logger.Error(err))
	}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
