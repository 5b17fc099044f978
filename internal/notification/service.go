package notification

import (
	"context"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
)

const sinkName = "notify"

// SinkObserver counts delivery attempts.
type SinkObserver interface {
	ObserveSink(sink string, err error)
}

// typeFilter is implemented by providers that only handle some notification types.
type typeFilter interface {
	Accepts(typ Type) bool
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Providers []Provider
	// MinPriority drops ticket notifications below this priority. Zero keeps all.
	MinPriority Priority
	// Timeout bounds one delivery to all providers.
	Timeout  time.Duration
	Observer SinkObserver
}

// Service fans ticket notifications out to providers.
type Service struct {
	providers   []Provider
	minPriority Priority
	timeout     time.Duration
	observer    SinkObserver
	log         logger.Logger
}

// NewService creates a service over cfg.Providers.
func NewService(cfg ServiceConfig, log logger.Logger) *Service {
	if log == nil {
		log = logger.Global()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	return &Service{
		providers:   cfg.Providers,
		minPriority: cfg.MinPriority,
		timeout:     cfg.Timeout,
		observer:    cfg.Observer,
		log:         log.Module("notification"),
	}
}

// FromSettings builds a service with one shoutrrr provider for settings.URLs
// and validates the URLs up front.
func FromSettings(settings *conf.NotifySettings, observer SinkObserver, log logger.Logger) (*Service, error) {
	provider := NewShoutrrrProvider("shoutrrr", true, settings.URLs, []Type{TypeTicket, TypeTest}, settings.Timeout.Std())
	if err := provider.ValidateConfig(); err != nil {
		return nil, err
	}
	var minPriority Priority
	if settings.MinPriority != "" {
		minPriority = ParsePriority(settings.MinPriority)
	}
	return NewService(ServiceConfig{
		Providers:   []Provider{provider},
		MinPriority: minPriority,
		Timeout:     settings.Timeout.Std(),
		Observer:    observer,
	}, log), nil
}

// Handle is a cbm.OutcomeHandler. Each ticket in the outcome becomes one notification.
func (s *Service) Handle(outcome *cbm.Outcome) {
	for i := range outcome.Tickets {
		n := FromTicket(&outcome.Tickets[i], outcome.Reading)
		if n.Priority < s.minPriority {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		_ = s.Dispatch(ctx, n)
		cancel()
	}
}

// Dispatch sends n to every enabled provider that accepts its type.
// Failures are logged and counted; the joined error is returned.
func (s *Service) Dispatch(ctx context.Context, n *Notification) error {
	var errs []error
	for _, p := range s.providers {
		if !p.Enabled() {
			continue
		}
		if f, ok := p.(typeFilter); ok && !f.Accepts(n.Type) {
			continue
		}

		err := p.Send(ctx, n)
		if s.observer != nil {
			s.observer.ObserveSink(sinkName, err)
		}
		if err != nil {
			s.log.Warn("failed to send notification",
				logger.String("provider", p.Name()),
				logger.String("ticket_id", n.TicketID),
				logger.Error(err))
			errs = append(errs, err)
			continue
		}
		s.log.Debug("notification sent",
			logger.String("provider", p.Name()),
			logger.String("title", n.Title))
	}
	return errors.Join(errs...)
}

// SendTest dispatches a test notification regardless of MinPriority.
func (s *Service) SendTest(ctx context.Context) error {
	n := NewNotification(TypeTest, PriorityLow,
		"GearGuard test notification",
		"Maintenance tickets opened by condition-based triggers will be delivered here.")
	return s.Dispatch(ctx, n)
}
