package observability

import (
	"fmt"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/getsentry/sentry-go"
)

// SentryReporter forwards enhanced errors to Sentry. It implements errors.Reporter.
type SentryReporter struct {
	hub *sentry.Hub
}

// NewSentryReporter reports through hub.
func NewSentryReporter(hub *sentry.Hub) *SentryReporter {
	return &SentryReporter{hub: hub}
}

// InitSentry creates a client from settings. It returns nil when reporting is disabled.
func InitSentry(settings *conf.SentrySettings, release string) (*SentryReporter, error) {
	if !settings.Enabled {
		return nil, nil
	}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              settings.DSN,
		Environment:      settings.Environment,
		Release:          release,
		SampleRate:       settings.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return NewSentryReporter(sentry.NewHub(client, sentry.NewScope())), nil
}

// Report sends err with its component, category and context attached.
func (r *SentryReporter) Report(err *errors.EnhancedError) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", err.GetComponent())
		scope.SetTag("category", string(err.GetCategory()))
		if ctx := err.GetContext(); len(ctx) > 0 {
			scope.SetContext("error", sentry.Context(ctx))
		}
		r.hub.CaptureException(err.StackError())
	})
}

// Flush waits for queued events to be sent.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}

var _ errors.Reporter = (*SentryReporter)(nil)
