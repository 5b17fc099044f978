package observability

import (
	"fmt"
	"sync"
	"testing"

	"github.com/amshithnair/gearguard-odoo/internal/conf"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturingReporter(t *testing.T) (*SentryReporter, func() []*sentry.Event) {
	t.Helper()
	var (
		mu     sync.Mutex
		events []*sentry.Event
	)
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, event)
			return nil
		},
	})
	require.NoError(t, err)
	reporter := NewSentryReporter(sentry.NewHub(client, sentry.NewScope()))
	return reporter, func() []*sentry.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]*sentry.Event(nil), events...)
	}
}

func TestSentryReporter_AttachesTags(t *testing.T) {
	reporter, captured := newCapturingReporter(t)

	errors.SetReporter(reporter)
	t.Cleanup(func() { errors.SetReporter(nil) })

	_ = errors.New(fmt.Errorf("insert failed: %w", errors.NewStd("database is locked"))).
		Component("cbm").
		Category(errors.CategoryDatabase).
		Context("operation", "record reading").
		Build()

	events := captured()
	require.Len(t, events, 1)
	assert.Equal(t, "cbm", events[0].Tags["component"])
	assert.Equal(t, "database", events[0].Tags["category"])
	assert.Equal(t, "record reading", events[0].Contexts["error"]["operation"])
}

func TestSentryReporter_SkipsUserErrors(t *testing.T) {
	reporter, captured := newCapturingReporter(t)

	errors.SetReporter(reporter)
	t.Cleanup(func() { errors.SetReporter(nil) })

	_ = errors.Newf("value must be finite").Category(errors.CategoryValidation).Build()
	_ = errors.Newf("unknown equipment").Category(errors.CategoryNotFound).Build()

	assert.Empty(t, captured())
}

func TestInitSentry_Disabled(t *testing.T) {
	t.Parallel()

	reporter, err := InitSentry(&conf.SentrySettings{Enabled: false}, "dev")
	require.NoError(t, err)
	assert.Nil(t, reporter)

	_, err = InitSentry(&conf.SentrySettings{Enabled: true, DSN: "not a dsn"}, "dev")
	assert.Error(t, err)
}
