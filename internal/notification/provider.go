package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"
)

const defaultSendTimeout = 10 * time.Second

// Provider delivers notifications to one destination.
type Provider interface {
	Name() string
	Enabled() bool
	ValidateConfig() error
	Send(ctx context.Context, n *Notification) error
}

// sender is the subset of the shoutrrr router used for delivery.
type sender interface {
	Send(message string, params *types.Params) []error
}

// ShoutrrrProvider sends through one or more shoutrrr service URLs,
// e.g. "ntfy://ntfy.sh/line-3" or "slack://token@channel".
type ShoutrrrProvider struct {
	name    string
	enabled bool
	urls    []string
	accepts map[Type]bool
	timeout time.Duration
	sender  sender
}

// NewShoutrrrProvider creates a provider. A nil or empty types list accepts every type.
// The URLs are parsed on the first Send or ValidateConfig.
func NewShoutrrrProvider(name string, enabled bool, urls []string, filter []Type, timeout time.Duration) *ShoutrrrProvider {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	p := &ShoutrrrProvider{
		name:    name,
		enabled: enabled,
		urls:    urls,
		timeout: timeout,
	}
	if len(filter) > 0 {
		p.accepts = make(map[Type]bool, len(filter))
		for _, t := range filter {
			p.accepts[t] = true
		}
	}
	return p
}

func (p *ShoutrrrProvider) Name() string  { return p.name }
func (p *ShoutrrrProvider) Enabled() bool { return p.enabled }

// Accepts reports whether the provider handles notifications of typ.
func (p *ShoutrrrProvider) Accepts(typ Type) bool {
	return p.accepts == nil || p.accepts[typ]
}

// ValidateConfig checks that at least one URL is configured and that every URL
// names a service shoutrrr knows.
func (p *ShoutrrrProvider) ValidateConfig() error {
	if len(p.urls) == 0 {
		return errors.Newf("provider %s has no urls", p.name).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}
	_, err := p.router()
	return err
}

func (p *ShoutrrrProvider) router() (sender, error) {
	if p.sender != nil {
		return p.sender, nil
	}
	r, err := shoutrrr.CreateSender(p.urls...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("invalid shoutrrr url: %w", err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("provider", p.name).
			Build()
	}
	p.sender = r
	return r, nil
}

// Send delivers n to every URL. shoutrrr has no context support, so the send
// runs in a goroutine and Send returns when ctx or the provider timeout expires.
func (p *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	s, err := p.router()
	if err != nil {
		return err
	}

	params := types.Params{}
	if n.Title != "" {
		params["title"] = n.Title
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	done := make(chan []error, 1)
	go func() {
		done <- s.Send(n.Message, &params)
	}()

	select {
	case errs := <-done:
		if err := errors.Join(errs...); err != nil {
			return errors.New(err).
				Component("notification").
				Category(errors.CategoryNotification).
				Context("provider", p.name).
				Context("notification_id", n.ID).
				Build()
		}
		return nil
	case <-ctx.Done():
		return errors.New(fmt.Errorf("send via %s: %w", p.name, ctx.Err())).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("provider", p.name).
			Build()
	}
}
