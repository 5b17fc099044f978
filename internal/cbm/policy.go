package cbm

import (
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	gocache "github.com/patrickmn/go-cache"
)

// IncidentPolicy decides whether a violated rule produces a new request.
// Admit is called once per violated rule per reading; Release undoes an Admit
// whose request was never persisted.
type IncidentPolicy interface {
	Admit(rule *entities.MaintenanceTrigger, reading Reading) bool
	Release(rule *entities.MaintenanceTrigger, reading Reading)
}

// EveryReading admits every violation: one request per violated rule per reading.
type EveryReading struct{}

func (EveryReading) Admit(*entities.MaintenanceTrigger, Reading) bool { return true }

func (EveryReading) Release(*entities.MaintenanceTrigger, Reading) {}

// CooldownPolicy admits the first violation of a rule and suppresses the same
// rule until window has elapsed.
type CooldownPolicy struct {
	window time.Duration
	cache  *gocache.Cache
}

// NewCooldownPolicy creates a policy with the given suppression window.
// Expired entries are replaced on the next Add, so no janitor goroutine runs.
func NewCooldownPolicy(window time.Duration) *CooldownPolicy {
	return &CooldownPolicy{
		window: window,
		cache:  gocache.New(window, 0),
	}
}

// Admit atomically claims the rule's window.
func (p *CooldownPolicy) Admit(rule *entities.MaintenanceTrigger, reading Reading) bool {
	return p.cache.Add(rule.ID, reading.Value, p.window) == nil
}

func (p *CooldownPolicy) Release(rule *entities.MaintenanceTrigger, _ Reading) {
	p.cache.Delete(rule.ID)
}

// Window returns the suppression window.
func (p *CooldownPolicy) Window() time.Duration { return p.window }

// PolicyFor returns CooldownPolicy for a positive window, EveryReading otherwise.
func PolicyFor(cooldown time.Duration) IncidentPolicy {
	if cooldown > 0 {
		return NewCooldownPolicy(cooldown)
	}
	return EveryReading{}
}
