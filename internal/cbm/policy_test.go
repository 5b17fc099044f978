package cbm

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestEveryReading_AdmitsAll(t *testing.T) {
	t.Parallel()

	var p IncidentPolicy = EveryReading{}
	rule := &entities.MaintenanceTrigger{ID: "tr1"}
	for range 5 {
		assert.True(t, p.Admit(rule, Reading{}))
	}
}

func TestCooldownPolicy_WindowPerRule(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := NewCooldownPolicy(50 * time.Millisecond)
	tr1 := &entities.MaintenanceTrigger{ID: "tr1"}
	tr2 := &entities.MaintenanceTrigger{ID: "tr2"}

	assert.True(t, p.Admit(tr1, Reading{Value: 85}))
	assert.False(t, p.Admit(tr1, Reading{Value: 86}))
	assert.True(t, p.Admit(tr2, Reading{Value: 600}), "windows are independent per rule")

	assert.Eventually(t, func() bool { return p.Admit(tr1, Reading{Value: 87}) }, time.Second, 10*time.Millisecond)
}

func TestCooldownPolicy_Release(t *testing.T) {
	t.Parallel()

	p := NewCooldownPolicy(time.Hour)
	rule := &entities.MaintenanceTrigger{ID: "tr1"}

	assert.True(t, p.Admit(rule, Reading{}))
	p.Release(rule, Reading{})
	assert.True(t, p.Admit(rule, Reading{}))
}

func TestCooldownPolicy_ConcurrentAdmitOnce(t *testing.T) {
	t.Parallel()

	p := NewCooldownPolicy(time.Hour)
	rule := &entities.MaintenanceTrigger{ID: "tr1"}

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for range 32 {
		wg.Go(func() {
			if p.Admit(rule, Reading{}) {
				admitted.Add(1)
			}
		})
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted.Load())
}

func TestPolicyFor(t *testing.T) {
	t.Parallel()

	assert.IsType(t, EveryReading{}, PolicyFor(0))
	p, ok := PolicyFor(time.Minute).(*CooldownPolicy)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, p.Window())
}
