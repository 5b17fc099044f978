package cbm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
)

// Outcome describes a reading after it has been persisted.
type Outcome struct {
	Reading         Reading                       `json:"reading"`
	LogEntry        entities.TelemetryLog         `json:"log_entry"`
	Tickets         []entities.MaintenanceRequest `json:"tickets"`
	ViolatedRuleIDs []string                      `json:"violated_rule_ids"`
	Timestamp       time.Time                     `json:"timestamp"`
}

// IsAnomaly reports whether any rule was violated.
func (o *Outcome) IsAnomaly() bool { return o.LogEntry.IsAnomaly }

// OutcomeHandler processes outcomes on the bus worker goroutine.
type OutcomeHandler func(outcome *Outcome)

const (
	// outcomeBusBufferSize is the capacity of the async outcome channel.
	// Outcomes are dropped if the buffer is full to avoid blocking ingestion.
	outcomeBusBufferSize = 1000
)

type subscription struct {
	id      uint64
	handler OutcomeHandler
}

// OutcomeBus is an async pub/sub for ingestion outcomes. Publish never blocks:
// outcomes go to a buffered channel drained by one worker goroutine, so
// observers (broker, time series, websocket clients) cannot slow ingestion
// or change its result.
type OutcomeBus struct {
	subs      []subscription
	nextID    uint64
	mu        sync.RWMutex
	outcomeCh chan *Outcome
	stopCh    chan struct{}
	doneCh    chan struct{}
	stopOnce  sync.Once
	dropped   atomic.Uint64
}

// NewOutcomeBus creates a bus and starts its worker.
func NewOutcomeBus() *OutcomeBus {
	b := &OutcomeBus{
		outcomeCh: make(chan *Outcome, outcomeBusBufferSize),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	go b.processLoop()
	return b
}

// Subscribe registers a handler and returns a function that removes it.
func (b *OutcomeBus) Subscribe(handler OutcomeHandler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.subs {
			if b.subs[i].id == id {
				b.subs = append(b.subs[:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish enqueues an outcome. Outcomes are discarded after Stop or when the buffer is full.
func (b *OutcomeBus) Publish(outcome *Outcome) {
	select {
	case <-b.stopCh:
		return
	default:
	}

	if outcome.Timestamp.IsZero() {
		outcome.Timestamp = time.Now()
	}

	select {
	case b.outcomeCh <- outcome:
	default:
		b.dropped.Add(1)
	}
}

// Dropped returns how many outcomes were discarded because the buffer was full.
func (b *OutcomeBus) Dropped() uint64 { return b.dropped.Load() }

// Stop drains queued outcomes and waits for the worker to exit. Safe to call multiple times.
func (b *OutcomeBus) Stop() {
	b.stopOnce.Do(func() {
		close(b.stopCh)
	})
	<-b.doneCh
}

func (b *OutcomeBus) processLoop() {
	defer close(b.doneCh)
	for {
		select {
		case outcome := <-b.outcomeCh:
			b.dispatch(outcome)
		case <-b.stopCh:
			for {
				select {
				case outcome := <-b.outcomeCh:
					b.dispatch(outcome)
				default:
					return
				}
			}
		}
	}
}

func (b *OutcomeBus) dispatch(outcome *Outcome) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for i := range subs {
		b.safeCall(subs[i].handler, outcome)
	}
}

// safeCall keeps the worker alive when a handler panics. Handlers log their own failures.
func (b *OutcomeBus) safeCall(handler OutcomeHandler, outcome *Outcome) {
	defer func() {
		recover() //nolint:errcheck // intentionally swallowed to keep bus alive
	}()
	handler(outcome)
}
