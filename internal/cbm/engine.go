package cbm

import (
	"context"
	"sync"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/repository"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"gorm.io/gorm"
)

const (
	// defaultWriteTimeout bounds the lookups and the transaction of one ingestion.
	defaultWriteTimeout = 3 * time.Second
	// cleanupTimeout is the context deadline for the periodic log deletion.
	cleanupTimeout = 5 * time.Second
	// cleanupInterval is how often the log cleanup goroutine runs.
	cleanupInterval = 1 * time.Hour
)

// Ingestion results reported to Metrics.
const (
	ResultNormal     = "normal"
	ResultAnomaly    = "anomaly"
	ResultInvalid    = "invalid"
	ResultNotFound   = "not_found"
	ResultPersistErr = "persistence_error"
)

// Repositories groups the stores the engine reads and writes.
type Repositories struct {
	Triggers  repository.TriggerRepository
	Equipment repository.EquipmentRepository
	Logs      repository.TelemetryLogRepository
	Requests  repository.MaintenanceRequestRepository
	Recorder  repository.ReadingRecorder
}

// NewRepositories wires gorm-backed repositories on db.
func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Triggers:  repository.NewTriggerRepository(db),
		Equipment: repository.NewEquipmentRepository(db),
		Logs:      repository.NewTelemetryLogRepository(db),
		Requests:  repository.NewMaintenanceRequestRepository(db),
		Recorder:  repository.NewReadingRecorder(db),
	}
}

// Metrics receives ingestion measurements.
type Metrics interface {
	ObserveIngest(result string, duration time.Duration)
	AddTickets(equipmentID, priority string, count int)
	AddSuppressed(count int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveIngest(string, time.Duration) {}
func (noopMetrics) AddTickets(string, string, int)      {}
func (noopMetrics) AddSuppressed(int)                   {}

// Option customizes an Engine.
type Option func(*Engine)

// WithPolicy replaces the default EveryReading incident policy.
func WithPolicy(p IncidentPolicy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// WithBus publishes every persisted outcome to bus.
func WithBus(bus *OutcomeBus) Option {
	return func(e *Engine) { e.bus = bus }
}

// WithMetrics reports ingestion measurements to m.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock overrides the time source used for log entries and requests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithWriteTimeout bounds each ingestion's database work.
func WithWriteTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.writeTimeout = d
		}
	}
}

// Engine evaluates readings against the configured triggers, emits requests
// for violations and records every reading.
type Engine struct {
	repos        Repositories
	emitter      *Emitter
	policy       IncidentPolicy
	bus          *OutcomeBus
	metrics      Metrics
	clock        func() time.Time
	writeTimeout time.Duration
	log          logger.Logger

	// Log cleanup
	cleanupMu       sync.Mutex
	cleanupStop     chan struct{}
	cleanupDone     chan struct{}
	cleanupInterval time.Duration
}

// NewEngine creates a trigger engine over repos.
func NewEngine(repos Repositories, log logger.Logger, opts ...Option) *Engine {
	if log == nil {
		log = logger.Global()
	}
	e := &Engine{
		repos:           repos,
		policy:          EveryReading{},
		metrics:         noopMetrics{},
		clock:           defaultClock,
		writeTimeout:    defaultWriteTimeout,
		log:             log.Module(componentName),
		cleanupInterval: cleanupInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.emitter = NewEmitter(e.clock)
	return e
}

// Ingest evaluates one reading, persists one request per admitted violation
// and one log entry, then publishes the outcome. The requests and the log entry
// are written in a single transaction: either all of them exist afterwards or none.
//
// Errors carry the validation, not-found or database category.
func (e *Engine) Ingest(ctx context.Context, reading Reading) (*IngestResult, error) {
	start := time.Now()

	reading, err := reading.normalize()
	if err != nil {
		e.metrics.ObserveIngest(ResultInvalid, time.Since(start))
		return nil, err
	}

	now := e.clock()
	if reading.ObservedAt.IsZero() {
		reading.ObservedAt = now
	}

	opCtx, cancel := context.WithTimeout(ctx, e.writeTimeout)
	defer cancel()

	exists, err := e.repos.Equipment.Exists(opCtx, reading.EquipmentID)
	if err != nil {
		e.metrics.ObserveIngest(ResultPersistErr, time.Since(start))
		return nil, e.logFailure(reading, persistenceError("equipment lookup", err))
	}
	if !exists {
		e.metrics.ObserveIngest(ResultNotFound, time.Since(start))
		return nil, notFoundError(reading.EquipmentID)
	}

	rules, err := e.repos.Triggers.GetRulesFor(opCtx, reading.EquipmentID, reading.Parameter)
	if err != nil {
		e.metrics.ObserveIngest(ResultPersistErr, time.Since(start))
		return nil, e.logFailure(reading, persistenceError("rule lookup", err))
	}

	violated := Evaluate(reading, rules)

	var (
		tickets    = make([]*entities.MaintenanceRequest, 0, len(violated))
		admitted   = make([]*entities.MaintenanceTrigger, 0, len(violated))
		suppressed []string
	)
	for i := range violated {
		rule := &violated[i]
		if !e.policy.Admit(rule, reading) {
			suppressed = append(suppressed, rule.ID)
			continue
		}
		admitted = append(admitted, rule)
		tickets = append(tickets, e.emitter.Emit(rule, reading))
	}

	entry := NewLogEntry(reading, len(violated) > 0, now)

	if err := e.repos.Recorder.RecordReading(opCtx, tickets, entry); err != nil {
		for _, rule := range admitted {
			e.policy.Release(rule, reading)
		}
		e.metrics.ObserveIngest(ResultPersistErr, time.Since(start))
		return nil, e.logFailure(reading, persistenceError("record reading", err))
	}

	result := &IngestResult{
		IsAnomaly:       entry.IsAnomaly,
		ViolatedRules:   violated,
		TicketsCreated:  make([]entities.MaintenanceRequest, 0, len(tickets)),
		SuppressedRules: suppressed,
		LogEntryID:      entry.ID,
		Message:         MessageNormal,
	}
	for _, t := range tickets {
		result.TicketsCreated = append(result.TicketsCreated, *t)
		e.metrics.AddTickets(t.EquipmentID, t.Priority, 1)
	}
	if result.IsAnomaly {
		result.Message = MessageAnomaly
		e.metrics.ObserveIngest(ResultAnomaly, time.Since(start))
		e.log.Info("anomaly detected",
			logger.String("equipment_id", reading.EquipmentID),
			logger.String("parameter", reading.Parameter),
			logger.Float64("value", reading.Value),
			logger.Int("violated_rules", len(violated)),
			logger.Int("tickets_created", len(tickets)))
	} else {
		e.metrics.ObserveIngest(ResultNormal, time.Since(start))
	}
	if len(suppressed) > 0 {
		e.metrics.AddSuppressed(len(suppressed))
		e.log.Debug("violations suppressed by incident policy",
			logger.String("equipment_id", reading.EquipmentID),
			logger.Any("rule_ids", suppressed))
	}

	e.publish(reading, entry, result)
	return result, nil
}

func (e *Engine) publish(reading Reading, entry *entities.TelemetryLog, result *IngestResult) {
	if e.bus == nil {
		return
	}
	ids := make([]string, 0, len(result.ViolatedRules))
	for i := range result.ViolatedRules {
		ids = append(ids, result.ViolatedRules[i].ID)
	}
	e.bus.Publish(&Outcome{
		Reading:         reading,
		LogEntry:        *entry,
		Tickets:         result.TicketsCreated,
		ViolatedRuleIDs: ids,
		Timestamp:       entry.CreatedAt,
	})
}

func (e *Engine) logFailure(reading Reading, err error) error {
	e.log.Error("failed to ingest reading",
		logger.String("equipment_id", reading.EquipmentID),
		logger.String("parameter", reading.Parameter),
		logger.Error(err))
	return err
}

// ListRecentLog returns up to limit log entries, newest first. Non-positive limits
// use DefaultLogLimit and limits above MaxLogLimit are capped.
func (e *Engine) ListRecentLog(ctx context.Context, limit int) ([]entities.TelemetryLog, error) {
	entries, _, err := e.ListLog(ctx, repository.TelemetryLogFilter{Limit: limit})
	return entries, err
}

// ListLog returns filtered log entries newest first and the total match count.
func (e *Engine) ListLog(ctx context.Context, filter repository.TelemetryLogFilter) ([]entities.TelemetryLog, int64, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	entries, total, err := e.repos.Logs.ListLogs(ctx, filter)
	if err != nil {
		return nil, 0, persistenceError("list log", err)
	}
	return entries, total, nil
}

// ListRules returns configured triggers, all of them when equipmentID is empty.
func (e *Engine) ListRules(ctx context.Context, equipmentID string) ([]entities.MaintenanceTrigger, error) {
	rules, err := e.repos.Triggers.ListTriggers(ctx, repository.TriggerFilter{EquipmentID: equipmentID})
	if err != nil {
		return nil, persistenceError("list rules", err)
	}
	return rules, nil
}

// ActiveKeys returns the distinct equipment/parameter pairs with at least one active
// trigger, with the first trigger's threshold for each pair.
func (e *Engine) ActiveKeys(ctx context.Context) ([]entities.MaintenanceTrigger, error) {
	active := true
	rules, err := e.repos.Triggers.ListTriggers(ctx, repository.TriggerFilter{Active: &active})
	if err != nil {
		return nil, persistenceError("list active rules", err)
	}
	seen := make(map[[2]string]struct{}, len(rules))
	keys := make([]entities.MaintenanceTrigger, 0, len(rules))
	for i := range rules {
		k := [2]string{rules[i].EquipmentID, rules[i].Parameter}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, rules[i])
	}
	return keys, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLogLimit
	case limit > MaxLogLimit:
		return MaxLogLimit
	default:
		return limit
	}
}

// StartLogCleanup starts a background goroutine that periodically deletes log
// entries older than retention. A zero retention disables cleanup.
func (e *Engine) StartLogCleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	// Stop any existing cleanup goroutine before starting a new one.
	e.stopCleanup()

	e.cleanupMu.Lock()
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	e.cleanupStop = stopCh
	e.cleanupDone = doneCh
	interval := e.cleanupInterval
	e.cleanupMu.Unlock()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.purgeLog(retention)
			case <-stopCh:
				return
			}
		}
	}()
}

func (e *Engine) purgeLog(retention time.Duration) {
	cutoff := e.clock().Add(-retention)
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	deleted, err := e.repos.Logs.DeleteLogsBefore(ctx, cutoff)
	if err != nil {
		e.log.Error("telemetry log cleanup failed", logger.Error(err))
		return
	}
	if deleted > 0 {
		e.log.Info("telemetry log cleanup completed",
			logger.Int64("deleted", deleted),
			logger.Duration("retention", retention))
	}
}

// stopCleanup signals the cleanup goroutine and waits for it to exit.
func (e *Engine) stopCleanup() {
	e.cleanupMu.Lock()
	stopCh, doneCh := e.cleanupStop, e.cleanupDone
	e.cleanupStop, e.cleanupDone = nil, nil
	e.cleanupMu.Unlock()
	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
}

// Stop shuts down background goroutines (log cleanup).
func (e *Engine) Stop() {
	e.stopCleanup()
}
