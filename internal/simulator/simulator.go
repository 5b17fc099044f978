// Package simulator drives the trigger engine with random-walk telemetry.
package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/cbm"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"golang.org/x/sync/errgroup"
)

const (
	defaultInterval    = 2 * time.Second
	defaultStep        = 5.0
	defaultConcurrency = 4
	// safeMargin is subtracted from high thresholds to pick a starting value below the limit.
	safeMargin = 20.0
	// highThreshold separates thresholds that get a safe margin from those that start at zero.
	highThreshold = 50.0
)

// ErrAlreadyRunning is returned by Start when the simulator is already ticking.
var ErrAlreadyRunning = errors.NewStd("simulator already running")

// Ingester is the engine surface the simulator drives.
type Ingester interface {
	Ingest(ctx context.Context, reading cbm.Reading) (*cbm.IngestResult, error)
}

// KeySource lists the equipment/parameter pairs worth simulating.
type KeySource interface {
	ActiveKeys(ctx context.Context) ([]entities.MaintenanceTrigger, error)
}

// Config tunes the random walk.
type Config struct {
	Interval    time.Duration
	Step        float64
	Concurrency int
}

// Key identifies one simulated sensor.
type Key struct {
	EquipmentID string `json:"equipment_id"`
	Parameter   string `json:"parameter"`
}

// SensorState is the current simulated value of one sensor.
type SensorState struct {
	Key
	Value float64 `json:"value"`
}

// Status is a snapshot of the simulator.
type Status struct {
	Running  bool          `json:"running"`
	Interval string        `json:"interval"`
	Ticks    uint64        `json:"ticks"`
	Errors   uint64        `json:"errors"`
	LastTick time.Time     `json:"last_tick,omitzero"`
	Sensors  []SensorState `json:"sensors"`
}

// Simulator periodically ingests one random-walk reading per active sensor.
type Simulator struct {
	ingester Ingester
	keys     KeySource
	cfg      Config
	log      logger.Logger

	mu       sync.Mutex
	rng      *rand.Rand
	values   map[Key]float64
	cancel   context.CancelFunc
	done     chan struct{}
	ticks    uint64
	errCount uint64
	lastTick time.Time
}

// Option customizes a Simulator.
type Option func(*Simulator)

// WithRand replaces the random source, for reproducible walks.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) {
		if r != nil {
			s.rng = r
		}
	}
}

// New creates a stopped simulator.
func New(ingester Ingester, keys KeySource, cfg Config, log logger.Logger, opts ...Option) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Step <= 0 {
		cfg.Step = defaultStep
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if log == nil {
		log = logger.Global()
	}
	s := &Simulator{
		ingester: ingester,
		keys:     keys,
		cfg:      cfg,
		log:      log.Module("simulator"),
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		values:   make(map[Key]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartValue is where a sensor's walk begins: comfortably below high thresholds, zero otherwise.
func StartValue(threshold float64) float64 {
	if threshold > highThreshold {
		return threshold - safeMargin
	}
	return 0
}

// Start begins ticking until Stop is called or ctx is cancelled.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(runCtx, done)
	s.log.Info("simulator started", logger.Duration("interval", s.cfg.Interval))
	return nil
}

func (s *Simulator) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("simulator tick failed", logger.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts ticking and waits for the loop to exit. Safe to call when stopped.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("simulator stopped")
}

// Running reports whether the tick loop is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Tick advances every sensor one step and ingests the new values concurrently.
// Individual ingest failures are counted and joined into the returned error.
func (s *Simulator) Tick(ctx context.Context) error {
	if err := s.syncKeys(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	readings := make([]cbm.Reading, 0, len(s.values))
	for key, value := range s.values {
		next := s.walk(value)
		s.values[key] = next
		readings = append(readings, cbm.Reading{EquipmentID: key.EquipmentID, Parameter: key.Parameter, Value: next})
	}
	s.mu.Unlock()

	var (
		errMu sync.Mutex
		errs  []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, reading := range readings {
		g.Go(func() error {
			if _, err := s.ingester.Ingest(gctx, reading); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
			// A failed sensor must not cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.ticks++
	s.errCount += uint64(len(errs))
	s.lastTick = time.Now()
	s.mu.Unlock()

	return errors.Join(errs...)
}

// syncKeys adds newly configured sensors at their start value and drops sensors
// whose triggers are gone.
func (s *Simulator) syncKeys(ctx context.Context) error {
	rules, err := s.keys.ActiveKeys(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	live := make(map[Key]struct{}, len(rules))
	for i := range rules {
		key := Key{EquipmentID: rules[i].EquipmentID, Parameter: rules[i].Parameter}
		live[key] = struct{}{}
		if _, ok := s.values[key]; !ok {
			s.values[key] = StartValue(rules[i].Threshold)
		}
	}
	for key := range s.values {
		if _, ok := live[key]; !ok {
			delete(s.values, key)
		}
	}
	return nil
}

// walk applies one random step of at most Step/2 in either direction, clamped at
// zero and rounded to one decimal. The caller holds s.mu.
func (s *Simulator) walk(value float64) float64 {
	next := value + (s.rng.Float64()-0.5)*s.cfg.Step
	return math.Max(0, math.Round(next*10)/10)
}

// Set ingests value immediately and moves the walk for that sensor to it,
// like dragging a slider on the control panel.
func (s *Simulator) Set(ctx context.Context, equipmentID, parameter string, value float64) (*cbm.IngestResult, error) {
	result, err := s.ingester.Ingest(ctx, cbm.Reading{EquipmentID: equipmentID, Parameter: parameter, Value: value})
	if err != nil {
		return nil, err
	}
	key := Key{EquipmentID: strings.TrimSpace(equipmentID), Parameter: strings.TrimSpace(parameter)}
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return result, nil
}

// Status returns a snapshot with sensors sorted by equipment then parameter.
func (s *Simulator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Running:  s.cancel != nil,
		Interval: s.cfg.Interval.String(),
		Ticks:    s.ticks,
		Errors:   s.errCount,
		LastTick: s.lastTick,
		Sensors:  make([]SensorState, 0, len(s.values)),
	}
	for key, value := range s.values {
		st.Sensors = append(st.Sensors, SensorState{Key: key, Value: value})
	}
	slices.SortFunc(st.Sensors, func(a, b SensorState) int {
		if c := strings.Compare(a.EquipmentID, b.EquipmentID); c != 0 {
			return c
		}
		return strings.Compare(a.Parameter, b.Parameter)
	})
	return st
}
