package cbm

import (
	"cmp"
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/entities"
	"github.com/amshithnair/gearguard-odoo/internal/datastore/v2/repository"
	"github.com/amshithnair/gearguard-odoo/internal/errors"
	"github.com/amshithnair/gearguard-odoo/internal/logger"
	"github.com/google/uuid"
)

// memStore is an in-memory implementation of every repository the engine uses.
// RecordReading is atomic under the store mutex.
type memStore struct {
	mu        sync.Mutex
	equipment map[string]entities.Equipment
	triggers  []entities.MaintenanceTrigger
	requests  []entities.MaintenanceRequest
	logs      []entities.TelemetryLog

	// Failure injection
	recordErr    error
	rulesErr     error
	equipmentErr error

	rulesCalls int
}

func newMemStore(equipmentIDs ...string) *memStore {
	s := &memStore{equipment: make(map[string]entities.Equipment)}
	for _, id := range equipmentIDs {
		s.equipment[id] = entities.Equipment{ID: id, Name: "Machine " + id, Status: entities.EquipmentStatusActive}
	}
	return s
}

func (s *memStore) repos() Repositories {
	return Repositories{Triggers: s, Equipment: s, Logs: s, Requests: s, Recorder: s}
}

func (s *memStore) addTrigger(t entities.MaintenanceTrigger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.triggers = append(s.triggers, t)
}

func (s *memStore) snapshot() (requests []entities.MaintenanceRequest, logs []entities.TelemetryLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests), slices.Clone(s.logs)
}

// TriggerRepository

func (s *memStore) ListTriggers(_ context.Context, filter repository.TriggerFilter) ([]entities.MaintenanceTrigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.MaintenanceTrigger, 0)
	for i := range s.triggers {
		t := s.triggers[i]
		if filter.EquipmentID != "" && t.EquipmentID != filter.EquipmentID {
			continue
		}
		if filter.Parameter != "" && t.Parameter != filter.Parameter {
			continue
		}
		if filter.Active != nil && t.IsActive != *filter.Active {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *memStore) GetRulesFor(_ context.Context, equipmentID, parameter string) ([]entities.MaintenanceTrigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rulesCalls++
	if s.rulesErr != nil {
		return nil, s.rulesErr
	}
	out := make([]entities.MaintenanceTrigger, 0)
	for i := range s.triggers {
		t := s.triggers[i]
		if t.IsActive && t.EquipmentID == equipmentID && t.Parameter == parameter {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b entities.MaintenanceTrigger) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *memStore) GetTrigger(_ context.Context, id string) (*entities.MaintenanceTrigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.triggers {
		if s.triggers[i].ID == id {
			t := s.triggers[i]
			return &t, nil
		}
	}
	return nil, repository.ErrTriggerNotFound
}

func (s *memStore) CreateTrigger(_ context.Context, t *entities.MaintenanceTrigger) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.addTrigger(*t)
	return nil
}

func (s *memStore) UpdateTrigger(_ context.Context, t *entities.MaintenanceTrigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.triggers {
		if s.triggers[i].ID == t.ID {
			s.triggers[i] = *t
			return nil
		}
	}
	return repository.ErrTriggerNotFound
}

func (s *memStore) DeleteTrigger(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.triggers {
		if s.triggers[i].ID == id {
			s.triggers = slices.Delete(s.triggers, i, i+1)
			return nil
		}
	}
	return repository.ErrTriggerNotFound
}

func (s *memStore) ToggleTrigger(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.triggers {
		if s.triggers[i].ID == id {
			s.triggers[i].IsActive = active
			return nil
		}
	}
	return repository.ErrTriggerNotFound
}

func (s *memStore) CountTriggersByName(_ context.Context, equipmentID, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.triggers {
		if s.triggers[i].EquipmentID == equipmentID && s.triggers[i].Name == name {
			n++
		}
	}
	return n, nil
}

// EquipmentRepository

func (s *memStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.equipmentErr != nil {
		return false, s.equipmentErr
	}
	_, ok := s.equipment[id]
	return ok, nil
}

func (s *memStore) GetEquipment(_ context.Context, id string) (*entities.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eq, ok := s.equipment[id]
	if !ok {
		return nil, repository.ErrEquipmentNotFound
	}
	return &eq, nil
}

func (s *memStore) ListEquipment(_ context.Context) ([]entities.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Equipment, 0, len(s.equipment))
	for _, eq := range s.equipment {
		out = append(out, eq)
	}
	slices.SortFunc(out, func(a, b entities.Equipment) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *memStore) SaveEquipment(_ context.Context, eq *entities.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.equipment[eq.ID] = *eq
	return nil
}

// TelemetryLogRepository

func (s *memStore) AppendLog(_ context.Context, entry *entities.TelemetryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *memStore) ListLogs(_ context.Context, filter repository.TelemetryLogFilter) ([]entities.TelemetryLog, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]entities.TelemetryLog, 0)
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if filter.EquipmentID != "" && l.EquipmentID != filter.EquipmentID {
			continue
		}
		if filter.AnomalyOnly && !l.IsAnomaly {
			continue
		}
		matched = append(matched, l)
	}
	slices.SortStableFunc(matched, func(a, b entities.TelemetryLog) int { return b.ObservedAt.Compare(a.ObservedAt) })
	total := int64(len(matched))
	if filter.Offset < len(matched) {
		matched = matched[filter.Offset:]
	} else {
		matched = matched[:0]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *memStore) DeleteLogsBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.logs[:0]
	var deleted int64
	for _, l := range s.logs {
		if l.ObservedAt.Before(before) {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	s.logs = kept
	return deleted, nil
}

// MaintenanceRequestRepository

func (s *memStore) CreateRequest(_ context.Context, r *entities.MaintenanceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, *r)
	return nil
}

func (s *memStore) GetRequest(_ context.Context, id string) (*entities.MaintenanceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.requests {
		if s.requests[i].ID == id {
			r := s.requests[i]
			return &r, nil
		}
	}
	return nil, repository.ErrRequestNotFound
}

func (s *memStore) ListRequests(_ context.Context, _ repository.MaintenanceRequestFilter) ([]entities.MaintenanceRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests), int64(len(s.requests)), nil
}

// ReadingRecorder

func (s *memStore) RecordReading(_ context.Context, requests []*entities.MaintenanceRequest, entry *entities.TelemetryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return s.recordErr
	}
	for _, r := range requests {
		s.requests = append(s.requests, *r)
	}
	s.logs = append(s.logs, *entry)
	return nil
}

var errDiskFull = errors.NewStd("disk full")

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
}

// fixedClock returns a clock that advances by one millisecond on every call.
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}
