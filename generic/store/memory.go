// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/source"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds one source snapshot and the run history.
type Memory struct {
	mu   sync.RWMutex
	snap source.Snapshot
	runs []generic.RunRecord
	byID map[string]int
}

var (
	_ source.Store     = (*Memory)(nil)
	_ source.Saver     = (*Memory)(nil)
	_ generic.RunStore = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]int)}
}

// NewMemoryWith returns a store preloaded with snap.
func NewMemoryWith(snap *source.Snapshot) *Memory {
	m := NewMemory()
	m.snap = clone(snap)
	return m
}

// Load returns a copy of the stored snapshot; callers may modify it freely.
func (m *Memory) Load(_ context.Context) (*source.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := clone(&m.snap)
	return &s, nil
}

// Save replaces the stored snapshot.
func (m *Memory) Save(_ context.Context, snap *source.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = clone(snap)
	return nil
}

func clone(s *source.Snapshot) source.Snapshot {
	return source.Snapshot{
		Employees:       append([]source.Employee(nil), s.Employees...),
		Assignments:     append([]source.WorkAssignment(nil), s.Assignments...),
		Contacts:        append([]source.Contact(nil), s.Contacts...),
		Benefits:        append([]source.Benefit(nil), s.Benefits...),
		Dependents:      append([]source.Dependent(nil), s.Dependents...),
		Identifications: append([]source.Identification(nil), s.Identifications...),
	}
}

// =============================================================================
// RUN STORE
// =============================================================================

func (m *Memory) StartRun(_ context.Context, run generic.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[run.ID]; ok {
		return fmt.Errorf("run %s already started", run.ID)
	}
	run.Status = generic.RunStarted
	m.byID[run.ID] = len(m.runs)
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) FinishRun(_ context.Context, run generic.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.byID[run.ID]
	if !ok {
		return fmt.Errorf("finish run %s: %w", run.ID, generic.ErrRunNotFound)
	}
	run.StartedAt = m.runs[i].StartedAt
	m.runs[i] = run
	return nil
}

// ListRuns returns runs newest first (by start time, then insertion order).
func (m *Memory) ListRuns(_ context.Context, limit int) ([]generic.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]generic.RunRecord, len(m.runs))
	for i, r := range m.runs {
		out[len(m.runs)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
