// Package memory provides an in-memory ledger.Store for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/campus/leave-ledger/ledger"
)

// Store keeps all records in maps. WithTx snapshots the maps before
// running the callback and restores them on error, so tests get the
// same all-or-nothing semantics as the SQLite store.
type Store struct {
	mu      sync.RWMutex
	faculty map[ledger.FacultyID]ledger.Faculty
	events  map[ledger.EventID]ledger.LeaveEvent
	seq     int // insertion order for ListEvents
	order   map[ledger.EventID]int
}

func New() *Store {
	return &Store{
		faculty: make(map[ledger.FacultyID]ledger.Faculty),
		events:  make(map[ledger.EventID]ledger.LeaveEvent),
		order:   make(map[ledger.EventID]int),
	}
}

// =============================================================================
// READER
// =============================================================================

func (s *Store) GetFaculty(_ context.Context, id ledger.FacultyID) (*ledger.Faculty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f, ok := s.faculty[id]; ok {
		return &f, nil
	}
	return nil, nil
}

func (s *Store) GetEvent(_ context.Context, id ledger.EventID) (*ledger.LeaveEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ev, ok := s.events[id]; ok {
		return &ev, nil
	}
	return nil, nil
}

func (s *Store) ListEvents(_ context.Context, facultyID ledger.FacultyID) ([]ledger.LeaveEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(facultyID), nil
}

func (s *Store) listLocked(facultyID ledger.FacultyID) []ledger.LeaveEvent {
	var result []ledger.LeaveEvent
	for _, ev := range s.events {
		if ev.FacultyID == facultyID {
			result = append(result, ev)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return s.order[result[i].ID] < s.order[result[j].ID]
	})
	return result
}

func (s *Store) CountByCategory(_ context.Context, facultyID ledger.FacultyID, category ledger.Category) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, ev := range s.events {
		if ev.FacultyID == facultyID && ev.Category == category {
			count++
		}
	}
	return count, nil
}

// ListEventsInRange filters one faculty member's events to the inclusive
// [from, to] window. Mirrors the SQLite store's report-side query.
func (s *Store) ListEventsInRange(_ context.Context, facultyID ledger.FacultyID, from, to ledger.Date) ([]ledger.LeaveEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []ledger.LeaveEvent
	for _, ev := range s.listLocked(facultyID) {
		if !ev.Date.Before(from) && !ev.Date.After(to) {
			result = append(result, ev)
		}
	}
	return result, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) WithTx(_ context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Snapshot for rollback.
	facultySnap := make(map[ledger.FacultyID]ledger.Faculty, len(s.faculty))
	for k, v := range s.faculty {
		facultySnap[k] = v
	}
	eventsSnap := make(map[ledger.EventID]ledger.LeaveEvent, len(s.events))
	for k, v := range s.events {
		eventsSnap[k] = v
	}
	orderSnap := make(map[ledger.EventID]int, len(s.order))
	for k, v := range s.order {
		orderSnap[k] = v
	}
	seqSnap := s.seq

	if err := fn(&tx{s: s}); err != nil {
		s.faculty = facultySnap
		s.events = eventsSnap
		s.order = orderSnap
		s.seq = seqSnap
		return err
	}
	return nil
}

// tx operates on the already-locked store.
type tx struct {
	s *Store
}

func (t *tx) GetFaculty(_ context.Context, id ledger.FacultyID) (*ledger.Faculty, error) {
	if f, ok := t.s.faculty[id]; ok {
		return &f, nil
	}
	return nil, nil
}

func (t *tx) GetEvent(_ context.Context, id ledger.EventID) (*ledger.LeaveEvent, error) {
	if ev, ok := t.s.events[id]; ok {
		return &ev, nil
	}
	return nil, nil
}

func (t *tx) ListEvents(_ context.Context, facultyID ledger.FacultyID) ([]ledger.LeaveEvent, error) {
	return t.s.listLocked(facultyID), nil
}

func (t *tx) CountByCategory(_ context.Context, facultyID ledger.FacultyID, category ledger.Category) (int, error) {
	count := 0
	for _, ev := range t.s.events {
		if ev.FacultyID == facultyID && ev.Category == category {
			count++
		}
	}
	return count, nil
}

func (t *tx) InsertFaculty(_ context.Context, f ledger.Faculty) error {
	t.s.faculty[f.ID] = f
	return nil
}

func (t *tx) UpdateBalances(_ context.Context, id ledger.FacultyID, granted, total, remaining decimal.Decimal) error {
	f, ok := t.s.faculty[id]
	if !ok {
		return ledger.ErrFacultyNotFound
	}
	f.GrantedLeaves = granted
	f.TotalLeaves = total
	f.RemainingLeaves = remaining
	t.s.faculty[id] = f
	return nil
}

func (t *tx) DeleteFaculty(_ context.Context, id ledger.FacultyID) error {
	if _, ok := t.s.faculty[id]; !ok {
		return ledger.ErrFacultyNotFound
	}
	delete(t.s.faculty, id)
	for evID, ev := range t.s.events {
		if ev.FacultyID == id {
			delete(t.s.events, evID)
			delete(t.s.order, evID)
		}
	}
	return nil
}

func (t *tx) InsertEvent(_ context.Context, ev ledger.LeaveEvent) error {
	t.s.events[ev.ID] = ev
	t.s.order[ev.ID] = t.s.seq
	t.s.seq++
	return nil
}

func (t *tx) DeleteEvent(_ context.Context, id ledger.EventID) error {
	if _, ok := t.s.events[id]; !ok {
		return ledger.ErrLeaveNotFound
	}
	delete(t.s.events, id)
	delete(t.s.order, id)
	return nil
}
