// Package crmtest provides an in-memory crm.Store for tests.
package crmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"inspection_booking_backend/internal/crm"
)

type entry struct {
	seq int
	rec crm.Record
}

// Store keeps records per collection, assigns sequential numeric ids and
// counts writes so tests can assert idempotency.
type Store struct {
	mu      sync.Mutex
	data    map[string][]*entry
	nextID  map[string]int
	seq     int
	creates map[string]int
	patches map[string]int
	fail    map[string]error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		data:    make(map[string][]*entry),
		nextID:  make(map[string]int),
		creates: make(map[string]int),
		patches: make(map[string]int),
		fail:    make(map[string]error),
	}
}

// FailOn makes every op ("get", "list", "create", "patch") on collection
// return err until cleared with a nil err.
func (s *Store) FailOn(op, collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := op + ":" + collection
	if err == nil {
		delete(s.fail, key)
		return
	}
	s.fail[key] = err
}

// Seed inserts rec without counting it as a create. An "id" in rec is kept.
func (s *Store) Seed(collection string, rec crm.Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(collection, rec)
}

// Creates returns how many Create calls reached collection.
func (s *Store) Creates(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates[collection]
}

// Patches returns how many Patch calls reached collection.
func (s *Store) Patches(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches[collection]
}

// All returns copies of every record in collection, oldest first.
func (s *Store) All(collection string) []crm.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]crm.Record, 0, len(s.data[collection]))
	for _, e := range s.data[collection] {
		out = append(out, clone(e.rec))
	}
	return out
}

// Record returns a copy of one record, or nil.
func (s *Store) Record(collection, id string) crm.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.find(collection, id); e != nil {
		return clone(e.rec)
	}
	return nil
}

func (s *Store) Get(_ context.Context, collection, id string, _ ...string) (crm.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("get", collection); err != nil {
		return nil, err
	}
	e := s.find(collection, id)
	if e == nil {
		return nil, notFound(collection, "get")
	}
	return clone(e.rec), nil
}

func (s *Store) List(_ context.Context, collection string, q crm.Query) ([]crm.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("list", collection); err != nil {
		return nil, err
	}

	matched := make([]*entry, 0)
	for _, e := range s.data[collection] {
		if matchesAll(e.rec, q.Filters) {
			matched = append(matched, e)
		}
	}
	if descending(q.Sort) {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}
	if q.Limit > 0 && q.Page > 1 {
		skip := (q.Page - 1) * q.Limit
		if skip > len(matched) {
			skip = len(matched)
		}
		matched = matched[skip:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]crm.Record, 0, len(matched))
	for _, e := range matched {
		out = append(out, clone(e.rec))
	}
	return out, nil
}

func (s *Store) Create(_ context.Context, collection string, body map[string]any) (crm.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("create", collection); err != nil {
		return nil, err
	}
	s.creates[collection]++
	id := s.insert(collection, crm.Record(body))
	return clone(s.find(collection, id).rec), nil
}

func (s *Store) Patch(_ context.Context, collection, id string, body map[string]any) (crm.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("patch", collection); err != nil {
		return nil, err
	}
	e := s.find(collection, id)
	if e == nil {
		return nil, notFound(collection, "patch")
	}
	s.patches[collection]++
	for k, v := range body {
		e.rec[k] = v
	}
	return clone(e.rec), nil
}

func (s *Store) insert(collection string, rec crm.Record) string {
	stored := clone(rec)
	id := stored.ID()
	if id == "" {
		s.nextID[collection]++
		id = strconv.Itoa(s.nextID[collection])
		stored["id"] = json.Number(id)
	} else if n, err := strconv.Atoi(id); err == nil && n > s.nextID[collection] {
		s.nextID[collection] = n
	}
	s.seq++
	if _, ok := stored["date_created"]; !ok {
		stored["date_created"] = fmt.Sprintf("2025-01-01T00:00:%02dZ", s.seq%60)
	}
	s.data[collection] = append(s.data[collection], &entry{seq: s.seq, rec: stored})
	return id
}

func (s *Store) find(collection, id string) *entry {
	for _, e := range s.data[collection] {
		if e.rec.ID() == id {
			return e
		}
	}
	return nil
}

func (s *Store) failure(op, collection string) error {
	return s.fail[op+":"+collection]
}

func notFound(collection, op string) error {
	return &crm.Error{Collection: collection, Operation: op, StatusCode: http.StatusNotFound, Body: `{"errors":[{"message":"not found"}]}`}
}

func descending(sort []string) bool {
	for _, key := range sort {
		if strings.HasPrefix(key, "-") {
			return true
		}
	}
	return false
}

func matchesAll(rec crm.Record, filters []crm.Filter) bool {
	for _, f := range filters {
		hit := match(map[string]any(rec), f.Path, f.Op, f.Value)
		if f.Op == crm.OpNeq {
			hit = !match(map[string]any(rec), f.Path, crm.OpEq, f.Value)
		}
		if !hit {
			return false
		}
	}
	return true
}

func match(value any, path []string, op, want string) bool {
	if len(path) == 0 {
		return equals(value, op, want)
	}
	switch typed := value.(type) {
	case map[string]any:
		return match(typed[path[0]], path[1:], op, want)
	case crm.Record:
		return match(typed[path[0]], path[1:], op, want)
	case []any:
		for _, item := range typed {
			if match(item, path, op, want) {
				return true
			}
		}
		return false
	default:
		// A bare id stands in for the related record's id.
		if len(path) == 1 && path[0] == "id" {
			return equals(typed, op, want)
		}
		return false
	}
}

func equals(value any, op, want string) bool {
	if items, ok := value.([]any); ok {
		for _, item := range items {
			if equals(item, op, want) {
				return true
			}
		}
		return false
	}
	got := crm.Record{"v": value}.String("v")
	if op == crm.OpIn {
		for _, candidate := range strings.Split(want, ",") {
			if got == strings.TrimSpace(candidate) {
				return true
			}
		}
		return false
	}
	return got == want
}

func clone(rec crm.Record) crm.Record {
	out := make(crm.Record, len(rec))
	for k, v := range rec {
		switch typed := v.(type) {
		case []any:
			out[k] = append([]any(nil), typed...)
		case []string:
			items := make([]any, len(typed))
			for i, s := range typed {
				items[i] = s
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}

var _ crm.Store = (*Store)(nil)
