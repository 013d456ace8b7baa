// Package backendtest provides in-memory Backend and Realtime fakes for
// service tests.
package backendtest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/wavespace/wavespace/pkg/backend"
)

// Store is an in-memory backend.Backend. Mutations are echoed to Feed when
// one is attached, the way a database trigger would.
type Store struct {
	mu     sync.Mutex
	tables map[string][]backend.Row
	nextID map[string]int
	calls  map[string]int
	fail   map[string]error

	Feed *Feed
}

var _ backend.Backend = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		tables: make(map[string][]backend.Row),
		nextID: make(map[string]int),
		calls:  make(map[string]int),
		fail:   make(map[string]error),
	}
}

// Seed appends rows to table as-is.
func (s *Store) Seed(table string, rows ...backend.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if id, ok := r["id"].(int); ok && id > s.nextID[table] {
			s.nextID[table] = id
		}
		s.tables[table] = append(s.tables[table], maps.Clone(r))
	}
}

// Rows returns a copy of table's rows.
func (s *Store) Rows(table string) []backend.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]backend.Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, maps.Clone(r))
	}
	return out
}

// Calls reports how many times op ran against table, e.g. Calls("select", "posts").
func (s *Store) Calls(op, table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op+":"+table]
}

// FailNext makes the next op against table return err.
func (s *Store) FailNext(op, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op+":"+table] = err
}

func (s *Store) begin(op, table string) error {
	key := op + ":" + table
	s.calls[key]++
	if err, ok := s.fail[key]; ok {
		delete(s.fail, key)
		return err
	}
	return nil
}

// Select implements backend.Backend.
func (s *Store) Select(_ context.Context, table string, q backend.Query) ([]backend.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("select", table); err != nil {
		return nil, err
	}

	var out []backend.Row
	for _, r := range s.tables[table] {
		if matches(r, q.Filter) {
			out = append(out, maps.Clone(r))
		}
	}
	if q.Order != nil {
		col := q.Order.Column
		slices.SortStableFunc(out, func(a, b backend.Row) int {
			c := compare(a[col], b[col])
			if !q.Order.Ascending {
				c = -c
			}
			return c
		})
	}
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []backend.Row{}, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if out == nil {
		out = []backend.Row{}
	}
	return out, nil
}

// Count implements backend.Backend.
func (s *Store) Count(_ context.Context, table string, filter map[string]any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin("count", table); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range s.tables[table] {
		if matches(r, filter) {
			n++
		}
	}
	return n, nil
}

// Insert implements backend.Backend. Rows without an id get the next integer.
func (s *Store) Insert(_ context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	s.mu.Lock()
	if err := s.begin("insert", table); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var out []backend.Row
	for _, r := range rows {
		r = maps.Clone(r)
		if _, ok := r["id"]; !ok {
			s.nextID[table]++
			r["id"] = s.nextID[table]
		}
		s.tables[table] = append(s.tables[table], r)
		out = append(out, maps.Clone(r))
	}
	s.mu.Unlock()

	for _, r := range out {
		s.echo(backend.Change{Event: backend.EventInsert, Schema: "public", Table: table, New: r})
	}
	return out, nil
}

// Update implements backend.Backend.
func (s *Store) Update(_ context.Context, table string, patch backend.Row, match map[string]any) ([]backend.Row, error) {
	s.mu.Lock()
	if err := s.begin("update", table); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var changes []backend.Change
	var out []backend.Row
	for _, r := range s.tables[table] {
		if !matches(r, match) {
			continue
		}
		old := maps.Clone(r)
		maps.Copy(r, patch)
		out = append(out, maps.Clone(r))
		changes = append(changes, backend.Change{Event: backend.EventUpdate, Schema: "public", Table: table, New: maps.Clone(r), Old: old})
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.echo(c)
	}
	if out == nil {
		out = []backend.Row{}
	}
	return out, nil
}

// Delete implements backend.Backend.
func (s *Store) Delete(_ context.Context, table string, match map[string]any) error {
	s.mu.Lock()
	if err := s.begin("delete", table); err != nil {
		s.mu.Unlock()
		return err
	}
	var changes []backend.Change
	kept := s.tables[table][:0]
	for _, r := range s.tables[table] {
		if matches(r, match) {
			changes = append(changes, backend.Change{Event: backend.EventDelete, Schema: "public", Table: table, Old: r})
			continue
		}
		kept = append(kept, r)
	}
	s.tables[table] = kept
	s.mu.Unlock()

	for _, c := range changes {
		s.echo(c)
	}
	return nil
}

func (s *Store) echo(c backend.Change) {
	if s.Feed != nil {
		s.Feed.Emit(c)
	}
}

func matches(r backend.Row, filter map[string]any) bool {
	for k, want := range filter {
		if fmt.Sprint(r[k]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func compare(a, b any) int {
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		return cmp.Compare(fa, fb)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

// ErrSubscribeRefused is returned by Feed when RefuseSubscribe is set.
var ErrSubscribeRefused = errors.New("subscribe refused")

// Feed is an in-memory backend.Realtime.
type Feed struct {
	mu       sync.Mutex
	channels []*Channel
	refuse   bool
}

var _ backend.Realtime = (*Feed)(nil)

// NewFeed returns an empty feed.
func NewFeed() *Feed { return &Feed{} }

// RefuseSubscribe makes every later Subscribe fail.
func (f *Feed) RefuseSubscribe(refuse bool) {
	f.mu.Lock()
	f.refuse = refuse
	f.mu.Unlock()
}

// Channel is a fake subscription.
type Channel struct {
	Spec    backend.ChangeSpec
	handler backend.ChangeHandler
	feed    *Feed
	closed  bool
}

// Unsubscribe implements backend.Channel.
func (c *Channel) Unsubscribe() error {
	c.feed.mu.Lock()
	defer c.feed.mu.Unlock()
	c.closed = true
	return nil
}

// Subscribe implements backend.Realtime.
func (f *Feed) Subscribe(_ context.Context, spec backend.ChangeSpec, h backend.ChangeHandler) (backend.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refuse {
		return nil, &backend.SubscribeError{Channel: spec.Name, Reason: ErrSubscribeRefused.Error()}
	}
	ch := &Channel{Spec: spec, handler: h, feed: f}
	f.channels = append(f.channels, ch)
	return ch, nil
}

// Open returns the channels not yet unsubscribed.
func (f *Feed) Open() []*Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Channel
	for _, ch := range f.channels {
		if !ch.closed {
			out = append(out, ch)
		}
	}
	return out
}

// Emit delivers c synchronously to every open channel whose spec selects it.
func (f *Feed) Emit(c backend.Change) {
	f.mu.Lock()
	var targets []*Channel
	for _, ch := range f.channels {
		if ch.closed || ch.Spec.Table != c.Table || !ch.Spec.Accepts(c.Event) {
			continue
		}
		row := c.New
		if row == nil {
			row = c.Old
		}
		if !ch.Spec.Matches(row) {
			continue
		}
		targets = append(targets, ch)
	}
	f.mu.Unlock()

	for _, ch := range targets {
		ch.handler(c)
	}
}
