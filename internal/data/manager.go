// Package data is the single entry point for table reads, writes and
// change subscriptions. Reads go through a time-boxed cache that every
// successful write to the same table invalidates.
package data

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wavespace/wavespace/internal/cache"
	"github.com/wavespace/wavespace/internal/metrics"
	"github.com/wavespace/wavespace/pkg/backend"
)

// ErrNoRows is returned when an update or delete matched nothing.
var ErrNoRows = errors.New("no rows matched")

const invalidateTimeout = 2 * time.Second

// Manager is the data manager. It is safe for concurrent use.
type Manager struct {
	backend     backend.Backend
	realtime    backend.Realtime
	store       cache.Store
	ttl         time.Duration
	healthTable string
	log         *zap.Logger
	now         func() time.Time

	mu   sync.Mutex
	subs map[string]backend.Channel
}

// Option configures a Manager.
type Option func(*Manager)

// WithBackend sets the row store. Without one every read fails with
// backend.ErrUnavailable.
func WithBackend(b backend.Backend) Option {
	return func(m *Manager) { m.backend = b }
}

// WithRealtime sets the change feed. Without one Subscribe soft-fails.
func WithRealtime(r backend.Realtime) Option {
	return func(m *Manager) { m.realtime = r }
}

// WithTTL overrides cache.DefaultTTL.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) { m.ttl = d }
}

// WithHealthTable sets the table the health check queries.
func WithHealthTable(table string) Option {
	return func(m *Manager) { m.healthTable = table }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock replaces time.Now for health timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager caching into store.
func New(store cache.Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		ttl:         cache.DefaultTTL,
		healthTable: "users",
		log:         zap.NewNop(),
		now:         time.Now,
		subs:        make(map[string]backend.Channel),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.Named("data")
	return m
}

// Fingerprint is the cache key of a query: the table, a separator that
// cannot appear in table names, and the query's canonical JSON. Map keys
// are sorted by encoding/json so equal queries produce equal keys.
func Fingerprint(table string, q backend.Query) string {
	b, err := json.Marshal(q)
	if err != nil {
		b = []byte(err.Error())
	}
	return tablePrefix(table) + string(b)
}

func tablePrefix(table string) string {
	return table + "|"
}

// GetData returns table rows for q, from cache when fresh unless
// q.ForceRefresh is set.
func (m *Manager) GetData(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	if m.backend == nil {
		return nil, backend.ErrUnavailable
	}
	key := Fingerprint(table, q)

	if !q.ForceRefresh {
		if rows, ok := m.cached(ctx, table, key); ok {
			return rows, nil
		}
	}

	start := time.Now()
	rows, err := m.backend.Select(ctx, table, q)
	metrics.RecordBackendCall("select", table, err, time.Since(start))
	if err != nil {
		m.log.Warn("select failed", zap.String("table", table), zap.Error(err))
		return nil, &backend.QueryError{Table: table, Err: err}
	}

	b, err := json.Marshal(rows)
	if err != nil {
		m.log.Warn("rows not cacheable", zap.String("table", table), zap.Error(err))
		return rows, nil
	}
	if err := m.store.Set(ctx, key, b, m.ttl); err != nil {
		m.log.Warn("cache write failed", zap.String("table", table), zap.Error(err))
	}
	// A live read returns exactly what a later hit on the same key would.
	if decoded, err := decodeRows(b); err == nil {
		rows = decoded
	}
	return rows, nil
}

// decodeRows keeps numbers as json.Number so int64 ids survive the cache.
func decodeRows(b []byte) ([]backend.Row, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var rows []backend.Row
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (m *Manager) cached(ctx context.Context, table, key string) ([]backend.Row, bool) {
	b, ok, err := m.store.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordCacheLookup(table, "error")
		m.log.Warn("cache read failed, fetching live", zap.String("table", table), zap.Error(err))
		return nil, false
	case !ok:
		metrics.RecordCacheLookup(table, "miss")
		return nil, false
	}
	rows, err := decodeRows(b)
	if err != nil {
		metrics.RecordCacheLookup(table, "error")
		return nil, false
	}
	metrics.RecordCacheLookup(table, "hit")
	return rows, true
}

// CreateData inserts row and returns it as stored.
func (m *Manager) CreateData(ctx context.Context, table string, row backend.Row) (backend.Row, error) {
	if m.backend == nil {
		return nil, backend.ErrUnavailable
	}
	start := time.Now()
	rows, err := m.backend.Insert(ctx, table, row)
	metrics.RecordBackendCall("insert", table, err, time.Since(start))
	if err != nil {
		return nil, &backend.MutationError{Table: table, Op: "insert", Err: err}
	}
	m.invalidateAfterWrite(ctx, table)
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// UpdateData patches the row with the given id and returns it as stored.
func (m *Manager) UpdateData(ctx context.Context, table string, id any, patch backend.Row) (backend.Row, error) {
	if m.backend == nil {
		return nil, backend.ErrUnavailable
	}
	start := time.Now()
	rows, err := m.backend.Update(ctx, table, patch, map[string]any{"id": id})
	metrics.RecordBackendCall("update", table, err, time.Since(start))
	if err != nil {
		return nil, &backend.MutationError{Table: table, Op: "update", Err: err}
	}
	m.invalidateAfterWrite(ctx, table)
	if len(rows) == 0 {
		return nil, &backend.MutationError{Table: table, Op: "update", Err: ErrNoRows}
	}
	return rows[0], nil
}

// DeleteData removes the row with the given id.
func (m *Manager) DeleteData(ctx context.Context, table string, id any) error {
	if m.backend == nil {
		return backend.ErrUnavailable
	}
	start := time.Now()
	err := m.backend.Delete(ctx, table, map[string]any{"id": id})
	metrics.RecordBackendCall("delete", table, err, time.Since(start))
	if err != nil {
		return &backend.MutationError{Table: table, Op: "delete", Err: err}
	}
	m.invalidateAfterWrite(ctx, table)
	return nil
}

func (m *Manager) invalidateAfterWrite(ctx context.Context, table string) {
	if err := m.Invalidate(ctx, table); err != nil {
		m.log.Warn("cache invalidation failed", zap.String("table", table), zap.Error(err))
	}
}

// Invalidate drops every cached result of table, or of all tables when
// table is empty.
func (m *Manager) Invalidate(ctx context.Context, table string) error {
	if table == "" {
		return m.store.Clear(ctx)
	}
	return m.store.DeletePrefix(ctx, tablePrefix(table))
}

// Subscribe opens a change channel on table and returns its id, or "" when
// realtime is not configured or the join failed. filter is an optional
// "column=eq.value" predicate. Every delivered change invalidates table's
// cached results before cb runs.
func (m *Manager) Subscribe(ctx context.Context, table string, cb backend.ChangeHandler, filter string) string {
	if m.realtime == nil {
		m.log.Warn("realtime not configured, subscription skipped", zap.String("table", table))
		return ""
	}
	id := uuid.NewString()
	spec := backend.ChangeSpec{
		Name:   table + ":" + id,
		Event:  backend.EventAll,
		Table:  table,
		Filter: filter,
	}

	ch, err := m.realtime.Subscribe(ctx, spec, func(c backend.Change) {
		metrics.RecordRealtimeEvent(table, c.Event)
		ictx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		m.invalidateAfterWrite(ictx, table)
		cancel()
		if cb != nil {
			cb(c)
		}
	})
	if err != nil {
		m.log.Warn("realtime subscription failed", zap.String("table", table), zap.Error(err))
		return ""
	}

	m.mu.Lock()
	m.subs[id] = ch
	m.mu.Unlock()
	metrics.ActiveSubscriptions.Inc()
	m.log.Debug("subscribed", zap.String("table", table), zap.String("id", id))
	return id
}

// Unsubscribe closes the subscription with the given id. Unknown ids are ignored.
func (m *Manager) Unsubscribe(id string) {
	m.mu.Lock()
	ch, ok := m.subs[id]
	delete(m.subs, id)
	m.mu.Unlock()
	if !ok {
		return
	}
	metrics.ActiveSubscriptions.Dec()
	if err := ch.Unsubscribe(); err != nil {
		m.log.Warn("unsubscribe failed", zap.String("id", id), zap.Error(err))
	}
}

// Status is a point-in-time view of the manager.
type Status struct {
	BackendReady    bool `json:"backend_ready"`
	CacheSize       int  `json:"cache_size"`
	SubscriberCount int  `json:"subscriber_count"`
}

// Health is the outcome of a health check.
type Health struct {
	Timestamp time.Time `json:"timestamp"`
	Status
	Error string `json:"error,omitempty"`
}

// Status reports readiness and sizes without touching the backend.
func (m *Manager) Status(ctx context.Context) Status {
	size, err := m.store.Len(ctx)
	if err != nil {
		size = -1
	}
	m.mu.Lock()
	subs := len(m.subs)
	m.mu.Unlock()
	return Status{BackendReady: m.backend != nil, CacheSize: size, SubscriberCount: subs}
}

// HealthCheck runs a trivial query against the backend. It never fails;
// problems are reported in Health.Error.
func (m *Manager) HealthCheck(ctx context.Context) Health {
	h := Health{Timestamp: m.now(), Status: m.Status(ctx)}
	if m.backend == nil {
		h.Error = backend.ErrUnavailable.Error()
		return h
	}
	start := time.Now()
	_, err := m.backend.Select(ctx, m.healthTable, backend.Query{Limit: 1})
	metrics.RecordBackendCall("health", m.healthTable, err, time.Since(start))
	if err != nil {
		h.BackendReady = false
		h.Error = err.Error()
	}
	return h
}

// Close closes every subscription and the cache store.
func (m *Manager) Close() error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.Unsubscribe(id)
	}
	return m.store.Close()
}
