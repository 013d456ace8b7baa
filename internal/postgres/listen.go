package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/wavespace/wavespace/pkg/backend"
)

// NotifyChannel is the LISTEN channel the change trigger publishes on.
const NotifyChannel = "wavespace_changes"

// notification is the JSON the trigger sends.
type notification struct {
	Schema          string         `json:"schema"`
	Table           string         `json:"table"`
	Type            string         `json:"type"`
	Record          map[string]any `json:"record"`
	OldRecord       map[string]any `json:"old_record"`
	CommitTimestamp string         `json:"commit_timestamp"`
}

func decodeNotification(payload string) (backend.Change, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return backend.Change{}, fmt.Errorf("decode change: %w", err)
	}
	if n.Table == "" || n.Type == "" {
		return backend.Change{}, fmt.Errorf("decode change: missing table or type")
	}
	c := backend.Change{
		Event:  strings.ToUpper(n.Type),
		Schema: n.Schema,
		Table:  n.Table,
		New:    n.Record,
		Old:    n.OldRecord,
	}
	if c.Schema == "" {
		c.Schema = "public"
	}
	if n.CommitTimestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, n.CommitTimestamp); err == nil {
			c.CommitTimestamp = ts
		}
	}
	return c, nil
}

type subscription struct {
	spec    backend.ChangeSpec
	handler backend.ChangeHandler
}

// Listener is a backend.Realtime fed by LISTEN on NotifyChannel. One pooled
// connection is held while any channel is open; the last Unsubscribe or
// Close gives it back.
type Listener struct {
	pool    *pgxpool.Pool
	log     *zap.Logger
	backoff time.Duration

	mu     sync.Mutex
	subs   map[string]subscription
	cancel context.CancelFunc
	done   chan struct{}
}

var _ backend.Realtime = (*Listener)(nil)

// NewListener returns a listener over pool. Nothing is held until the first Subscribe.
func NewListener(pool *pgxpool.Pool, logger *zap.Logger) *Listener {
	return &Listener{
		pool:    pool,
		log:     logger.Named("listen"),
		backoff: 2 * time.Second,
		subs:    make(map[string]subscription),
	}
}

type listenChannel struct {
	l    *Listener
	id   string
	once sync.Once
}

func (c *listenChannel) Unsubscribe() error {
	c.once.Do(func() { c.l.remove(c.id) })
	return nil
}

// Subscribe implements backend.Realtime.
func (l *Listener) Subscribe(_ context.Context, spec backend.ChangeSpec, h backend.ChangeHandler) (backend.Channel, error) {
	if spec.Table == "" {
		return nil, &backend.SubscribeError{Channel: spec.Name, Reason: "table is required"}
	}
	if spec.Filter != "" {
		if _, _, err := backend.ParseFilter(spec.Filter); err != nil {
			return nil, &backend.SubscribeError{Channel: spec.Name, Reason: err.Error()}
		}
	}
	if spec.Schema == "" {
		spec.Schema = "public"
	}
	if spec.Event == "" {
		spec.Event = backend.EventAll
	}

	id := uuid.NewString()
	l.mu.Lock()
	l.subs[id] = subscription{spec: spec, handler: h}
	if l.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		l.cancel = cancel
		l.done = make(chan struct{})
		go l.run(ctx, l.done)
	}
	l.mu.Unlock()

	return &listenChannel{l: l, id: id}, nil
}

// remove drops a subscription and releases the LISTEN connection with the
// last one. It does not wait for the loop to exit, so handlers may call it.
func (l *Listener) remove(id string) {
	l.mu.Lock()
	delete(l.subs, id)
	var cancel context.CancelFunc
	if len(l.subs) == 0 && l.cancel != nil {
		cancel = l.cancel
		l.cancel, l.done = nil, nil
	}
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close stops listening and drops every channel.
func (l *Listener) Close() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.subs = make(map[string]subscription)
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (l *Listener) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.log.Warn("listen connection lost, retrying", zap.Error(err), zap.Duration("backoff", l.backoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+ident(NotifyChannel)); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		change, err := decodeNotification(n.Payload)
		if err != nil {
			l.log.Warn("dropping change", zap.Error(err))
			continue
		}
		l.dispatch(change)
	}
}

func (l *Listener) dispatch(c backend.Change) {
	row := c.New
	if row == nil {
		row = c.Old
	}
	l.mu.Lock()
	var targets []backend.ChangeHandler
	for _, s := range l.subs {
		if s.spec.Table != c.Table || s.spec.Schema != c.Schema || !s.spec.Accepts(c.Event) || !s.spec.Matches(row) {
			continue
		}
		targets = append(targets, s.handler)
	}
	l.mu.Unlock()

	for _, h := range targets {
		h(c)
	}
}
