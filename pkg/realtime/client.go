// Package realtime subscribes to row changes over the backend's websocket
// channel protocol.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wavespace/wavespace/pkg/backend"
)

const (
	writeWait         = 10 * time.Second
	defaultHeartbeat  = 25 * time.Second
	defaultJoinWait   = 10 * time.Second
	maxMessageSize    = 1 << 20
	sendBufferSize    = 64
	defaultSchemaName = "public"
)

var errDisconnected = errors.New("realtime: connection lost")

var _ backend.Realtime = (*Client)(nil)

// Client multiplexes channels over one websocket connection. The connection
// is dialed on first Subscribe and redialed, with channels rejoined, when it
// drops.
type Client struct {
	url     string
	token   func() string
	dialer  *websocket.Dialer
	log     *zap.Logger
	hbEvery time.Duration
	joinTTL time.Duration
	backoff []time.Duration

	ref atomic.Uint64

	dialMu sync.Mutex
	mu     sync.Mutex
	conn   *conn
	chans  map[string]*Channel
	replys map[string]chan reply
	closed bool
	done   chan struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTokenSource supplies the access token sent with every join.
func WithTokenSource(fn func() string) Option {
	return func(c *Client) { c.token = fn }
}

// WithHeartbeat overrides the 25s heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Client) { c.hbEvery = d }
}

// WithJoinTimeout overrides how long a join waits for its reply.
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Client) { c.joinTTL = d }
}

// WithReconnectBackoff sets the redial delays; the last one repeats.
func WithReconnectBackoff(delays ...time.Duration) Option {
	return func(c *Client) { c.backoff = delays }
}

// New creates a client for the websocket endpoint url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:     url,
		token:   func() string { return "" },
		dialer:  websocket.DefaultDialer,
		log:     zap.NewNop(),
		hbEvery: defaultHeartbeat,
		joinTTL: defaultJoinWait,
		backoff: []time.Duration{time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second},
		chans:   make(map[string]*Channel),
		replys:  make(map[string]chan reply),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Channel is one joined topic.
type Channel struct {
	c       *Client
	topic   string
	spec    backend.ChangeSpec
	handler backend.ChangeHandler
	left    atomic.Bool
}

// Topic is the channel's wire topic.
func (ch *Channel) Topic() string { return ch.topic }

// Unsubscribe leaves the channel. Calling it again is a no-op.
func (ch *Channel) Unsubscribe() error {
	if ch.left.Swap(true) {
		return nil
	}
	return ch.c.leave(ch)
}

// Subscribe joins a channel for spec and delivers matching changes to h.
// h runs on the connection's read goroutine.
func (c *Client) Subscribe(ctx context.Context, spec backend.ChangeSpec, h backend.ChangeHandler) (backend.Channel, error) {
	if spec.Schema == "" {
		spec.Schema = defaultSchemaName
	}
	if spec.Event == "" {
		spec.Event = backend.EventAll
	}
	if spec.Name == "" {
		spec.Name = spec.Table
	}
	ch := &Channel{c: c, topic: topicPrefix + spec.Name, spec: spec, handler: h}

	cn, err := c.connect(ctx)
	if err != nil {
		return nil, &backend.SubscribeError{Channel: spec.Name, Reason: err.Error()}
	}

	c.mu.Lock()
	c.chans[ch.topic] = ch
	c.mu.Unlock()

	if err := c.join(ctx, cn, ch); err != nil {
		c.mu.Lock()
		if c.chans[ch.topic] == ch {
			delete(c.chans, ch.topic)
		}
		c.mu.Unlock()
		return nil, &backend.SubscribeError{Channel: spec.Name, Reason: err.Error()}
	}
	c.log.Debug("realtime channel joined", zap.String("topic", ch.topic), zap.String("event", spec.Event))
	return ch, nil
}

// Close drops every channel and the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	cn := c.conn
	c.conn = nil
	c.chans = make(map[string]*Channel)
	c.mu.Unlock()

	if cn != nil {
		cn.shutdown()
	}
	return nil
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) nextRef() string {
	return strconv.FormatUint(c.ref.Add(1), 10)
}

func (c *Client) join(ctx context.Context, cn *conn, ch *Channel) error {
	payload, err := json.Marshal(newJoinPayload(ch.spec, c.token()))
	if err != nil {
		return fmt.Errorf("marshal join: %w", err)
	}
	ref := c.nextRef()
	replyCh := make(chan reply, 1)

	c.mu.Lock()
	c.replys[ref] = replyCh
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.replys, ref)
		c.mu.Unlock()
	}()

	if err := cn.write(frame{Topic: ch.topic, Event: eventJoin, Payload: payload, Ref: &ref, JoinRef: &ref}); err != nil {
		return err
	}

	timer := time.NewTimer(c.joinTTL)
	defer timer.Stop()
	select {
	case r := <-replyCh:
		if r.Status != "ok" {
			reason := r.Response.Reason
			if reason == "" {
				reason = r.Status
			}
			return fmt.Errorf("join rejected: %s", reason)
		}
		return nil
	case <-timer.C:
		return errors.New("join timed out")
	case <-cn.done:
		return errDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) leave(ch *Channel) error {
	c.mu.Lock()
	if c.chans[ch.topic] == ch {
		delete(c.chans, ch.topic)
	}
	cn := c.conn
	c.mu.Unlock()

	if cn == nil {
		return nil
	}
	ref := c.nextRef()
	if err := cn.write(frame{Topic: ch.topic, Event: eventLeave, Payload: json.RawMessage("{}"), Ref: &ref}); err != nil {
		return fmt.Errorf("realtime.Unsubscribe %s: %w", ch.topic, err)
	}
	return nil
}

func (c *Client) connect(ctx context.Context) (*conn, error) {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("realtime: client closed")
	}
	if c.conn != nil {
		cn := c.conn
		c.mu.Unlock()
		return cn, nil
	}
	c.mu.Unlock()

	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	cn := newConn(ws)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cn.shutdown()
		return nil, errors.New("realtime: client closed")
	}
	c.conn = cn
	c.mu.Unlock()

	go c.writePump(cn)
	go c.readPump(cn)
	return cn, nil
}

func (c *Client) dispatch(f frame) {
	switch f.Event {
	case eventReply:
		if f.Ref == nil {
			return
		}
		var r reply
		if err := json.Unmarshal(f.Payload, &r); err != nil {
			c.log.Warn("realtime: bad reply payload", zap.Error(err))
			return
		}
		c.mu.Lock()
		replyCh, ok := c.replys[*f.Ref]
		c.mu.Unlock()
		if ok {
			select {
			case replyCh <- r:
			default:
			}
		}

	case eventChanges:
		c.mu.Lock()
		ch, ok := c.chans[f.Topic]
		c.mu.Unlock()
		if !ok || ch.left.Load() {
			return
		}
		var p changesPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			c.log.Warn("realtime: bad change payload", zap.String("topic", f.Topic), zap.Error(err))
			return
		}
		change := p.change()
		if !ch.spec.Accepts(change.Event) {
			return
		}
		ch.handler(change)

	case eventError, eventClose:
		c.log.Warn("realtime: channel closed by server", zap.String("topic", f.Topic), zap.String("event", f.Event))
	}
}

func (c *Client) readPump(cn *conn) {
	defer c.disconnected(cn)

	cn.ws.SetReadLimit(maxMessageSize)
	readWait := 2 * c.hbEvery
	cn.ws.SetReadDeadline(time.Now().Add(readWait)) //nolint:errcheck
	for {
		_, data, err := cn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("realtime: read failed", zap.Error(err))
			}
			return
		}
		cn.ws.SetReadDeadline(time.Now().Add(readWait)) //nolint:errcheck

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.log.Warn("realtime: bad frame", zap.Error(err))
			continue
		}
		c.dispatch(f)
	}
}

func (c *Client) writePump(cn *conn) {
	ticker := time.NewTicker(c.hbEvery)
	defer func() {
		ticker.Stop()
		cn.shutdown()
	}()

	for {
		select {
		case msg := <-cn.send:
			cn.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := cn.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			ref := c.nextRef()
			hb := frame{Topic: heartbeatTopic, Event: eventHeartbeat, Payload: json.RawMessage("{}"), Ref: &ref}
			b, err := json.Marshal(hb)
			if err != nil {
				return
			}
			cn.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := cn.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-cn.done:
			cn.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			cn.ws.WriteMessage(websocket.CloseMessage, closeMsg) //nolint:errcheck
			return
		}
	}
}

// disconnected runs when the read side dies. Joined channels survive and
// are rejoined once a new connection is up.
func (c *Client) disconnected(cn *conn) {
	cn.shutdown()

	c.mu.Lock()
	if c.conn == cn {
		c.conn = nil
	}
	rejoin := !c.closed && len(c.chans) > 0
	c.mu.Unlock()

	if rejoin {
		go c.reconnect()
	}
}

func (c *Client) reconnect() {
	for attempt := 0; ; attempt++ {
		delay := c.backoff[min(attempt, len(c.backoff)-1)]
		select {
		case <-time.After(delay):
		case <-c.done:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.joinTTL)
		cn, err := c.connect(ctx)
		cancel()
		if err != nil {
			c.log.Warn("realtime: reconnect failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		c.mu.Lock()
		chans := make([]*Channel, 0, len(c.chans))
		for _, ch := range c.chans {
			chans = append(chans, ch)
		}
		c.mu.Unlock()

		for _, ch := range chans {
			ctx, cancel := context.WithTimeout(context.Background(), c.joinTTL)
			if err := c.join(ctx, cn, ch); err != nil {
				c.log.Warn("realtime: rejoin failed", zap.String("topic", ch.topic), zap.Error(err))
			}
			cancel()
		}
		c.log.Info("realtime: reconnected", zap.Int("channels", len(chans)))
		return
	}
}

type conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws, send: make(chan []byte, sendBufferSize), done: make(chan struct{})}
}

func (cn *conn) write(f frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	select {
	case cn.send <- b:
		return nil
	case <-cn.done:
		return errDisconnected
	default:
		return errors.New("realtime: send buffer full")
	}
}

// shutdown signals the pumps; the write pump sends the close frame and the
// read pump exits once the socket is closed.
func (cn *conn) shutdown() {
	cn.once.Do(func() {
		close(cn.done)
		go func() {
			time.Sleep(writeWait / 10)
			cn.ws.Close() //nolint:errcheck
		}()
	})
}
