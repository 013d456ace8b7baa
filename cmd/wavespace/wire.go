package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wavespace/wavespace/internal/cache"
	"github.com/wavespace/wavespace/internal/config"
	"github.com/wavespace/wavespace/internal/postgres"
	"github.com/wavespace/wavespace/internal/ready"
	"github.com/wavespace/wavespace/internal/session"
	"github.com/wavespace/wavespace/pkg/backend"
	"github.com/wavespace/wavespace/pkg/client"
	"github.com/wavespace/wavespace/pkg/realtime"
)

// feedTables carry the change trigger in postgres mode.
var feedTables = []string{"users", "posts", "notifications", "user_notifications"}

// wiring holds the backend handles shared by the services.
type wiring struct {
	store    cache.Store
	backend  backend.Backend
	realtime backend.Realtime
	deps     *ready.Value[session.Deps]
	closers  []func()
}

func (w *wiring) close() {
	for i := len(w.closers) - 1; i >= 0; i-- {
		w.closers[i]()
	}
}

// wire builds the cache store and backend handles for cfg, and starts
// resolving the auth dependencies in the background.
func wire(ctx context.Context, cfg *config.Config, log *zap.Logger) (*wiring, error) {
	w := &wiring{}
	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	w.store = store

	c := newClient(cfg, log)
	switch cfg.Backend.Mode {
	case config.ModePostgres:
		pool, err := postgres.Connect(ctx, cfg.Backend.DatabaseURL, log)
		if err != nil {
			store.Close() //nolint:errcheck
			return nil, err
		}
		w.closers = append(w.closers, pool.Close)
		w.backend = postgres.NewStore(pool, log)

		if cfg.Backend.InstallTriggers {
			if err := postgres.InstallTriggers(ctx, pool, feedTables...); err != nil {
				log.Warn("installing change triggers failed", zap.Error(err))
			}
		}
		if cfg.Realtime.Enabled {
			ln := postgres.NewListener(pool, log)
			w.closers = append(w.closers, ln.Close)
			w.realtime = ln
		}

	default:
		if c == nil {
			store.Close() //nolint:errcheck
			return nil, errors.New("rest mode needs WAVESPACE_URL and WAVESPACE_ANON_KEY")
		}
		w.backend = c
		if cfg.Realtime.Enabled {
			rt := realtime.New(c.RealtimeURL(),
				realtime.WithLogger(log),
				realtime.WithTokenSource(c.AccessToken),
				realtime.WithHeartbeat(cfg.Realtime.Heartbeat),
			)
			w.closers = append(w.closers, func() { rt.Close() }) //nolint:errcheck
			w.realtime = rt
		}
	}

	w.deps = ready.New[session.Deps]()
	go resolveDeps(w.deps, c, w.realtime, log)
	return w, nil
}

// resolveDeps refreshes a stale stored session before handing the auth
// client to the session service.
func resolveDeps(deps *ready.Value[session.Deps], c *client.Client, rt backend.Realtime, log *zap.Logger) {
	if c == nil {
		deps.Fail(errors.New("auth API not configured"))
		return
	}
	if s := c.Session(); s != nil && s.Expired(time.Now(), 30*time.Second) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if _, err := c.Refresh(ctx); err != nil {
			log.Info("stored session could not be refreshed", zap.Error(err))
		}
		cancel()
	}
	deps.Resolve(session.Deps{Auth: c, Realtime: rt})
}

func newStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	if cfg.Cache.Driver != config.CacheRedis {
		return cache.NewMemory(time.Minute, cache.WithMaxEntries(cfg.Cache.MaxEntries)), nil
	}
	r := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPass,
		DB:       cfg.Cache.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		r.Close() //nolint:errcheck
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return r, nil
}

// newClient returns the hosted-backend client with the stored session
// restored, or nil when the REST endpoint is not configured.
func newClient(cfg *config.Config, log *zap.Logger) *client.Client {
	if cfg.Backend.URL == "" || cfg.Backend.AnonKey == "" {
		return nil
	}
	path := cfg.SessionFile()
	opts := []client.Option{
		client.OnSessionChange(func(s *client.Session) {
			if err := saveSession(path, s); err != nil {
				log.Warn("saving session failed", zap.Error(err))
			}
		}),
	}
	s, err := loadSession(path)
	if err != nil {
		log.Warn("ignoring unreadable session file", zap.Error(err))
	} else if s != nil {
		opts = append(opts, client.WithSession(s))
	}
	return client.New(cfg.Backend.URL, cfg.Backend.AnonKey, opts...)
}
