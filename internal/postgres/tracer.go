package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type queryStartKey struct{}

type queryStart struct {
	at  time.Time
	sql string
}

// SlowQueryTracer logs statements slower than its threshold.
type SlowQueryTracer struct {
	logger    *zap.Logger
	threshold time.Duration
	now       func() time.Time
}

// NewSlowQueryTracer returns a tracer; a zero threshold means 100ms.
func NewSlowQueryTracer(logger *zap.Logger, threshold time.Duration) *SlowQueryTracer {
	if threshold == 0 {
		threshold = 100 * time.Millisecond
	}
	return &SlowQueryTracer{logger: logger, threshold: threshold, now: time.Now}
}

// TraceQueryStart implements pgx.QueryTracer.
func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: t.now(), sql: data.SQL})
}

// TraceQueryEnd implements pgx.QueryTracer.
func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	took := t.now().Sub(start.at)
	if took <= t.threshold {
		return
	}
	sql := start.sql
	if len(sql) > 200 {
		sql = sql[:200] + "..."
	}
	t.logger.Warn("slow query",
		zap.String("sql", sql),
		zap.Duration("took", took),
		zap.String("command_tag", data.CommandTag.String()),
		zap.Error(data.Err),
	)
}
