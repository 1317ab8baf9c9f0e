// Package postgres wraps pgxpool with a squirrel statement builder and
// connect retry, so repositories build queries off the handle itself.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	_defaultMaxPoolSize    = 10
	_defaultConnAttempts   = 5
	_defaultBaseRetryDelay = time.Second
	_defaultMaxRetryDelay  = 10 * time.Second
)

type Postgres struct {
	squirrel.StatementBuilderType
	Pool *pgxpool.Pool

	maxPoolSize    int
	connAttempts   int
	baseRetryDelay time.Duration
	maxRetryDelay  time.Duration
}

func New(ctx context.Context, dsn string, log *zap.Logger, opts ...Option) (*Postgres, error) {
	const op = "postgres.New"

	p := &Postgres{
		StatementBuilderType: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		maxPoolSize:          _defaultMaxPoolSize,
		connAttempts:         _defaultConnAttempts,
		baseRetryDelay:       _defaultBaseRetryDelay,
		maxRetryDelay:        _defaultMaxRetryDelay,
	}

	for _, opt := range opts {
		opt(p)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: parse dsn: %w", op, err)
	}
	cfg.MaxConns = int32(p.maxPoolSize)

	delay := p.baseRetryDelay
	for attempt := 1; attempt <= p.connAttempts; attempt++ {
		p.Pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			err = p.Pool.Ping(ctx)
			if err == nil {
				return p, nil
			}
			p.Pool.Close()
		}

		log.Warn("postgres connect failed",
			zap.Int("attempt", attempt),
			zap.Int("attempts_left", p.connAttempts-attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > p.maxRetryDelay {
			delay = p.maxRetryDelay
		}
	}

	return nil, fmt.Errorf("%s: all connect attempts failed: %w", op, err)
}

func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}

func (p *Postgres) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.Pool.Exec(ctx, sql, args...)
}

func (p *Postgres) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return p.Pool.Query(ctx, sql, args...)
}

func (p *Postgres) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return p.Pool.QueryRow(ctx, sql, args...)
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}
