// Package pg implements the repository interfaces on PostgreSQL through a
// pgx connection pool.
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bremersee/authman/internal/domain/repository"
	"github.com/bremersee/authman/internal/observability/logger"
)

// Config tunes the pool.
type Config struct {
	DSN             string
	MaxConns        int32
	ConnMaxLifetime time.Duration
}

type Store struct{ pool *pgxpool.Pool }

// Open creates the pool. A failed startup ping is logged, not returned, so the
// process can come up while the database is still starting.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	log := logger.From(ctx).With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		log.Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return &Store{pool: pool}, nil
}

// Pool exposes the pool for migrations and stats.
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close closes the pool (idempotent).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Approvals() repository.ApprovalRepository         { return &approvalRepo{pool: s.pool} }
func (s *Store) Clients() repository.ClientRegistry               { return &clientRegistry{pool: s.pool} }
func (s *Store) ForeignTokens() repository.ForeignTokenRepository { return &foreignTokenRepo{pool: s.pool} }

// SaveClient registers or replaces a client and grants it authorities.
func (s *Store) SaveClient(ctx context.Context, c repository.ClientRecord, authorities ...string) error {
	r := &clientRegistry{pool: s.pool}
	if err := r.Save(ctx, c); err != nil {
		return err
	}
	return r.Grant(ctx, c.ClientID, authorities...)
}
