// Package db persists verdict history in PostgreSQL.
package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrHistoryDisabled is returned by history readers when no database is
// configured.
var ErrHistoryDisabled = errors.New("verdict history is disabled")

// NotifyChannel is the NOTIFY channel fed by the verdicts insert trigger.
const NotifyChannel = "verdict_stream"

// MaxHistory caps how many rows a single history read returns.
const MaxHistory = 500

//go:embed migrations/*.sql
var migrations embed.FS

// DB wraps a pgx connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a pool for dsn, pings it and runs migrations.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	db := &DB{Pool: pool, logger: logger}
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Migrate executes the embedded SQL migrations in name order.
func (db *DB) Migrate(ctx context.Context) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	for _, e := range entries {
		sql, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := db.Pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("exec migration %s: %w", e.Name(), err)
		}
	}
	db.logger.Info("database migrated", "migrations", len(entries))
	return nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// PingContext checks the database connection.
func (db *DB) PingContext(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// InsertVerdict stores v, assigning ID and CreatedAt when unset.
func (db *DB) InsertVerdict(ctx context.Context, v *Verdict) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO verdicts (id, created_at, mode, verdict, category, confidence, probability, reason, client_ip, country, source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		v.ID, v.CreatedAt, v.Mode, v.Verdict, v.Category, v.Confidence, v.Probability, v.Reason, v.ClientIP, v.Country, v.Source)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

// RecentVerdicts returns the newest verdicts first. limit is clamped to
// [1, MaxHistory].
func (db *DB) RecentVerdicts(ctx context.Context, limit int) ([]Verdict, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, created_at, mode, verdict, category, confidence, probability, reason, client_ip, country, source
		 FROM verdicts ORDER BY created_at DESC LIMIT $1`,
		ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Verdict
	for rows.Next() {
		var v Verdict
		if err := rows.Scan(&v.ID, &v.CreatedAt, &v.Mode, &v.Verdict, &v.Category, &v.Confidence,
			&v.Probability, &v.Reason, &v.ClientIP, &v.Country, &v.Source); err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

// VerdictBreakdown counts verdicts per mode and label over window.
func (db *DB) VerdictBreakdown(ctx context.Context, window time.Duration) ([]VerdictCount, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT mode, verdict, category, COUNT(*) AS cnt
		 FROM verdicts
		 WHERE created_at > NOW() - $1::interval
		 GROUP BY mode, verdict, category
		 ORDER BY cnt DESC, mode, verdict`,
		interval(window))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []VerdictCount
	for rows.Next() {
		var c VerdictCount
		if err := rows.Scan(&c.Mode, &c.Verdict, &c.Category, &c.Count); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// PruneVerdicts deletes verdicts older than retention and returns the
// number removed.
func (db *DB) PruneVerdicts(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM verdicts WHERE created_at < NOW() - $1::interval`,
		interval(retention))
	if err != nil {
		return 0, fmt.Errorf("prune verdicts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PruneLoop prunes expired verdicts every interval until ctx is cancelled.
// Run it under server.RunWithRecovery.
func (db *DB) PruneLoop(ctx context.Context, retention, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := db.PruneVerdicts(ctx, retention)
		if err != nil && ctx.Err() == nil {
			db.logger.Error("verdict prune failed", "err", err)
		} else if n > 0 {
			db.logger.Info("pruned verdict history", "deleted", n, "retention", retention)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ClampLimit bounds a requested history size to [1, MaxHistory], with 50 as
// the default for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > MaxHistory:
		return MaxHistory
	}
	return limit
}

func interval(d time.Duration) string {
	return fmt.Sprintf("%d seconds", int64(d.Seconds()))
}
