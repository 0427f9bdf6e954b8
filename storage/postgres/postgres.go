// Package postgres implements storage.Storage on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/and161185/glean-metrics/internal/errs"
	"github.com/and161185/glean-metrics/internal/utils"
	"github.com/and161185/glean-metrics/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS telemetry_metrics (
	store    TEXT    NOT NULL,
	id       TEXT    NOT NULL,
	type     TEXT    NOT NULL,
	lifetime TEXT    NOT NULL,
	delta    BIGINT,
	text     TEXT,
	flag     BOOLEAN,
	PRIMARY KEY (store, id)
)`

// Counters accumulate in SQL so concurrent writers do not lose increments.
const upsertMetric = `
INSERT INTO telemetry_metrics (store, id, type, lifetime, delta, text, flag)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (store, id) DO UPDATE SET
	type     = EXCLUDED.type,
	lifetime = EXCLUDED.lifetime,
	delta    = CASE
		WHEN telemetry_metrics.type = 'counter' AND EXCLUDED.type = 'counter'
		THEN COALESCE(telemetry_metrics.delta, 0) + COALESCE(EXCLUDED.delta, 0)
		ELSE EXCLUDED.delta
	END,
	text     = EXCLUDED.text,
	flag     = EXCLUDED.flag`

const selectColumns = `SELECT id, type, lifetime, delta, text, flag FROM telemetry_metrics`

type PostgresStorage struct {
	db     *pgxpool.Pool
	logger *zap.SugaredLogger
}

// NewPostgresStorage connects to dsn and creates the metrics table if needed.
func NewPostgresStorage(ctx context.Context, dsn string, logger *zap.SugaredLogger) (*PostgresStorage, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	err = utils.WithRetry(ctx, func() error {
		_, e := db.Exec(ctx, schema)
		return e
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Debug("postgres storage ready")

	return &PostgresStorage{db: db, logger: logger}, nil
}

func (store *PostgresStorage) Record(ctx context.Context, stores []string, m *model.Metric) error {
	if len(stores) == 0 {
		return nil
	}

	return utils.WithRetry(ctx, func() error {
		return pgx.BeginFunc(ctx, store.db, func(tx pgx.Tx) error {
			for _, name := range stores {
				_, err := tx.Exec(ctx, upsertMetric,
					name, m.ID, string(m.Type), m.Lifetime.String(), m.Delta, m.Text, m.Flag)
				if err != nil {
					return fmt.Errorf("upsert %s/%s: %w", name, m.ID, err)
				}
			}
			return nil
		})
	})
}

func (store *PostgresStorage) Get(ctx context.Context, name, id string) (*model.Metric, error) {
	var m *model.Metric
	err := utils.WithRetry(ctx, func() error {
		row := store.db.QueryRow(ctx, selectColumns+` WHERE store = $1 AND id = $2`, name, id)
		var e error
		m, e = scanMetric(row)
		return e
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrMetricNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (store *PostgresStorage) Snapshot(ctx context.Context, name string, clearPing bool) (map[string]*model.Metric, error) {
	var result map[string]*model.Metric
	err := utils.WithRetry(ctx, func() error {
		return pgx.BeginFunc(ctx, store.db, func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, selectColumns+` WHERE store = $1`, name)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			result, err = collectMetrics(rows)
			if err != nil {
				return err
			}

			if !clearPing {
				return nil
			}
			_, err = tx.Exec(ctx, `DELETE FROM telemetry_metrics WHERE store = $1 AND lifetime = $2`,
				name, model.LifetimePing.String())
			if err != nil {
				return fmt.Errorf("clear ping lifetime: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StoreNames returns the names of all stores that currently hold values.
func (store *PostgresStorage) StoreNames(ctx context.Context) ([]string, error) {
	var names []string
	err := utils.WithRetry(ctx, func() error {
		rows, err := store.db.Query(ctx, `SELECT DISTINCT store FROM telemetry_metrics ORDER BY store`)
		if err != nil {
			return err
		}
		names, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (store *PostgresStorage) ClearLifetime(ctx context.Context, lifetime model.Lifetime) error {
	return utils.WithRetry(ctx, func() error {
		_, err := store.db.Exec(ctx, `DELETE FROM telemetry_metrics WHERE lifetime = $1`, lifetime.String())
		return err
	})
}

func (store *PostgresStorage) ClearAll(ctx context.Context) error {
	return utils.WithRetry(ctx, func() error {
		_, err := store.db.Exec(ctx, `DELETE FROM telemetry_metrics`)
		return err
	})
}

func (store *PostgresStorage) Ping(ctx context.Context) error {
	return store.db.Ping(ctx)
}

// Close releases the connection pool.
func (store *PostgresStorage) Close() {
	store.db.Close()
}

func collectMetrics(rows pgx.Rows) (map[string]*model.Metric, error) {
	defer rows.Close()

	result := make(map[string]*model.Metric)
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		result[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return result, nil
}

func scanMetric(row pgx.Row) (*model.Metric, error) {
	var (
		m        model.Metric
		typ      string
		lifetime string
	)
	if err := row.Scan(&m.ID, &typ, &lifetime, &m.Delta, &m.Text, &m.Flag); err != nil {
		return nil, err
	}

	lt, err := model.ParseLifetime(lifetime)
	if err != nil {
		return nil, err
	}
	m.Type = model.MetricType(typ)
	m.Lifetime = lt
	return &m, nil
}
