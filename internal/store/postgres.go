package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 5
	cfg.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// --- Evaluations ---

// Evaluation is one stored batch evaluation of a symbol.
type Evaluation struct {
	ID           int64     `json:"id"`
	RunID        string    `json:"run_id"`
	Symbol       string    `json:"symbol"`
	CurrentPrice float64   `json:"current_price"`
	Percentile30 float64   `json:"percentile_30"`
	Percentile90 float64   `json:"percentile_90"`
	Tier         string    `json:"tier"`
	MessageID    string    `json:"message_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// InsertEvaluation stores e and fills in its ID and CreatedAt.
func (s *Store) InsertEvaluation(ctx context.Context, e *Evaluation) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO price_evaluations (run_id, symbol, current_price, percentile_30, percentile_90, tier, message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		e.RunID, e.Symbol, e.CurrentPrice, e.Percentile30, e.Percentile90, e.Tier, e.MessageID).
		Scan(&e.ID, &e.CreatedAt)
}

// ListEvaluations returns the newest evaluations, optionally filtered by symbol.
func (s *Store) ListEvaluations(ctx context.Context, symbol string, limit int) ([]Evaluation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, run_id::text, symbol, current_price, percentile_30, percentile_90, tier, message_id, created_at
		FROM price_evaluations
		WHERE $1 = '' OR symbol = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []Evaluation
	for rows.Next() {
		var e Evaluation
		if err := rows.Scan(&e.ID, &e.RunID, &e.Symbol, &e.CurrentPrice, &e.Percentile30, &e.Percentile90, &e.Tier, &e.MessageID, &e.CreatedAt); err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

// CleanupOldEvaluations deletes evaluations older than maxAge.
func (s *Store) CleanupOldEvaluations(ctx context.Context, maxAge time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM price_evaluations WHERE created_at < $1`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
