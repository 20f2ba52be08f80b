package store

import "context"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS price_evaluations (
    id BIGSERIAL PRIMARY KEY,
    run_id UUID NOT NULL,
    symbol TEXT NOT NULL,
    current_price DOUBLE PRECISION NOT NULL,
    percentile_30 DOUBLE PRECISION NOT NULL,
    percentile_90 DOUBLE PRECISION NOT NULL,
    tier TEXT NOT NULL,
    message_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS price_evaluations_symbol_created_idx
    ON price_evaluations (symbol, created_at DESC);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL)
	return err
}
