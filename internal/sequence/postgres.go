package sequence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCounter keeps one row per namespace; the upsert creates the row on
// first use and increments it in a single statement afterwards.
type PostgresCounter struct{ DB *pgxpool.Pool }

func (c PostgresCounter) Incr(ctx context.Context, namespace string) (int64, error) {
	var seq int64
	err := c.DB.QueryRow(ctx, `
		INSERT INTO counters(id, seq) VALUES ($1, 1)
		ON CONFLICT (id) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq`, namespace).Scan(&seq)
	return seq, err
}
