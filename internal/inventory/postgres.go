package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore reads the products table and applies stock deltas to it.
type PostgresStore struct{ DB *pgxpool.Pool }

var (
	_ Catalog = (*PostgresStore)(nil)
	_ Store   = (*PostgresStore)(nil)
)

const productColumns = `id, sku, name, seller_id, seller_type, unit, stock, price_cents,
	base_price_cents, margin_percent::text, created_at, updated_at`

// Apply never locks the row across statements: the guard lives in the WHERE
// clause, so concurrent reservations serialize on the row update itself.
func (s *PostgresStore) Apply(ctx context.Context, productID string, delta int) (int, error) {
	var remaining int
	err := s.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock`, productID, delta).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var (
		name  string
		stock int
	)
	err = s.DB.QueryRow(ctx, `SELECT name, stock FROM products WHERE id=$1`, productID).Scan(&name, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", orders.ErrProductNotFound, productID)
	}
	if err != nil {
		return 0, err
	}
	return 0, &orders.StockShortfall{ProductID: productID, Name: name, Requested: -delta, Available: stock}
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: %s", orders.ErrProductNotFound, id)
	}
	return p, err
}

func (s *PostgresStore) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p      Product
		base   *int64
		margin *string
	)
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.SellerID, &p.SellerType, &p.Unit, &p.Stock, &p.PriceCents,
		&base, &margin, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	if base != nil {
		p.BasePriceCents = *base
	}
	if margin != nil {
		m, err := decimal.NewFromString(*margin)
		if err != nil {
			return Product{}, fmt.Errorf("product %s margin: %w", p.ID, err)
		}
		p.MarginPercent = m
	}
	return p, nil
}
