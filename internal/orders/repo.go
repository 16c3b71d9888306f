package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres-backed Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const orderColumns = `id, order_number, buyer_id, seller_id, kind, total_cents, currency,
	status, payment_method, payment_status, gateway_order_id, gateway_payment_id, gateway_signature,
	delivery_address, expected_delivery_at, delivered_at, cancellation_reason, refund_status, refund_id,
	version, created_at, updated_at`

func (r *Repo) Insert(ctx context.Context, o *Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	addr, err := json.Marshal(o.DeliveryAddress)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		o.ID, o.Number, o.BuyerID, o.SellerID, o.Kind, o.TotalCents, o.Currency,
		o.Status, o.PaymentMethod, o.PaymentStatus, nullable(o.GatewayOrderID), nullable(o.GatewayPaymentID), nullable(o.GatewaySignature),
		addr, o.ExpectedDeliveryAt, o.DeliveredAt, nullable(o.CancellationReason), o.RefundStatus, nullable(o.RefundID),
		o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		}
		return err
	}

	for i, it := range o.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, line_no, product_id, qty, price_cents, unit)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			o.ID, i, it.ProductID, it.Quantity, it.PriceCents, it.Unit,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	items, err := r.items(ctx, []string{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// Update writes the mutable columns. Items and totals are immutable once stored.
func (r *Repo) Update(ctx context.Context, o *Order) error {
	addr, err := json.Marshal(o.DeliveryAddress)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET
			status=$3, payment_status=$4, gateway_order_id=$5, gateway_payment_id=$6, gateway_signature=$7,
			delivery_address=$8, expected_delivery_at=$9, delivered_at=$10, cancellation_reason=$11,
			refund_status=$12, refund_id=$13, updated_at=$14, version = version + 1
		WHERE id=$1 AND version=$2`,
		o.ID, o.Version,
		o.Status, o.PaymentStatus, nullable(o.GatewayOrderID), nullable(o.GatewayPaymentID), nullable(o.GatewaySignature),
		addr, o.ExpectedDeliveryAt, o.DeliveredAt, nullable(o.CancellationReason),
		o.RefundStatus, nullable(o.RefundID), o.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		o.Version++
		return nil
	}

	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, o.ID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *Repo) List(ctx context.Context, f Filter) ([]*Order, int, error) {
	f = f.Normalize()

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.BuyerID != "" {
		add("buyer_id=$%d", f.BuyerID)
	}
	if f.SellerID != "" {
		add("seller_id=$%d", f.SellerID)
	}
	if f.Kind != "" {
		add("kind=$%d", f.Kind)
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset())
	rows, err := r.DB.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			orderColumns, clause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		out []*Order
		ids []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return out, total, nil
	}

	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, o := range out {
		o.Items = items[o.ID]
	}
	return out, total, nil
}

func (r *Repo) items(ctx context.Context, orderIDs []string) (map[string][]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT order_id, product_id, qty, price_cents, unit
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Item, len(orderIDs))
	for rows.Next() {
		var (
			orderID string
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.Quantity, &it.PriceCents, &it.Unit); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o                               Order
		gwOrder, gwPayment, gwSig       *string
		reason, refundID                *string
		addr                            []byte
		expectedDeliveryAt, deliveredAt *time.Time
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.BuyerID, &o.SellerID, &o.Kind, &o.TotalCents, &o.Currency,
		&o.Status, &o.PaymentMethod, &o.PaymentStatus, &gwOrder, &gwPayment, &gwSig,
		&addr, &expectedDeliveryAt, &deliveredAt, &reason, &o.RefundStatus, &refundID,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(addr) > 0 {
		if err := json.Unmarshal(addr, &o.DeliveryAddress); err != nil {
			return nil, fmt.Errorf("decode address: %w", err)
		}
	}
	o.GatewayOrderID = deref(gwOrder)
	o.GatewayPaymentID = deref(gwPayment)
	o.GatewaySignature = deref(gwSig)
	o.CancellationReason = deref(reason)
	o.RefundID = deref(refundID)
	o.ExpectedDeliveryAt = expectedDeliveryAt
	o.DeliveredAt = deliveredAt
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
