package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-shop-backend/internal/postgres"
)

type Repo struct {
	DB postgres.DB

	// EnforceFlow switches on the status transition table. Off by
	// default: any recognized status may be set at any time.
	EnforceFlow bool
}

// PlaceOrder converts the user's cart into a pending order inside one
// transaction: product rows are locked (FOR UPDATE), stock is checked
// and decremented conditionally, items snapshot the unit price, and the
// cart is cleared. Any failure rolls back everything and leaves the
// cart intact.
func (r *Repo) PlaceOrder(ctx context.Context, userID string) (*Order, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	type line struct {
		productID string
		qty       int
	}
	rows, err := tx.Query(ctx,
		`SELECT product_id, qty FROM cart_lines WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("select cart: %w", err)
	}
	var lines []line
	for rows.Next() {
		var l line
		if err := rows.Scan(&l.productID, &l.qty); err != nil {
			rows.Close()
			return nil, err
		}
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Lock each product and check stock; stop at the first shortage.
	var total int64
	prices := make(map[string]int64, len(lines))
	for _, l := range lines {
		var name string
		var price int64
		var stock int
		err := tx.QueryRow(ctx,
			`SELECT name, price_cents, stock FROM products WHERE id = $1 FOR UPDATE`,
			l.productID).Scan(&name, &price, &stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product not found: %s", l.productID)
		}
		if err != nil {
			return nil, fmt.Errorf("lock product: %w", err)
		}
		if stock < l.qty {
			return nil, &InsufficientStockError{
				ProductID: l.productID, ProductName: name,
				Required: l.qty, Available: stock,
			}
		}
		prices[l.productID] = price
		total += price * int64(l.qty)
	}

	o := &Order{ID: uuid.NewString(), UserID: userID, Status: StatusPending, TotalCents: total}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		o.ID, o.UserID, string(o.Status), o.TotalCents,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for _, l := range lines {
		it := Item{
			ID:         uuid.NewString(),
			OrderID:    o.ID,
			ProductID:  l.productID,
			Qty:        l.qty,
			PriceCents: prices[l.productID],
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			it.ID, it.OrderID, it.ProductID, it.Qty, it.PriceCents); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}

		// Conditional decrement; with the row lock held the guard can
		// only fail if stock changed underneath us, which it cannot.
		ct, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1 AND stock >= $2`,
			l.productID, l.qty)
		if err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if ct.RowsAffected() != 1 {
			return nil, &InsufficientStockError{ProductID: l.productID, Required: l.qty}
		}
		o.Items = append(o.Items, it)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return o, nil
}

// UpdateStatus transitions an order to a recognized status. Validation
// order follows the API contract: missing order wins over a bad status
// value.
func (r *Repo) UpdateStatus(ctx context.Context, orderID, newStatus string) (*Order, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := &Order{ID: orderID}
	var current string
	err = tx.QueryRow(ctx,
		`SELECT user_id, status, total_cents, created_at FROM orders WHERE id = $1 FOR UPDATE`,
		orderID).Scan(&o.UserID, &current, &o.TotalCents, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}

	to, ok := ParseStatus(newStatus)
	if !ok {
		return nil, ErrInvalidStatus
	}
	if r.EnforceFlow && !CanTransition(Status(current), to) {
		return nil, ErrInvalidTransition
	}

	err = tx.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1 RETURNING updated_at`,
		orderID, string(to)).Scan(&o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	o.Status = to

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return o, nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o := &Order{}
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders WHERE id = $1`, orderID,
	).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select order: %w", err)
	}
	if o.Items, err = r.itemsFor(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, status, total_cents, created_at, updated_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if out[i].Items, err = r.itemsFor(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) itemsFor(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, qty, price_cents
		FROM order_items WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
