package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-shop-backend/internal/postgres"
)

var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrProductNotFound = errors.New("product not found")
)

type Repo struct{ DB postgres.DB }

// Add upserts a line: adding the same product again bumps the quantity.
func (r *Repo) Add(ctx context.Context, userID, productID string, qty int) error {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return ErrProductNotFound
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO cart_lines(id, user_id, product_id, qty)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET qty = cart_lines.qty + EXCLUDED.qty, updated_at = now()`,
		uuid.NewString(), userID, productID, qty)
	if err != nil {
		return fmt.Errorf("upsert cart line: %w", err)
	}
	return nil
}

func (r *Repo) SetQty(ctx context.Context, userID, productID string, qty int) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE cart_lines SET qty = $3, updated_at = now()
		WHERE user_id = $1 AND product_id = $2`, userID, productID, qty)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, userID, productID string) error {
	ct, err := r.DB.Exec(ctx,
		`DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// List returns the cart joined with current product name/price/stock.
func (r *Repo) List(ctx context.Context, userID string) ([]LineView, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT cl.product_id, p.name, p.price_cents, cl.qty, p.stock
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.user_id = $1
		ORDER BY cl.created_at`, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []LineView{}, nil
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}
	defer rows.Close()

	out := []LineView{}
	for rows.Next() {
		var v LineView
		if err := rows.Scan(&v.ProductID, &v.Name, &v.PriceCents, &v.Qty, &v.Stock); err != nil {
			return nil, err
		}
		v.LineCents = v.PriceCents * int64(v.Qty)
		out = append(out, v)
	}
	return out, rows.Err()
}
