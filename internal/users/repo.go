package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ariefcatur/go-shop-backend/internal/postgres"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	ErrNotFound   = errors.New("user not found")
)

type Repo struct{ DB postgres.DB }

func (r *Repo) Create(ctx context.Context, email, passwordHash, fullName, phone, address string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Phone:        phone,
		Address:      address,
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users(id, email, password_hash, full_name, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Phone, u.Address,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(r.DB.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, phone, address, is_admin, created_at, updated_at
		FROM users WHERE email = $1`, email))
}

func (r *Repo) GetByID(ctx context.Context, id string) (*User, error) {
	return r.scanOne(r.DB.QueryRow(ctx, `
		SELECT id, email, password_hash, full_name, phone, address, is_admin, created_at, updated_at
		FROM users WHERE id = $1`, id))
}

func (r *Repo) UpdateProfile(ctx context.Context, id, fullName, phone, address string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE users SET full_name = $2, phone = $3, address = $4, updated_at = now()
		WHERE id = $1`, id, fullName, phone, address)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) scanOne(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Address,
		&u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &u, nil
}
