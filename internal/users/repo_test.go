package users

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func TestCreate_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users(id, email, password_hash, full_name, phone, address)`)).
		WithArgs(pgxmock.AnyArg(), "a@example.com", "hash", "Ada", "555", "1 Main St").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	r := &Repo{DB: mock}
	u, err := r.Create(context.Background(), "a@example.com", "hash", "Ada", "555", "1 Main St")
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.Equal(t, "a@example.com", u.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs(pgxmock.AnyArg(), "a@example.com", "hash", "Ada", "", "").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	r := &Repo{DB: mock}
	_, err = r.Create(context.Background(), "a@example.com", "hash", "Ada", "", "")
	require.ErrorIs(t, err, ErrEmailTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByEmail_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
		WithArgs("ghost@example.com").
		WillReturnError(pgx.ErrNoRows)

	r := &Repo{DB: mock}
	_, err = r.GetByEmail(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_Found(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "email", "password_hash", "full_name", "phone", "address", "is_admin", "created_at", "updated_at",
		}).AddRow("user-1", "a@example.com", "hash", "Ada", "555", "1 Main St", false, now, now))

	r := &Repo{DB: mock}
	u, err := r.GetByID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "Ada", u.FullName)
	require.False(t, u.IsAdmin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfile_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET full_name = $2`)).
		WithArgs("ghost", "Ada", "555", "1 Main St").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	r := &Repo{DB: mock}
	err = r.UpdateProfile(context.Background(), "ghost", "Ada", "555", "1 Main St")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
