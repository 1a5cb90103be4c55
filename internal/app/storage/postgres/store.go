package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/framestore/internal/app/domain/user"
	"github.com/R3E-Network/framestore/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ storage.Store = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// mapErr translates driver errors to storage sentinels.
func mapErr(kind, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return fmt.Errorf("%s %s: %w", kind, id, storage.ErrConflict)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s %s references a missing record: %w", kind, id, storage.ErrNotFound)
		}
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func rollback(tx *sqlx.Tx) {
	_ = tx.Rollback()
}

// --- UserStore --------------------------------------------------------------

type userRow struct {
	ID            string    `db:"id"`
	WalletAddress string    `db:"wallet_address"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r userRow) toDomain() user.User {
	return user.User{ID: r.ID, WalletAddress: r.WalletAddress, CreatedAt: r.CreatedAt}
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	u.ID = newID(u.ID)
	u.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, wallet_address, created_at)
		VALUES ($1, $2, $3)
	`, u.ID, u.WalletAddress, u.CreatedAt)
	if err != nil {
		return user.User{}, mapErr("wallet", u.WalletAddress, err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, wallet_address, created_at FROM users WHERE id = $1
	`, id)
	if err != nil {
		return user.User{}, mapErr("user", id, err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByWallet(ctx context.Context, wallet string) (user.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, wallet_address, created_at FROM users WHERE wallet_address = $1
	`, wallet)
	if err != nil {
		return user.User{}, mapErr("wallet", wallet, err)
	}
	return row.toDomain(), nil
}
