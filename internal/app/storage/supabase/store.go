// Package supabase implements the storage interfaces over Supabase's
// PostgREST API. It expects the schema and RPC functions installed by the
// platform migrations.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/framestore/internal/app/domain/user"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/supabase/client"
)

const (
	tableUsers         = "users"
	tableFrames        = "frames"
	tableVersions      = "frame_versions"
	tableLikes         = "likes"
	tableTemplates     = "templates"
	tableEvents        = "analytics_events"
	tableNotifications = "notifications"
	tableSchedules     = "scheduled_frames"

	// SQLSTATE raised by the RPC functions for a missing frame or version.
	codeNoData = "P0002"
)

// Store implements storage.Store against a Supabase project.
type Store struct {
	client *client.Client
	now    func() time.Time
}

var _ storage.Store = (*Store)(nil)
var _ storage.Pinger = (*Store)(nil)

// New creates a Store using the provided client.
func New(c *client.Client) *Store {
	return &Store{client: c, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the timestamp source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Ping issues a minimal query to confirm the API and key are usable.
func (s *Store) Ping(ctx context.Context) error {
	resp, err := s.client.From(tableUsers).Select("id").Limit(1).Execute(ctx)
	if err != nil {
		return err
	}
	return resp.Error()
}

func mapErr(kind, id string, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.UniqueViolation():
			return fmt.Errorf("%s %s: %w", kind, id, storage.ErrConflict)
		case apiErr.ForeignKeyViolation():
			return fmt.Errorf("%s %s references a missing record: %w", kind, id, storage.ErrNotFound)
		case apiErr.NoRows(), apiErr.Code == codeNoData:
			return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
		}
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}

// rows decodes a PostgREST array response.
func rows[T any](resp *client.Response, err error, kind, id string) ([]T, error) {
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", kind, id, err)
	}
	if err := resp.Error(); err != nil {
		return nil, mapErr(kind, id, err)
	}
	out := []T{}
	if len(resp.Body) == 0 {
		return out, nil
	}
	if err := resp.JSON(&out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return out, nil
}

// first decodes an array response and returns its first element, or
// ErrNotFound when it is empty.
func first[T any](resp *client.Response, err error, kind, id string) (T, error) {
	var zero T
	list, err := rows[T](resp, err, kind, id)
	if err != nil {
		return zero, err
	}
	if len(list) == 0 {
		return zero, fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return list[0], nil
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	u.ID = newID(u.ID)
	u.CreatedAt = s.now()
	resp, err := s.client.From(tableUsers).ExecuteInsert(ctx, u)
	return first[user.User](resp, err, "wallet", u.WalletAddress)
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	resp, err := s.client.From(tableUsers).Select("*").Eq("id", id).Limit(1).Execute(ctx)
	return first[user.User](resp, err, "user", id)
}

func (s *Store) GetUserByWallet(ctx context.Context, wallet string) (user.User, error) {
	resp, err := s.client.From(tableUsers).Select("*").Eq("wallet_address", wallet).Limit(1).Execute(ctx)
	return first[user.User](resp, err, "wallet", wallet)
}
