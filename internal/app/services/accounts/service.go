package accounts

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/R3E-Network/framestore/internal/app/domain/user"
	"github.com/R3E-Network/framestore/internal/app/storage"
	"github.com/R3E-Network/framestore/internal/auth"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/pkg/logger"
)

// Session is the result of a successful sign-in.
type Session struct {
	User      user.User `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt int64     `json:"expires_at"`
}

// Service signs wallet users in.
type Service struct {
	store  storage.UserStore
	tokens *auth.Tokens
	log    *logger.Logger
}

// New constructs an accounts service.
func New(store storage.UserStore, tokens *auth.Tokens, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("accounts")
	}
	return &Service{store: store, tokens: tokens, log: log}
}

// SignIn finds or creates the user owning wallet and issues a session token.
// The wallet must be a 0x-prefixed 40 hex digit address.
func (s *Service) SignIn(ctx context.Context, wallet string) (Session, error) {
	normalized, ok := user.NormalizeWallet(wallet)
	if !ok {
		return Session{}, errors.InvalidFormat("wallet_address", "must be a 0x-prefixed 40 hex digit address")
	}

	u, created, err := s.findOrCreate(ctx, normalized)
	if err != nil {
		return Session{}, err
	}

	token, expires, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, errors.Internal("issue session token", err)
	}

	entry := s.log.WithField("user_id", u.ID).WithField("wallet", u.WalletAddress)
	if created {
		entry.Info("user registered")
	} else {
		entry.Debug("user signed in")
	}
	return Session{User: u, Token: token, ExpiresAt: expires.Unix()}, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *Service) findOrCreate(ctx context.Context, wallet string) (user.User, bool, error) {
	u, err := s.store.GetUserByWallet(ctx, wallet)
	if err == nil {
		return u, false, nil
	}
	if !stderrors.Is(err, storage.ErrNotFound) {
		return user.User{}, false, fmt.Errorf("lookup wallet: %w", err)
	}

	u, err = s.store.CreateUser(ctx, user.User{WalletAddress: wallet})
	if stderrors.Is(err, storage.ErrConflict) {
		// Lost a race with a concurrent sign-in for the same wallet.
		u, err = s.store.GetUserByWallet(ctx, wallet)
		if err != nil {
			return user.User{}, false, fmt.Errorf("lookup wallet: %w", err)
		}
		return u, false, nil
	}
	if err != nil {
		return user.User{}, false, fmt.Errorf("create user: %w", err)
	}
	return u, true, nil
}
