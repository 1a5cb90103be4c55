package accounts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/R3E-Network/framestore/internal/app/storage/memory"
	"github.com/R3E-Network/framestore/internal/auth"
	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/pkg/logger"
)

func newService(t *testing.T) (*Service, *auth.Tokens) {
	t.Helper()
	tokens, err := auth.NewTokens(strings.Repeat("k", 32), "framestore", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	return New(memory.New(), tokens, logger.Discard()), tokens
}

func TestSignInCreatesThenReusesUser(t *testing.T) {
	svc, tokens := newService(t)
	ctx := context.Background()
	wallet := "0xABCDEF0123456789abcdef0123456789ABCDEF01"

	first, err := svc.SignIn(ctx, wallet)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if first.User.WalletAddress != strings.ToLower(wallet) {
		t.Fatalf("wallet not normalised: %s", first.User.WalletAddress)
	}
	claims, err := tokens.Parse(first.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID() != first.User.ID || claims.Wallet != first.User.WalletAddress {
		t.Fatalf("unexpected claims %+v", claims)
	}

	second, err := svc.SignIn(ctx, "  "+strings.ToLower(wallet)+" ")
	if err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Fatalf("expected same user, got %s and %s", first.User.ID, second.User.ID)
	}

	got, err := svc.Get(ctx, first.User.ID)
	if err != nil || got.ID != first.User.ID {
		t.Fatalf("get: %v %+v", err, got)
	}
}

func TestSignInRejectsMalformedWallets(t *testing.T) {
	svc, _ := newService(t)
	for _, wallet := range []string{"", "0x123", "abcdef0123456789abcdef0123456789abcdef01", "0xZZcdef0123456789abcdef0123456789abcdef01"} {
		if _, err := svc.SignIn(context.Background(), wallet); !errors.IsCode(err, errors.CodeInvalidFormat) {
			t.Fatalf("wallet %q: expected invalid_format, got %v", wallet, err)
		}
	}
}
