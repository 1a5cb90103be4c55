package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/R3E-Network/framestore/internal/app/services/embed"
	"github.com/R3E-Network/framestore/internal/app/system"
	"github.com/R3E-Network/framestore/internal/auth"
	"github.com/R3E-Network/framestore/pkg/logger"
	"github.com/R3E-Network/framestore/pkg/testutil"
)

func newTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens(strings.Repeat("s", 32), "framestore", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	return tokens
}

func TestNewRequiresTokens(t *testing.T) {
	if _, err := New(nil, Options{}, logger.Discard()); err == nil {
		t.Fatalf("expected error without token manager")
	}
}

func TestApplicationWiresServices(t *testing.T) {
	application, err := New(nil, Options{Tokens: newTokens(t), SchedulerSpec: "@every 1h"}, logger.Discard())
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer application.Stop(ctx)

	if err := application.Attach(system.NoopService{ServiceName: "late"}); err == nil {
		t.Fatalf("expected attach after start to fail")
	}

	session, err := application.Accounts.SignIn(ctx, testutil.Wallet(7))
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	f, err := application.Frames.Create(ctx, session.User.ID, testutil.ValidManifest(t))
	if err != nil {
		t.Fatalf("create frame: %v", err)
	}
	code, err := application.Embed.Generate(ctx, f.ID, embed.Options{})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if !strings.HasPrefix(code.URL, "http://localhost:8080/embed/") {
		t.Fatalf("unexpected embed url %s", code.URL)
	}
	if err := application.Ping(ctx); err != nil {
		t.Fatalf("ping memory store: %v", err)
	}
}

func TestInvalidSchedulerSpec(t *testing.T) {
	if _, err := New(nil, Options{Tokens: newTokens(t), SchedulerSpec: "every minute"}, logger.Discard()); err == nil {
		t.Fatalf("expected invalid cron spec to fail")
	}
}
