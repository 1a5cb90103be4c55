package testutil

import (
	"testing"
	"time"

	"github.com/R3E-Network/framestore/internal/app/domain/user"
)

func TestValidManifestPassesValidation(t *testing.T) {
	m := ValidManifest(t)
	if res := m.Validate(); !res.IsValid {
		t.Fatalf("fixture invalid: %v", res.Errors)
	}

	broken := ValidManifest(t, "fc:frame:post_url", "")
	if broken.Valid() {
		t.Fatal("removing post_url should invalidate the fixture")
	}
}

func TestWalletIsWellFormed(t *testing.T) {
	if _, ok := user.NormalizeWallet(Wallet(42)); !ok {
		t.Fatalf("Wallet(42) = %q is not a wallet address", Wallet(42))
	}
	if Wallet(1) == Wallet(2) {
		t.Fatal("wallets should differ per seed")
	}
}

func TestClockAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start)
	c.Advance(time.Hour)
	if !c.Now().Equal(start.Add(time.Hour)) {
		t.Fatalf("Now() = %v", c.Now())
	}
}
