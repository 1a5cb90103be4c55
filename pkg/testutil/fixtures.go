// Package testutil provides fixtures shared by FrameStore package tests.
package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/R3E-Network/framestore/manifest"
)

// ValidWire returns a fresh wire map for a manifest that passes validation
// with one post button.
func ValidWire() map[string]string {
	return map[string]string{
		"fc:frame":          "vNext",
		"fc:frame:image":    "https://example.com/frame.png",
		"fc:frame:post_url": "https://example.com/api/frame",
		"fc:frame:button:1": "Start",
		"og:title":          "Example Frame",
		"og:description":    "A frame used in tests",
		"og:image":          "https://example.com/frame.png",
	}
}

// ValidManifest parses ValidWire with overrides applied. An empty override
// value removes the key.
func ValidManifest(tb testing.TB, overrides ...string) *manifest.Manifest {
	tb.Helper()
	if len(overrides)%2 != 0 {
		tb.Fatalf("ValidManifest: overrides must be key/value pairs")
	}
	wire := ValidWire()
	for i := 0; i < len(overrides); i += 2 {
		if overrides[i+1] == "" {
			delete(wire, overrides[i])
			continue
		}
		wire[overrides[i]] = overrides[i+1]
	}
	m, err := manifest.Parse(wire)
	if err != nil {
		tb.Fatalf("ValidManifest: %v", err)
	}
	return m
}

// Wallet returns a deterministic well-formed wallet address for seed.
func Wallet(seed int) string {
	return fmt.Sprintf("0x%040x", seed)
}

// Clock is a manually advanced time source safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
