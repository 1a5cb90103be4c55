package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/framestore/internal/app/domain/user"
	"github.com/R3E-Network/framestore/internal/errors"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestIssueAndParse(t *testing.T) {
	tokens, err := NewTokens(secret, "framestore", time.Hour)
	require.NoError(t, err)

	u := user.User{ID: "u-1", WalletAddress: "0xabc"}
	signed, expires, err := tokens.Issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID())
	assert.Equal(t, "0xabc", claims.Wallet)
	assert.Equal(t, "framestore", claims.Issuer)
}

func TestNewTokensRejectsShortSecret(t *testing.T) {
	_, err := NewTokens("short", "framestore", time.Hour)
	assert.Error(t, err)
}

func TestParseRejects(t *testing.T) {
	tokens, err := NewTokens(secret, "framestore", time.Hour)
	require.NoError(t, err)
	good, _, err := tokens.Issue(user.User{ID: "u-1"})
	require.NoError(t, err)

	other, err := NewTokens(strings.Repeat("z", 32), "framestore", time.Hour)
	require.NoError(t, err)
	forged, _, err := other.Issue(user.User{ID: "u-1"})
	require.NoError(t, err)

	expiredIssuer, err := NewTokens(secret, "framestore", time.Minute)
	require.NoError(t, err)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := expiredIssuer.Issue(user.User{ID: "u-1"})
	require.NoError(t, err)

	foreign, err := NewTokens(secret, "someone-else", time.Hour)
	require.NoError(t, err)
	wrongIssuer, _, err := foreign.Issue(user.User{ID: "u-1"})
	require.NoError(t, err)

	otherUser, _, err := tokens.Issue(user.User{ID: "u-2"})
	require.NoError(t, err)
	goodParts := strings.Split(good, ".")
	otherParts := strings.Split(otherUser, ".")
	tampered := goodParts[0] + "." + otherParts[1] + "." + goodParts[2]

	noSubject, _, err := tokens.Issue(user.User{})
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: "framestore"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     tampered,
		"wrong secret": forged,
		"expired":      expired,
		"wrong issuer": wrongIssuer,
		"no subject":   noSubject,
		"alg none":     none,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tokens.Parse(tok)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeInvalidToken), "got %v", err)
		})
	}
}
