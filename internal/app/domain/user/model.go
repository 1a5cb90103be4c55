package user

import (
	"regexp"
	"strings"
	"time"
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// User is a wallet-identified FrameStore account.
type User struct {
	ID            string    `json:"id"`
	WalletAddress string    `json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
}

// NormalizeWallet trims and lower-cases an EVM address and reports whether
// it is well formed.
func NormalizeWallet(addr string) (string, bool) {
	addr = strings.TrimSpace(addr)
	if !walletPattern.MatchString(addr) {
		return "", false
	}
	return strings.ToLower(addr), true
}
