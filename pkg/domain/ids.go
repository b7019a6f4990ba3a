// Package domain holds the typed identifiers shared across the registry.
//
// AccountID is a validated opaque string rather than a UUID: callers are
// named by the external execution environment (wallet-style account names),
// and the registry treats the name itself as the key everywhere.
package domain

import (
	"fmt"
	"strings"
)

// AccountID names a caller. It is equality-comparable and used as a map key
// in the proposal and binding tables.
type AccountID string

const (
	accountIDMinLen = 2
	accountIDMaxLen = 64
)

// ParseAccountID validates the raw string form of an account identifier.
// The accepted shape is wallet-account-like: lowercase alphanumeric segments
// joined by single '.', '_' or '-' separators.
func ParseAccountID(raw string) (AccountID, error) {
	if len(raw) < accountIDMinLen || len(raw) > accountIDMaxLen {
		return "", fmt.Errorf("account ID must be %d-%d characters, got %d", accountIDMinLen, accountIDMaxLen, len(raw))
	}
	prevSeparator := true // leading separator is invalid
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevSeparator = false
		case c == '.' || c == '_' || c == '-':
			if prevSeparator {
				return "", fmt.Errorf("account ID %q has a misplaced separator at position %d", raw, i)
			}
			prevSeparator = true
		default:
			return "", fmt.Errorf("account ID %q contains invalid character %q", raw, c)
		}
	}
	if prevSeparator {
		return "", fmt.Errorf("account ID %q must not end with a separator", raw)
	}
	return AccountID(raw), nil
}

// MustAccountID is a test helper that panics on invalid input.
func MustAccountID(raw string) AccountID {
	id, err := ParseAccountID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func (a AccountID) String() string { return string(a) }

// IsZero reports whether the ID is unset.
func (a AccountID) IsZero() bool { return a == "" }

// Valid re-checks the invariants, for IDs deserialized from storage.
func (a AccountID) Valid() bool {
	_, err := ParseAccountID(string(a))
	return err == nil
}

// Normalize lowercases the raw input before parsing. The execution
// environment is case-insensitive about account names; storage is not.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
