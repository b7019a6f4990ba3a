package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountID(t *testing.T) {
	valid := []string{
		"alice",
		"alice.near",
		"bob-42",
		"a1",
		"sub.account_name-x",
		strings.Repeat("a", 64),
	}
	for _, raw := range valid {
		t.Run("accepts "+raw, func(t *testing.T) {
			id, err := ParseAccountID(raw)
			require.NoError(t, err)
			assert.Equal(t, raw, id.String())
			assert.True(t, id.Valid())
		})
	}

	invalid := []string{
		"",
		"a",
		strings.Repeat("a", 65),
		"Alice",
		".alice",
		"alice.",
		"ali..ce",
		"ali ce",
		"alice@near",
		"-bob",
		"bob_-x",
	}
	for _, raw := range invalid {
		t.Run("rejects "+raw, func(t *testing.T) {
			_, err := ParseAccountID(raw)
			require.Error(t, err)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "alice.near", Normalize("  Alice.NEAR "))
}

func TestMustAccountIDPanics(t *testing.T) {
	assert.Panics(t, func() { MustAccountID("NOT VALID") })
}
