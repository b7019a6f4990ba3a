package domain

import "testing"

// FuzzParseAccountID checks that parsing never accepts an ID that fails
// re-validation, and that accepted IDs round-trip through String.
func FuzzParseAccountID(f *testing.F) {
	f.Add("alice")
	f.Add("alice.near")
	f.Add("a..b")
	f.Add(".")
	f.Add("UPPER")
	f.Fuzz(func(t *testing.T, raw string) {
		id, err := ParseAccountID(raw)
		if err != nil {
			return
		}
		if id.String() != raw {
			t.Fatalf("round-trip mismatch: %q != %q", id.String(), raw)
		}
		if !id.Valid() {
			t.Fatalf("parsed ID %q fails re-validation", raw)
		}
	})
}
