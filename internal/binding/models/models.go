// Package models defines the binding registry's domain entities.
//
// Invariants maintained across the proposal and binding tables:
//   - At most one pending proposal per (account, platform); re-proposing
//     overwrites the previous proposal for that pair.
//   - For a given (account, platform), at most one of pending proposal or
//     accepted binding; accepting consumes the proposal and there is no
//     unbind path, so Bound is terminal for the pair.
//   - For a given (platform, handle), at most one account holds a binding.
//   - Forward (account → handle) and reverse (handle → account) views always
//     agree; every mutation touches both or neither.
package models

import (
	"fmt"

	id "bindery/pkg/domain"
	dErrors "bindery/pkg/domain-errors"
)

// Platform is one of the fixed external identity systems handles belong to.
// The wire and display form is the lowercase name.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformFacebook  Platform = "facebook"
	PlatformReddit    Platform = "reddit"
	PlatformGitHub    Platform = "github"
	PlatformTelegram  Platform = "telegram"
	PlatformDiscord   Platform = "discord"
	PlatformInstagram Platform = "instagram"
	PlatformEthereum  Platform = "ethereum"
	PlatformHive      Platform = "hive"
	PlatformSteem     Platform = "steem"
)

// Platforms lists every supported platform, in declaration order.
var Platforms = []Platform{
	PlatformTwitter,
	PlatformFacebook,
	PlatformReddit,
	PlatformGitHub,
	PlatformTelegram,
	PlatformDiscord,
	PlatformInstagram,
	PlatformEthereum,
	PlatformHive,
	PlatformSteem,
}

// IsValid checks membership in the closed platform set.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformTwitter, PlatformFacebook, PlatformReddit, PlatformGitHub,
		PlatformTelegram, PlatformDiscord, PlatformInstagram,
		PlatformEthereum, PlatformHive, PlatformSteem:
		return true
	}
	return false
}

func (p Platform) String() string { return string(p) }

// ParsePlatform validates a raw platform name from a request or a stored row.
func ParsePlatform(raw string) (Platform, error) {
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "platform is required")
	}
	p := Platform(raw)
	if !p.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unsupported platform %q", raw)
	}
	return p, nil
}

// Proposal is a timestamped declaration of intent to bind an account to a
// handle. CreatedAt (unix ms) is immutable once stored and is the sole
// authenticator at accept time: a manager must supply the exact value it
// observed, or the accept is rejected as stale.
type Proposal struct {
	AccountID id.AccountID `json:"account_id"`
	Platform  Platform     `json:"platform"`
	Handle    string       `json:"handle"`
	CreatedAt int64        `json:"created_at"`
}

// Binding is a confirmed, uniqueness-enforced account↔handle link.
type Binding struct {
	AccountID id.AccountID `json:"account_id"`
	Platform  Platform     `json:"platform"`
	Handle    string       `json:"handle"`
}

// AccountView is the read-model row returned by account queries: everything
// the registry knows about one account.
type AccountView struct {
	AccountID id.AccountID        `json:"account_id"`
	Proposals map[Platform]Proposal `json:"proposals"`
	Bindings  map[Platform]string `json:"bindings"`
}

// ValidateHandle rejects empty handles. Handles are otherwise opaque: exact
// string match, no normalization, case sensitivity left to the platform.
func ValidateHandle(handle string) error {
	if handle == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "handle must not be empty")
	}
	return nil
}

// Key renders the composite reverse-lookup key for a (platform, handle) slot.
func Key(platform Platform, handle string) string {
	return fmt.Sprintf("%s:%s", platform, handle)
}
