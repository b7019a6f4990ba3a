package models

import (
	id "bindery/pkg/domain"
	dErrors "bindery/pkg/domain-errors"
)

// ProposeBindingRequest is the payload for POST /bindings/proposals.
// Deposit is the attached value in deposit units; checked against the
// configured proposal fee when fee policy is enabled.
type ProposeBindingRequest struct {
	Platform string `json:"platform"`
	Handle   string `json:"handle"`
	Deposit  int64  `json:"deposit,omitempty"`
}

// AcceptBindingRequest is the payload for POST /bindings/accept.
// ProposalCreatedAt must echo the exact created_at the manager observed.
type AcceptBindingRequest struct {
	AccountID         string `json:"account_id"`
	Platform          string `json:"platform"`
	ProposalCreatedAt int64  `json:"proposal_created_at"`
}

// AdminAccountRequest is the payload for owner/manager mutations.
type AdminAccountRequest struct {
	AccountID string `json:"account_id"`
}

// ParseAccountID validates the account field of a request body.
func ParseAccountID(raw string) (id.AccountID, error) {
	accountID, err := id.ParseAccountID(id.Normalize(raw))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid account ID")
	}
	return accountID, nil
}
