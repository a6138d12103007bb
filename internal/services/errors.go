package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map these to HTTP
// status codes with errors.Is.
var (
	// ErrInvalidCampaign covers malformed campaign input: empty name, empty
	// resolved scope, or a rule/scope combination that cannot be applied.
	ErrInvalidCampaign = errors.New("invalid campaign")

	// ErrNotFound is returned when a referenced shop, item or bulk action
	// does not exist for the requesting shop.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyReverted is returned when reverting a bulk action that has
	// already been reverted. Reverted is a terminal state.
	ErrAlreadyReverted = errors.New("bulk action already reverted")

	// ErrUpstreamUnavailable is returned when the Shopify Admin API could
	// not serve a request the operation depends on.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)
