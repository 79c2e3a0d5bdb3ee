package types

import "errors"

// Failure taxonomy for an assignment round.
//
// All failures except ErrAlreadyFinalized leave the session open so a later
// trigger can retry. Reconciliation warnings are logged per pair and never
// surface as errors.
var (
	// ErrTransport indicates a network or HTTP failure talking to the
	// recommendation service, including a bounded-timeout expiry.
	ErrTransport = errors.New("recommendation transport failure")

	// ErrMalformedResponse indicates the recommendation service returned a
	// body that could not be reduced to a well-formed assignment array.
	ErrMalformedResponse = errors.New("malformed recommendation response")

	// ErrEmptyResult indicates the recommendation service answered without
	// error but produced zero usable assignments.
	ErrEmptyResult = errors.New("empty recommendation result")

	// ErrNoRoleSlots indicates the session has no role slots configured.
	ErrNoRoleSlots = errors.New("no role slots configured for session")

	// ErrNoSubmissions indicates a trigger arrived before anyone submitted.
	ErrNoSubmissions = errors.New("no submissions recorded for session")

	// ErrAlreadyFinalized indicates the session's assignment round is
	// committed. Expected outcome of a trigger race, not a fault.
	ErrAlreadyFinalized = errors.New("session already finalized")

	// ErrAssignmentInFlight indicates another trigger in this process is
	// mid-run for the session. The losing trigger must no-op.
	ErrAssignmentInFlight = errors.New("assignment run already in flight")

	// ErrSessionNotFound indicates the session catalog has no entry for the
	// requested session.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnknownRole indicates a role name that is not one of the session's
	// configured role slots.
	ErrUnknownRole = errors.New("unknown role for session")

	// ErrUnknownParticipant indicates a participant that is not on the
	// session roster.
	ErrUnknownParticipant = errors.New("unknown participant for session")
)
