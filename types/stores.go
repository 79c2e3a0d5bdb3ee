package types

import "context"

// SubmissionStore is the durable per-(session, participant) record of
// attributes submitted so far.
//
// Implementations must be safe for concurrent use. List has snapshot
// semantics: a concurrent Upsert during iteration must not corrupt the
// returned set, though the new submission may or may not be included.
type SubmissionStore interface {
	// Upsert replaces any prior submission for the participant in the
	// session. The submission's ParticipantID must be non-empty; attribute
	// content is free-form and not validated.
	Upsert(ctx context.Context, sub Submission) error

	// Remove deletes the participant's submission. Idempotent; removing an
	// absent submission is not an error.
	Remove(ctx context.Context, sessionID, participantID string) error

	// List returns all current submissions for the session in no particular
	// order.
	List(ctx context.Context, sessionID string) ([]Submission, error)

	// Clear removes every submission for the session. Used after a
	// successful finalization.
	Clear(ctx context.Context, sessionID string) error
}

// MembershipResolver answers who must submit for a session and which role
// slots are available.
//
// Results must be authoritative at call time; callers re-read rather than
// cache because the roster may change between calls.
type MembershipResolver interface {
	// Roster returns the members expected to submit for the session.
	// Returns ErrSessionNotFound for an unknown session.
	Roster(ctx context.Context, sessionID string) ([]RosterMember, error)

	// RoleSlots returns the distinct role slots configured for the session.
	// An empty slice is legal and signals there is nothing to assign.
	RoleSlots(ctx context.Context, sessionID string) ([]RoleSlot, error)
}

// SessionState owns the durable, monotonic finalized flag of a session.
type SessionState interface {
	// Finalized reports whether the session's assignment round is committed.
	Finalized(ctx context.Context, sessionID string) (bool, error)

	// TryFinalize atomically flips the finalized flag from false to true.
	// Returns true if this caller won the claim, false if the session was
	// already finalized by anyone (this process or another instance).
	TryFinalize(ctx context.Context, sessionID string) (bool, error)
}

// AssignmentStore persists the final participant-to-role mapping.
type AssignmentStore interface {
	// Upsert writes the assignment, overwriting any pre-existing assignment
	// for the same (ParticipantID, SessionID).
	Upsert(ctx context.Context, assignment RoleAssignment) error

	// List returns all assignments recorded for the session.
	List(ctx context.Context, sessionID string) ([]RoleAssignment, error)

	// Remove deletes the participant's assignment. Idempotent.
	Remove(ctx context.Context, sessionID, participantID string) error
}

// Recommender asks the external recommendation service for a conflict-free
// assignment of role slots to the submitted profiles.
//
// Implementations must be stateless and side-effect-free: they never touch
// submission or assignment state, committing results is the coordinator's
// job. A single call per invocation, no retries, bounded by ctx.
type Recommender interface {
	// RecommendAssignments returns one raw (username, role) pair per
	// profile, drawn from roleSlots with no role reused.
	//
	// Failures are reported as ErrTransport, ErrMalformedResponse or
	// ErrEmptyResult; never partial success.
	RecommendAssignments(ctx context.Context, roleSlots []string, profiles []Profile) ([]AssignmentPair, error)
}
