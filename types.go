package rolecall

import "github.com/teamflow/rolecall/types"

// Re-export types from the types subpackage.
//
// This file provides a stable public API for the library's core types and
// interfaces via type aliases. Internal packages and store/recommender
// implementations depend on the types package directly, which keeps the
// dependency graph acyclic while users can simply write rolecall.Submission,
// rolecall.Logger, etc.
type (
	Submission       = types.Submission
	Profile          = types.Profile
	RosterMember     = types.RosterMember
	RoleSlot         = types.RoleSlot
	RoleAssignment   = types.RoleAssignment
	AssignmentPair   = types.AssignmentPair
	SubmissionStatus = types.SubmissionStatus
)

// Re-export interfaces from the types subpackage for convenience.
type (
	SubmissionStore    = types.SubmissionStore
	MembershipResolver = types.MembershipResolver
	SessionState       = types.SessionState
	AssignmentStore    = types.AssignmentStore
	Recommender        = types.Recommender
	Logger             = types.Logger
	MetricsCollector   = types.MetricsCollector
	Hooks              = types.Hooks
)
