package rolecall

import (
	"errors"

	"github.com/teamflow/rolecall/types"
)

// Sentinel errors returned by the constructors and the Hub.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNATSConnectionRequired is returned when the NATS connection is nil.
	ErrNATSConnectionRequired = errors.New("NATS connection is required")

	// ErrSubmissionStoreRequired is returned when the submission store is nil.
	ErrSubmissionStoreRequired = errors.New("submission store is required")

	// ErrMembershipResolverRequired is returned when the membership resolver is nil.
	ErrMembershipResolverRequired = errors.New("membership resolver is required")

	// ErrSessionStateRequired is returned when the session state store is nil.
	ErrSessionStateRequired = errors.New("session state store is required")

	// ErrAssignmentStoreRequired is returned when the assignment store is nil.
	ErrAssignmentStoreRequired = errors.New("assignment store is required")

	// ErrRecommenderRequired is returned when the recommender is nil.
	ErrRecommenderRequired = errors.New("recommender is required")

	// ErrCoordinatorRequired is returned when the hub is built without a
	// coordinator.
	ErrCoordinatorRequired = errors.New("coordinator is required")

	// ErrSessionIDRequired is returned when an operation is missing its
	// session identifier.
	ErrSessionIDRequired = errors.New("session ID is required")

	// ErrHubClosed is returned when joining a hub that has been shut down.
	ErrHubClosed = errors.New("hub is closed")
)

// Failure taxonomy of an assignment round, re-exported from types so callers
// can use errors.Is without importing both packages.
var (
	ErrTransport          = types.ErrTransport
	ErrMalformedResponse  = types.ErrMalformedResponse
	ErrEmptyResult        = types.ErrEmptyResult
	ErrNoRoleSlots        = types.ErrNoRoleSlots
	ErrNoSubmissions      = types.ErrNoSubmissions
	ErrAlreadyFinalized   = types.ErrAlreadyFinalized
	ErrAssignmentInFlight = types.ErrAssignmentInFlight
	ErrSessionNotFound    = types.ErrSessionNotFound
	ErrUnknownRole        = types.ErrUnknownRole
	ErrUnknownParticipant = types.ErrUnknownParticipant
)
