package types

import "context"

// Hooks defines optional callbacks for coordinator lifecycle events.
//
// All hooks are called asynchronously in background goroutines so they never
// block the coordinator. Hook errors are logged, they do not fail the
// operation that triggered them.
//
// Implementations should complete quickly, respect context cancellation and
// be idempotent.
type Hooks struct {
	// OnSubmissionRecorded is called after a submission upsert or
	// withdrawal, with the freshly computed completeness snapshot.
	OnSubmissionRecorded func(ctx context.Context, sessionID string, status SubmissionStatus) error

	// OnFinalized is called once per session after a successful assignment
	// run commits, with the reconciled assignments.
	OnFinalized func(ctx context.Context, sessionID string, assignments []RoleAssignment) error
}
