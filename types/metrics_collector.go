package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods may be called from internal goroutines and must be
// thread-safe.
type MetricsCollector interface {
	// RecordSubmission records a submission upsert for a session.
	RecordSubmission(sessionID string)

	// RecordWithdrawal records a submission withdrawal for a session.
	RecordWithdrawal(sessionID string)

	// RecordBroadcast records a broadcast delivered to a session group.
	//
	// Parameters:
	//   - sessionID: Session the message was fanned out to
	//   - messageType: Outbound message type discriminator
	//   - receivers: Number of local connections the message reached
	RecordBroadcast(sessionID, messageType string, receivers int)

	// RecordAssignmentRun records the outcome of an assignment run.
	//
	// Parameters:
	//   - sessionID: Session the run was triggered for
	//   - outcome: "finalized", "already_finalized", "in_flight",
	//     "no_role_slots", "no_submissions", "transport", "malformed",
	//     "empty", "commit_error"
	//   - duration: Run duration in seconds
	RecordAssignmentRun(sessionID, outcome string, duration float64)

	// RecordReconciliationDrop records one recommendation pair dropped
	// because it referenced an unknown participant or role.
	RecordReconciliationDrop(sessionID string)
}
