package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/teamflow/rolecall/types"
)

// Assignments is the JetStream KV implementation of types.AssignmentStore.
//
// Keys have the form "asgn.<session>.<participant>", so a participant holds
// at most one role per session and a reassignment overwrites in place.
type Assignments struct {
	kv jetstream.KeyValue
}

// Compile-time assertion that Assignments implements AssignmentStore.
var _ types.AssignmentStore = (*Assignments)(nil)

// NewAssignments creates an assignment store bound to the given bucket.
func NewAssignments(kv jetstream.KeyValue) *Assignments {
	return &Assignments{kv: kv}
}

func assignmentKey(sessionID, participantID string) string {
	return fmt.Sprintf("asgn.%s.%s", sessionID, participantID)
}

func assignmentPattern(sessionID string) string {
	return fmt.Sprintf("asgn.%s.*", sessionID)
}

// Upsert writes the assignment, overwriting any pre-existing assignment for
// the same (participant, session).
func (a *Assignments) Upsert(ctx context.Context, assignment types.RoleAssignment) error {
	if assignment.SessionID == "" || assignment.ParticipantID == "" {
		return errors.New("session ID and participant ID are required")
	}

	data, err := json.Marshal(assignment)
	if err != nil {
		return fmt.Errorf("failed to marshal assignment: %w", err)
	}

	if _, err := a.kv.Put(ctx, assignmentKey(assignment.SessionID, assignment.ParticipantID), data); err != nil {
		return fmt.Errorf("failed to put assignment: %w", err)
	}

	return nil
}

// List returns all assignments recorded for the session.
func (a *Assignments) List(ctx context.Context, sessionID string) ([]types.RoleAssignment, error) {
	entries, err := snapshotEntries(ctx, a.kv, assignmentPattern(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	assignments := make([]types.RoleAssignment, 0, len(entries))
	for _, entry := range entries {
		var assignment types.RoleAssignment
		if err := json.Unmarshal(entry.Value(), &assignment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assignment %s: %w", entry.Key(), err)
		}
		assignments = append(assignments, assignment)
	}

	return assignments, nil
}

// Remove deletes the participant's assignment. Idempotent.
func (a *Assignments) Remove(ctx context.Context, sessionID, participantID string) error {
	err := a.kv.Purge(ctx, assignmentKey(sessionID, participantID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to remove assignment: %w", err)
	}

	return nil
}
