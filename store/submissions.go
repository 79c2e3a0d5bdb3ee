package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/teamflow/rolecall/types"
)

// Submissions is the JetStream KV implementation of types.SubmissionStore.
//
// Keys have the form "sub.<session>.<participant>", so the at-most-one
// submission per participant per session invariant is enforced by the key
// itself.
type Submissions struct {
	kv jetstream.KeyValue
}

// Compile-time assertion that Submissions implements SubmissionStore.
var _ types.SubmissionStore = (*Submissions)(nil)

// NewSubmissions creates a submission store bound to the given bucket.
func NewSubmissions(kv jetstream.KeyValue) *Submissions {
	return &Submissions{kv: kv}
}

func submissionKey(sessionID, participantID string) string {
	return fmt.Sprintf("sub.%s.%s", sessionID, participantID)
}

func sessionPattern(sessionID string) string {
	return fmt.Sprintf("sub.%s.*", sessionID)
}

// Upsert replaces any prior submission for the participant in the session.
func (s *Submissions) Upsert(ctx context.Context, sub types.Submission) error {
	if sub.ParticipantID == "" {
		return errors.New("participant ID is required")
	}
	if sub.SessionID == "" {
		return errors.New("session ID is required")
	}

	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("failed to marshal submission: %w", err)
	}

	if _, err := s.kv.Put(ctx, submissionKey(sub.SessionID, sub.ParticipantID), data); err != nil {
		return fmt.Errorf("failed to put submission: %w", err)
	}

	return nil
}

// Remove deletes the participant's submission. Idempotent.
func (s *Submissions) Remove(ctx context.Context, sessionID, participantID string) error {
	err := s.kv.Purge(ctx, submissionKey(sessionID, participantID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to remove submission: %w", err)
	}

	return nil
}

// List returns a snapshot of all current submissions for the session.
func (s *Submissions) List(ctx context.Context, sessionID string) ([]types.Submission, error) {
	entries, err := snapshotEntries(ctx, s.kv, sessionPattern(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	subs := make([]types.Submission, 0, len(entries))
	for _, entry := range entries {
		var sub types.Submission
		if err := json.Unmarshal(entry.Value(), &sub); err != nil {
			return nil, fmt.Errorf("failed to unmarshal submission %s: %w", entry.Key(), err)
		}
		subs = append(subs, sub)
	}

	return subs, nil
}

// Clear removes every submission for the session.
func (s *Submissions) Clear(ctx context.Context, sessionID string) error {
	entries, err := snapshotEntries(ctx, s.kv, sessionPattern(sessionID))
	if err != nil {
		return fmt.Errorf("failed to list submissions for clear: %w", err)
	}

	for _, entry := range entries {
		if err := s.kv.Purge(ctx, entry.Key()); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return fmt.Errorf("failed to purge submission %s: %w", entry.Key(), err)
		}
	}

	return nil
}
