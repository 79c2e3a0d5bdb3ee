package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/teamflow/rolecall/types"
)

// Sessions is the JetStream KV session catalog: the roster and role slots of
// each session plus its finalized flag.
//
// It serves double duty as types.MembershipResolver and types.SessionState.
// Rosters and role slots are owned by team administration; the coordinator
// only reads them and only ever writes the finalized flag.
//
// The finalized flag is represented by the existence of the key
// "finalized.<session>". TryFinalize uses the KV Create operation, which is
// atomic across all connected instances: exactly one caller observes
// success, every later caller sees the key already present. This is the
// durable first-trigger-wins claim for an assignment round.
type Sessions struct {
	kv jetstream.KeyValue
}

// Compile-time assertions for the two consumed interfaces.
var (
	_ types.MembershipResolver = (*Sessions)(nil)
	_ types.SessionState       = (*Sessions)(nil)
)

// NewSessions creates a session catalog bound to the given bucket.
func NewSessions(kv jetstream.KeyValue) *Sessions {
	return &Sessions{kv: kv}
}

func rosterKey(sessionID string) string    { return "roster." + sessionID }
func rolesKey(sessionID string) string     { return "roles." + sessionID }
func finalizedKey(sessionID string) string { return "finalized." + sessionID }

// finalizedRecord is the payload stored under the finalized key; the claim
// itself is carried by the key's existence, the payload is diagnostic.
type finalizedRecord struct {
	FinalizedAt time.Time `json:"finalizedAt"`
}

// PutRoster replaces the session's roster.
//
// Administrative operation, typically performed by team setup before a
// round opens.
func (s *Sessions) PutRoster(ctx context.Context, sessionID string, members []types.RosterMember) error {
	data, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("failed to marshal roster: %w", err)
	}

	if _, err := s.kv.Put(ctx, rosterKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to put roster: %w", err)
	}

	return nil
}

// PutRoleSlots replaces the session's role slots.
func (s *Sessions) PutRoleSlots(ctx context.Context, sessionID string, slots []types.RoleSlot) error {
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal role slots: %w", err)
	}

	if _, err := s.kv.Put(ctx, rolesKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to put role slots: %w", err)
	}

	return nil
}

// Roster returns the members expected to submit for the session.
//
// Returns types.ErrSessionNotFound if no roster was ever stored.
func (s *Sessions) Roster(ctx context.Context, sessionID string) ([]types.RosterMember, error) {
	entry, err := s.kv.Get(ctx, rosterKey(sessionID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", types.ErrSessionNotFound, sessionID)
		}

		return nil, fmt.Errorf("failed to get roster: %w", err)
	}

	var members []types.RosterMember
	if err := json.Unmarshal(entry.Value(), &members); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster: %w", err)
	}

	return members, nil
}

// RoleSlots returns the role slots configured for the session.
//
// A session with no stored role slots yields an empty slice, which signals
// "nothing to assign" to the coordinator.
func (s *Sessions) RoleSlots(ctx context.Context, sessionID string) ([]types.RoleSlot, error) {
	entry, err := s.kv.Get(ctx, rolesKey(sessionID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get role slots: %w", err)
	}

	var slots []types.RoleSlot
	if err := json.Unmarshal(entry.Value(), &slots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal role slots: %w", err)
	}

	return slots, nil
}

// Finalized reports whether the session's assignment round is committed.
func (s *Sessions) Finalized(ctx context.Context, sessionID string) (bool, error) {
	_, err := s.kv.Get(ctx, finalizedKey(sessionID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("failed to get finalized flag: %w", err)
	}

	return true, nil
}

// TryFinalize atomically claims the finalized flag.
//
// Returns true only for the single caller whose Create succeeded; any
// concurrent or later caller (in this process or another instance) gets
// false. The flag is monotonic: nothing in the coordinator path deletes it.
func (s *Sessions) TryFinalize(ctx context.Context, sessionID string) (bool, error) {
	payload, err := json.Marshal(finalizedRecord{FinalizedAt: time.Now().UTC()})
	if err != nil {
		return false, fmt.Errorf("failed to marshal finalized record: %w", err)
	}

	if _, err := s.kv.Create(ctx, finalizedKey(sessionID), payload); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}

		return false, fmt.Errorf("failed to create finalized flag: %w", err)
	}

	return true, nil
}

// Reset clears the finalized flag so a new round can run.
//
// Administrative escape hatch; the coordinator never calls this.
func (s *Sessions) Reset(ctx context.Context, sessionID string) error {
	err := s.kv.Purge(ctx, finalizedKey(sessionID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to reset finalized flag: %w", err)
	}

	return nil
}
