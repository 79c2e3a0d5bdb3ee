package rolecall

import (
	"encoding/json"
	"fmt"

	"github.com/teamflow/rolecall/types"
)

// Inbound message types sent by clients over a session connection.
const (
	// MsgSubmit carries a participant's attributes.
	MsgSubmit = "submit"

	// MsgResubmitting withdraws the sender's current submission ahead of a
	// fresh submit.
	MsgResubmitting = "resubmitting"

	// MsgStartAIAssignment triggers the one-shot assignment round.
	MsgStartAIAssignment = "start_ai_assignment"
)

// Outbound message types broadcast to a session group.
const (
	// MsgSubmissionUpdate carries the completeness snapshot after every
	// submission change, and greets late joiners.
	MsgSubmissionUpdate = "submission_update"

	// MsgAssignmentComplete carries the final assignment of the session.
	MsgAssignmentComplete = "assignment_complete"

	// MsgAssignmentError reports a failed trigger to the triggering
	// connection only; it is never broadcast.
	MsgAssignmentError = "assignment_error"
)

// InboundMessage is the envelope for every client-to-server message.
//
// Type selects the operation; the attribute fields are meaningful for
// MsgSubmit only and ignored otherwise.
type InboundMessage struct {
	Type        string   `json:"type"`
	Major       string   `json:"major,omitempty"`
	Traits      []string `json:"traits,omitempty"`
	Preferences []string `json:"preferences,omitempty"`
}

// SubmissionUpdate is the completeness snapshot broadcast to a session group.
type SubmissionUpdate struct {
	Type             string               `json:"type"`
	TotalMembers     int                  `json:"total_members"`
	SubmittedMembers []SubmittedMemberRef `json:"submitted_members"`
	AllSubmitted     bool                 `json:"all_submitted"`
}

// SubmittedMemberRef identifies one member with a live submission in a
// SubmissionUpdate.
type SubmittedMemberRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AssignmentComplete is the final assignment broadcast to a session group.
type AssignmentComplete struct {
	Type        string                 `json:"type"`
	Assignments []types.AssignmentPair `json:"assignments"`
}

// AssignmentError reports a failed assignment trigger.
//
// Reason is a stable token, not prose: "already_finalized",
// "assignment_in_flight", "no_role_slots", "no_submissions",
// "recommendation_failed" or "internal_error". External-service details stay
// in the server log.
type AssignmentError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// NewSubmissionUpdate builds the broadcast payload from a completeness
// snapshot.
func NewSubmissionUpdate(status types.SubmissionStatus) SubmissionUpdate {
	members := make([]SubmittedMemberRef, len(status.Submitted))
	for i, member := range status.Submitted {
		members[i] = SubmittedMemberRef{ID: member.ID, Name: member.Name}
	}

	return SubmissionUpdate{
		Type:             MsgSubmissionUpdate,
		TotalMembers:     status.TotalMembers,
		SubmittedMembers: members,
		AllSubmitted:     status.AllSubmitted(),
	}
}

// NewAssignmentComplete builds the broadcast payload from committed
// assignments.
func NewAssignmentComplete(assignments []types.RoleAssignment) AssignmentComplete {
	pairs := make([]types.AssignmentPair, len(assignments))
	for i, assignment := range assignments {
		pairs[i] = types.AssignmentPair{
			Username:     assignment.Username,
			AssignedRole: assignment.RoleName,
		}
	}

	return AssignmentComplete{
		Type:        MsgAssignmentComplete,
		Assignments: pairs,
	}
}

// NewAssignmentError builds the local-only failure ack for a trigger.
func NewAssignmentError(reason string) AssignmentError {
	return AssignmentError{
		Type:   MsgAssignmentError,
		Reason: reason,
	}
}

// DecodeInbound parses one raw client message.
//
// Returns:
//   - InboundMessage: Parsed message with a non-empty, known Type
//   - error: Parse error or unknown/missing type
func DecodeInbound(data []byte) (InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return InboundMessage{}, fmt.Errorf("parse message: %w", err)
	}

	switch msg.Type {
	case MsgSubmit, MsgResubmitting, MsgStartAIAssignment:
		return msg, nil
	case "":
		return InboundMessage{}, fmt.Errorf("message has no type")
	default:
		return InboundMessage{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// peekType extracts the type discriminator of an outbound payload without a
// full decode, for broadcast metrics.
func peekType(data []byte) string {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "unknown"
	}
	if envelope.Type == "" {
		return "unknown"
	}

	return envelope.Type
}
