package types

import "time"

// AssignmentPair is one raw (participant, role) pair as returned by the
// recommendation service, keyed by names rather than identifiers.
//
// Pairs are untrusted until reconciled against the session roster and role
// slots by the coordinator.
type AssignmentPair struct {
	Username     string `json:"username"`
	AssignedRole string `json:"assigned_role"`
}

// RoleAssignment is the durable result of assigning a role to a participant
// in a session.
//
// Keyed uniquely by (ParticipantID, SessionID): a participant holds at most
// one role per session, and a reassignment overwrites rather than duplicates.
type RoleAssignment struct {
	SessionID     string    `json:"sessionId"`
	ParticipantID string    `json:"participantId"`
	Username      string    `json:"username"`
	RoleID        string    `json:"roleId"`
	RoleName      string    `json:"roleName"`
	AssignedBy    string    `json:"assignedBy,omitempty"`
	AssignedByAI  bool      `json:"assignedByAi"`
	AssignedAt    time.Time `json:"assignedAt"`
}
