package types

// RosterMember identifies one team member eligible to submit attributes and
// receive a role in a session.
type RosterMember struct {
	// ID is the canonical participant identifier, stable across sessions.
	ID string `json:"id"`

	// Name is the display/user name the recommendation service sees and
	// answers with. Unique within a session roster.
	Name string `json:"name"`
}

// RoleSlot is one assignable role configured for a session.
//
// Role names are unique within a session.
type RoleSlot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Submission is one participant's self-described attributes for a session.
//
// Keyed uniquely by (SessionID, ParticipantID); a re-submit overwrites the
// prior record, it never duplicates it.
type Submission struct {
	SessionID     string   `json:"sessionId"`
	ParticipantID string   `json:"participantId"`
	Major         string   `json:"major"`
	Traits        []string `json:"traits"`
	Preferences   []string `json:"preferences"`
}

// Profile is the recommendation-service view of one submitted participant:
// the roster name joined with the submitted attributes.
type Profile struct {
	Name        string   `json:"name"`
	Major       string   `json:"major"`
	Traits      []string `json:"traits"`
	Preferences []string `json:"preferences"`
}

// SubmissionStatus is the completeness snapshot broadcast to a session group
// after every submission change and sent to late joiners on connect.
type SubmissionStatus struct {
	// TotalMembers is the roster size at read time. Re-read on every
	// computation; the roster may change between calls.
	TotalMembers int `json:"totalMembers"`

	// Submitted lists the members with a live submission.
	Submitted []RosterMember `json:"submitted"`
}

// AllSubmitted reports whether every roster member has submitted.
//
// Advisory only: it never auto-triggers an assignment run, it is a UI hint.
func (s SubmissionStatus) AllSubmitted() bool {
	return s.TotalMembers > 0 && len(s.Submitted) == s.TotalMembers
}
