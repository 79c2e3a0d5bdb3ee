package rolecall

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamflow/rolecall/types"
)

func TestDecodeInbound(t *testing.T) {
	t.Run("submit with attributes", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{
			"type": "submit",
			"major": "Computer Science",
			"traits": ["calm", "organized"],
			"preferences": ["data analysis"]
		}`))
		require.NoError(t, err)
		assert.Equal(t, MsgSubmit, msg.Type)
		assert.Equal(t, "Computer Science", msg.Major)
		assert.Equal(t, []string{"calm", "organized"}, msg.Traits)
		assert.Equal(t, []string{"data analysis"}, msg.Preferences)
	})

	t.Run("resubmitting", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{"type":"resubmitting"}`))
		require.NoError(t, err)
		assert.Equal(t, MsgResubmitting, msg.Type)
	})

	t.Run("trigger", func(t *testing.T) {
		msg, err := DecodeInbound([]byte(`{"type":"start_ai_assignment"}`))
		require.NoError(t, err)
		assert.Equal(t, MsgStartAIAssignment, msg.Type)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeInbound([]byte(`{"type":"dance"}`))
		require.Error(t, err)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := DecodeInbound([]byte(`{"major":"CS"}`))
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := DecodeInbound([]byte(`hello`))
		require.Error(t, err)
	})
}

func TestNewSubmissionUpdate(t *testing.T) {
	update := NewSubmissionUpdate(types.SubmissionStatus{
		TotalMembers: 3,
		Submitted: []types.RosterMember{
			{ID: "p1", Name: "Alice"},
			{ID: "p2", Name: "Bob"},
		},
	})

	assert.Equal(t, MsgSubmissionUpdate, update.Type)
	assert.Equal(t, 3, update.TotalMembers)
	assert.False(t, update.AllSubmitted)

	data, err := json.Marshal(update)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "submission_update",
		"total_members": 3,
		"submitted_members": [
			{"id": "p1", "name": "Alice"},
			{"id": "p2", "name": "Bob"}
		],
		"all_submitted": false
	}`, string(data))
}

func TestNewAssignmentComplete(t *testing.T) {
	complete := NewAssignmentComplete([]types.RoleAssignment{
		{Username: "Alice", RoleName: "Leader", RoleID: "r1"},
		{Username: "Bob", RoleName: "Researcher", RoleID: "r2"},
	})

	data, err := json.Marshal(complete)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "assignment_complete",
		"assignments": [
			{"username": "Alice", "assigned_role": "Leader"},
			{"username": "Bob", "assigned_role": "Researcher"}
		]
	}`, string(data))
}

func TestNewAssignmentError(t *testing.T) {
	data, err := json.Marshal(NewAssignmentError("no_submissions"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"assignment_error","reason":"no_submissions"}`, string(data))
}

func TestPeekType(t *testing.T) {
	assert.Equal(t, "submission_update", peekType([]byte(`{"type":"submission_update","total_members":1}`)))
	assert.Equal(t, "unknown", peekType([]byte(`{}`)))
	assert.Equal(t, "unknown", peekType([]byte(`garbage`)))
}

func TestTriggerReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{types.ErrAlreadyFinalized, "already_finalized"},
		{types.ErrAssignmentInFlight, "assignment_in_flight"},
		{types.ErrNoRoleSlots, "no_role_slots"},
		{types.ErrNoSubmissions, "no_submissions"},
		{types.ErrTransport, "recommendation_failed"},
		{types.ErrMalformedResponse, "recommendation_failed"},
		{types.ErrEmptyResult, "recommendation_failed"},
		{assert.AnError, "internal_error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, triggerReason(tt.err), "for %v", tt.err)
	}
}
