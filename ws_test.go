package rolecall

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/teamflow/rolecall/types"
)

// queryAuthenticator trusts the "participant" query parameter, mirroring the
// shape of a real authenticator without the token plumbing.
var queryAuthenticator = AuthenticatorFunc(func(_ context.Context, r *http.Request) (types.RosterMember, error) {
	id := r.URL.Query().Get("participant")
	if id == "" {
		return types.RosterMember{}, errors.New("missing participant")
	}
	return types.RosterMember{ID: id, Name: strings.ToUpper(id[:1]) + id[1:]}, nil
})

func dialWS(t *testing.T, serverURL, query string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/?" + query

	ws, err := websocket.Dial(wsURL, "", serverURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	return ws
}

func receiveWS(t *testing.T, ws *websocket.Conn) (string, []byte) {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))

	var data []byte
	require.NoError(t, websocket.Message.Receive(ws, &data))

	return peekType(data), data
}

func TestWebsocketHandler_EndToEnd(t *testing.T) {
	coord := &fakeSessionCoordinator{
		status: types.SubmissionStatus{TotalMembers: 2},
	}
	hub := newTestHub(t, coord)

	server := httptest.NewServer(hub.WebsocketHandler(queryAuthenticator))
	t.Cleanup(server.Close)

	alice := dialWS(t, server.URL, "session=s1&participant=alice")
	bob := dialWS(t, server.URL, "session=s1&participant=bob")

	// Both get the join snapshot first.
	msgType, _ := receiveWS(t, alice)
	assert.Equal(t, MsgSubmissionUpdate, msgType)
	msgType, _ = receiveWS(t, bob)
	assert.Equal(t, MsgSubmissionUpdate, msgType)

	// Alice submits; the whole group sees the update.
	require.NoError(t, websocket.Message.Send(alice,
		`{"type":"submit","major":"CS","traits":["calm"]}`))

	for _, ws := range []*websocket.Conn{alice, bob} {
		msgType, data := receiveWS(t, ws)
		assert.Equal(t, MsgSubmissionUpdate, msgType)

		var update SubmissionUpdate
		require.NoError(t, json.Unmarshal(data, &update))
		assert.Contains(t, update.SubmittedMembers, SubmittedMemberRef{ID: "alice", Name: "alice"})
	}
}

func TestWebsocketHandler_TriggerBroadcast(t *testing.T) {
	coord := &fakeSessionCoordinator{
		runResult: []types.RoleAssignment{
			{Username: "Alice", RoleName: "Leader"},
		},
	}
	hub := newTestHub(t, coord)

	server := httptest.NewServer(hub.WebsocketHandler(queryAuthenticator))
	t.Cleanup(server.Close)

	alice := dialWS(t, server.URL, "session=s1&participant=alice")
	receiveWS(t, alice)

	require.NoError(t, websocket.Message.Send(alice, `{"type":"start_ai_assignment"}`))

	msgType, data := receiveWS(t, alice)
	assert.Equal(t, MsgAssignmentComplete, msgType)

	var complete AssignmentComplete
	require.NoError(t, json.Unmarshal(data, &complete))
	require.Len(t, complete.Assignments, 1)
	assert.Equal(t, "Alice", complete.Assignments[0].Username)
}

func TestWebsocketHandler_RejectsMissingSession(t *testing.T) {
	coord := &fakeSessionCoordinator{}
	hub := newTestHub(t, coord)

	server := httptest.NewServer(hub.WebsocketHandler(queryAuthenticator))
	t.Cleanup(server.Close)

	ws := dialWS(t, server.URL, "participant=alice")

	// The server closes without ever sending a message.
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var data []byte
	err := websocket.Message.Receive(ws, &data)
	require.Error(t, err)
}

func TestWebsocketHandler_RejectsFailedAuth(t *testing.T) {
	coord := &fakeSessionCoordinator{}
	hub := newTestHub(t, coord)

	server := httptest.NewServer(hub.WebsocketHandler(queryAuthenticator))
	t.Cleanup(server.Close)

	ws := dialWS(t, server.URL, "session=s1")

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var data []byte
	err := websocket.Message.Receive(ws, &data)
	require.Error(t, err)
}
