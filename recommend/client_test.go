package recommend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamflow/rolecall/types"
)

// completionServer fakes an OpenAI-compatible chat-completions endpoint that
// always answers with the given message content.
func completionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "upstream unhappy", status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message": map[string]any{
						"role":    "assistant",
						"content": content,
					},
				},
			},
		})
	}))
	t.Cleanup(server.Close)

	return server
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	client, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	return client
}

var testProfiles = []types.Profile{
	{Name: "Alice", Major: "CS", Traits: []string{"calm"}},
	{Name: "Bob", Major: "Design", Preferences: []string{"slides"}},
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestRecommendAssignments_Success(t *testing.T) {
	server := completionServer(t, http.StatusOK,
		`[{"username": "Alice", "assigned_role": "Leader"},
		  {"username": "Bob", "assigned_role": "Presenter"}]`)
	client := newTestClient(t, server.URL)

	pairs, err := client.RecommendAssignments(context.Background(),
		[]string{"Leader", "Presenter"}, testProfiles)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "Alice", pairs[0].Username)
	assert.Equal(t, "Presenter", pairs[1].AssignedRole)
}

func TestRecommendAssignments_FencedResponse(t *testing.T) {
	server := completionServer(t, http.StatusOK,
		"```json\n[{\"username\": \"Alice\", \"assigned_role\": \"Leader\"}]\n```")
	client := newTestClient(t, server.URL)

	pairs, err := client.RecommendAssignments(context.Background(),
		[]string{"Leader"}, testProfiles[:1])
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestRecommendAssignments_ServerError(t *testing.T) {
	server := completionServer(t, http.StatusInternalServerError, "")
	client := newTestClient(t, server.URL)

	_, err := client.RecommendAssignments(context.Background(),
		[]string{"Leader"}, testProfiles)
	require.ErrorIs(t, err, types.ErrTransport)
}

func TestRecommendAssignments_UnreachableEndpoint(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")

	_, err := client.RecommendAssignments(context.Background(),
		[]string{"Leader"}, testProfiles)
	require.ErrorIs(t, err, types.ErrTransport)
}

func TestRecommendAssignments_MalformedContent(t *testing.T) {
	server := completionServer(t, http.StatusOK,
		`I would assign Alice to Leader because she is calm.`)
	client := newTestClient(t, server.URL)

	_, err := client.RecommendAssignments(context.Background(),
		[]string{"Leader"}, testProfiles)
	require.ErrorIs(t, err, types.ErrMalformedResponse)
}

func TestRecommendAssignments_EmptyArray(t *testing.T) {
	server := completionServer(t, http.StatusOK, `[]`)
	client := newTestClient(t, server.URL)

	_, err := client.RecommendAssignments(context.Background(),
		[]string{"Leader"}, testProfiles)
	require.ErrorIs(t, err, types.ErrEmptyResult)
}

func TestRecommendAssignments_InputValidation(t *testing.T) {
	server := completionServer(t, http.StatusOK, `[]`)
	client := newTestClient(t, server.URL)

	_, err := client.RecommendAssignments(context.Background(), nil, testProfiles)
	require.ErrorIs(t, err, types.ErrNoRoleSlots)

	_, err = client.RecommendAssignments(context.Background(), []string{"Leader"}, nil)
	require.ErrorIs(t, err, types.ErrNoSubmissions)
}

func TestRecommendAssignments_SingleCallNoRetries(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)

	_, err := client.RecommendAssignments(context.Background(),
		[]string{"Leader"}, testProfiles)
	require.ErrorIs(t, err, types.ErrTransport)

	// Retrying is the trigger's decision, not the client's.
	assert.Equal(t, int32(1), calls.Load())
}

func TestRecommendRole(t *testing.T) {
	server := completionServer(t, http.StatusOK,
		`{"recommendedRole": "Researcher", "reason": "enjoys digging into sources"}`)
	client := newTestClient(t, server.URL)

	role, reason, err := client.RecommendRole(context.Background(),
		testProfiles[0], []string{"Leader", "Researcher"})
	require.NoError(t, err)
	assert.Equal(t, "Researcher", role)
	assert.NotEmpty(t, reason)
}

func TestRecommendRole_NoSlots(t *testing.T) {
	server := completionServer(t, http.StatusOK, `{}`)
	client := newTestClient(t, server.URL)

	_, _, err := client.RecommendRole(context.Background(), testProfiles[0], nil)
	require.ErrorIs(t, err, types.ErrNoRoleSlots)
}

func TestRecommendAssignments_SendsRolesAndProfiles(t *testing.T) {
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = append(gotBody, body...)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"[{\"username\":\"Alice\",\"assigned_role\":\"Leader\"}]"}}]}`)
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, server.URL)

	_, err := client.RecommendAssignments(context.Background(),
		[]string{"Leader"}, testProfiles[:1])
	require.NoError(t, err)

	body := string(gotBody)
	assert.Contains(t, body, "test-model")
	assert.Contains(t, body, "Alice")
	assert.Contains(t, body, "Leader")
}
