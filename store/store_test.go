package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rctesting "github.com/teamflow/rolecall/testing"
	"github.com/teamflow/rolecall/types"
)

func bootstrapStores(t *testing.T) *Stores {
	t.Helper()

	nc := rctesting.StartEmbeddedNATS(t)

	stores, err := Bootstrap(context.Background(), nc, Config{})
	require.NoError(t, err)

	return stores
}

func TestBootstrap_Idempotent(t *testing.T) {
	nc := rctesting.StartEmbeddedNATS(t)
	ctx := context.Background()

	first, err := Bootstrap(ctx, nc, Config{})
	require.NoError(t, err)
	require.NotNil(t, first)

	// A second instance bootstrapping against the same broker opens the
	// existing buckets instead of failing.
	second, err := Bootstrap(ctx, nc, Config{})
	require.NoError(t, err)
	require.NotNil(t, second)
}

func TestSubmissions_UpsertListRemove(t *testing.T) {
	stores := bootstrapStores(t)
	subs := stores.Submissions
	ctx := context.Background()

	require.NoError(t, subs.Upsert(ctx, types.Submission{
		SessionID:     "s1",
		ParticipantID: "p1",
		Major:         "Design",
		Traits:        []string{"creative"},
	}))
	require.NoError(t, subs.Upsert(ctx, types.Submission{
		SessionID:     "s1",
		ParticipantID: "p2",
		Major:         "CS",
	}))
	require.NoError(t, subs.Upsert(ctx, types.Submission{
		SessionID:     "other",
		ParticipantID: "p1",
		Major:         "Law",
	}))

	listed, err := subs.List(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	require.NoError(t, subs.Remove(ctx, "s1", "p1"))
	require.NoError(t, subs.Remove(ctx, "s1", "p1"))

	listed, err = subs.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "p2", listed[0].ParticipantID)

	// The other session is untouched.
	other, err := subs.List(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestSubmissions_UpsertOverwrites(t *testing.T) {
	stores := bootstrapStores(t)
	subs := stores.Submissions
	ctx := context.Background()

	require.NoError(t, subs.Upsert(ctx, types.Submission{
		SessionID: "s1", ParticipantID: "p1", Major: "Design",
	}))
	require.NoError(t, subs.Upsert(ctx, types.Submission{
		SessionID: "s1", ParticipantID: "p1", Major: "CS",
	}))

	listed, err := subs.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "CS", listed[0].Major)
}

func TestSubmissions_UpsertValidation(t *testing.T) {
	stores := bootstrapStores(t)
	ctx := context.Background()

	err := stores.Submissions.Upsert(ctx, types.Submission{SessionID: "s1"})
	require.Error(t, err)

	err = stores.Submissions.Upsert(ctx, types.Submission{ParticipantID: "p1"})
	require.Error(t, err)
}

func TestSubmissions_Clear(t *testing.T) {
	stores := bootstrapStores(t)
	subs := stores.Submissions
	ctx := context.Background()

	for _, p := range []string{"p1", "p2", "p3"} {
		require.NoError(t, subs.Upsert(ctx, types.Submission{
			SessionID: "s1", ParticipantID: p,
		}))
	}
	require.NoError(t, subs.Upsert(ctx, types.Submission{
		SessionID: "s2", ParticipantID: "p1",
	}))

	require.NoError(t, subs.Clear(ctx, "s1"))

	listed, err := subs.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, listed)

	kept, err := subs.List(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestSessions_Roster(t *testing.T) {
	stores := bootstrapStores(t)
	sessions := stores.Sessions
	ctx := context.Background()

	_, err := sessions.Roster(ctx, "missing")
	require.ErrorIs(t, err, types.ErrSessionNotFound)

	want := []types.RosterMember{
		{ID: "p1", Name: "Alice"},
		{ID: "p2", Name: "Bob"},
	}
	require.NoError(t, sessions.PutRoster(ctx, "s1", want))

	got, err := sessions.Roster(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSessions_RoleSlots(t *testing.T) {
	stores := bootstrapStores(t)
	sessions := stores.Sessions
	ctx := context.Background()

	// No slots stored means nothing to assign, not an error.
	slots, err := sessions.RoleSlots(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, slots)

	want := []types.RoleSlot{
		{ID: "r1", Name: "Leader"},
		{ID: "r2", Name: "Researcher"},
	}
	require.NoError(t, sessions.PutRoleSlots(ctx, "s1", want))

	slots, err = sessions.RoleSlots(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, want, slots)
}

func TestSessions_FinalizedLifecycle(t *testing.T) {
	stores := bootstrapStores(t)
	sessions := stores.Sessions
	ctx := context.Background()

	finalized, err := sessions.Finalized(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, finalized)

	won, err := sessions.TryFinalize(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, won)

	finalized, err = sessions.Finalized(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, finalized)

	// Second claim loses; the flag is monotonic.
	won, err = sessions.TryFinalize(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, won)

	// Administrative reset reopens the session.
	require.NoError(t, sessions.Reset(ctx, "s1"))

	finalized, err = sessions.Finalized(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, finalized)
}

func TestSessions_TryFinalizeRace(t *testing.T) {
	stores := bootstrapStores(t)
	sessions := stores.Sessions
	ctx := context.Background()

	const claimers = 8

	var wg sync.WaitGroup
	wins := make(chan bool, claimers)

	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := sessions.TryFinalize(ctx, "contested")
			assert.NoError(t, err)
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}

	// The KV Create is atomic on the broker: exactly one claimer wins no
	// matter how the goroutines interleave.
	assert.Equal(t, 1, winners)
}

func TestAssignments_UpsertListRemove(t *testing.T) {
	stores := bootstrapStores(t)
	asgn := stores.Assignments
	ctx := context.Background()

	require.NoError(t, asgn.Upsert(ctx, types.RoleAssignment{
		SessionID:     "s1",
		ParticipantID: "p1",
		Username:      "Alice",
		RoleID:        "r1",
		RoleName:      "Leader",
		AssignedByAI:  true,
	}))

	// Reassignment overwrites, never duplicates.
	require.NoError(t, asgn.Upsert(ctx, types.RoleAssignment{
		SessionID:     "s1",
		ParticipantID: "p1",
		Username:      "Alice",
		RoleID:        "r2",
		RoleName:      "Researcher",
	}))

	listed, err := asgn.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Researcher", listed[0].RoleName)

	require.NoError(t, asgn.Remove(ctx, "s1", "p1"))
	require.NoError(t, asgn.Remove(ctx, "s1", "p1"))

	listed, err = asgn.List(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, listed)
}
