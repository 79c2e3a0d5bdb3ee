package rolecall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teamflow/rolecall/internal/logging"
	"github.com/teamflow/rolecall/internal/metrics"
	"github.com/teamflow/rolecall/types"
)

// Dependencies bundles the required collaborators of a Coordinator.
//
// All fields are required. Store implementations backed by JetStream KV live
// in the store package; Recommender implementations in the recommend package.
type Dependencies struct {
	// Submissions is the durable per-(session, participant) attribute store.
	Submissions types.SubmissionStore

	// Membership resolves session rosters and role slots.
	Membership types.MembershipResolver

	// State owns the durable, monotonic finalized flag.
	State types.SessionState

	// Assignments persists the final participant-to-role mapping.
	Assignments types.AssignmentStore

	// Recommender produces raw assignment pairs from submitted profiles.
	Recommender types.Recommender
}

// Coordinator drives a session through OPEN, ASSIGNING and FINALIZED.
//
// It records and withdraws submissions while a session is open, computes
// completeness snapshots, and runs the one-shot assignment round: a single
// recommendation call, reconciliation against the authoritative roster and
// role slots, an atomic finalize claim, then commit.
//
// A Coordinator is safe for concurrent use and is typically shared by every
// Hub connection of a server instance.
type Coordinator struct {
	cfg     *Config
	deps    Dependencies
	logger  types.Logger
	metrics types.MetricsCollector
	hooks   *types.Hooks

	mu   sync.Mutex
	runs map[string]*sessionRun
}

// sessionRun tracks the in-process trigger claim for one session. The durable
// finalized flag guards across instances; this guards within one.
type sessionRun struct {
	inFlight atomic.Bool
}

// NewCoordinator creates a Coordinator.
//
// Parameters:
//   - cfg: Configuration, may be partially filled (defaults are applied)
//   - deps: Required collaborators, all fields must be non-nil
//   - opts: Functional options (WithLogger, WithMetrics, WithHooks)
//
// Returns:
//   - *Coordinator: Ready-to-use coordinator
//   - error: Configuration or dependency validation error
func NewCoordinator(cfg *Config, deps Dependencies, opts ...Option) (*Coordinator, error) {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}

	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if deps.Submissions == nil {
		return nil, ErrSubmissionStoreRequired
	}
	if deps.Membership == nil {
		return nil, ErrMembershipResolverRequired
	}
	if deps.State == nil {
		return nil, ErrSessionStateRequired
	}
	if deps.Assignments == nil {
		return nil, ErrAssignmentStoreRequired
	}
	if deps.Recommender == nil {
		return nil, ErrRecommenderRequired
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}

	return &Coordinator{
		cfg:     cfg,
		deps:    deps,
		logger:  o.logger,
		metrics: o.metrics,
		hooks:   o.hooks,
		runs:    make(map[string]*sessionRun),
	}, nil
}

// RecordSubmission validates and stores one participant's attributes,
// overwriting any prior submission, and returns the fresh completeness
// snapshot.
//
// Returns ErrAlreadyFinalized once the session's assignment round has
// committed, ErrUnknownParticipant when the participant is not on the
// session roster.
func (c *Coordinator) RecordSubmission(ctx context.Context, sub types.Submission) (types.SubmissionStatus, error) {
	if sub.SessionID == "" {
		return types.SubmissionStatus{}, ErrSessionIDRequired
	}

	finalized, err := c.deps.State.Finalized(ctx, sub.SessionID)
	if err != nil {
		return types.SubmissionStatus{}, fmt.Errorf("check finalized flag: %w", err)
	}
	if finalized {
		return types.SubmissionStatus{}, types.ErrAlreadyFinalized
	}

	roster, err := c.deps.Membership.Roster(ctx, sub.SessionID)
	if err != nil {
		return types.SubmissionStatus{}, fmt.Errorf("resolve roster: %w", err)
	}
	if _, ok := memberByID(roster, sub.ParticipantID); !ok {
		return types.SubmissionStatus{}, fmt.Errorf("%w: %q", types.ErrUnknownParticipant, sub.ParticipantID)
	}

	if err := c.deps.Submissions.Upsert(ctx, sub); err != nil {
		return types.SubmissionStatus{}, fmt.Errorf("store submission: %w", err)
	}

	c.metrics.RecordSubmission(sub.SessionID)
	c.logger.Debug("submission recorded",
		"sessionID", sub.SessionID,
		"participantID", sub.ParticipantID)

	status, err := c.status(ctx, sub.SessionID, roster)
	if err != nil {
		return types.SubmissionStatus{}, err
	}

	c.fireSubmissionHook(sub.SessionID, status)

	return status, nil
}

// WithdrawSubmission removes the participant's submission if present and
// returns the fresh completeness snapshot. Withdrawing an absent submission
// is not an error.
//
// Returns ErrAlreadyFinalized once the session's assignment round has
// committed.
func (c *Coordinator) WithdrawSubmission(ctx context.Context, sessionID, participantID string) (types.SubmissionStatus, error) {
	if sessionID == "" {
		return types.SubmissionStatus{}, ErrSessionIDRequired
	}

	finalized, err := c.deps.State.Finalized(ctx, sessionID)
	if err != nil {
		return types.SubmissionStatus{}, fmt.Errorf("check finalized flag: %w", err)
	}
	if finalized {
		return types.SubmissionStatus{}, types.ErrAlreadyFinalized
	}

	if err := c.deps.Submissions.Remove(ctx, sessionID, participantID); err != nil {
		return types.SubmissionStatus{}, fmt.Errorf("remove submission: %w", err)
	}

	c.metrics.RecordWithdrawal(sessionID)
	c.logger.Debug("submission withdrawn",
		"sessionID", sessionID,
		"participantID", participantID)

	status, err := c.SubmissionStatus(ctx, sessionID)
	if err != nil {
		return types.SubmissionStatus{}, err
	}

	c.fireSubmissionHook(sessionID, status)

	return status, nil
}

// SubmissionStatus computes the current completeness snapshot for the
// session. The roster is re-read on every call; membership may change
// between calls.
func (c *Coordinator) SubmissionStatus(ctx context.Context, sessionID string) (types.SubmissionStatus, error) {
	if sessionID == "" {
		return types.SubmissionStatus{}, ErrSessionIDRequired
	}

	roster, err := c.deps.Membership.Roster(ctx, sessionID)
	if err != nil {
		return types.SubmissionStatus{}, fmt.Errorf("resolve roster: %w", err)
	}

	return c.status(ctx, sessionID, roster)
}

// status builds the snapshot from an already-resolved roster. Submissions
// from participants no longer on the roster are excluded from the count.
func (c *Coordinator) status(ctx context.Context, sessionID string, roster []types.RosterMember) (types.SubmissionStatus, error) {
	subs, err := c.deps.Submissions.List(ctx, sessionID)
	if err != nil {
		return types.SubmissionStatus{}, fmt.Errorf("list submissions: %w", err)
	}

	submitted := make([]types.RosterMember, 0, len(subs))
	for _, sub := range subs {
		if member, ok := memberByID(roster, sub.ParticipantID); ok {
			submitted = append(submitted, member)
		}
	}

	return types.SubmissionStatus{
		TotalMembers: len(roster),
		Submitted:    submitted,
	}, nil
}

// Assignments returns the committed assignments recorded for the session.
func (c *Coordinator) Assignments(ctx context.Context, sessionID string) ([]types.RoleAssignment, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	return c.deps.Assignments.List(ctx, sessionID)
}

// Finalized reports whether the session's assignment round has committed.
func (c *Coordinator) Finalized(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrSessionIDRequired
	}

	return c.deps.State.Finalized(ctx, sessionID)
}

// RunAssignment executes the one-shot assignment round for the session.
//
// The round makes exactly one recommendation call, reconciles the returned
// pairs against the authoritative roster and role slots (unknown names are
// dropped, not fatal), claims the durable finalized flag, persists the
// surviving assignments and clears the session's submissions. triggeredBy
// records who pressed the button, for audit only; any connected member may
// trigger.
//
// Concurrent triggers are collapsed twice: a second trigger on this instance
// while a run is in flight gets ErrAssignmentInFlight, and a trigger that
// loses the durable claim to another instance gets ErrAlreadyFinalized. Any
// failure before the claim leaves the session open and the submissions
// intact, so a later trigger retries from scratch.
//
// Returns:
//   - []types.RoleAssignment: Committed assignments, in recommendation order
//   - error: ErrAlreadyFinalized, ErrAssignmentInFlight, ErrNoRoleSlots,
//     ErrNoSubmissions, ErrTransport, ErrMalformedResponse or ErrEmptyResult
func (c *Coordinator) RunAssignment(ctx context.Context, sessionID, triggeredBy string) ([]types.RoleAssignment, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	run := c.runFor(sessionID)
	if !run.inFlight.CompareAndSwap(false, true) {
		c.metrics.RecordAssignmentRun(sessionID, "in_flight", 0)
		return nil, types.ErrAssignmentInFlight
	}
	defer run.inFlight.Store(false)

	start := time.Now()
	assignments, outcome, err := c.runAssignment(ctx, sessionID, triggeredBy)
	c.metrics.RecordAssignmentRun(sessionID, outcome, time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn("assignment run failed",
			"sessionID", sessionID,
			"outcome", outcome,
			"error", err)
		return nil, err
	}

	c.logger.Info("assignment run finalized",
		"sessionID", sessionID,
		"triggeredBy", triggeredBy,
		"assignments", len(assignments),
		"duration", time.Since(start))

	return assignments, nil
}

func (c *Coordinator) runAssignment(ctx context.Context, sessionID, triggeredBy string) ([]types.RoleAssignment, string, error) {
	finalized, err := c.deps.State.Finalized(ctx, sessionID)
	if err != nil {
		return nil, "transport", fmt.Errorf("check finalized flag: %w", err)
	}
	if finalized {
		return nil, "already_finalized", types.ErrAlreadyFinalized
	}

	slots, err := c.deps.Membership.RoleSlots(ctx, sessionID)
	if err != nil {
		return nil, "transport", fmt.Errorf("resolve role slots: %w", err)
	}
	if len(slots) == 0 {
		return nil, "no_role_slots", types.ErrNoRoleSlots
	}

	subs, err := c.deps.Submissions.List(ctx, sessionID)
	if err != nil {
		return nil, "transport", fmt.Errorf("list submissions: %w", err)
	}
	if len(subs) == 0 {
		return nil, "no_submissions", types.ErrNoSubmissions
	}

	roster, err := c.deps.Membership.Roster(ctx, sessionID)
	if err != nil {
		return nil, "transport", fmt.Errorf("resolve roster: %w", err)
	}

	profiles := c.buildProfiles(sessionID, subs, roster)
	if len(profiles) == 0 {
		return nil, "no_submissions", types.ErrNoSubmissions
	}

	roleNames := make([]string, len(slots))
	for i, slot := range slots {
		roleNames[i] = slot.Name
	}

	recCtx, cancel := context.WithTimeout(ctx, c.cfg.RecommendTimeout)
	pairs, err := c.deps.Recommender.RecommendAssignments(recCtx, roleNames, profiles)
	cancel()
	if err != nil {
		return nil, recommendOutcome(err), err
	}

	assignments := c.reconcile(sessionID, triggeredBy, pairs, roster, slots)
	if len(assignments) == 0 {
		return nil, "empty", fmt.Errorf("%w: no recommendation pair survived reconciliation", types.ErrEmptyResult)
	}

	// From here on the run must not be aborted by the triggering client
	// hanging up. Each commit step gets its own deadline.
	base := context.WithoutCancel(ctx)

	claimCtx, cancel := context.WithTimeout(base, c.cfg.OperationTimeout)
	won, err := c.deps.State.TryFinalize(claimCtx, sessionID)
	cancel()
	if err != nil {
		return nil, "transport", fmt.Errorf("claim finalized flag: %w", err)
	}
	if !won {
		return nil, "already_finalized", types.ErrAlreadyFinalized
	}

	for _, assignment := range assignments {
		opCtx, cancel := context.WithTimeout(base, c.cfg.OperationTimeout)
		err := c.deps.Assignments.Upsert(opCtx, assignment)
		cancel()
		if err != nil {
			return nil, "commit_error", fmt.Errorf("persist assignment for %q: %w", assignment.ParticipantID, err)
		}
	}

	clearCtx, cancel := context.WithTimeout(base, c.cfg.OperationTimeout)
	if err := c.deps.Submissions.Clear(clearCtx, sessionID); err != nil {
		// The round is committed; stale submissions are cosmetic and the
		// finalized flag blocks any further use of them.
		c.logger.Warn("failed to clear submissions after finalize",
			"sessionID", sessionID,
			"error", err)
	}
	cancel()

	c.fireFinalizedHook(sessionID, assignments)

	return assignments, "finalized", nil
}

// buildProfiles joins submissions with roster names. Submissions whose
// participant has left the roster are dropped with a warning.
func (c *Coordinator) buildProfiles(sessionID string, subs []types.Submission, roster []types.RosterMember) []types.Profile {
	profiles := make([]types.Profile, 0, len(subs))
	for _, sub := range subs {
		member, ok := memberByID(roster, sub.ParticipantID)
		if !ok {
			c.logger.Warn("dropping submission from participant no longer on roster",
				"sessionID", sessionID,
				"participantID", sub.ParticipantID)
			continue
		}

		profiles = append(profiles, types.Profile{
			Name:        member.Name,
			Major:       sub.Major,
			Traits:      sub.Traits,
			Preferences: sub.Preferences,
		})
	}

	return profiles
}

// reconcile maps raw recommendation pairs back to roster members and role
// slots. Matching is case-insensitive on names. A pair referencing an
// unknown participant or role is dropped and counted, never fatal.
func (c *Coordinator) reconcile(sessionID, triggeredBy string, pairs []types.AssignmentPair, roster []types.RosterMember, slots []types.RoleSlot) []types.RoleAssignment {
	now := time.Now().UTC()

	assignments := make([]types.RoleAssignment, 0, len(pairs))
	for _, pair := range pairs {
		member, ok := memberByName(roster, pair.Username)
		if !ok {
			c.metrics.RecordReconciliationDrop(sessionID)
			c.logger.Warn("dropping recommendation for unknown participant",
				"sessionID", sessionID,
				"username", pair.Username)
			continue
		}

		slot, ok := slotByName(slots, pair.AssignedRole)
		if !ok {
			c.metrics.RecordReconciliationDrop(sessionID)
			c.logger.Warn("dropping recommendation with unknown role",
				"sessionID", sessionID,
				"username", pair.Username,
				"role", pair.AssignedRole)
			continue
		}

		assignments = append(assignments, types.RoleAssignment{
			SessionID:     sessionID,
			ParticipantID: member.ID,
			Username:      member.Name,
			RoleID:        slot.ID,
			RoleName:      slot.Name,
			AssignedBy:    triggeredBy,
			AssignedByAI:  true,
			AssignedAt:    now,
		})
	}

	return assignments
}

// AssignManually records a single assignment chosen by a person rather than
// the recommendation service, overwriting any existing assignment for the
// participant. Manual assignment is permitted in any session state; it does
// not touch submissions or the finalized flag.
//
// Returns ErrUnknownParticipant or ErrUnknownRole when the identifiers do
// not resolve against the session.
func (c *Coordinator) AssignManually(ctx context.Context, sessionID, participantID, roleID, assignedBy string) (types.RoleAssignment, error) {
	if sessionID == "" {
		return types.RoleAssignment{}, ErrSessionIDRequired
	}

	roster, err := c.deps.Membership.Roster(ctx, sessionID)
	if err != nil {
		return types.RoleAssignment{}, fmt.Errorf("resolve roster: %w", err)
	}
	member, ok := memberByID(roster, participantID)
	if !ok {
		return types.RoleAssignment{}, fmt.Errorf("%w: %q", types.ErrUnknownParticipant, participantID)
	}

	slots, err := c.deps.Membership.RoleSlots(ctx, sessionID)
	if err != nil {
		return types.RoleAssignment{}, fmt.Errorf("resolve role slots: %w", err)
	}
	slot, ok := slotByID(slots, roleID)
	if !ok {
		return types.RoleAssignment{}, fmt.Errorf("%w: %q", types.ErrUnknownRole, roleID)
	}

	assignment := types.RoleAssignment{
		SessionID:     sessionID,
		ParticipantID: member.ID,
		Username:      member.Name,
		RoleID:        slot.ID,
		RoleName:      slot.Name,
		AssignedBy:    assignedBy,
		AssignedByAI:  false,
		AssignedAt:    time.Now().UTC(),
	}

	if err := c.deps.Assignments.Upsert(ctx, assignment); err != nil {
		return types.RoleAssignment{}, fmt.Errorf("persist assignment: %w", err)
	}

	c.logger.Info("manual assignment recorded",
		"sessionID", sessionID,
		"participantID", participantID,
		"roleID", roleID,
		"assignedBy", assignedBy)

	return assignment, nil
}

func (c *Coordinator) runFor(sessionID string) *sessionRun {
	c.mu.Lock()
	defer c.mu.Unlock()

	run, ok := c.runs[sessionID]
	if !ok {
		run = &sessionRun{}
		c.runs[sessionID] = run
	}

	return run
}

func (c *Coordinator) fireSubmissionHook(sessionID string, status types.SubmissionStatus) {
	if c.hooks == nil || c.hooks.OnSubmissionRecorded == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OperationTimeout)
		defer cancel()

		if err := c.hooks.OnSubmissionRecorded(ctx, sessionID, status); err != nil {
			c.logger.Warn("OnSubmissionRecorded hook failed",
				"sessionID", sessionID,
				"error", err)
		}
	}()
}

func (c *Coordinator) fireFinalizedHook(sessionID string, assignments []types.RoleAssignment) {
	if c.hooks == nil || c.hooks.OnFinalized == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OperationTimeout)
		defer cancel()

		if err := c.hooks.OnFinalized(ctx, sessionID, assignments); err != nil {
			c.logger.Warn("OnFinalized hook failed",
				"sessionID", sessionID,
				"error", err)
		}
	}()
}

// recommendOutcome maps a recommender failure onto a metrics outcome token.
func recommendOutcome(err error) string {
	switch {
	case errors.Is(err, types.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, types.ErrEmptyResult):
		return "empty"
	default:
		return "transport"
	}
}

func memberByID(roster []types.RosterMember, id string) (types.RosterMember, bool) {
	for _, member := range roster {
		if member.ID == id {
			return member, true
		}
	}
	return types.RosterMember{}, false
}

func memberByName(roster []types.RosterMember, name string) (types.RosterMember, bool) {
	for _, member := range roster {
		if strings.EqualFold(member.Name, name) {
			return member, true
		}
	}
	return types.RosterMember{}, false
}

func slotByName(slots []types.RoleSlot, name string) (types.RoleSlot, bool) {
	for _, slot := range slots {
		if strings.EqualFold(slot.Name, name) {
			return slot, true
		}
	}
	return types.RoleSlot{}, false
}

func slotByID(slots []types.RoleSlot, id string) (types.RoleSlot, bool) {
	for _, slot := range slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return types.RoleSlot{}, false
}
