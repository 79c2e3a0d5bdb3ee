package rolecall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/teamflow/rolecall/internal/logging"
	"github.com/teamflow/rolecall/internal/metrics"
	"github.com/teamflow/rolecall/types"
)

// SessionCoordinator is the coordinator surface the Hub drives. *Coordinator
// implements it; tests substitute fakes.
type SessionCoordinator interface {
	RecordSubmission(ctx context.Context, sub types.Submission) (types.SubmissionStatus, error)
	WithdrawSubmission(ctx context.Context, sessionID, participantID string) (types.SubmissionStatus, error)
	SubmissionStatus(ctx context.Context, sessionID string) (types.SubmissionStatus, error)
	RunAssignment(ctx context.Context, sessionID, triggeredBy string) ([]types.RoleAssignment, error)
	Assignments(ctx context.Context, sessionID string) ([]types.RoleAssignment, error)
	Finalized(ctx context.Context, sessionID string) (bool, error)
}

// Verify Coordinator satisfies the hub-facing interface.
var _ SessionCoordinator = (*Coordinator)(nil)

// Conn is one member's live connection to a session group.
//
// Outbound delivery is best-effort: messages are queued on a bounded channel
// and dropped when the peer cannot keep up. The transport layer (see
// WebsocketHandler) drains Outbound and writes to the wire.
type Conn struct {
	id        string
	sessionID string
	member    types.RosterMember

	// sendMu guards closed so no send races the channel close in Leave.
	sendMu sync.Mutex
	send   chan []byte
	closed bool
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string { return c.id }

// Member returns the roster member this connection authenticated as.
func (c *Conn) Member() types.RosterMember { return c.member }

// SessionID returns the session this connection joined.
func (c *Conn) SessionID() string { return c.sessionID }

// Outbound returns the channel of serialized messages to write to the peer.
// The channel is closed when the connection leaves the hub.
func (c *Conn) Outbound() <-chan []byte { return c.send }

func (c *Conn) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// trySend queues data without blocking. Reports false when the connection is
// closed or its queue is full.
func (c *Conn) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sessionGroup is the set of local connections joined to one session, plus
// the NATS subscription that feeds them broadcasts from every instance.
type sessionGroup struct {
	conns map[string]*Conn
	sub   *nats.Subscription

	// dispatchMu serializes submission dispatches for the group so the
	// completeness snapshots broadcast in the order the changes applied.
	// Assignment triggers are deliberately not serialized by it; the
	// coordinator arbitrates those itself.
	dispatchMu sync.Mutex
}

// Hub connects session members to the Coordinator and fans coordinator
// events out to every connected member.
//
// Broadcasts travel over a per-session core NATS subject, so session groups
// split across multiple server instances all see the same messages. Within
// an instance delivery is per-connection best-effort.
type Hub struct {
	cfg     *Config
	nc      *nats.Conn
	coord   SessionCoordinator
	logger  types.Logger
	metrics types.MetricsCollector

	mu       sync.Mutex
	sessions map[string]*sessionGroup
	closed   bool
}

// NewHub creates a Hub.
//
// Parameters:
//   - cfg: Configuration, may be partially filled (defaults are applied)
//   - nc: Connected NATS connection used for cross-instance fan-out
//   - coord: Coordinator the hub drives
//   - opts: Functional options (WithLogger, WithMetrics)
//
// Returns:
//   - *Hub: Ready-to-use hub
//   - error: Configuration or dependency validation error
func NewHub(cfg *Config, nc *nats.Conn, coord SessionCoordinator, opts ...Option) (*Hub, error) {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}

	SetDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if nc == nil {
		return nil, ErrNATSConnectionRequired
	}
	if coord == nil {
		return nil, ErrCoordinatorRequired
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

	return &Hub{
		cfg:      cfg,
		nc:       nc,
		coord:    coord,
		logger:   o.logger,
		metrics:  o.metrics,
		sessions: make(map[string]*sessionGroup),
	}, nil
}

// Join registers a member's connection with a session group and sends the
// current completeness snapshot to the new connection. If the session is
// already finalized the committed assignment is sent as well.
//
// The first join of a session on this instance subscribes the group to the
// session's broadcast subject.
//
// Returns ErrHubClosed after Close, ErrSessionNotFound for an unknown
// session.
func (h *Hub) Join(ctx context.Context, sessionID string, member types.RosterMember) (*Conn, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}

	conn := &Conn{
		id:        uuid.NewString(),
		sessionID: sessionID,
		member:    member,
		send:      make(chan []byte, h.cfg.SendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}

	group, ok := h.sessions[sessionID]
	if !ok {
		sub, err := h.nc.Subscribe(h.subject(sessionID), func(msg *nats.Msg) {
			h.deliverLocal(sessionID, msg.Data)
		})
		if err != nil {
			h.mu.Unlock()
			return nil, fmt.Errorf("subscribe session subject: %w", err)
		}

		group = &sessionGroup{conns: make(map[string]*Conn)}
		group.sub = sub
		h.sessions[sessionID] = group
	}
	group.conns[conn.id] = conn
	h.mu.Unlock()

	h.logger.Debug("member joined session",
		"sessionID", sessionID,
		"participantID", member.ID,
		"connID", conn.id)

	if err := h.sendSnapshot(ctx, conn); err != nil {
		h.Leave(conn)
		return nil, err
	}

	return conn, nil
}

// sendSnapshot greets a new connection with the current session state.
func (h *Hub) sendSnapshot(ctx context.Context, conn *Conn) error {
	status, err := h.coord.SubmissionStatus(ctx, conn.sessionID)
	if err != nil {
		return fmt.Errorf("compute snapshot: %w", err)
	}
	h.sendLocal(conn, NewSubmissionUpdate(status))

	finalized, err := h.coord.Finalized(ctx, conn.sessionID)
	if err != nil || !finalized {
		return err
	}

	assignments, err := h.coord.Assignments(ctx, conn.sessionID)
	if err != nil {
		return fmt.Errorf("load committed assignments: %w", err)
	}
	h.sendLocal(conn, NewAssignmentComplete(assignments))

	return nil
}

// Leave removes the connection from its session group and closes its
// outbound channel. Idempotent. The last leave of a session on this instance
// drops the group's broadcast subscription.
func (h *Hub) Leave(conn *Conn) {
	if conn == nil {
		return
	}

	h.mu.Lock()
	group, ok := h.sessions[conn.sessionID]
	if ok {
		delete(group.conns, conn.id)
		if len(group.conns) == 0 {
			if group.sub != nil {
				if err := group.sub.Unsubscribe(); err != nil {
					h.logger.Warn("failed to unsubscribe session subject",
						"sessionID", conn.sessionID,
						"error", err)
				}
			}
			delete(h.sessions, conn.sessionID)
		}
	}
	h.mu.Unlock()

	conn.close()

	h.logger.Debug("member left session",
		"sessionID", conn.sessionID,
		"participantID", conn.member.ID,
		"connID", conn.id)
}

// HandleInbound dispatches one raw client message from the connection.
//
// Malformed or unknown messages are logged and dropped; they never tear the
// connection down. Trigger failures are acknowledged to the triggering
// connection only, with a stable reason token.
func (h *Hub) HandleInbound(ctx context.Context, conn *Conn, data []byte) {
	msg, err := DecodeInbound(data)
	if err != nil {
		h.logger.Warn("dropping malformed inbound message",
			"sessionID", conn.sessionID,
			"participantID", conn.member.ID,
			"error", err)
		return
	}

	switch msg.Type {
	case MsgSubmit:
		h.handleSubmit(ctx, conn, msg)
	case MsgResubmitting:
		h.handleResubmitting(ctx, conn)
	case MsgStartAIAssignment:
		h.handleTrigger(ctx, conn)
	}
}

func (h *Hub) handleSubmit(ctx context.Context, conn *Conn, msg InboundMessage) {
	group := h.groupFor(conn.sessionID)
	if group == nil {
		return
	}

	group.dispatchMu.Lock()
	defer group.dispatchMu.Unlock()

	status, err := h.coord.RecordSubmission(ctx, types.Submission{
		SessionID:     conn.sessionID,
		ParticipantID: conn.member.ID,
		Major:         msg.Major,
		Traits:        msg.Traits,
		Preferences:   msg.Preferences,
	})
	if err != nil {
		h.logger.Warn("submission rejected",
			"sessionID", conn.sessionID,
			"participantID", conn.member.ID,
			"error", err)
		return
	}

	if err := h.Broadcast(conn.sessionID, NewSubmissionUpdate(status)); err != nil {
		h.logger.Error("failed to broadcast submission update",
			"sessionID", conn.sessionID,
			"error", err)
	}
}

func (h *Hub) handleResubmitting(ctx context.Context, conn *Conn) {
	group := h.groupFor(conn.sessionID)
	if group == nil {
		return
	}

	group.dispatchMu.Lock()
	defer group.dispatchMu.Unlock()

	status, err := h.coord.WithdrawSubmission(ctx, conn.sessionID, conn.member.ID)
	if err != nil {
		h.logger.Warn("withdrawal rejected",
			"sessionID", conn.sessionID,
			"participantID", conn.member.ID,
			"error", err)
		return
	}

	if err := h.Broadcast(conn.sessionID, NewSubmissionUpdate(status)); err != nil {
		h.logger.Error("failed to broadcast submission update",
			"sessionID", conn.sessionID,
			"error", err)
	}
}

func (h *Hub) handleTrigger(ctx context.Context, conn *Conn) {
	assignments, err := h.coord.RunAssignment(ctx, conn.sessionID, conn.member.ID)
	if err != nil {
		h.sendLocal(conn, NewAssignmentError(triggerReason(err)))
		return
	}

	if err := h.Broadcast(conn.sessionID, NewAssignmentComplete(assignments)); err != nil {
		h.logger.Error("failed to broadcast assignment",
			"sessionID", conn.sessionID,
			"error", err)
	}
}

// Broadcast publishes a payload to every connection of the session group,
// across all server instances.
func (h *Hub) Broadcast(sessionID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal broadcast payload: %w", err)
	}

	if err := h.nc.Publish(h.subject(sessionID), data); err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}

	return nil
}

// deliverLocal fans one serialized message out to the session's local
// connections. Non-blocking per connection; a full queue drops the message
// for that connection only.
func (h *Hub) deliverLocal(sessionID string, data []byte) {
	h.mu.Lock()
	group, ok := h.sessions[sessionID]
	if !ok {
		h.mu.Unlock()
		return
	}
	conns := make([]*Conn, 0, len(group.conns))
	for _, conn := range group.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	delivered := 0
	for _, conn := range conns {
		if conn.trySend(data) {
			delivered++
		} else {
			h.logger.Warn("dropping broadcast for slow or closed connection",
				"sessionID", sessionID,
				"connID", conn.id)
		}
	}

	h.metrics.RecordBroadcast(sessionID, peekType(data), delivered)
}

// sendLocal queues a payload on one connection only, bypassing NATS.
func (h *Hub) sendLocal(conn *Conn, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal local payload",
			"connID", conn.id,
			"error", err)
		return
	}

	if !conn.trySend(data) {
		h.logger.Warn("dropping local message for slow or closed connection",
			"sessionID", conn.sessionID,
			"connID", conn.id)
	}
}

// Close shuts the hub down: every session subscription is dropped and every
// connection's outbound channel is closed. Join fails with ErrHubClosed
// afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true

	conns := make([]*Conn, 0)
	for sessionID, group := range h.sessions {
		if group.sub != nil {
			if err := group.sub.Unsubscribe(); err != nil {
				h.logger.Warn("failed to unsubscribe session subject",
					"sessionID", sessionID,
					"error", err)
			}
		}
		for _, conn := range group.conns {
			conns = append(conns, conn)
		}
	}
	h.sessions = make(map[string]*sessionGroup)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.close()
	}

	h.logger.Info("hub closed", "connections", len(conns))
}

func (h *Hub) groupFor(sessionID string) *sessionGroup {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.sessions[sessionID]
}

func (h *Hub) subject(sessionID string) string {
	return h.cfg.SubjectPrefix + ".session." + sessionID
}

// triggerReason maps a trigger failure onto the stable reason token sent to
// the triggering connection. Recommendation-service internals never reach
// clients.
func triggerReason(err error) string {
	switch {
	case errors.Is(err, types.ErrAlreadyFinalized):
		return "already_finalized"
	case errors.Is(err, types.ErrAssignmentInFlight):
		return "assignment_in_flight"
	case errors.Is(err, types.ErrNoRoleSlots):
		return "no_role_slots"
	case errors.Is(err, types.ErrNoSubmissions):
		return "no_submissions"
	case errors.Is(err, types.ErrTransport),
		errors.Is(err, types.ErrMalformedResponse),
		errors.Is(err, types.ErrEmptyResult):
		return "recommendation_failed"
	default:
		return "internal_error"
	}
}
