package rolecall

import (
	"context"
	"errors"
	"io"
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/teamflow/rolecall/types"
)

// Authenticator resolves an incoming websocket upgrade request to the roster
// member behind it.
//
// Implementations typically read a session cookie or bearer token from the
// request. A returned error closes the socket immediately without joining
// the session.
type Authenticator interface {
	// Authenticate returns the member for the request, or an error when the
	// request carries no valid identity.
	Authenticate(ctx context.Context, r *http.Request) (types.RosterMember, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) (types.RosterMember, error)

// Authenticate calls f.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) (types.RosterMember, error) {
	return f(ctx, r)
}

// WebsocketHandler returns an http.Handler serving the session websocket
// endpoint.
//
// The session is selected with the "session" query parameter. The handler
// authenticates the request, joins the member to the session group, streams
// hub messages to the peer and dispatches inbound messages until the peer
// hangs up or the hub closes the connection.
//
// Parameters:
//   - auth: Authenticator resolving requests to roster members
//
// Returns:
//   - http.Handler: Handler to mount, e.g. at /ws/roles
//
// Example:
//
//	http.Handle("/ws/roles", hub.WebsocketHandler(authenticator))
func (h *Hub) WebsocketHandler(auth Authenticator) http.Handler {
	server := websocket.Server{
		// Origin checks are the proxy's job in our deployments; accept the
		// handshake as-is.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(ws *websocket.Conn) {
			h.serveSocket(ws, auth)
		},
	}

	return server
}

func (h *Hub) serveSocket(ws *websocket.Conn, auth Authenticator) {
	defer func() {
		if err := ws.Close(); err != nil {
			h.logger.Debug("websocket close", "error", err)
		}
	}()

	req := ws.Request()
	ctx := req.Context()

	sessionID := req.URL.Query().Get("session")
	if sessionID == "" {
		h.logger.Warn("websocket request without session parameter",
			"remote", req.RemoteAddr)
		return
	}

	member, err := auth.Authenticate(ctx, req)
	if err != nil {
		h.logger.Warn("websocket authentication failed",
			"sessionID", sessionID,
			"remote", req.RemoteAddr,
			"error", err)
		return
	}

	conn, err := h.Join(ctx, sessionID, member)
	if err != nil {
		h.logger.Warn("websocket join failed",
			"sessionID", sessionID,
			"participantID", member.ID,
			"error", err)
		return
	}
	defer h.Leave(conn)

	// Writer. Exits when Leave closes the outbound channel.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for data := range conn.Outbound() {
			if err := websocket.Message.Send(ws, string(data)); err != nil {
				h.logger.Debug("websocket write failed",
					"sessionID", sessionID,
					"connID", conn.ID(),
					"error", err)
				return
			}
		}
	}()

	// Reader.
	for {
		var data []byte
		if err := websocket.Message.Receive(ws, &data); err != nil {
			if !errors.Is(err, io.EOF) {
				h.logger.Debug("websocket read failed",
					"sessionID", sessionID,
					"connID", conn.ID(),
					"error", err)
			}
			break
		}

		h.HandleInbound(ctx, conn, data)
	}

	h.Leave(conn)
	<-writeDone
}
