package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/codecollab/server/internal/auth"
)

// handleDirectWS upgrades a direct-mode chat connection. The bearer
// credential arrives as the token query parameter; a session that fails the
// gate is closed with a policy-violation signal before any frame is
// exchanged.
func (a *API) handleDirectWS(w http.ResponseWriter, r *http.Request) {
	conn, ident, ok := a.upgradeAuthenticated(w, r)
	if !ok {
		return
	}
	a.hub.ServeDirect(conn, ident)
}

// handleTeamWS upgrades a team-mode connection into the named room.
func (a *API) handleTeamWS(w http.ResponseWriter, r *http.Request) {
	conn, ident, ok := a.upgradeAuthenticated(w, r)
	if !ok {
		return
	}
	a.hub.ServeTeam(conn, ident, chi.URLParam(r, "room"))
}

func (a *API) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.origins.check,
	}
}

func (a *API) upgradeAuthenticated(w http.ResponseWriter, r *http.Request) (*websocket.Conn, auth.Identity, bool) {
	upgrader := a.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return nil, auth.Identity{}, false
	}

	ident, err := a.gate.Authenticate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		a.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket authentication failed")
		a.closePolicyViolation(conn)
		return nil, auth.Identity{}, false
	}

	return conn, ident, true
}

func (a *API) closePolicyViolation(conn *websocket.Conn) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
		deadline)
	_ = conn.Close()
}
