package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dkeye/callhub/internal/app/hub"
	"github.com/dkeye/callhub/internal/config"
	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/dkeye/callhub/internal/protocol"
	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const notifyTokenHeader = "X-Notify-Token"

type API struct {
	hub         *hub.Hub
	iceServers  []webrtc.ICEServer
	notifyToken string
}

// ICEServers converts configured entries to the type browsers expect in
// RTCPeerConnection's configuration.
func ICEServers(servers []config.ICEServer) []webrtc.ICEServer {
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

func (a *API) Health(c *gin.Context) {
	st, err := a.hub.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": st.Connections, "online": st.Online})
}

func (a *API) Presence(c *gin.Context) {
	online, err := a.hub.Presence(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, protocol.PresenceSnapshotPayload{OnlineUserIDs: online})
}

func (a *API) ICE(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": a.iceServers})
}

type notifyRequest struct {
	UserID  string          `json:"userId" binding:"required,max=128"`
	Event   string          `json:"event" binding:"required,max=64"`
	Payload json.RawMessage `json:"payload"`
}

// Notify lets a backend push an event (a new chat message, say) to whichever
// connection currently represents the user.
func (a *API) Notify(c *gin.Context) {
	if a.notifyToken != "" {
		got := c.GetHeader(notifyTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.notifyToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad notify token"})
			return
		}
	}

	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := domain.ParseUserID(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if protocol.Reserved(req.Event) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event name is reserved"})
		return
	}

	err = a.hub.Notify(c.Request.Context(), user, req.Event, req.Payload)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"delivered": true})
	case errors.Is(err, core.ErrTargetOffline):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrBackpressure), errors.Is(err, core.ErrConnectionClosed),
		errors.Is(err, core.ErrHubClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Warn().Err(err).Str("module", "adapters.http").Str("user", string(user)).Str("event", req.Event).Msg("notify")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
