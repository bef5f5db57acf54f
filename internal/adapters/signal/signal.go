package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/callhub/internal/config"
	"github.com/dkeye/callhub/internal/core"
	"github.com/dkeye/callhub/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SessionUserKey is where the cookie session remembers the handshake user.
const SessionUserKey = "user_id"

// Hub is the part of the coordination hub a transport needs.
type Hub interface {
	Attach(ctx context.Context, conn core.SignalConnection) (domain.ConnectionID, error)
	Register(ctx context.Context, id domain.ConnectionID, user domain.UserID) error
	Dispatch(ctx context.Context, id domain.ConnectionID, frame []byte) error
	Detach(ctx context.Context, id domain.ConnectionID) error
}

type Options struct {
	ReadLimit      int64
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	RateEvents     int
	RateInterval   time.Duration
	AllowedOrigins []string
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReadLimit:      cfg.ReadLimit,
		PingPeriod:     cfg.PingPeriod,
		PongWait:       cfg.PongWait,
		WriteWait:      cfg.WriteWait,
		SendBuffer:     cfg.SendBuffer,
		RateEvents:     cfg.RateLimit.Events,
		RateInterval:   cfg.RateLimit.Interval,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

type SignalWSController struct {
	hub      Hub
	opts     Options
	limiter  *RateLimiter
	upgrader websocket.Upgrader
}

func NewSignalWSController(hub Hub, opts Options) *SignalWSController {
	origins := newOriginPolicy(opts.AllowedOrigins)
	return &SignalWSController{
		hub:     hub,
		opts:    opts,
		limiter: NewRateLimiter(opts.RateEvents, opts.RateInterval),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     origins.check,
		},
	}
}

type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

var _ core.SignalConnection = (*wsSignalConn)(nil)

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnectionClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and attaches the connection to the hub.
// ctx bounds the connection's lifetime, not the request's.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	user, ok := ctl.handshakeUser(c)
	if !ok {
		return
	}

	// Upgrade writes its own response, so cookies set by middleware are
	// forwarded explicitly.
	header := http.Header{}
	for _, v := range c.Writer.Header().Values("Set-Cookie") {
		header.Add("Set-Cookie", v)
	}
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.opts.SendBuffer),
	}
	id, err := ctl.hub.Attach(ctx, conn)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("attach")
		conn.Close()
		return
	}
	log.Info().Str("module", "signal").
		Str("conn", string(id)).
		Str("client", c.GetString("client_token")).
		Str("user", string(user)).
		Str("remote", c.ClientIP()).
		Msg("new WS connection")

	go ctl.writePump(ctx, conn)

	if user != "" {
		if err := ctl.hub.Register(ctx, id, user); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("handshake register")
		}
	}

	go ctl.readPump(ctx, id, conn)
}

// handshakeUser takes userId from the query, or else from the cookie
// session. An empty result means the client will register in-band.
func (ctl *SignalWSController) handshakeUser(c *gin.Context) (domain.UserID, bool) {
	session := sessions.Default(c)

	if raw, given := c.GetQuery("userId"); given {
		user, err := domain.ParseUserID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return "", false
		}
		session.Set(SessionUserKey, string(user))
		if err := session.Save(); err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("session save")
		}
		return user, true
	}

	if raw, ok := session.Get(SessionUserKey).(string); ok {
		if user, err := domain.ParseUserID(raw); err == nil {
			return user, true
		}
	}
	return "", true
}
