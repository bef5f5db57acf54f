package http

import (
	"context"

	"github.com/dkeye/callhub/internal/adapters/signal"
	"github.com/dkeye/callhub/internal/app/hub"
	"github.com/dkeye/callhub/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const sessionName = "CallHubSessions"

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// openSettings lists configuration that weakens what the router protects.
func openSettings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Secret == "" {
		warnings = append(warnings, "no secret configured, using a random session key")
	}
	if cfg.NotifyToken == "" {
		warnings = append(warnings, "notify_token is empty, POST /api/notify accepts any caller")
	}
	return warnings
}

// SetupRouter mounts the signaling socket and the JSON API. ctx is the
// server lifetime; sockets opened through the router close with it.
func SetupRouter(ctx context.Context, cfg *config.Config, h *hub.Hub) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	for _, w := range openSettings(cfg) {
		log.Warn().Str("module", "adapters.http").Msg(w)
	}
	secret := cfg.Secret
	if secret == "" {
		// Sessions then survive only until restart.
		secret = uuid.NewString()
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 30, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	api := &API{
		hub:         h,
		iceServers:  ICEServers(cfg.ICEServers),
		notifyToken: cfg.NotifyToken,
	}
	r.GET("/healthz", api.Health)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewSignalWSController(h, signal.OptionsFromConfig(cfg))
	g := r.Group("/api")

	g.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})
	g.GET("/presence", api.Presence)
	g.GET("/ice", api.ICE)
	g.POST("/notify", api.Notify)

	return r
}
