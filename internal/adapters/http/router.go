package http

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/dkeye/Relay/internal/adapters/signal"
	"github.com/dkeye/Relay/internal/auth"
	"github.com/dkeye/Relay/internal/config"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

const clientKey = "client"

// ClientTokenMiddleware gives every browser a stable token kept in the
// cookie session. It only labels logs; connection ids are per socket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(clientKey).(string)
		if token == "" {
			token = uuid.NewString()
			s.Set(clientKey, token)
			if err := s.Save(); err != nil {
				log.Debug().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// AdmissionMiddleware rejects requests without a valid bearer token. The
// token may also be passed as ?token= since browsers cannot set headers on
// websocket requests.
func AdmissionMiddleware(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := c.Query("token")
		if h := c.GetHeader("Authorization"); tok == "" && strings.HasPrefix(h, "Bearer ") {
			tok = strings.TrimPrefix(h, "Bearer ")
		}
		if tok == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no token"})
			return
		}
		sub, err := v.Verify(tok)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("admission rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "bad token"})
			return
		}
		c.Set("subject", sub)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctl *signal.SignalWSController, ice webrtc.Configuration) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RelaySessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": ctl.Hub.Count()})
	})
	r.GET("/metrics", gin.WrapH(ctl.Router.Metrics.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// GET /api/rooms: open rooms
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": ctl.Router.Registry.Rooms()})
	})

	// GET /api/rooms/:id: members of one room
	api.GET("/rooms/:id", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		members, ok := ctl.Router.Registry.Members(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id, "members": members})
	})

	// GET /api/ice: servers for RTCPeerConnection
	api.GET("/ice", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"iceServers": ice.ICEServers})
	})

	var chain []gin.HandlerFunc
	if cfg.Auth.JWTSecret != "" {
		chain = append(chain, AdmissionMiddleware(auth.NewVerifier(cfg.Auth.JWTSecret)))
	}
	chain = append(chain, func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})
	api.GET("/ws/signal", chain...)

	return r
}

// WithCORS wraps h for cross-origin REST access from the configured origins.
func WithCORS(cfg *config.Config, h http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: !slices.Contains(origins, "*"),
	}).Handler(h)
}
