// SPDX-License-Identifier: AGPL-3.0-or-later
// wivrnd - WiVRn session and transport daemon

// Package httpapi is wivrnd's control-plane HTTP API: pairing
// confirmation, paired-key management, live session listing, and a
// telemetry feed, grounded on the teacher's internal/http server/router
// split and internal/http/api middleware stack.
package httpapi

import (
	"log/slog"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/wivrn-project/wivrnd/internal/config"
	"github.com/wivrn-project/wivrnd/internal/keystore"
	"github.com/wivrn-project/wivrnd/internal/pairing"
	"github.com/wivrn-project/wivrnd/internal/pubsub"
	"github.com/wivrn-project/wivrnd/internal/session"
)

const rateLimitRate = time.Second
const rateLimitLimit = 20

// Deps bundles the collaborators the control plane's handlers read
// from; held by value in each handler closure rather than threaded
// through gin.Context, matching the teacher's middleware.DatabaseProvider
// style being inlined for a single-tenant daemon with no per-request
// DB selection to make.
type Deps struct {
	Config      *config.Config
	Registry    *session.Registry
	Store       *keystore.Store
	Pairing     *pairing.Coordinator
	PubSub      pubsub.PubSub
	TypeHash    uint64
	BuildCommit string
}

// CreateRouter builds the gin engine, applying the same middleware
// stack the teacher's CreateRouter does: access logging, recovery,
// trusted proxies, CORS, cookie sessions, rate limiting, optional
// tracing and pprof.
func CreateRouter(deps Deps, log *slog.Logger) *gin.Engine {
	cfg := deps.Config
	if cfg.HTTP.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(slogLogger(log))

	if err := r.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Error("failed setting trusted proxies", "error", err)
	}

	if cfg.Metrics.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware("httpapi"))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowCredentials = true
	corsConfig.AllowOrigins = cfg.HTTP.CORSHosts
	r.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.HTTP.Secret))
	r.Use(sessions.Sessions("wivrnd_session", store))

	if cfg.HTTP.Debug {
		pprof.Register(r)
	}

	limitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  rateLimitRate,
		Limit: rateLimitLimit,
	})
	limiter := ratelimit.RateLimiter(limitStore, &ratelimit.Options{
		ErrorHandler: func(c *gin.Context, info ratelimit.Info) {
			c.String(429, "too many requests, retry after "+time.Until(info.ResetTime).String())
		},
		KeyFunc: func(c *gin.Context) string { return c.ClientIP() },
	})

	h := &handlers{deps: deps, log: log}

	v1 := r.Group("/api/v1")
	v1.Use(limiter)
	v1.GET("/status", h.getStatus)
	v1.GET("/sessions", h.getSessions)
	v1.GET("/pairing/pending", h.getPairingPending)
	v1.POST("/pairing/confirm", h.postPairingConfirm)
	v1.GET("/keys", h.getKeys)
	v1.DELETE("/keys/:id", h.deleteKey)
	v1.GET("/feed", h.getFeed)

	return r
}

func slogLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
