// Package api exposes the CLOB core over HTTP: a gin router offering
// order placement, cancellation, seat management and read-only book
// snapshots, authenticated with internal/auth and rate limited with
// ulule/limiter.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/config"
)

// Server wraps the gin engine and its HTTP listener lifecycle.
type Server struct {
	Router *gin.Engine
	server *http.Server
	logger *zap.Logger
}

// ServerParams contains the fx-injected dependencies for NewServer.
type ServerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Config    *config.Config
}

// NewServer builds the gin engine with recovery, request logging and
// CORS middleware, and registers its listen/shutdown lifecycle hooks.
func NewServer(p ServerParams) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(p.Logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	addr := p.Config.Server.Host + ":" + strconv.Itoa(p.Config.Server.Port)
	s := &Server{
		Router: router,
		logger: p.Logger,
		server: &http.Server{Addr: addr, Handler: router},
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				p.Logger.Info("starting API server", zap.String("addr", s.server.Addr))
				if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					p.Logger.Error("API server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("stopping API server")
			return s.server.Shutdown(ctx)
		},
	})

	return s
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
