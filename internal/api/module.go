package api

import (
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/auth"
	"github.com/abdoElHodaky/tradSys/internal/config"
)

// Module provides the gin server, auth middleware and order handler,
// and mounts the order routes under /api/v1.
var Module = fx.Options(
	fx.Provide(NewJWTService),
	fx.Provide(NewAuthMiddleware),
	fx.Provide(NewServer),
	fx.Provide(NewOrderHandler),
	fx.Invoke(registerRoutes),
)

// NewJWTService builds the auth.JWTService from configuration.
func NewJWTService(cfg *config.Config) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SecretKey:     cfg.Auth.JWTSecret,
		TokenDuration: time.Duration(cfg.Auth.TokenDuration) * time.Minute,
		Issuer:        "clobd",
	})
}

// NewAuthMiddleware builds the auth.Middleware from configuration.
func NewAuthMiddleware(jwtService *auth.JWTService, logger *zap.Logger, cfg *config.Config) *auth.Middleware {
	return auth.NewMiddleware(jwtService, logger, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
}

func registerRoutes(server *Server, handler *OrderHandler) {
	v1 := server.Router.Group("/api/v1")
	handler.RegisterRoutes(v1)
}
