package clobgrpc

import (
	"context"
	"net"
	"strconv"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"github.com/abdoElHodaky/tradSys/internal/config"
	grpcserver "github.com/abdoElHodaky/tradSys/internal/grpc/server"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Module provides the grpc server mirroring internal/api's REST surface
// plus the StreamTrades push feed.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(runServer),
)

// ServerParams contains the fx-injected dependencies for runServer.
type ServerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *zap.Logger
	Service   *Service
}

func runServer(p ServerParams) {
	options := grpcserver.DefaultServerOptions()
	options.Codec = jsonCodec{}

	srv := grpcserver.NewServer(p.Logger, options)
	srv.RegisterService(func(s *grpc.Server) {
		s.RegisterService(&ServiceDesc, p.Service)
	})

	addr := net.JoinHostPort(p.Config.GRPC.Host, strconv.Itoa(p.Config.GRPC.Port))

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.Start(context.Background(), addr); err != nil {
					p.Logger.Error("grpc server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			srv.Stop()
			return nil
		},
	})
}
