// Command clobd runs one CLOB market as a standalone service: a REST
// and WebSocket gateway in front of the matching engine, publishing
// trade/cancel events to NATS and exposing Prometheus metrics.
package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/api"
	"github.com/abdoElHodaky/tradSys/internal/api/ws"
	"github.com/abdoElHodaky/tradSys/internal/audit"
	"github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/cpi"
	"github.com/abdoElHodaky/tradSys/internal/events"
	clobgrpc "github.com/abdoElHodaky/tradSys/internal/grpc"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/processor"
	"github.com/abdoElHodaky/tradSys/internal/snapshot"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		panic(err)
	}

	logger, err := config.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	app := fx.New(
		fx.Supply(cfg),
		fx.Supply(logger),
		metrics.Module,
		events.Module,
		cpi.Module,
		processor.Module,
		api.Module,
		ws.Module,
		clobgrpc.Module,
		audit.Module,
		snapshot.Module,
		fx.Invoke(func(*processor.Processor) {
			logger.Info("clobd started")
		}),
	)

	app.Run()
}
