package snapshot

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/processor"
)

// Module wires a Manager over the market's Processor and runs it for
// the lifetime of the application.
var Module = fx.Options(
	fx.Invoke(runManager),
)

func runManager(lifecycle fx.Lifecycle, cfg *config.Config, proc *processor.Processor, logger *zap.Logger) {
	mgr := NewManager(Config{
		Dir:      cfg.Snapshot.Dir,
		Interval: time.Duration(cfg.Snapshot.IntervalSeconds) * time.Second,
		Retain:   cfg.Snapshot.Retain,
	}, proc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := mgr.Run(ctx); err != nil {
					logger.Error("snapshot manager stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
