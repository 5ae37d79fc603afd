package audit

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/abdoElHodaky/tradSys/internal/config"
)

// Module provides the audit ledger: a gorm connection for writes, an
// sqlx handle sharing the same pool for reads, and the subscriber that
// drains trade/cancel events into the ledger for the application's
// lifetime.
var Module = fx.Options(
	fx.Provide(NewGormDB),
	fx.Provide(NewSqlxDB),
	fx.Provide(NewLedger),
	fx.Provide(NewHistoryReader),
	fx.Provide(NewSubscriber),
	fx.Provide(fx.Annotate(newBrokerSubscriber, fx.ResultTags(`name:"auditSubscriber"`))),
	fx.Invoke(runSubscriber),
)

// newBrokerSubscriber opens a NATS subscription of its own, in a
// distinct queue group from internal/api/ws's, so the audit ledger
// sees every trade/cancel instead of splitting delivery with the
// WebSocket fanout. Mirrors internal/events.NewSubscriber.
func newBrokerSubscriber(lifecycle fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (message.Subscriber, error) {
	wmLogger := watermill.NewStdLogger(false, false)

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:            cfg.Broker.URL,
			QueueGroup:     "clobd-audit",
			AckWaitTimeout: 0,
			Unmarshaler:    &nats.GobMarshaler{},
		},
		wmLogger,
	)
	if err != nil {
		return nil, err
	}

	lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("closing audit event subscriber")
			return subscriber.Close()
		},
	})
	return subscriber, nil
}

// NewGormDB opens the postgres connection and migrates the ledger
// table, following the teacher's internal/db.Connect shape (zap-backed
// gorm logger, lifecycle-managed close).
func NewGormDB(lifecycle fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}

	lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Info("closing audit ledger database connection")
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return db, nil
}

// NewSqlxDB wraps the *sql.DB backing gormDB in an *sqlx.DB so reads
// go through sqlx's lighter struct-scan API without opening a second
// connection pool.
func NewSqlxDB(gormDB *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(sqlDB, "postgres"), nil
}

type runSubscriberParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Subscriber *Subscriber
	Broker     message.Subscriber `name:"auditSubscriber"`
	Logger     *zap.Logger
}

func runSubscriber(p runSubscriberParams) {
	lifecycle, subscriber, sub, logger := p.Lifecycle, p.Subscriber, p.Broker, p.Logger
	ctx, cancel := context.WithCancel(context.Background())
	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := subscriber.Run(ctx, sub); err != nil {
				cancel()
				return err
			}
			logger.Info("audit ledger subscriber running")
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
