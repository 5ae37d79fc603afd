package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/config"
)

// Topic names for market events. PublishOrderPlaced writes to
// TopicTrades and PublishOrderCancelled to TopicCancels; nothing in
// this repository publishes to TopicFills.
const (
	TopicTrades  = "clob.trades"
	TopicFills   = "clob.fills"
	TopicCancels = "clob.cancels"
)

// PublisherParams contains the fx-injected dependencies for the publisher.
type PublisherParams struct {
	fx.In

	Config    *config.Config
	Logger    *zap.Logger
	Lifecycle fx.Lifecycle
}

// NewPublisher builds a watermill publisher backed by NATS, matching the
// service's one external broker dependency end to end.
func NewPublisher(p PublisherParams) (message.Publisher, error) {
	logger := watermill.NewStdLogger(false, false)

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:         p.Config.Broker.URL,
			NatsOptions: nil,
			Marshaler:   &nats.GobMarshaler{},
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("closing event publisher")
			return publisher.Close()
		},
	})

	return publisher, nil
}

// NewSubscriber builds a watermill subscriber with its own connection
// to the same NATS broker URL, used by internal/api/ws to fan events out over WebSocket.
func NewSubscriber(p PublisherParams) (message.Subscriber, error) {
	logger := watermill.NewStdLogger(false, false)

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:            p.Config.Broker.URL,
			QueueGroup:     "clobd-ws",
			AckWaitTimeout: 0,
			Unmarshaler:    &nats.GobMarshaler{},
		},
		logger,
	)
	if err != nil {
		return nil, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			p.Logger.Info("closing event subscriber")
			return subscriber.Close()
		},
	})

	return subscriber, nil
}

// Module wires the event publisher and subscriber into the fx graph.
var Module = fx.Options(
	fx.Provide(NewPublisher),
	fx.Provide(NewSubscriber),
)
