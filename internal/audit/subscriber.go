package audit

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/events"
)

// Subscriber drains the trade/cancel topics into the Ledger. It runs
// for the lifetime of the application, the same shape as
// internal/api/ws.Hub.consume, so a slow postgres write never blocks
// the processor's own publish call.
type Subscriber struct {
	ledger *Ledger
	logger *zap.Logger
}

// NewSubscriber builds a Subscriber over an already-migrated Ledger.
func NewSubscriber(ledger *Ledger, logger *zap.Logger) *Subscriber {
	return &Subscriber{ledger: ledger, logger: logger}
}

// Run subscribes to TopicTrades and TopicCancels until ctx is done.
func (s *Subscriber) Run(ctx context.Context, sub message.Subscriber) error {
	trades, err := sub.Subscribe(ctx, events.TopicTrades)
	if err != nil {
		return err
	}
	cancels, err := sub.Subscribe(ctx, events.TopicCancels)
	if err != nil {
		return err
	}
	go s.consumeTrades(trades)
	go s.consumeCancels(cancels)
	return nil
}

func (s *Subscriber) consumeTrades(messages <-chan *message.Message) {
	for msg := range messages {
		var placed events.OrderPlaced
		if err := json.Unmarshal(msg.Payload, &placed); err != nil {
			s.logger.Warn("audit: failed to decode trade event", zap.Error(err))
			msg.Nack()
			continue
		}
		rec := TradeRecord{
			Market:         placed.Market,
			Trader:         placed.Trader,
			CorrelationID:  placed.CorrelationID,
			Kind:           "trade",
			SequenceNumber: placed.SequenceNumber,
			IsBid:          placed.IsBid,
			BaseTraded:     placed.BaseTraded,
			QuoteTraded:    placed.QuoteTraded,
			OccurredAt:     placed.Timestamp,
		}
		if err := s.ledger.Append(context.Background(), rec); err != nil {
			s.logger.Error("audit: failed to append trade record", zap.Error(err))
			msg.Nack()
			continue
		}
		msg.Ack()
	}
}

func (s *Subscriber) consumeCancels(messages <-chan *message.Message) {
	for msg := range messages {
		var cancelled events.OrderCancelled
		if err := json.Unmarshal(msg.Payload, &cancelled); err != nil {
			s.logger.Warn("audit: failed to decode cancel event", zap.Error(err))
			msg.Nack()
			continue
		}
		rec := TradeRecord{
			Market:        cancelled.Market,
			Trader:        cancelled.Trader,
			CorrelationID: cancelled.CorrelationID,
			Kind:          "cancel",
			OccurredAt:    cancelled.Timestamp,
		}
		if err := s.ledger.Append(context.Background(), rec); err != nil {
			s.logger.Error("audit: failed to append cancel record", zap.Error(err))
			msg.Nack()
			continue
		}
		msg.Ack()
	}
}
