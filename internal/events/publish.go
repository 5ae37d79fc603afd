package events

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/engine"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
)

// OrderPlaced is published once per successful AddOrder call, carrying
// enough of the result for a downstream consumer (UI, audit log,
// market-data fanout) to reconstruct what happened without reaching
// back into the market buffer.
type OrderPlaced struct {
	Market         string    `json:"market"`
	Trader         string    `json:"trader"`
	CorrelationID  string    `json:"correlation_id"`
	SequenceNumber uint64    `json:"sequence_number"`
	IsBid          bool      `json:"is_bid"`
	BaseTraded     uint64    `json:"base_traded"`
	QuoteTraded    uint64    `json:"quote_traded"`
	Resting        bool      `json:"resting"`
	Timestamp      time.Time `json:"timestamp"`
}

// OrderCancelled is published once per successful Cancel call.
type OrderCancelled struct {
	Market        string    `json:"market"`
	Trader        string    `json:"trader"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

// PublishOrderPlaced marshals and publishes an OrderPlaced event for an
// AddOrder result. now is passed in rather than read from time.Now so
// the caller controls timestamping (and so this stays trivially
// testable without wall-clock dependence).
func PublishOrderPlaced(pub message.Publisher, marketName, correlationID string, trader market.TraderID, isBid bool, result engine.AddOrderResult, now time.Time) error {
	evt := OrderPlaced{
		Market:         marketName,
		Trader:         traderString(trader),
		CorrelationID:  correlationID,
		SequenceNumber: result.SequenceNumber,
		IsBid:          isBid,
		BaseTraded:     result.BaseTraded,
		QuoteTraded:    result.QuoteTraded,
		Resting:        result.RestingIndex != block.Nil,
		Timestamp:      now,
	}
	return publishJSON(pub, TopicTrades, evt)
}

// PublishOrderCancelled marshals and publishes an OrderCancelled event.
func PublishOrderCancelled(pub message.Publisher, marketName, correlationID string, trader market.TraderID, now time.Time) error {
	evt := OrderCancelled{Market: marketName, Trader: traderString(trader), CorrelationID: correlationID, Timestamp: now}
	return publishJSON(pub, TopicCancels, evt)
}

func publishJSON(pub message.Publisher, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	return pub.Publish(topic, msg)
}

func traderString(t market.TraderID) string {
	return hex.EncodeToString(t[:])
}
