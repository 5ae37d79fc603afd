// Package clobpb holds the wire types for the grpc instruction-submission
// and trade-streaming service described in clob.proto. It follows the
// same plain-struct, no-codegen shape as proto/marketdata and proto/ws:
// the teacher repo never checked in a protoc-gen-go pipeline for its own
// proto/ packages, so these types are read/written with internal/grpc's
// JSON codec instead of being unmarshalled as real protobuf messages.
package clobpb

// PlaceOrderRequest submits an AddOrder instruction.
type PlaceOrderRequest struct {
	ProtocolVersion string `json:"protocol_version"`
	TraderSeatIndex uint32 `json:"trader_seat_index"`
	NumBaseAtoms    uint64 `json:"num_base_atoms"`
	PriceMantissa   uint32 `json:"price_mantissa"`
	PriceExponent   int32  `json:"price_exponent"`
	IsBid           bool   `json:"is_bid"`
	LastValidSlot   uint32 `json:"last_valid_slot"`
	OrderType       uint32 `json:"order_type"`
	CurrentSlot     uint32 `json:"current_slot"`
}

// PlaceOrderResponse reports the outcome of a PlaceOrderRequest.
type PlaceOrderResponse struct {
	CorrelationID  string `json:"correlation_id"`
	SequenceNumber uint64 `json:"sequence_number"`
	BaseTraded     uint64 `json:"base_traded"`
	QuoteTraded    uint64 `json:"quote_traded"`
	Resting        bool   `json:"resting"`
}

// CancelRequest submits a Cancel instruction.
type CancelRequest struct {
	ProtocolVersion string `json:"protocol_version"`
	TraderSeatIndex uint32 `json:"trader_seat_index"`
	OrderIndexHint  uint32 `json:"order_index_hint"`
}

// CancelResponse reports the outcome of a CancelRequest.
type CancelResponse struct {
	CorrelationID string `json:"correlation_id"`
}

// BookDepthRequest has no fields; BookDepth reads the one market this
// service instance owns.
type BookDepthRequest struct{}

// BookDepthResponse reports the current resting-order counts.
type BookDepthResponse struct {
	Bids int32 `json:"bids"`
	Asks int32 `json:"asks"`
}

// StreamTradesRequest has no fields; StreamTrades streams every trade
// for the one market this service instance owns.
type StreamTradesRequest struct{}

// TradeEvent mirrors events.OrderPlaced, reshaped for the grpc stream.
type TradeEvent struct {
	Market         string `json:"market"`
	Trader         string `json:"trader"`
	SequenceNumber uint64 `json:"sequence_number"`
	IsBid          bool   `json:"is_bid"`
	BaseTraded     uint64 `json:"base_traded"`
	QuoteTraded    uint64 `json:"quote_traded"`
	UnixNano       int64  `json:"unix_nano"`
}
