// Package processor dispatches client instructions onto the CLOB core.
// It is the only layer allowed to combine the core (internal/clob/*)
// with the ambient stack (logging, metrics, events, validation): the
// core itself stays free of all of that so it can be embedded or
// fuzzed standalone. One Processor instance owns one market and
// serializes every instruction against it, the way a single on-chain
// program instance processes its account one instruction at a time.
package processor

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/boundary"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/engine"
	"github.com/abdoElHodaky/tradSys/internal/clob/fixedpoint"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
	"github.com/abdoElHodaky/tradSys/internal/cpi"
	"github.com/abdoElHodaky/tradSys/internal/events"
	"github.com/abdoElHodaky/tradSys/internal/globalpool"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/validation"
)

// MinProtocolVersion is the oldest client wire-protocol version this
// processor accepts. Raising it is a breaking deploy; instructions
// tagged with anything older are rejected before they ever reach the
// core, the same way a contract would reject a stale instruction
// discriminant.
const MinProtocolVersion = "1.0.0"

// Processor dispatches validated instructions against one market.
type Processor struct {
	mu     sync.Mutex
	market *market.Market
	pool   globalpool.GlobalPool
	name   string

	validator *validation.Validator
	metrics   *metrics.ClobMetrics
	publisher message.Publisher
	transfer  cpi.TokenTransferer
	logger    *zap.Logger

	minVersion *semver.Version
}

// Params bundles the Processor's dependencies for fx injection.
type Params struct {
	Market     *market.Market
	Pool       globalpool.GlobalPool
	MarketName string
	Validator  *validation.Validator
	Metrics    *metrics.ClobMetrics
	Publisher  message.Publisher
	Transfer   cpi.TokenTransferer
	Logger     *zap.Logger
}

// New builds a Processor. Pool may be nil if the market never sees
// Global orders.
func New(p Params) (*Processor, error) {
	minVer, err := semver.NewVersion(MinProtocolVersion)
	if err != nil {
		return nil, err
	}
	return &Processor{
		market:     p.Market,
		pool:       p.Pool,
		name:       p.MarketName,
		validator:  p.Validator,
		metrics:    p.Metrics,
		publisher:  p.Publisher,
		transfer:   p.Transfer,
		logger:     p.Logger,
		minVersion: minVer,
	}, nil
}

// PlaceOrderRequest is the validated shape of an AddOrder instruction
// arriving over the wire (grpc, REST, or ws).
type PlaceOrderRequest struct {
	ProtocolVersion string `json:"protocol_version" validate:"required"`
	TraderSeatIndex uint32 `json:"trader_seat_index"`
	NumBaseAtoms    uint64 `json:"num_base_atoms" validate:"atoms"`
	PriceMantissa   uint32 `json:"price_mantissa" validate:"atoms"`
	PriceExponent   int8   `json:"price_exponent"`
	IsBid           bool   `json:"is_bid"`
	LastValidSlot   uint32 `json:"last_valid_slot"`
	OrderType       uint8  `json:"order_type"`
	CurrentSlot     uint32 `json:"current_slot"`
}

// PlaceOrder validates and dispatches a PlaceOrderRequest. On success
// it records placement metrics and publishes an order-placed event; a
// rejection by the core records only a rejection metric, and no event
// is published for any failure. The correlation ID returned lets a caller tie a log line back
// to the specific request that produced it.
func (p *Processor) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (engine.AddOrderResult, string, error) {
	correlationID := ksuid.New().String()
	logger := p.logger.With(zap.String("correlation_id", correlationID), zap.String("market", p.name))

	if err := p.checkProtocolVersion(req.ProtocolVersion); err != nil {
		logger.Warn("rejected stale protocol version", zap.Error(err))
		return engine.AddOrderResult{}, correlationID, err
	}
	if err := p.validator.Validate(req); err != nil {
		logger.Warn("rejected invalid place-order request", zap.Error(err))
		return engine.AddOrderResult{}, correlationID, clobserr.New(clobserr.ErrInvalidMarketParameters, err.Error())
	}

	price, err := fixedpoint.FromParts(req.PriceMantissa, req.PriceExponent)
	if err != nil {
		return engine.AddOrderResult{}, correlationID, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.market.ExpandIfNeeded()
	start := time.Now()
	result, err := engine.AddOrder(p.market, p.pool, engine.AddOrderArgs{
		TraderSeatIndex: block.Index(req.TraderSeatIndex),
		NumBaseAtoms:    req.NumBaseAtoms,
		Price:           price,
		IsBid:           req.IsBid,
		LastValidSlot:   req.LastValidSlot,
		OrderType:       market.OrderType(req.OrderType),
		CurrentSlot:     req.CurrentSlot,
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		p.observeRejection(err)
		logger.Warn("order rejected", zap.Error(err))
		return engine.AddOrderResult{}, correlationID, err
	}
	p.market.ExpandIfNeeded()

	p.metrics.ObserveOrderPlaced(result.BaseTraded, result.QuoteTraded, result.BaseTraded > 0, elapsed)
	p.metrics.SetBookDepth("bids", p.market.Bids.Len())
	p.metrics.SetBookDepth("asks", p.market.Asks.Len())

	logger.Info("order placed",
		zap.Uint64("sequence_number", result.SequenceNumber),
		zap.Uint64("base_traded", result.BaseTraded),
		zap.Uint64("quote_traded", result.QuoteTraded))

	if p.publisher != nil {
		seat, seatErr := p.market.Seats.Payload(block.Index(req.TraderSeatIndex))
		if seatErr == nil {
			if pubErr := events.PublishOrderPlaced(p.publisher, p.name, correlationID, seat.TraderID, req.IsBid, result, time.Now()); pubErr != nil {
				logger.Warn("failed to publish order-placed event", zap.Error(pubErr))
			}
		}
	}

	return result, correlationID, nil
}

// CancelRequest is the validated shape of a Cancel instruction.
type CancelRequest struct {
	ProtocolVersion string `json:"protocol_version" validate:"required"`
	TraderSeatIndex uint32 `json:"trader_seat_index"`
	OrderIndexHint  uint32 `json:"order_index_hint"`
}

// Cancel validates and dispatches a CancelRequest.
func (p *Processor) Cancel(ctx context.Context, req CancelRequest) (string, error) {
	correlationID := ksuid.New().String()
	logger := p.logger.With(zap.String("correlation_id", correlationID), zap.String("market", p.name))

	if err := p.checkProtocolVersion(req.ProtocolVersion); err != nil {
		return correlationID, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seatIdx := block.Index(req.TraderSeatIndex)
	orderIdx := block.Index(req.OrderIndexHint)
	if err := boundary.Cancel(p.market, seatIdx, orderIdx); err != nil {
		p.observeRejection(err)
		logger.Warn("cancel rejected", zap.Error(err))
		return correlationID, err
	}

	p.metrics.ObserveOrderCancelled()
	logger.Info("order cancelled")

	if p.publisher != nil {
		if seat, err := p.market.Seats.Payload(seatIdx); err == nil {
			if pubErr := events.PublishOrderCancelled(p.publisher, p.name, correlationID, seat.TraderID, time.Now()); pubErr != nil {
				logger.Warn("failed to publish order-cancelled event", zap.Error(pubErr))
			}
		}
	}

	return correlationID, nil
}

// BookDepth reports the current number of resting orders on each side
// of the book.
func (p *Processor) BookDepth() (bids, asks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.market.Bids.Len(), p.market.Asks.Len()
}

// Name returns the market name this Processor owns.
func (p *Processor) Name() string {
	return p.name
}

// Snapshot returns a point-in-time copy of the market's account buffer,
// safe to compress and write out while the processor keeps serving
// instructions against the live market.
func (p *Processor) Snapshot() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.market.Bytes()
}

// ClaimSeatRequest is the validated shape of a ClaimSeat instruction.
type ClaimSeatRequest struct {
	ProtocolVersion string          `json:"protocol_version" validate:"required"`
	Trader          market.TraderID `json:"-"`
}

// ClaimSeat validates and dispatches a ClaimSeat instruction.
func (p *Processor) ClaimSeat(ctx context.Context, req ClaimSeatRequest) (block.Index, string, error) {
	correlationID := ksuid.New().String()
	logger := p.logger.With(zap.String("correlation_id", correlationID), zap.String("market", p.name))

	if err := p.checkProtocolVersion(req.ProtocolVersion); err != nil {
		return block.Nil, correlationID, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	seatIdx, err := boundary.ClaimSeat(p.market, req.Trader)
	if err != nil {
		p.observeRejection(err)
		logger.Warn("claim seat rejected", zap.Error(err))
		return block.Nil, correlationID, err
	}
	logger.Info("seat claimed", zap.Uint32("seat_index", uint32(seatIdx)))
	return seatIdx, correlationID, nil
}

// ReleaseSeatRequest is the validated shape of a ReleaseSeat instruction.
type ReleaseSeatRequest struct {
	ProtocolVersion string `json:"protocol_version" validate:"required"`
	TraderSeatIndex uint32 `json:"trader_seat_index"`
}

// ReleaseSeat validates and dispatches a ReleaseSeat instruction.
func (p *Processor) ReleaseSeat(ctx context.Context, req ReleaseSeatRequest) (string, error) {
	correlationID := ksuid.New().String()
	if err := p.checkProtocolVersion(req.ProtocolVersion); err != nil {
		return correlationID, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := boundary.ReleaseSeat(p.market, block.Index(req.TraderSeatIndex)); err != nil {
		p.observeRejection(err)
		return correlationID, err
	}
	p.logger.Info("seat released", zap.String("correlation_id", correlationID))
	return correlationID, nil
}

// DepositRequest is the validated shape of a Deposit instruction.
type DepositRequest struct {
	ProtocolVersion string `json:"protocol_version" validate:"required"`
	TraderSeatIndex uint32 `json:"trader_seat_index"`
	Amount          uint64 `json:"amount" validate:"atoms"`
	IsBase          bool   `json:"is_base"`
}

// Deposit credits a seat's withdrawable balance and, once the
// in-process mutation has committed, hands the wallet-side movement
// off to the token-transfer collaborator behind internal/cpi's circuit
// breaker. A transfer failure is logged but does not unwind the
// balance credit: the core's own consistency model (§A.6) treats the
// CPI as able to happen immediately after, not strictly before.
func (p *Processor) Deposit(ctx context.Context, req DepositRequest) (string, error) {
	correlationID := ksuid.New().String()
	logger := p.logger.With(zap.String("correlation_id", correlationID), zap.String("market", p.name))

	if err := p.checkProtocolVersion(req.ProtocolVersion); err != nil {
		return correlationID, err
	}
	if err := p.validator.Validate(req); err != nil {
		return correlationID, clobserr.New(clobserr.ErrInvalidMarketParameters, err.Error())
	}

	seatIdx := block.Index(req.TraderSeatIndex)

	p.mu.Lock()
	err := boundary.Deposit(p.market, seatIdx, req.Amount, req.IsBase)
	var trader market.TraderID
	if err == nil {
		if seat, seatErr := p.market.Seats.Payload(seatIdx); seatErr == nil {
			trader = seat.TraderID
		}
	}
	p.mu.Unlock()

	if err != nil {
		p.observeRejection(err)
		logger.Warn("deposit rejected", zap.Error(err))
		return correlationID, err
	}

	if p.transfer != nil {
		if transferErr := p.transfer.Transfer(ctx, cpi.TransferRequest{
			Market: p.name, Trader: traderHex(trader), IsBase: req.IsBase, Amount: req.Amount, Inbound: true,
		}); transferErr != nil {
			logger.Error("token-transfer collaborator failed for deposit", zap.Error(transferErr))
		}
	}
	logger.Info("deposit applied", zap.Uint64("amount", req.Amount), zap.Bool("is_base", req.IsBase))
	return correlationID, nil
}

// WithdrawRequest is the validated shape of a Withdraw instruction.
type WithdrawRequest struct {
	ProtocolVersion string `json:"protocol_version" validate:"required"`
	TraderSeatIndex uint32 `json:"trader_seat_index"`
	Amount          uint64 `json:"amount" validate:"atoms"`
	IsBase          bool   `json:"is_base"`
}

// Withdraw checked-subtracts a seat's withdrawable balance, then hands
// the wallet-side movement to the token-transfer collaborator.
func (p *Processor) Withdraw(ctx context.Context, req WithdrawRequest) (string, error) {
	correlationID := ksuid.New().String()
	logger := p.logger.With(zap.String("correlation_id", correlationID), zap.String("market", p.name))

	if err := p.checkProtocolVersion(req.ProtocolVersion); err != nil {
		return correlationID, err
	}
	if err := p.validator.Validate(req); err != nil {
		return correlationID, clobserr.New(clobserr.ErrInvalidMarketParameters, err.Error())
	}

	seatIdx := block.Index(req.TraderSeatIndex)

	p.mu.Lock()
	err := boundary.Withdraw(p.market, seatIdx, req.Amount, req.IsBase)
	var trader market.TraderID
	if err == nil {
		if seat, seatErr := p.market.Seats.Payload(seatIdx); seatErr == nil {
			trader = seat.TraderID
		}
	}
	p.mu.Unlock()

	if err != nil {
		p.observeRejection(err)
		logger.Warn("withdraw rejected", zap.Error(err))
		return correlationID, err
	}

	if p.transfer != nil {
		if transferErr := p.transfer.Transfer(ctx, cpi.TransferRequest{
			Market: p.name, Trader: traderHex(trader), IsBase: req.IsBase, Amount: req.Amount, Inbound: false,
		}); transferErr != nil {
			logger.Error("token-transfer collaborator failed for withdraw", zap.Error(transferErr))
		}
	}
	logger.Info("withdraw applied", zap.Uint64("amount", req.Amount), zap.Bool("is_base", req.IsBase))
	return correlationID, nil
}

// BatchUpdateRequest is the validated shape of a BatchUpdate
// instruction: cancels run before places, all against one trader seat.
type BatchUpdateRequest struct {
	ProtocolVersion string          `json:"protocol_version" validate:"required"`
	TraderSeatIndex uint32          `json:"trader_seat_index"`
	CurrentSlot     uint32          `json:"current_slot"`
	Cancels         []uint32        `json:"cancels"`
	Places          []PlaceOrderLeg `json:"places"`
}

// PlaceOrderLeg is one place within a BatchUpdate instruction; it omits
// the protocol-version/trader-seat fields BatchUpdateRequest already
// carries once for the whole batch.
type PlaceOrderLeg struct {
	NumBaseAtoms  uint64 `json:"num_base_atoms" validate:"atoms"`
	PriceMantissa uint32 `json:"price_mantissa" validate:"atoms"`
	PriceExponent int8   `json:"price_exponent"`
	IsBid         bool   `json:"is_bid"`
	LastValidSlot uint32 `json:"last_valid_slot"`
	OrderType     uint8  `json:"order_type"`
}

// BatchUpdate validates and dispatches a BatchUpdateRequest.
func (p *Processor) BatchUpdate(ctx context.Context, req BatchUpdateRequest) ([]engine.PlaceOutcome, string, error) {
	correlationID := ksuid.New().String()
	logger := p.logger.With(zap.String("correlation_id", correlationID), zap.String("market", p.name))

	if err := p.checkProtocolVersion(req.ProtocolVersion); err != nil {
		return nil, correlationID, err
	}

	places := make([]engine.AddOrderArgs, 0, len(req.Places))
	for _, leg := range req.Places {
		price, err := fixedpoint.FromParts(leg.PriceMantissa, leg.PriceExponent)
		if err != nil {
			return nil, correlationID, err
		}
		places = append(places, engine.AddOrderArgs{
			NumBaseAtoms:  leg.NumBaseAtoms,
			Price:         price,
			IsBid:         leg.IsBid,
			LastValidSlot: leg.LastValidSlot,
			OrderType:     market.OrderType(leg.OrderType),
			CurrentSlot:   req.CurrentSlot,
		})
	}
	cancels := make([]block.Index, 0, len(req.Cancels))
	for _, c := range req.Cancels {
		cancels = append(cancels, block.Index(c))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.market.ExpandIfNeeded()
	outcomes, err := engine.BatchUpdate(p.market, p.pool, engine.BatchUpdateArgs{
		TraderSeatIndex: block.Index(req.TraderSeatIndex),
		CurrentSlot:     req.CurrentSlot,
		Cancels:         cancels,
		Places:          places,
	})
	if err != nil {
		p.observeRejection(err)
		logger.Warn("batch update rejected", zap.Error(err))
		return nil, correlationID, err
	}
	p.market.ExpandIfNeeded()

	p.metrics.SetBookDepth("bids", p.market.Bids.Len())
	p.metrics.SetBookDepth("asks", p.market.Asks.Len())
	logger.Info("batch update applied", zap.Int("cancels", len(cancels)), zap.Int("places", len(places)))
	return outcomes, correlationID, nil
}

func (p *Processor) checkProtocolVersion(raw string) error {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return clobserr.New(clobserr.ErrInvalidMarketParameters, "malformed protocol_version").WithCause(err)
	}
	if v.LessThan(p.minVersion) {
		return clobserr.New(clobserr.ErrInvalidMarketParameters, "protocol_version too old").
			WithDetail("minimum", p.minVersion.String()).
			WithDetail("got", raw)
	}
	return nil
}

func traderHex(t market.TraderID) string {
	return hex.EncodeToString(t[:])
}

func (p *Processor) observeRejection(err error) {
	code := "UNKNOWN"
	if ce, ok := err.(*clobserr.Error); ok {
		code = string(ce.Code)
	}
	p.metrics.ObserveOrderRejected(code)
}
