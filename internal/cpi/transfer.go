// Package cpi wraps the external token-transfer collaborator a Deposit
// or Withdraw instruction hands off to once the account-side balance
// update has already committed. On-chain this hop is a cross-program
// invocation; here it's an out-of-process call (to a custody service,
// a chain RPC node, whatever actually moves the tokens), so it gets a
// circuit breaker the in-process account mutation never needed.
package cpi

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// TokenTransferer is the external collaborator: move amount atoms of
// a market's base or quote mint between the vault and a trader's
// wallet. A production deployment points this at a custody/chain
// client; tests and local runs use NopTransferer.
type TokenTransferer interface {
	Transfer(ctx context.Context, req TransferRequest) error
}

// TransferRequest describes one token movement.
type TransferRequest struct {
	Market  string
	Trader  string
	IsBase  bool
	Amount  uint64
	Inbound bool // true for Deposit (wallet -> vault), false for Withdraw (vault -> wallet)
}

// NopTransferer is a stand-in for the external collaborator: it
// reports every transfer as already settled. Matches the core's own
// stance (see internal/clob/boundary) that the CPI is assumed to have
// happened or to happen immediately after the balance update.
type NopTransferer struct{}

func (NopTransferer) Transfer(context.Context, TransferRequest) error { return nil }

// BreakerTransferer wraps a TokenTransferer with a circuit breaker so
// a flaky or down custody service fails fast instead of blocking every
// Deposit/Withdraw instruction on the one processor mutex behind it.
type BreakerTransferer struct {
	next    TokenTransferer
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewBreakerTransferer builds a BreakerTransferer over next.
func NewBreakerTransferer(next TokenTransferer, logger *zap.Logger) *BreakerTransferer {
	settings := gobreaker.Settings{
		Name:        "token-transfer-cpi",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("token-transfer circuit breaker state changed",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &BreakerTransferer{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Transfer runs req through the breaker, tripping it after a run of
// failures instead of letting every subsequent Deposit/Withdraw pile
// up behind a dead collaborator.
func (b *BreakerTransferer) Transfer(ctx context.Context, req TransferRequest) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.Transfer(ctx, req)
	})
	return err
}
