package cpi

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the token-transfer collaborator wrapped in a circuit
// breaker. NewTransferer defaults to NopTransferer; swap it for a real
// custody/chain client by replacing this provider at the composition
// root once one exists.
var Module = fx.Options(
	fx.Provide(NewTransferer),
)

// NewTransferer builds the breaker-wrapped TokenTransferer used by
// internal/processor's Deposit/Withdraw handlers.
func NewTransferer(logger *zap.Logger) TokenTransferer {
	return NewBreakerTransferer(NopTransferer{}, logger)
}
