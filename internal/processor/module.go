package processor

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/abdoElHodaky/tradSys/internal/clob/market"
	"github.com/abdoElHodaky/tradSys/internal/config"
	"github.com/abdoElHodaky/tradSys/internal/cpi"
	"github.com/abdoElHodaky/tradSys/internal/globalpool"
	"github.com/abdoElHodaky/tradSys/internal/metrics"
	"github.com/abdoElHodaky/tradSys/internal/validation"
)

// Module wires the market, global pool, validator and Processor into
// the fx graph. The market itself is provided here rather than in
// internal/clob/market because constructing one requires the
// deployment's configured mint/vault/decimals, which is an ambient
// concern, not a core one.
var Module = fx.Options(
	fx.Provide(validation.NewValidator),
	fx.Provide(NewMarket),
	fx.Provide(NewGlobalPool),
	fx.Provide(newProcessorParams),
	fx.Provide(New),
)

// NewMarket builds the single market this clobd instance serves from
// its configuration.
func NewMarket(cfg *config.Config) (*market.Market, error) {
	var baseMint, quoteMint market.MintID
	var baseVault, quoteVault market.VaultID
	copy(baseMint[:], cfg.Market.BaseMint)
	copy(quoteMint[:], cfg.Market.QuoteMint)
	copy(baseVault[:], cfg.Market.BaseVault)
	copy(quoteVault[:], cfg.Market.QuoteVault)

	header, err := market.NewHeader(
		baseMint, 0,
		quoteMint, 0,
		baseVault, 0,
		quoteVault, 0,
		cfg.Market.BaseDecimals, cfg.Market.QuoteDecimals,
	)
	if err != nil {
		return nil, err
	}
	return market.New(header), nil
}

// NewGlobalPool provides the in-memory GlobalPool reference
// implementation. A deployment backed by a real cross-market
// collaborator supplies its own globalpool.GlobalPool and omits this
// provider from the graph.
func NewGlobalPool() globalpool.GlobalPool {
	return globalpool.NewInMemory()
}

// newProcessorParams adapts the individually-provided dependencies into the
// Params struct New expects, since fx.Provide(New) needs New's own
// argument shape rather than the aggregate Params value.
func newProcessorParams(
	m *market.Market,
	pool globalpool.GlobalPool,
	cfg *config.Config,
	v *validation.Validator,
	mx *metrics.ClobMetrics,
	pub message.Publisher,
	transfer cpi.TokenTransferer,
	logger *zap.Logger,
) Params {
	return Params{
		Market:     m,
		Pool:       pool,
		MarketName: marketName(cfg),
		Validator:  v,
		Metrics:    mx,
		Publisher:  pub,
		Transfer:   transfer,
		Logger:     logger,
	}
}

func marketName(cfg *config.Config) string {
	if cfg.Market.BaseMint == "" || cfg.Market.QuoteMint == "" {
		return "default"
	}
	return cfg.Market.BaseMint + "/" + cfg.Market.QuoteMint
}
