package audit

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// TraderHistory is one row of a trader's ledger history, read through
// sqlx rather than gorm: this is a plain reporting query, not a model
// mutation, and sqlx's struct-scan is the lighter tool for it (mirrors
// the teacher's own internal/db.ConnectionPool, which wraps *sqlx.DB
// for exactly this read-path role alongside gorm's write-path role).
type TraderHistory struct {
	Kind           string `db:"kind"`
	CorrelationID  string `db:"correlation_id"`
	SequenceNumber uint64 `db:"sequence_number"`
	IsBid          bool   `db:"is_bid"`
	BaseTraded     uint64 `db:"base_traded"`
	QuoteTraded    uint64 `db:"quote_traded"`
}

// HistoryReader answers read-only ledger queries over a *sqlx.DB
// sharing the same underlying postgres connection gorm opened.
type HistoryReader struct {
	db *sqlx.DB
}

// NewHistoryReader wraps an *sqlx.DB.
func NewHistoryReader(db *sqlx.DB) *HistoryReader {
	return &HistoryReader{db: db}
}

// ForTrader returns the most recent ledger rows for one trader on one
// market, newest first.
func (r *HistoryReader) ForTrader(ctx context.Context, marketName, trader string, limit int) ([]TraderHistory, error) {
	var rows []TraderHistory
	err := r.db.SelectContext(ctx, &rows,
		`SELECT kind, correlation_id, sequence_number, is_bid, base_traded, quote_traded
		 FROM trade_records
		 WHERE market = $1 AND trader = $2
		 ORDER BY occurred_at DESC
		 LIMIT $3`,
		marketName, trader, limit,
	)
	return rows, err
}
