// Package audit writes a durable, append-only record of every trade and
// cancel a processor produces, outside the market's own account buffer.
// The account buffer only ever needs the current state (resting orders,
// balances); a deployment still wants a postgres-backed history for
// reconciliation and dispute resolution, which is what this package is
// for.
package audit

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// TradeRecord is one row in the append-only ledger, written once per
// successful PlaceOrder/Cancel instruction.
type TradeRecord struct {
	gorm.Model
	Market         string `gorm:"index"`
	Trader         string `gorm:"index"`
	CorrelationID  string `gorm:"index;uniqueIndex"`
	Kind           string `gorm:"index"` // "trade" or "cancel"
	SequenceNumber uint64
	IsBid          bool
	BaseTraded     uint64
	QuoteTraded    uint64
	OccurredAt     time.Time `gorm:"index"`
}

// Ledger appends TradeRecords to postgres.
type Ledger struct {
	db *gorm.DB
}

// NewLedger wraps an already-migrated *gorm.DB.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Migrate creates or updates the ledger table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&TradeRecord{})
}

// Append inserts one TradeRecord. CorrelationID is unique so a
// subscriber redelivery (watermill's at-least-once NATS delivery)
// doesn't double-write the same instruction's record.
func (l *Ledger) Append(ctx context.Context, rec TradeRecord) error {
	result := l.db.WithContext(ctx).
		Where(TradeRecord{CorrelationID: rec.CorrelationID}).
		FirstOrCreate(&rec)
	return result.Error
}
