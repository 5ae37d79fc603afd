// Package globalpool implements the cross-market deposit pool that
// backs the Global order type. The real pool lives outside this
// program (a separate cross-market accounting collaborator); this
// package provides the GlobalPool contract the matching engine depends
// on plus a minimal in-memory reference implementation used by tests
// and by single-process deployments that don't need cross-market
// sharing.
package globalpool

import (
	"sync"

	"github.com/abdoElHodaky/tradSys/internal/clob/market"
)

// GlobalPool is the opaque collaborator a Global resting order checks
// against at match time. TryMove attempts to reserve atoms against the
// trader's pool balance, returning false (and reserving nothing) if
// the balance is insufficient; Remove forgets a trader entirely.
// Neither boundary.Cancel nor boundary.ReleaseSeat calls Remove.
type GlobalPool interface {
	TryMove(trader market.TraderID, atoms uint64) bool
	Remove(trader market.TraderID)
	AddTrader(trader market.TraderID)
}

// InMemory is a reference GlobalPool backed by a map, guarded by a
// mutex so that, unlike the single-threaded core, it is safe to share
// between goroutines.
type InMemory struct {
	mu      sync.Mutex
	balance map[market.TraderID]uint64
}

// NewInMemory creates an empty pool.
func NewInMemory() *InMemory {
	return &InMemory{balance: make(map[market.TraderID]uint64)}
}

// AddTrader registers a trader with a zero balance if not already
// present, without disturbing an existing balance.
func (p *InMemory) AddTrader(trader market.TraderID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.balance[trader]; !ok {
		p.balance[trader] = 0
	}
}

// Deposit credits atoms to trader's pool balance. Not part of the
// GlobalPool interface the core depends on; exposed for test setup and
// for the external deposit collaborator to call.
func (p *InMemory) Deposit(trader market.TraderID, atoms uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balance[trader] += atoms
}

// TryMove reserves atoms from trader's balance if available.
func (p *InMemory) TryMove(trader market.TraderID, atoms uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	bal, ok := p.balance[trader]
	if !ok || bal < atoms {
		return false
	}
	p.balance[trader] = bal - atoms
	return true
}

// Remove forgets a trader's pool balance entirely.
func (p *InMemory) Remove(trader market.TraderID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.balance, trader)
}
