package globalpool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abdoElHodaky/tradSys/internal/clob/market"
	"github.com/abdoElHodaky/tradSys/internal/globalpool"
)

func trader(b byte) market.TraderID {
	var id market.TraderID
	id[0] = b
	return id
}

func TestInMemoryTryMove(t *testing.T) {
	p := globalpool.NewInMemory()
	alice := trader(1)

	assert.False(t, p.TryMove(alice, 100), "unknown trader has no balance to move")

	p.AddTrader(alice)
	assert.False(t, p.TryMove(alice, 100), "zero balance can't cover a move")

	p.Deposit(alice, 100)
	assert.True(t, p.TryMove(alice, 60))
	assert.True(t, p.TryMove(alice, 40))
	assert.False(t, p.TryMove(alice, 1), "balance is now exhausted")
}

func TestInMemoryAddTraderPreservesBalance(t *testing.T) {
	p := globalpool.NewInMemory()
	alice := trader(1)
	p.Deposit(alice, 500)
	p.AddTrader(alice)
	assert.True(t, p.TryMove(alice, 500), "re-adding an existing trader must not reset their balance")
}

func TestInMemoryRemove(t *testing.T) {
	p := globalpool.NewInMemory()
	alice := trader(1)
	p.Deposit(alice, 500)
	p.Remove(alice)
	assert.False(t, p.TryMove(alice, 1), "removed trader has no balance")
}
