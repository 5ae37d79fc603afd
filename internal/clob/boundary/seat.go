// Package boundary implements the operations at the edge of a market
// account: claiming and releasing seats, depositing and withdrawing
// balances, cancelling resting orders, and growing the account. These
// mutate seats and the free-list but never run the matching loop
// (internal/clob/engine).
package boundary

import (
	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
	"github.com/abdoElHodaky/tradSys/internal/clob/market"
)

// ClaimSeat inserts a fresh, zero-balance seat for trader, failing
// ErrAlreadyClaimedSeat if one already exists. The caller must have
// ensured m.HasFreeBlock() beforehand (§4.8 growth discipline).
func ClaimSeat(m *market.Market, trader market.TraderID) (block.Index, error) {
	existing, err := m.FindSeat(trader)
	if err != nil {
		return block.Nil, err
	}
	if existing != block.Nil {
		return block.Nil, clobserr.New(clobserr.ErrAlreadyClaimedSeat, "trader already has a seat").
			WithDetail("index", uint32(existing))
	}

	idx, err := m.Arena.Allocate()
	if err != nil {
		return block.Nil, err
	}
	if idx == block.Nil {
		return block.Nil, clobserr.New(clobserr.ErrInvalidFreeList, "no free block available to claim seat")
	}

	seat := market.Seat{TraderID: trader}
	if err := m.Seats.Insert(idx, seat); err != nil {
		return block.Nil, err
	}
	return idx, nil
}

// ReleaseSeat removes a seat, allowed only once both balances are zero
// and no resting order references it. The core never proves the
// "no resting order references it" half mechanically here: callers
// (internal/processor) must only invoke this once they know the
// trader's orders are gone, per the state machine in §4.7.
func ReleaseSeat(m *market.Market, seatIdx block.Index) error {
	if err := m.Seats.ValidateHint(seatIdx, block.PayloadSeat); err != nil {
		return err
	}
	seat, err := m.Seats.Payload(seatIdx)
	if err != nil {
		return err
	}
	if seat.BaseWithdrawableBalance != 0 || seat.QuoteWithdrawableBalance != 0 {
		return clobserr.New(clobserr.ErrInvalidMarketParameters, "seat still holds a withdrawable balance")
	}
	if err := m.Seats.Remove(seatIdx); err != nil {
		return err
	}
	return m.Arena.Free(seatIdx)
}

// Deposit credits amount to the seat's withdrawable balance on the
// requested side. The external token-transfer CPI that actually moves
// tokens into the vault is assumed to have already happened (or to
// happen immediately after, per the caller's own consistency choice;
// see §A.6).
func Deposit(m *market.Market, seatIdx block.Index, amount uint64, isBase bool) error {
	if err := m.Seats.ValidateHint(seatIdx, block.PayloadSeat); err != nil {
		return err
	}
	seat, err := m.Seats.Payload(seatIdx)
	if err != nil {
		return err
	}
	if isBase {
		seat.BaseWithdrawableBalance += amount
		m.Header.WithdrawableBaseAtoms += amount
	} else {
		seat.QuoteWithdrawableBalance += amount
		m.Header.WithdrawableQuoteAtoms += amount
	}
	return m.Seats.Update(seatIdx, seat)
}

// Withdraw checked-subtracts amount from the seat's withdrawable
// balance. The external CPI transferring vault -> trader is the
// caller's responsibility once this succeeds.
func Withdraw(m *market.Market, seatIdx block.Index, amount uint64, isBase bool) error {
	if err := m.Seats.ValidateHint(seatIdx, block.PayloadSeat); err != nil {
		return err
	}
	seat, err := m.Seats.Payload(seatIdx)
	if err != nil {
		return err
	}
	if isBase {
		if seat.BaseWithdrawableBalance < amount {
			return clobserr.New(clobserr.ErrInsufficientFunds, "withdraw exceeds base balance")
		}
		seat.BaseWithdrawableBalance -= amount
		m.Header.WithdrawableBaseAtoms -= amount
	} else {
		if seat.QuoteWithdrawableBalance < amount {
			return clobserr.New(clobserr.ErrInsufficientFunds, "withdraw exceeds quote balance")
		}
		seat.QuoteWithdrawableBalance -= amount
		m.Header.WithdrawableQuoteAtoms -= amount
	}
	return m.Seats.Update(seatIdx, seat)
}
