// Package market composes the arena and the three red-black trees
// (bids, asks, seats) into the persistent state of one trading pair,
// together with the fixed 512-byte header the spec freezes the layout
// of. Nothing in this package performs I/O; callers hand it a loaded
// byte buffer and get one back to persist.
package market

import (
	"encoding/binary"

	"github.com/abdoElHodaky/tradSys/internal/clob/block"
	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
)

// HeaderSize is the fixed size of the market header, matching
// block.HeaderSize.
const HeaderSize = block.HeaderSize

// Discriminant is the frozen tag every valid market account must carry
// at byte offset 0.
const Discriminant uint64 = 4859840929024028656

// MintID and VaultID are opaque 32-byte on-chain-style identifiers.
// The core never interprets their contents: it stores them in the
// header, and NewHeader rejects a base mint equal to the quote mint.
// The core does not derive vault addresses and does not validate a
// caller-supplied vault against the stored VaultIDs.
type MintID [32]byte
type VaultID [32]byte

// Header is the fixed-size prologue of a market account.
type Header struct {
	Discriminant uint64

	BaseMint      MintID
	BaseMintBump  uint8
	QuoteMint     MintID
	QuoteMintBump uint8

	BaseVault      VaultID
	BaseVaultBump  uint8
	QuoteVault     VaultID
	QuoteVaultBump uint8

	BaseDecimals  uint8
	QuoteDecimals uint8

	BidsRoot block.Index
	BidsMax  block.Index
	AsksRoot block.Index
	AsksMax  block.Index
	SeatsRoot block.Index

	FreeListHead       block.Index
	NextUnallocated    uint32
	OrderSequenceNumber uint64
	QuoteVolume         uint64

	WithdrawableBaseAtoms  uint64
	WithdrawableQuoteAtoms uint64
	OrderbookBaseAtoms     uint64
	OrderbookQuoteAtoms    uint64
}

// NewHeader builds a freshly-created, empty market header.
func NewHeader(baseMint MintID, baseMintBump uint8, quoteMint MintID, quoteMintBump uint8,
	baseVault VaultID, baseVaultBump uint8, quoteVault VaultID, quoteVaultBump uint8,
	baseDecimals, quoteDecimals uint8) (*Header, error) {
	if baseMint == quoteMint {
		return nil, clobserr.New(clobserr.ErrInvalidMarketParameters, "base and quote mint must differ")
	}
	return &Header{
		Discriminant:   Discriminant,
		BaseMint:       baseMint,
		BaseMintBump:   baseMintBump,
		QuoteMint:      quoteMint,
		QuoteMintBump:  quoteMintBump,
		BaseVault:      baseVault,
		BaseVaultBump:  baseVaultBump,
		QuoteVault:     quoteVault,
		QuoteVaultBump: quoteVaultBump,
		BaseDecimals:   baseDecimals,
		QuoteDecimals:  quoteDecimals,
		BidsRoot:       block.Nil,
		BidsMax:        block.Nil,
		AsksRoot:       block.Nil,
		AsksMax:        block.Nil,
		SeatsRoot:      block.Nil,
		FreeListHead:   block.Nil,
	}, nil
}

// DecodeHeader parses a HeaderSize-byte buffer into a Header, failing
// if the discriminant does not match.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, clobserr.New(clobserr.ErrInvalidAccountData, "buffer shorter than header size").
			WithDetail("len", len(buf))
	}
	h := &Header{}
	h.Discriminant = binary.LittleEndian.Uint64(buf[0:8])
	if h.Discriminant != Discriminant {
		return nil, clobserr.New(clobserr.ErrInvalidAccountData, "bad discriminant").
			WithDetail("got", h.Discriminant)
	}
	off := 8
	copy(h.BaseMint[:], buf[off:off+32])
	off += 32
	h.BaseMintBump = buf[off]
	off++
	copy(h.QuoteMint[:], buf[off:off+32])
	off += 32
	h.QuoteMintBump = buf[off]
	off++
	copy(h.BaseVault[:], buf[off:off+32])
	off += 32
	h.BaseVaultBump = buf[off]
	off++
	copy(h.QuoteVault[:], buf[off:off+32])
	off += 32
	h.QuoteVaultBump = buf[off]
	off++
	h.BaseDecimals = buf[off]
	off++
	h.QuoteDecimals = buf[off]
	off++
	h.BidsRoot = block.Index(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	h.BidsMax = block.Index(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	h.AsksRoot = block.Index(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	h.AsksMax = block.Index(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	h.SeatsRoot = block.Index(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	h.FreeListHead = block.Index(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	h.NextUnallocated = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.OrderSequenceNumber = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.QuoteVolume = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.WithdrawableBaseAtoms = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.WithdrawableQuoteAtoms = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.OrderbookBaseAtoms = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	h.OrderbookQuoteAtoms = binary.LittleEndian.Uint64(buf[off:])

	return h, nil
}

// Encode writes the header into a HeaderSize-byte buffer, zero-padding
// every byte this struct does not use.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint64(buf[0:8], h.Discriminant)
	off := 8
	copy(buf[off:off+32], h.BaseMint[:])
	off += 32
	buf[off] = h.BaseMintBump
	off++
	copy(buf[off:off+32], h.QuoteMint[:])
	off += 32
	buf[off] = h.QuoteMintBump
	off++
	copy(buf[off:off+32], h.BaseVault[:])
	off += 32
	buf[off] = h.BaseVaultBump
	off++
	copy(buf[off:off+32], h.QuoteVault[:])
	off += 32
	buf[off] = h.QuoteVaultBump
	off++
	buf[off] = h.BaseDecimals
	off++
	buf[off] = h.QuoteDecimals
	off++
	binary.LittleEndian.PutUint32(buf[off:], uint32(h.BidsRoot))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(h.BidsMax))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(h.AsksRoot))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(h.AsksMax))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(h.SeatsRoot))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(h.FreeListHead))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.NextUnallocated)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], h.OrderSequenceNumber)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.QuoteVolume)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.WithdrawableBaseAtoms)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.WithdrawableQuoteAtoms)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.OrderbookBaseAtoms)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], h.OrderbookQuoteAtoms)
	return buf
}
