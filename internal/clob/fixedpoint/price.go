// Package fixedpoint implements the exact quote-per-base price used
// throughout the CLOB core. A price is an unsigned fixed-point number
// with scale D18 = 10^18, stored as an unsigned 128-bit numerator so
// that base*price never needs more than 128 bits before it is divided
// back down to atoms (u64*D18 < 2^128). Float substitutes are
// unacceptable here because the red-black tree sort key depends on
// exact equality and ordering.
//
// The 128-bit arithmetic is emulated on top of
// github.com/holiman/uint256, the same fixed-width integer type the
// erigon/go-ethereum EVM word type is built from, which ships
// overflow-aware multiply/divide primitives this package would
// otherwise have to hand-roll with math/bits carries.
package fixedpoint

import (
	"github.com/holiman/uint256"

	"github.com/abdoElHodaky/tradSys/internal/clob/clobserr"
)

// D18 is the fixed scale of a Price's numerator.
const D18 = 1_000_000_000_000_000_000

// MinExponent and MaxExponent bound the exponent accepted by FromParts,
// inclusive on both ends, matching the wire format's (mantissa,
// exponent) encoding.
const (
	MinExponent = -18
	MaxExponent = 8
)

var (
	d18     = uint256.NewInt(D18)
	two128  = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	maxU64  = uint256.NewInt(^uint64(0))
	one     = uint256.NewInt(1)
	pow10tb = buildPow10Table()
)

func buildPow10Table() []*uint256.Int {
	// exponent+18 ranges over [0, 26]; precompute 10^n for n in that
	// range once rather than re-deriving it on every FromParts call.
	tbl := make([]*uint256.Int, MaxExponent-MinExponent+1)
	ten := uint256.NewInt(10)
	cur := uint256.NewInt(1)
	for n := 0; n < len(tbl); n++ {
		tbl[n] = new(uint256.Int).Set(cur)
		cur = new(uint256.Int).Mul(cur, ten)
	}
	return tbl
}

// Price is the numerator of a quote-per-base ratio at scale D18.
type Price struct {
	inner uint256.Int
}

// Zero is the price whose numerator is zero; used only for sizing
// probes (see BaseForQuote).
var Zero = Price{}

// FromParts constructs price = mantissa * 10^(exponent+18). exponent
// must be in [MinExponent, MaxExponent] inclusive.
func FromParts(mantissa uint32, exponent int8) (Price, error) {
	if exponent < MinExponent || exponent > MaxExponent {
		return Price{}, clobserr.Newf(clobserr.ErrPriceConversion,
			"exponent %d out of range [%d, %d]", exponent, MinExponent, MaxExponent).
			WithDetail("exponent", exponent)
	}
	idx := int(exponent) - MinExponent
	inner := new(uint256.Int).Mul(uint256.NewInt(uint64(mantissa)), pow10tb[idx])
	return Price{inner: *inner}, nil
}

// FromAtoms reconstructs the exact price implied by quoteAtoms spent
// on baseAtoms, floor-divided. It is used to derive the red-black tree
// sort key (effective price) from a rounded quote amount, not to parse
// a client-supplied (mantissa, exponent) pair.
func FromAtoms(quoteAtoms, baseAtoms uint64) Price {
	if baseAtoms == 0 {
		return Zero
	}
	num := new(uint256.Int).Mul(uint256.NewInt(quoteAtoms), d18)
	inner := new(uint256.Int).Div(num, uint256.NewInt(baseAtoms))
	return Price{inner: *inner}
}

// IsZero reports whether the price's numerator is zero.
func (p Price) IsZero() bool { return p.inner.IsZero() }

// Cmp orders two prices: negative if p < q, zero if equal, positive if
// p > q.
func (p Price) Cmp(q Price) int {
	if p.inner.Lt(&q.inner) {
		return -1
	}
	if p.inner.Gt(&q.inner) {
		return 1
	}
	return 0
}

// Less reports p < q.
func (p Price) Less(q Price) bool { return p.inner.Lt(&q.inner) }

// LessOrEqual reports p <= q.
func (p Price) LessOrEqual(q Price) bool { return !p.inner.Gt(&q.inner) }

// GreaterOrEqual reports p >= q.
func (p Price) GreaterOrEqual(q Price) bool { return !p.inner.Lt(&q.inner) }

// NextTick returns the smallest representable price strictly greater
// than p, used by PostOnlySlide to clamp one tick beyond the best
// opposite price.
func (p Price) NextTick() Price {
	inner := new(uint256.Int).Add(&p.inner, one)
	return Price{inner: *inner}
}

// PrevTick returns the largest representable price strictly less than
// p, or Zero if p is already Zero.
func (p Price) PrevTick() Price {
	if p.IsZero() {
		return Zero
	}
	inner := new(uint256.Int).Sub(&p.inner, one)
	return Price{inner: *inner}
}

// Bytes16 serializes the numerator as 16 big-endian bytes for the
// on-disk RestingOrder payload.
func (p Price) Bytes16() [16]byte {
	full := p.inner.Bytes32()
	var out [16]byte
	copy(out[:], full[16:32])
	return out
}

// FromBytes16 deserializes a price numerator from 16 big-endian bytes.
func FromBytes16(b [16]byte) Price {
	var full [32]byte
	copy(full[16:32], b[:])
	var inner uint256.Int
	inner.SetBytes(full[:])
	return Price{inner: inner}
}

// QuoteForBase computes quote = base * price, rounded up or down per
// roundUp. Fails Overflow if the pre-divide product would not fit in
// 128 bits, or if the rounded result exceeds u64::MAX.
func QuoteForBase(base uint64, price Price, roundUp bool) (uint64, error) {
	product := new(uint256.Int).Mul(uint256.NewInt(base), &price.inner)
	if !product.Lt(two128) {
		return 0, clobserr.New(clobserr.ErrOverflow, "base*price exceeds 128 bits").
			WithDetail("base", base)
	}
	return divRound(product, d18, roundUp)
}

// BaseForQuote computes base = quote / price, rounded up or down per
// roundUp. If price is Zero, returns 0 (used only for sizing probes,
// never for settling real atoms). Fails Overflow if the rounded result
// exceeds u64::MAX.
func BaseForQuote(quote uint64, price Price, roundUp bool) (uint64, error) {
	if price.IsZero() {
		return 0, nil
	}
	num := new(uint256.Int).Mul(uint256.NewInt(quote), d18)
	return divRound(num, &price.inner, roundUp)
}

// EffectivePrice is the worst-case realized price after rounding in
// the maker's favor: price(quoteForBase(numBase, !isBid), numBase).
// Resting orders are sorted by this, not by the raw requested price,
// so that a later order at the same nominal price with looser
// rounding never sorts ahead of an earlier one.
func EffectivePrice(price Price, numBase uint64, isBid bool) (Price, error) {
	quoteAtoms, err := QuoteForBase(numBase, price, !isBid)
	if err != nil {
		return Price{}, err
	}
	return FromAtoms(quoteAtoms, numBase), nil
}

func divRound(num *uint256.Int, den *uint256.Int, roundUp bool) (uint64, error) {
	quotient := new(uint256.Int).Div(num, den)
	if roundUp {
		remainder := new(uint256.Int).Mod(num, den)
		if !remainder.IsZero() {
			quotient.Add(quotient, one)
		}
	}
	if quotient.Gt(maxU64) {
		return 0, clobserr.New(clobserr.ErrOverflow, "fixed-point result exceeds u64::MAX")
	}
	return quotient.Uint64(), nil
}
