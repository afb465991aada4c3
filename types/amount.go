package types

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/alphabill-org/alphabill-nft/cbor"
)

var (
	oneNEAR = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(24))
)

/*
Amount is a token balance or deposit in the smallest denomination (yocto),
ie 10^-24 of the native token. Amounts are immutable values, arithmetic
methods return new value.
*/
type Amount struct {
	v uint256.Int
}

func NewAmount(yocto uint64) Amount {
	var a Amount
	a.v.SetUint64(yocto)
	return a
}

// NEAR returns amount of n whole native tokens.
func NEAR(n uint64) Amount {
	var a Amount
	a.v.Mul(uint256.NewInt(n), oneNEAR)
	return a
}

// ParseAmount parses decimal yocto amount.
func ParseAmount(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return Amount{v: *v}, nil
}

func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

func (a Amount) Add(b Amount) (Amount, bool) {
	var r Amount
	_, overflow := r.v.AddOverflow(&a.v, &b.v)
	return r, !overflow
}

func (a Amount) Sub(b Amount) (Amount, bool) {
	var r Amount
	_, underflow := r.v.SubOverflow(&a.v, &b.v)
	return r, !underflow
}

func (a Amount) MulUint64(n uint64) (Amount, bool) {
	var r Amount
	_, overflow := r.v.MulOverflow(&a.v, uint256.NewInt(n))
	return r, !overflow
}

func (a Amount) String() string {
	return a.v.Dec()
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

func (a *Amount) UnmarshalText(src []byte) error {
	v, err := ParseAmount(string(src))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalCBOR encodes amount as big-endian byte string without leading zeroes.
func (a Amount) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(a.v.Bytes())
}

func (a *Amount) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return fmt.Errorf("decoding amount: %w", err)
	}
	if len(buf) > 32 {
		return fmt.Errorf("amount is %d bytes, max 32 allowed", len(buf))
	}
	a.v.SetBytes(buf)
	return nil
}
