/*
Package cbor provides CBOR encoding/decoding functions.

It's a thin wrapper for github.com/fxamacker/cbor/v2, the reason for
having it is to make sure contract arguments, return values and ledger
records are encoded with the same (deterministic) options everywhere.
*/
package cbor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fxamacker/cbor/v2"
)

type (
	Tag = uint64

	// RawCBOR is already encoded CBOR data item, ie contract call arguments
	// or the value returned by a contract method.
	RawCBOR []byte
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	cborNil = []byte{0xf6}
)

func init() {
	// building the modes from options provided by the library fails only
	// when the options are invalid, ie programming error
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(fmt.Errorf("initializing CBOR encoder mode: %w", err))
	}
	if decMode, err = (cbor.DecOptions{MaxNestedLevels: 64}).DecMode(); err != nil {
		panic(fmt.Errorf("initializing CBOR decoder mode: %w", err))
	}
}

/*
Marshal encodes v using Core Deterministic Encoding.
See <https://www.rfc-editor.org/rfc/rfc8949.html#name-deterministically-encoded-c>.
*/
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

func MarshalTaggedValue(tag Tag, v any) ([]byte, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	return Marshal(cbor.RawTag{
		Number:  tag,
		Content: data,
	})
}

func UnmarshalTaggedValue(tag Tag, data []byte, v any) error {
	var raw cbor.RawTag
	if err := Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Number != tag {
		return fmt.Errorf("unexpected tag: %d, expected: %d", raw.Number, tag)
	}
	return Unmarshal(raw.Content, v)
}

/*
HasTag returns true when data is a tagged CBOR item with given tag number.
Malformed or untagged data returns false.
*/
func HasTag(data []byte, tag Tag) bool {
	var raw cbor.RawTag
	if err := Unmarshal(data, &raw); err != nil {
		return false
	}
	return raw.Number == tag
}

// EncMode returns the shared encoder mode, for packages which need
// a streaming encoder (ie hashing).
func EncMode() cbor.EncMode {
	return encMode
}

// MarshalCBOR returns r or CBOR nil if r is empty.
func (r RawCBOR) MarshalCBOR() ([]byte, error) {
	if len(r) == 0 {
		return cborNil, nil
	}
	return r, nil
}

// UnmarshalCBOR copies data into r unless it's CBOR "nil marker" - in that
// case r is set to empty slice.
func (r *RawCBOR) UnmarshalCBOR(data []byte) error {
	if r == nil {
		return errors.New("UnmarshalCBOR on nil pointer")
	}
	if bytes.Equal(data, cborNil) {
		*r = (*r)[0:0]
	} else {
		*r = append((*r)[0:0], data...)
	}
	return nil
}

// IsNil returns true when r is empty or encodes CBOR null.
func (r RawCBOR) IsNil() bool {
	return len(r) == 0 || bytes.Equal(r, cborNil)
}

func (r RawCBOR) MarshalText() ([]byte, error) {
	return []byte(hexutil.Encode(r)), nil
}

func (r *RawCBOR) UnmarshalText(src []byte) error {
	res, err := hexutil.Decode(string(src))
	if err == nil {
		*r = res
	}
	return err
}

// Null returns encoded CBOR null, the value of a method which returns nothing.
func Null() RawCBOR {
	return bytes.Clone(cborNil)
}
