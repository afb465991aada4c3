package types

import "fmt"

type ABTag = uint64
type ABVersion uint64

type Versioned interface {
	GetVersion() ABVersion
}

// CBOR tags of the ledger records, values which may be stored or sent over
// the wire are tagged so that the decoder can check what it got.
const (
	_ = iota + ABTag(1000)
	CallOrderTag
	OutcomeTag
	ReceiverCallFailedTag
	StoreSnapshotTag
)

func ErrInvalidVersion(v Versioned) error {
	return fmt.Errorf("invalid version (type %T), expected 1, got %d", v, v.GetVersion())
}

func EnsureVersion(data Versioned, actual, expected ABVersion) error {
	if actual != expected {
		return fmt.Errorf("invalid version (type %T), expected %d, got %d", data, expected, actual)
	}
	return nil
}
