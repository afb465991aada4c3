package types

import (
	"errors"
	"fmt"
)

const (
	MinAccountIDLen = 2
	MaxAccountIDLen = 64
)

var ErrInvalidAccountID = errors.New("invalid account ID")

/*
AccountID identifies an account on the ledger, both user accounts and
accounts with a contract deployed. Valid ID consists of lower case
alphanumeric characters separated by single '.', '-' or '_'.
*/
type AccountID string

func (id AccountID) String() string {
	return string(id)
}

// Len returns the number of bytes the ID takes when stored.
func (id AccountID) Len() uint64 {
	return uint64(len(id))
}

func (id AccountID) Validate() error {
	if len(id) < MinAccountIDLen || len(id) > MaxAccountIDLen {
		return fmt.Errorf("%w %q: length must be between %d and %d", ErrInvalidAccountID, string(id), MinAccountIDLen, MaxAccountIDLen)
	}
	prevSeparator := true // ID can't start with separator
	for i, c := range []byte(id) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevSeparator = false
		case c == '.' || c == '-' || c == '_':
			if prevSeparator {
				return fmt.Errorf("%w %q: unexpected separator at position %d", ErrInvalidAccountID, string(id), i)
			}
			prevSeparator = true
		default:
			return fmt.Errorf("%w %q: invalid character at position %d", ErrInvalidAccountID, string(id), i)
		}
	}
	if prevSeparator {
		return fmt.Errorf("%w %q: ends with separator", ErrInvalidAccountID, string(id))
	}
	return nil
}

// SubAccount returns ID of the "name" sub-account of id, ie "alice.test.near"
// for name "alice" of "test.near".
func (id AccountID) SubAccount(name string) AccountID {
	return AccountID(name + "." + string(id))
}
