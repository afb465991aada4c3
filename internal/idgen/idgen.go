// Package idgen wraps the UUID generator so that it can be stubbed in tests.
package idgen

import (
	"strconv"

	"github.com/google/uuid"
)

// NewFunc returns new globally unique identifier, override in tests for determinism.
var NewFunc = func() string { return uuid.New().String() }

func New() string { return NewFunc() }

/*
Sequence returns generator which returns prefix followed by increasing
number, starting from 1. Not safe for concurrent use.
*/
func Sequence(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}
