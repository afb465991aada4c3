/*
Package testutils contains helpers shared by the tests of other packages.
*/
package testutils

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"testing"

	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

/*
NewLogger returns logger which writes into the test log, so the output
is shown only for failed tests (or when running with -v).
*/
func NewLogger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// Random returns n random bytes.
func Random(t testing.TB, n int) []byte {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		t.Fatalf("generating random bytes: %v", err)
	}
	return buf
}

// RandomTokenID returns "valid looking" token ID.
func RandomTokenID(t testing.TB) nft.TokenID {
	return nft.TokenID(hex.EncodeToString(Random(t, 8)))
}

// RandomAccountID returns valid sub-account ID of the parent account.
func RandomAccountID(t testing.TB, parent types.AccountID) types.AccountID {
	return parent.SubAccount("a" + hex.EncodeToString(Random(t, 6)))
}
