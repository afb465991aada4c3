package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-nft/cbor"
)

func TestOutcome(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		o := &Outcome{ReceiptID: "r1"}
		v, err := cbor.Marshal("cool")
		require.NoError(t, err)
		o.SetValue(v)
		require.True(t, o.IsSuccess())

		var s string
		require.NoError(t, o.UnmarshalValue(&s))
		require.Equal(t, "cool", s)
	})

	t.Run("nil value is CBOR null", func(t *testing.T) {
		o := &Outcome{}
		o.SetValue(nil)
		require.Equal(t, StatusSuccessValue, o.Status)
		require.Equal(t, cbor.Null(), o.Value)
	})

	t.Run("forwarded", func(t *testing.T) {
		o := &Outcome{}
		o.SetForwarded("r2")
		require.True(t, o.IsSuccess())
		require.EqualError(t, o.UnmarshalValue(new(string)), `outcome has no value: forwarded`)
	})

	t.Run("error", func(t *testing.T) {
		o := &Outcome{}
		o.SetValue(cbor.Null())
		expErr := errors.New("boom")
		o.SetError(expErr)
		require.False(t, o.IsSuccess())
		require.Equal(t, StatusFailure, o.Status)
		require.Equal(t, "boom", o.Error)
		require.Empty(t, o.Value)
		require.ErrorIs(t, o.ErrDetail(), expErr)
	})

	t.Run("out of gas", func(t *testing.T) {
		o := &Outcome{}
		o.SetError(fmt.Errorf("executing nft_on_approve: %w", ErrOutOfGas))
		require.Equal(t, StatusOutOfGas, o.Status)
		require.Equal(t, "out of gas", o.Status.String())
	})

	t.Run("nil outcome", func(t *testing.T) {
		var o *Outcome
		require.False(t, o.IsSuccess())
		require.NoError(t, o.ErrDetail())
		require.ErrorIs(t, o.UnmarshalValue(new(string)), ErrOutcomeIsNil)
		o.SetError(errors.New("no panic"))
	})

	t.Run("CBOR", func(t *testing.T) {
		o := &Outcome{Version: 1, ReceiptID: "r1", Executor: "nft.test.near", Predecessor: "test.near", GasBurnt: TGas(5), Logs: []string{"approved"}}
		v, err := cbor.Marshal("cool")
		require.NoError(t, err)
		o.SetValue(v)
		data, err := cbor.Marshal(o)
		require.NoError(t, err)

		o2 := &Outcome{}
		require.NoError(t, cbor.Unmarshal(data, o2))
		require.Equal(t, o, o2)

		o.Version = 2
		data, err = cbor.Marshal(o)
		require.NoError(t, err)
		require.EqualError(t, o2.UnmarshalCBOR(data), `invalid version (type *types.Outcome), expected 1, got 2`)
	})
}
