package approvals_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/testutils"
	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

func Test_Notifier_Prepare(t *testing.T) {
	n := approvals.NewNotifier(approvals.DefaultConfig(), testutils.NewLogger(t))
	require.Equal(t, types.TGas(25), n.RequiredGas())

	entry := nft.ApprovalEntry{TokenID: "0", AccountID: bob, ApprovalID: 3}
	pc, err := n.Prepare(alice, entry, "hi", types.TGas(100), types.TGas(2))
	require.NoError(t, err)
	require.Equal(t, bob, pc.Receiver)
	require.Equal(t, types.TGas(80), pc.Gas)
	require.Equal(t, "hi", pc.Args.Msg)
	require.EqualValues(t, 3, pc.Callback.Args.ApprovalID)

	pc, err = n.Prepare(alice, entry, "hi", types.TGas(1), 0)
	require.ErrorIs(t, err, nft.ErrInsufficientGas)
	require.Nil(t, pc)

	// receipt has burnt more than the approve reserve, the outbound calls wouldn't fit
	pc, err = n.Prepare(alice, entry, "hi", types.TGas(100), types.TGas(11))
	require.EqualError(t, err, `insufficient gas: approve call used 11000000000000, reserved 10000000000000`)
	require.Nil(t, pc)
}

func Test_Notifier_Resolve(t *testing.T) {
	const contract types.AccountID = "nft.near"
	n := approvals.NewNotifier(approvals.DefaultConfig(), testutils.NewLogger(t))
	args := nft.ResolveApproveAttributes{OwnerID: alice, AccountID: bob, TokenID: "0", ApprovalID: 2}

	t.Run("unauthorized caller", func(t *testing.T) {
		value, err := n.Resolve(alice, contract, args, []approvals.PromiseResult{{Status: types.StatusSuccessValue}})
		require.ErrorIs(t, err, nft.ErrUnauthorizedCallback)
		require.EqualError(t, err, `callback may only be called by the contract itself: called by alice.near`)
		require.Nil(t, value)
	})

	t.Run("unexpected number of results", func(t *testing.T) {
		_, err := n.Resolve(contract, contract, args, nil)
		require.EqualError(t, err, `expected 1 promise result, got 0`)
	})

	t.Run("receiver value is relayed", func(t *testing.T) {
		cool, err := cbor.Marshal("cool")
		require.NoError(t, err)
		value, err := n.Resolve(contract, contract, args, []approvals.PromiseResult{{Status: types.StatusSuccessValue, Value: cool}})
		require.NoError(t, err)
		require.Equal(t, cbor.RawCBOR(cool), value)
	})

	t.Run("receiver returned nothing", func(t *testing.T) {
		value, err := n.Resolve(contract, contract, args, []approvals.PromiseResult{{Status: types.StatusSuccessValue}})
		require.NoError(t, err)
		require.Equal(t, cbor.Null(), value)
	})

	t.Run("receiver failed", func(t *testing.T) {
		value, err := n.Resolve(contract, contract, args, []approvals.PromiseResult{{Status: types.StatusFailure, Error: "receiver panicked"}})
		require.NoError(t, err)

		err = nft.DecodeApproveResult(value, nil)
		var rcf *nft.ReceiverCallFailedError
		require.True(t, errors.As(err, &rcf))
		require.Equal(t, &nft.ReceiverCallFailedError{Receiver: bob, TokenID: "0", ApprovalID: 2, Reason: "receiver panicked"}, rcf)
	})

	t.Run("receiver ran out of gas", func(t *testing.T) {
		value, err := n.Resolve(contract, contract, args, []approvals.PromiseResult{{Status: types.StatusOutOfGas}})
		require.NoError(t, err)
		require.EqualError(t, nft.DecodeApproveResult(value, nil), `receiver bob.near failed to handle approval 2 of token "0": out of gas`)
	})
}

func Test_Phase(t *testing.T) {
	require.Equal(t, "outbound-dispatched", approvals.PhaseOutboundDispatched.String())
	require.Equal(t, "unknown", approvals.Phase(42).String())
	require.True(t, approvals.PhaseCompleted.Final())
	require.True(t, approvals.PhaseRejected.Final())
	require.False(t, approvals.PhaseMutated.Final())
}
