package approvals_test

import (
	"crypto"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/approvals/storetest"
	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/types"
)

func Test_MemoryStore(t *testing.T) {
	storetest.RunStoreTests(t, func(t *testing.T, initialApprovalID uint64) approvals.Store {
		return approvals.NewMemoryStore(initialApprovalID)
	})
}

func Test_MemoryStore_Revert(t *testing.T) {
	const alice, bob types.AccountID = "alice.near", "bob.near"

	t.Run("revert to snapshot", func(t *testing.T) {
		s := approvals.NewMemoryStore(1)
		require.NoError(t, s.Create("0"))
		_, err := s.SetApproval("0", alice)
		require.NoError(t, err)
		s.Commit()
		before, err := s.StateHash(crypto.SHA256)
		require.NoError(t, err)

		snapshot := s.Snapshot()
		_, err = s.SetApproval("0", bob)
		require.NoError(t, err)
		_, err = s.SetApproval("0", alice)
		require.NoError(t, err)
		_, err = s.RemoveApproval("0", bob)
		require.NoError(t, err)
		require.NoError(t, s.ClearAll("0"))
		require.NoError(t, s.Create("1"))
		require.NoError(t, s.Delete("0"))

		s.RevertToSnapshot(snapshot)
		after, err := s.StateHash(crypto.SHA256)
		require.NoError(t, err)
		require.Equal(t, before, after)

		ta, err := s.Get("0")
		require.NoError(t, err)
		require.Equal(t, map[types.AccountID]uint64{alice: 1}, ta.ApprovedAccountIDs)
		require.EqualValues(t, 2, ta.NextApprovalID)
	})

	t.Run("nested snapshots", func(t *testing.T) {
		s := approvals.NewMemoryStore(1)
		require.NoError(t, s.Create("0"))
		s1 := s.Snapshot()
		_, err := s.SetApproval("0", alice)
		require.NoError(t, err)
		s2 := s.Snapshot()
		_, err = s.SetApproval("0", bob)
		require.NoError(t, err)

		s.RevertToSnapshot(s2)
		ta, err := s.Get("0")
		require.NoError(t, err)
		require.Equal(t, map[types.AccountID]uint64{alice: 1}, ta.ApprovedAccountIDs)

		s.RevertToSnapshot(s1)
		ta, err = s.Get("0")
		require.NoError(t, err)
		require.Empty(t, ta.ApprovedAccountIDs)
		require.EqualValues(t, 1, ta.NextApprovalID)
	})

	t.Run("implicitly created token is removed", func(t *testing.T) {
		s := approvals.NewMemoryStore(1)
		empty, err := s.StateHash(crypto.SHA256)
		require.NoError(t, err)

		_, err = s.SetApproval("0", alice)
		require.NoError(t, err)
		s.RevertToSnapshot(0)
		h, err := s.StateHash(crypto.SHA256)
		require.NoError(t, err)
		require.Equal(t, empty, h)
	})

	t.Run("invalid snapshot", func(t *testing.T) {
		s := approvals.NewMemoryStore(1)
		require.PanicsWithError(t, "invalid snapshot 1, journal has 0 entries", func() { s.RevertToSnapshot(1) })
	})

	t.Run("commit", func(t *testing.T) {
		s := approvals.NewMemoryStore(1)
		_, err := s.SetApproval("0", alice)
		require.NoError(t, err)
		require.NotZero(t, s.Snapshot())
		s.Commit()
		require.Zero(t, s.Snapshot())
	})
}

func Test_MemoryStore_CBOR(t *testing.T) {
	s := approvals.NewMemoryStore(5)
	require.NoError(t, s.Create("0"))
	require.NoError(t, s.Create("1"))
	_, err := s.SetApproval("0", "alice.near")
	require.NoError(t, err)
	_, err = s.SetApproval("0", "bob.near")
	require.NoError(t, err)
	h1, err := s.StateHash(crypto.SHA256)
	require.NoError(t, err)

	data, err := cbor.Marshal(s)
	require.NoError(t, err)
	require.True(t, cbor.HasTag(data, types.StoreSnapshotTag))

	s2 := approvals.NewMemoryStore(1)
	require.NoError(t, cbor.Unmarshal(data, s2))
	h2, err := s2.StateHash(crypto.SHA256)
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	ta, err := s2.Get("1")
	require.NoError(t, err)
	require.NotNil(t, ta.ApprovedAccountIDs)
	require.EqualValues(t, 5, ta.NextApprovalID)

	// the decoded store allocates the next ID of unknown tokens using decoded initial ID
	id, err := s2.SetApproval("2", "alice.near")
	require.NoError(t, err)
	require.EqualValues(t, 5, id)

	require.ErrorContains(t, s2.UnmarshalCBOR([]byte{0x01}), "decoding approval store: ")
}
