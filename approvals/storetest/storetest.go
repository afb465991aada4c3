/*
Package storetest contains tests every approvals.Store implementation
must pass.
*/
package storetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

// NewStoreFunc returns new empty store with given initial approval ID.
type NewStoreFunc func(t *testing.T, initialApprovalID uint64) approvals.Store

func RunStoreTests(t *testing.T, newStore NewStoreFunc) {
	const alice, bob types.AccountID = "alice.test.near", "bob.test.near"

	t.Run("unknown token", func(t *testing.T) {
		s := newStore(t, 1)
		ta, err := s.Get("0")
		require.NoError(t, err)
		require.Empty(t, ta.ApprovedAccountIDs)
		require.EqualValues(t, 1, ta.NextApprovalID)

		removed, err := s.RemoveApproval("0", alice)
		require.NoError(t, err)
		require.False(t, removed)
		require.NoError(t, s.ClearAll("0"))
		require.NoError(t, s.Delete("0"))
	})

	t.Run("ids are allocated sequentially", func(t *testing.T) {
		s := newStore(t, 1)
		require.NoError(t, s.Create("0"))

		id, err := s.SetApproval("0", alice)
		require.NoError(t, err)
		require.EqualValues(t, 1, id)
		id, err = s.SetApproval("0", bob)
		require.NoError(t, err)
		require.EqualValues(t, 2, id)

		ta, err := s.Get("0")
		require.NoError(t, err)
		require.Equal(t, map[types.AccountID]uint64{alice: 1, bob: 2}, ta.ApprovedAccountIDs)
		require.EqualValues(t, 3, ta.NextApprovalID)
	})

	t.Run("initial id is configurable", func(t *testing.T) {
		s := newStore(t, 100)
		require.NoError(t, s.Create("0"))
		id, err := s.SetApproval("0", alice)
		require.NoError(t, err)
		require.EqualValues(t, 100, id)
	})

	t.Run("re-approval gets new id", func(t *testing.T) {
		s := newStore(t, 1)
		require.NoError(t, s.Create("0"))
		id1, err := s.SetApproval("0", alice)
		require.NoError(t, err)
		id2, err := s.SetApproval("0", alice)
		require.NoError(t, err)
		require.Greater(t, id2, id1)

		ta, err := s.Get("0")
		require.NoError(t, err)
		require.Equal(t, map[types.AccountID]uint64{alice: id2}, ta.ApprovedAccountIDs)
	})

	t.Run("revoke keeps the counter", func(t *testing.T) {
		s := newStore(t, 1)
		require.NoError(t, s.Create("0"))
		_, err := s.SetApproval("0", alice)
		require.NoError(t, err)

		removed, err := s.RemoveApproval("0", alice)
		require.NoError(t, err)
		require.True(t, removed)
		removed, err = s.RemoveApproval("0", alice)
		require.NoError(t, err)
		require.False(t, removed)

		id, err := s.SetApproval("0", alice)
		require.NoError(t, err)
		require.EqualValues(t, 2, id)
	})

	t.Run("clear all keeps the counter", func(t *testing.T) {
		s := newStore(t, 1)
		require.NoError(t, s.Create("0"))
		_, err := s.SetApproval("0", alice)
		require.NoError(t, err)
		_, err = s.SetApproval("0", bob)
		require.NoError(t, err)

		require.NoError(t, s.ClearAll("0"))
		ta, err := s.Get("0")
		require.NoError(t, err)
		require.Empty(t, ta.ApprovedAccountIDs)
		require.EqualValues(t, 3, ta.NextApprovalID)
		// second clear is no-op
		require.NoError(t, s.ClearAll("0"))
	})

	t.Run("delete resets the token", func(t *testing.T) {
		s := newStore(t, 1)
		require.NoError(t, s.Create("0"))
		_, err := s.SetApproval("0", alice)
		require.NoError(t, err)

		require.NoError(t, s.Delete("0"))
		ta, err := s.Get("0")
		require.NoError(t, err)
		require.Empty(t, ta.ApprovedAccountIDs)
		require.EqualValues(t, 1, ta.NextApprovalID)
	})

	t.Run("tokens are independent", func(t *testing.T) {
		s := newStore(t, 1)
		require.NoError(t, s.Create("0"))
		require.NoError(t, s.Create("1"))
		_, err := s.SetApproval("0", alice)
		require.NoError(t, err)

		id, err := s.SetApproval("1", alice)
		require.NoError(t, err)
		require.EqualValues(t, 1, id)
		require.NoError(t, s.ClearAll("0"))

		ok, err := isApproved(s, "1", alice)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("returned state is a copy", func(t *testing.T) {
		s := newStore(t, 1)
		require.NoError(t, s.Create("0"))
		ta, err := s.Get("0")
		require.NoError(t, err)
		ta.ApprovedAccountIDs[alice] = 42

		ok, err := isApproved(s, "0", alice)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func isApproved(s approvals.Store, tokenID nft.TokenID, accountID types.AccountID) (bool, error) {
	ta, err := s.Get(tokenID)
	if err != nil {
		return false, err
	}
	_, ok := ta.ApprovedAccountIDs[accountID]
	return ok, nil
}
