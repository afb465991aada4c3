package nft

import (
	"crypto"
	"testing"

	"github.com/stretchr/testify/require"

	abhash "github.com/alphabill-org/alphabill-nft/hash"
	"github.com/alphabill-org/alphabill-nft/types"
)

func Test_TokenApprovals(t *testing.T) {
	t.Run("copy is independent", func(t *testing.T) {
		a := NewTokenApprovals(1)
		a.ApprovedAccountIDs["alice.near"] = 1
		a.NextApprovalID = 2

		c := a.Copy()
		c.ApprovedAccountIDs["bob.near"] = 2
		c.NextApprovalID = 3
		require.Len(t, a.ApprovedAccountIDs, 1)
		require.EqualValues(t, 2, a.NextApprovalID)

		var nilApprovals *TokenApprovals
		require.Nil(t, nilApprovals.Copy())
	})

	t.Run("entries are sorted", func(t *testing.T) {
		a := NewTokenApprovals(1)
		a.ApprovedAccountIDs["carol.near"] = 3
		a.ApprovedAccountIDs["alice.near"] = 5
		a.ApprovedAccountIDs["bob.near"] = 4
		require.Equal(t, []ApprovalEntry{
			{TokenID: "0", AccountID: "alice.near", ApprovalID: 5},
			{TokenID: "0", AccountID: "bob.near", ApprovalID: 4},
			{TokenID: "0", AccountID: "carol.near", ApprovalID: 3},
		}, a.Entries("0"))
	})

	t.Run("hash does not depend on insertion order", func(t *testing.T) {
		sum := func(ids ...types.AccountID) []byte {
			a := NewTokenApprovals(1)
			for i, id := range ids {
				a.ApprovedAccountIDs[id] = uint64(i + 1)
			}
			h := abhash.New(crypto.SHA256.New())
			a.Write(h)
			b, err := h.Sum()
			require.NoError(t, err)
			return b
		}
		a := NewTokenApprovals(1)
		a.ApprovedAccountIDs["bob.near"] = 2
		a.ApprovedAccountIDs["alice.near"] = 1
		h := abhash.New(crypto.SHA256.New())
		a.Write(h)
		b, err := h.Sum()
		require.NoError(t, err)
		require.Equal(t, sum("alice.near", "bob.near"), b)
		require.NotEqual(t, sum("bob.near", "alice.near"), b)
	})
}

func Test_Token_Copy(t *testing.T) {
	title := "Olympus Mons"
	tok := &Token{TokenID: "0", OwnerID: "alice.near", Metadata: &TokenMetadata{Title: &title, MediaHash: []byte{1, 2}}}
	c := tok.Copy()
	require.Equal(t, tok, c)
	c.Metadata.MediaHash[0] = 9
	c.OwnerID = "bob.near"
	require.EqualValues(t, 1, tok.Metadata.MediaHash[0])
	require.EqualValues(t, "alice.near", tok.OwnerID)
}
