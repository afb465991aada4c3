package sandbox

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/testutils"
	abnft "github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

func Test_New(t *testing.T) {
	t.Run("invalid approvals config", func(t *testing.T) {
		s, err := New(WithApprovalsConfig(approvals.Config{}))
		require.ErrorContains(t, err, "creating token contract: invalid approval manager config")
		require.Nil(t, s)
	})

	t.Run("accounts", func(t *testing.T) {
		s, err := New(WithBalance(types.NEAR(5)), WithLogger(testutils.NewLogger(t)))
		require.NoError(t, err)
		for _, id := range []types.AccountID{Root, Alice, Bob, NFT, Receiver} {
			b, err := s.Balance(id)
			require.NoError(t, err)
			require.Equal(t, types.NEAR(5), b)
		}
	})

	t.Run("custom store", func(t *testing.T) {
		store := approvals.NewMemoryStore(10)
		cfg := approvals.DefaultConfig()
		cfg.InitialApprovalID = 10
		s, err := New(WithStore(store), WithApprovalsConfig(cfg), WithLogger(testutils.NewLogger(t)))
		require.NoError(t, err)

		ctx := context.Background()
		require.NoError(t, s.Mint(ctx, "t1", Alice))
		require.NoError(t, s.Approve(ctx, Alice, "t1", Bob, nil, nil))
		ta, err := store.Get("t1")
		require.NoError(t, err)
		require.EqualValues(t, 11, ta.NextApprovalID)
		require.Equal(t, map[types.AccountID]uint64{Bob: 10}, ta.ApprovedAccountIDs)
	})
}

func Test_Helpers(t *testing.T) {
	s, err := New(WithLogger(testutils.NewLogger(t)))
	require.NoError(t, err)
	ctx := context.Background()

	require.ErrorIs(t, s.Mint(ctx, "t1", "X"), types.ErrInvalidAccountID)
	require.NoError(t, s.Mint(ctx, "t1", Alice))
	require.ErrorIs(t, s.Mint(ctx, "t1", Alice), abnft.ErrTokenExists)

	require.ErrorIs(t, s.Approve(ctx, Bob, "t1", Bob, nil, nil), abnft.ErrNotOwner)
	var res string
	msg := "return-now"
	require.NoError(t, s.Approve(ctx, Alice, "t1", Receiver, &msg, &res))
	require.Equal(t, "cool", res)

	ok, err := s.IsApproved(ctx, "t1", Receiver, nil)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.IsApproved(ctx, "t2", Receiver, nil)
	require.NoError(t, err)
	require.False(t, ok)

	tv, err := s.Token(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, Alice, tv.OwnerID)
	require.Len(t, tv.ApprovedAccountIDs, 1)
}

func Test_RunScenarios(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, RunScenarios(context.Background(), buf, WithLogger(testutils.NewLogger(t))))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(Scenarios()))
	expected := []string{
		"bob.test.near approved with id 1",
		`receiver returned "cool"`,
		`receiver returned "test message"`,
		"receiver failed (contract panicked: receiver was asked to panic), approval kept: true",
		"owner bob.test.near, 0 approvals",
		`receiver returned "test message", still approved: false`,
	}
	for i, sc := range Scenarios() {
		require.True(t, strings.HasPrefix(lines[i], sc.Name), lines[i])
		require.True(t, strings.HasSuffix(lines[i], "ok   "+expected[i]), lines[i])
	}
}

func Test_RunScenario(t *testing.T) {
	res, err := RunScenario(context.Background(), "approve-return-now", WithLogger(testutils.NewLogger(t)))
	require.NoError(t, err)
	require.Equal(t, `receiver returned "cool"`, res)

	res, err = RunScenario(context.Background(), "approve-nothing")
	require.EqualError(t, err, `unknown scenario "approve-nothing"`)
	require.Empty(t, res)
}
