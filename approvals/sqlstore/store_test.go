package sqlstore

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/approvals/storetest"
)

func newTestStore(t *testing.T, initialApprovalID uint64) *Store {
	t.Helper()
	db, err := Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	s, err := New(db, initialApprovalID)
	require.NoError(t, err)
	return s
}

func Test_Store(t *testing.T) {
	storetest.RunStoreTests(t, func(t *testing.T, initialApprovalID uint64) approvals.Store {
		return newTestStore(t, initialApprovalID)
	})
}

func Test_Store_Create(t *testing.T) {
	s := newTestStore(t, 1)
	require.NoError(t, s.Create("0"))
	require.EqualError(t, s.Create("0"), `approvals of token "0" already exist`)
}

func Test_Store_WithManager(t *testing.T) {
	s := newTestStore(t, 1)
	m, err := approvals.NewManager(approvals.DefaultConfig(), s, owner("alice.near"))
	require.NoError(t, err)
	require.NoError(t, m.Register("0"))

	res, err := m.Approve(approvals.ApproveRequest{
		TokenID:   "0",
		AccountID: "bob.near",
		Caller:    "alice.near",
		Deposit:   approvals.DefaultConfig().StorageByteCost,
	})
	require.ErrorContains(t, err, "insufficient deposit")
	require.Nil(t, res)

	cost, err := approvals.DefaultConfig().StorageCost("bob.near")
	require.NoError(t, err)
	res, err = m.Approve(approvals.ApproveRequest{TokenID: "0", AccountID: "bob.near", Caller: "alice.near", Deposit: cost})
	require.NoError(t, err)
	require.EqualValues(t, 1, res.ApprovalID)

	ok, err := m.IsApproved("0", "bob.near", &res.ApprovalID)
	require.NoError(t, err)
	require.True(t, ok)
}

func Test_Open(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		db, err := Open("oracle", "")
		require.EqualError(t, err, `unsupported database driver "oracle"`)
		require.Nil(t, db)
	})

	t.Run("mysql", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer sqlDB.Close()
		mock.ExpectPing()

		db, err := OpenWithDialector(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}))
		require.NoError(t, err)
		require.NotNil(t, db)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping fails", func(t *testing.T) {
		sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer sqlDB.Close()
		mock.ExpectPing().WillReturnError(errors.New("no ping"))

		db, err := OpenWithDialector(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}))
		require.EqualError(t, err, `pinging database: no ping`)
		require.Nil(t, db)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
