/*
Package sqlstore implements approvals.Store on top of SQL database.
*/
package sqlstore

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

var _ approvals.Store = (*Store)(nil)

type approvalRow struct {
	TokenID    string `gorm:"column:token_id;primaryKey;size:128"`
	AccountID  string `gorm:"column:account_id;primaryKey;size:64"`
	ApprovalID uint64 `gorm:"column:approval_id;not null"`
}

func (approvalRow) TableName() string { return "nft_approvals" }

type counterRow struct {
	TokenID        string `gorm:"column:token_id;primaryKey;size:128"`
	NextApprovalID uint64 `gorm:"column:next_approval_id;not null"`
}

func (counterRow) TableName() string { return "nft_approval_counters" }

type Store struct {
	db        *gorm.DB
	initialID uint64
}

// New returns store using the db, tables are created when they do not exist.
func New(db *gorm.DB, initialApprovalID uint64) (*Store, error) {
	if err := db.AutoMigrate(&counterRow{}, &approvalRow{}); err != nil {
		return nil, fmt.Errorf("migrating approval tables: %w", err)
	}
	return &Store{db: db, initialID: initialApprovalID}, nil
}

func (s *Store) Create(tokenID nft.TokenID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var cnt int64
		if err := tx.Model(&counterRow{}).Where("token_id = ?", string(tokenID)).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt != 0 {
			return fmt.Errorf("approvals of token %q already exist", tokenID)
		}
		return tx.Create(&counterRow{TokenID: string(tokenID), NextApprovalID: s.initialID}).Error
	})
}

func (s *Store) Delete(tokenID nft.TokenID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_id = ?", string(tokenID)).Delete(&approvalRow{}).Error; err != nil {
			return err
		}
		return tx.Where("token_id = ?", string(tokenID)).Delete(&counterRow{}).Error
	})
}

func (s *Store) Get(tokenID nft.TokenID) (*nft.TokenApprovals, error) {
	ta := nft.NewTokenApprovals(s.initialID)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		next, err := s.nextID(tx, tokenID)
		if err != nil {
			return err
		}
		ta.NextApprovalID = next

		var rows []approvalRow
		if err := tx.Where("token_id = ?", string(tokenID)).Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			ta.ApprovedAccountIDs[types.AccountID(r.AccountID)] = r.ApprovalID
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading approvals of token %q: %w", tokenID, err)
	}
	return ta, nil
}

func (s *Store) SetApproval(tokenID nft.TokenID, accountID types.AccountID) (uint64, error) {
	var id uint64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if id, err = s.nextID(tx, tokenID); err != nil {
			return err
		}
		if id == ^uint64(0) {
			return fmt.Errorf("approval ID counter of token %q overflows", tokenID)
		}
		counter := counterRow{TokenID: string(tokenID), NextApprovalID: id + 1}
		if err := tx.Save(&counter).Error; err != nil {
			return err
		}
		row := approvalRow{TokenID: string(tokenID), AccountID: string(accountID), ApprovalID: id}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_id"}, {Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"approval_id"}),
		}).Create(&row).Error
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) RemoveApproval(tokenID nft.TokenID, accountID types.AccountID) (bool, error) {
	res := s.db.Where("token_id = ? AND account_id = ?", string(tokenID), string(accountID)).Delete(&approvalRow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ClearAll(tokenID nft.TokenID) error {
	return s.db.Where("token_id = ?", string(tokenID)).Delete(&approvalRow{}).Error
}

// nextID returns the ID the next approval of the token gets.
func (s *Store) nextID(tx *gorm.DB, tokenID nft.TokenID) (uint64, error) {
	var counter counterRow
	err := tx.Where("token_id = ?", string(tokenID)).Take(&counter).Error
	switch {
	case err == nil:
		return counter.NextApprovalID, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.initialID, nil
	default:
		return 0, err
	}
}
