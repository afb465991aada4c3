package approvals

import (
	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

// journalEntry is a modification of the MemoryStore which can be reverted.
type journalEntry interface {
	revert(*MemoryStore)
}

// journal contains the list of store modifications applied since the last
// commit.
type journal struct {
	entries []journalEntry
}

func newJournal() *journal {
	return &journal{}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

// revert undoes entries in reverse order until the journal has "snapshot"
// entries left.
func (j *journal) revert(s *MemoryStore, snapshot int) {
	for i := len(j.entries) - 1; i >= snapshot; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:snapshot]
}

func (j *journal) length() int {
	return len(j.entries)
}

func (j *journal) reset() {
	j.entries = nil
}

type (
	createChange struct {
		tokenID nft.TokenID
	}
	deleteChange struct {
		tokenID nft.TokenID
		prev    *nft.TokenApprovals
	}
	approvalChange struct {
		tokenID   nft.TokenID
		accountID types.AccountID
		prev      uint64
		existed   bool // whether the account was approved before the change
	}
	counterChange struct {
		tokenID nft.TokenID
		prev    uint64
	}
	clearChange struct {
		tokenID nft.TokenID
		prev    map[types.AccountID]uint64
	}
)

func (ch createChange) revert(s *MemoryStore) {
	delete(s.tokens, ch.tokenID)
}

func (ch deleteChange) revert(s *MemoryStore) {
	s.tokens[ch.tokenID] = ch.prev
}

func (ch approvalChange) revert(s *MemoryStore) {
	ta := s.tokens[ch.tokenID]
	if ch.existed {
		ta.ApprovedAccountIDs[ch.accountID] = ch.prev
	} else {
		delete(ta.ApprovedAccountIDs, ch.accountID)
	}
}

func (ch counterChange) revert(s *MemoryStore) {
	s.tokens[ch.tokenID].NextApprovalID = ch.prev
}

func (ch clearChange) revert(s *MemoryStore) {
	s.tokens[ch.tokenID].ApprovedAccountIDs = ch.prev
}
