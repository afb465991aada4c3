package approvals

import (
	"crypto"
	"fmt"

	"github.com/alphabill-org/alphabill-nft/cbor"
	abhash "github.com/alphabill-org/alphabill-nft/hash"
	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
	"github.com/alphabill-org/alphabill-nft/util"
)

/*
Store keeps approval state of tokens. It doesn't check authorization or
deposits, that's the job of the Manager.
*/
type Store interface {
	// Create initializes empty approval state for the token.
	Create(tokenID nft.TokenID) error
	// Delete removes all approval state of the token, including the counter.
	Delete(tokenID nft.TokenID) error
	// Get returns copy of the approval state of the token. For a token
	// without state empty approvals with initial counter value is returned.
	Get(tokenID nft.TokenID) (*nft.TokenApprovals, error)
	// SetApproval assigns the next approval ID to the account (overwriting
	// the current approval of the account if any) and returns the ID.
	SetApproval(tokenID nft.TokenID, accountID types.AccountID) (uint64, error)
	// RemoveApproval returns false when the account wasn't approved.
	RemoveApproval(tokenID nft.TokenID, accountID types.AccountID) (bool, error)
	// ClearAll removes all approvals of the token but keeps the counter.
	ClearAll(tokenID nft.TokenID) error
}

/*
MemoryStore is in-memory Store which records all changes in a journal so
that changes made by failed call can be reverted.
*/
type MemoryStore struct {
	initialID uint64
	tokens    map[nft.TokenID]*nft.TokenApprovals
	journal   *journal
}

type storeSnapshot struct {
	_         struct{} `cbor:",toarray"`
	Version   types.ABVersion
	InitialID uint64
	Tokens    map[nft.TokenID]*nft.TokenApprovals
}

func NewMemoryStore(initialApprovalID uint64) *MemoryStore {
	return &MemoryStore{
		initialID: initialApprovalID,
		tokens:    map[nft.TokenID]*nft.TokenApprovals{},
		journal:   newJournal(),
	}
}

func (s *MemoryStore) Create(tokenID nft.TokenID) error {
	if _, ok := s.tokens[tokenID]; ok {
		return fmt.Errorf("approvals of token %q already exist", tokenID)
	}
	s.journal.append(createChange{tokenID: tokenID})
	s.tokens[tokenID] = nft.NewTokenApprovals(s.initialID)
	return nil
}

func (s *MemoryStore) Delete(tokenID nft.TokenID) error {
	prev, ok := s.tokens[tokenID]
	if !ok {
		return nil
	}
	s.journal.append(deleteChange{tokenID: tokenID, prev: prev})
	delete(s.tokens, tokenID)
	return nil
}

func (s *MemoryStore) Get(tokenID nft.TokenID) (*nft.TokenApprovals, error) {
	if ta, ok := s.tokens[tokenID]; ok {
		return ta.Copy(), nil
	}
	return nft.NewTokenApprovals(s.initialID), nil
}

func (s *MemoryStore) SetApproval(tokenID nft.TokenID, accountID types.AccountID) (uint64, error) {
	ta, ok := s.tokens[tokenID]
	if !ok {
		if err := s.Create(tokenID); err != nil {
			return 0, err
		}
		ta = s.tokens[tokenID]
	}
	id := ta.NextApprovalID
	next, ok := util.SafeAdd(id, 1)
	if !ok {
		return 0, fmt.Errorf("approval ID counter of token %q overflows", tokenID)
	}
	prev, existed := ta.ApprovedAccountIDs[accountID]
	s.journal.append(counterChange{tokenID: tokenID, prev: id})
	s.journal.append(approvalChange{tokenID: tokenID, accountID: accountID, prev: prev, existed: existed})
	ta.ApprovedAccountIDs[accountID] = id
	ta.NextApprovalID = next
	return id, nil
}

func (s *MemoryStore) RemoveApproval(tokenID nft.TokenID, accountID types.AccountID) (bool, error) {
	ta, ok := s.tokens[tokenID]
	if !ok {
		return false, nil
	}
	prev, ok := ta.ApprovedAccountIDs[accountID]
	if !ok {
		return false, nil
	}
	s.journal.append(approvalChange{tokenID: tokenID, accountID: accountID, prev: prev, existed: true})
	delete(ta.ApprovedAccountIDs, accountID)
	return true, nil
}

func (s *MemoryStore) ClearAll(tokenID nft.TokenID) error {
	ta, ok := s.tokens[tokenID]
	if !ok || len(ta.ApprovedAccountIDs) == 0 {
		return nil
	}
	s.journal.append(clearChange{tokenID: tokenID, prev: ta.ApprovedAccountIDs})
	ta.ApprovedAccountIDs = map[types.AccountID]uint64{}
	return nil
}

// Snapshot returns identifier of the current state which can be later
// passed to RevertToSnapshot.
func (s *MemoryStore) Snapshot() int {
	return s.journal.length()
}

// RevertToSnapshot undoes all the changes made after the snapshot was taken.
func (s *MemoryStore) RevertToSnapshot(id int) {
	if id < 0 || id > s.journal.length() {
		panic(fmt.Errorf("invalid snapshot %d, journal has %d entries", id, s.journal.length()))
	}
	s.journal.revert(s, id)
}

// Commit makes the current state permanent, ie it's not possible to
// revert to any of the snapshots taken before.
func (s *MemoryStore) Commit() {
	s.journal.reset()
}

/*
StateHash returns hash of the whole store. Tokens are hashed in ascending
order of their IDs so the hash depends only on the content of the store.
*/
func (s *MemoryStore) StateHash(algorithm crypto.Hash) ([]byte, error) {
	hasher := abhash.New(algorithm.New())
	for _, id := range util.SortedKeys(s.tokens) {
		hasher.Write(id)
		s.tokens[id].Write(hasher)
	}
	return hasher.Sum()
}

// MarshalCBOR encodes the committed and uncommitted state of the store,
// the journal is not included.
func (s *MemoryStore) MarshalCBOR() ([]byte, error) {
	return cbor.MarshalTaggedValue(types.StoreSnapshotTag, storeSnapshot{
		Version:   1,
		InitialID: s.initialID,
		Tokens:    s.tokens,
	})
}

func (s *MemoryStore) UnmarshalCBOR(data []byte) error {
	var snapshot storeSnapshot
	if err := cbor.UnmarshalTaggedValue(types.StoreSnapshotTag, data, &snapshot); err != nil {
		return fmt.Errorf("decoding approval store: %w", err)
	}
	if snapshot.Version != 1 {
		return fmt.Errorf("invalid approval store version, expected 1, got %d", snapshot.Version)
	}
	s.initialID = snapshot.InitialID
	s.tokens = snapshot.Tokens
	if s.tokens == nil {
		s.tokens = map[nft.TokenID]*nft.TokenApprovals{}
	}
	for _, ta := range s.tokens {
		if ta.ApprovedAccountIDs == nil {
			ta.ApprovedAccountIDs = map[types.AccountID]uint64{}
		}
	}
	s.journal = newJournal()
	return nil
}
