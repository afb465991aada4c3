package approvals

import (
	"errors"
	"fmt"
	"maps"

	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

/*
IsApproved returns true when accountID is currently approved for the token
and, if approvalID is not nil, the approval has exactly that ID. Unknown
token is not an error, it just has no approvals.
*/
func (m *Manager) IsApproved(tokenID nft.TokenID, accountID types.AccountID, approvalID *uint64) (bool, error) {
	if _, err := m.tokens.TokenOwner(tokenID); err != nil {
		if errors.Is(err, nft.ErrTokenNotFound) {
			return false, nil
		}
		return false, err
	}
	current, err := m.store.Get(tokenID)
	if err != nil {
		return false, fmt.Errorf("loading approvals: %w", err)
	}
	id, ok := current.ApprovedAccountIDs[accountID]
	if !ok {
		return false, nil
	}
	return approvalID == nil || *approvalID == id, nil
}

// Approvals returns the accounts currently approved for the token.
func (m *Manager) Approvals(tokenID nft.TokenID) (map[types.AccountID]uint64, error) {
	current, err := m.store.Get(tokenID)
	if err != nil {
		return nil, fmt.Errorf("loading approvals: %w", err)
	}
	return maps.Clone(current.ApprovedAccountIDs), nil
}
