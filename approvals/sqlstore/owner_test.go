package sqlstore

import (
	"fmt"

	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

// owner is token registry where every token but "missing" is owned by the same account.
type owner types.AccountID

func (o owner) TokenOwner(tokenID nft.TokenID) (types.AccountID, error) {
	if tokenID == "missing" {
		return "", fmt.Errorf("%w: %q", nft.ErrTokenNotFound, tokenID)
	}
	return types.AccountID(o), nil
}
