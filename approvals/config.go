package approvals

import (
	"errors"
	"fmt"

	"github.com/alphabill-org/alphabill-nft/types"
)

type Config struct {
	// MaxApprovalsPerToken is the max number of accounts simultaneously
	// approved for a token.
	MaxApprovalsPerToken int
	// InitialApprovalID is the ID assigned to the first approval of a token.
	InitialApprovalID uint64
	// StorageByteCost is the deposit required per byte of stored state.
	StorageByteCost types.Amount
	// GasForApprove is reserved for the execution of the approve call itself.
	GasForApprove types.Gas
	// GasForResolveApprove is attached to the nft_resolve_approve continuation.
	GasForResolveApprove types.Gas
	// MinGasForReceiver is the min amount of gas the nft_on_approve call must get.
	MinGasForReceiver types.Gas
}

func DefaultConfig() Config {
	return Config{
		MaxApprovalsPerToken: 32,
		InitialApprovalID:    1,
		StorageByteCost:      types.MustParseAmount("10000000000000000000"),
		GasForApprove:        types.TGas(10),
		GasForResolveApprove: types.TGas(10),
		MinGasForReceiver:    types.TGas(5),
	}
}

func (c Config) Validate() error {
	if c.MaxApprovalsPerToken < 1 {
		return fmt.Errorf("max approvals per token must be positive, got %d", c.MaxApprovalsPerToken)
	}
	if c.InitialApprovalID == 0 {
		return errors.New("initial approval ID must be positive")
	}
	if c.GasForResolveApprove == 0 {
		return errors.New("gas for resolve approve must be positive")
	}
	g, ok := c.GasForApprove.Add(c.GasForResolveApprove)
	if ok {
		_, ok = g.Add(c.MinGasForReceiver)
	}
	if !ok {
		return errors.New("gas constants overflow")
	}
	return nil
}

// bytesForApprovedAccountID returns the number of bytes an approval entry
// of the account takes in storage: key with length prefix and the ID.
func bytesForApprovedAccountID(accountID types.AccountID) uint64 {
	return accountID.Len() + 4 + 8
}

// StorageCost returns the deposit required to store the approval of the account.
func (c Config) StorageCost(accountID types.AccountID) (types.Amount, error) {
	cost, ok := c.StorageByteCost.MulUint64(bytesForApprovedAccountID(accountID))
	if !ok {
		return types.Amount{}, fmt.Errorf("storage cost of %q overflows", accountID)
	}
	return cost, nil
}
