package nft

import (
	"errors"
	"fmt"

	"github.com/alphabill-org/alphabill-nft/types"
)

var (
	ErrNotOwner             = errors.New("predecessor must be the token owner")
	ErrTokenNotFound        = errors.New("token not found")
	ErrTokenExists          = errors.New("token already exists")
	ErrInsufficientDeposit  = errors.New("insufficient deposit")
	ErrInvalidDeposit       = errors.New("invalid deposit")
	ErrTooManyApprovals     = errors.New("too many approvals")
	ErrApprovalDoesNotExist = errors.New("approval does not exist")
	ErrInsufficientGas      = errors.New("insufficient gas")
	ErrUnauthorizedCallback = errors.New("callback may only be called by the contract itself")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrSameOwner            = errors.New("current and next owner must differ")
	ErrViewCall             = errors.New("method is not available in view call")
)

/*
ReceiverCallFailedError is returned by DecodeApproveResult when the approval
was granted but the approved account failed to handle the nft_on_approve
notification. The approval itself stays in force.
*/
type ReceiverCallFailedError struct {
	Receiver   types.AccountID
	TokenID    TokenID
	ApprovalID uint64
	Reason     string
}

func (e *ReceiverCallFailedError) Error() string {
	return fmt.Sprintf("receiver %s failed to handle approval %d of token %q: %s", e.Receiver, e.ApprovalID, e.TokenID, e.Reason)
}
