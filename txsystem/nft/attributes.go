package nft

import (
	"github.com/alphabill-org/alphabill-nft/types"
)

const (
	MethodApprove        = "nft_approve"
	MethodRevoke         = "nft_revoke"
	MethodRevokeAll      = "nft_revoke_all"
	MethodIsApproved     = "nft_is_approved"
	MethodOnApprove      = "nft_on_approve"
	MethodResolveApprove = "nft_resolve_approve"

	MethodMint     = "nft_mint"
	MethodToken    = "nft_token"
	MethodTransfer = "nft_transfer"
	MethodBurn     = "nft_burn"
)

type (
	TokenID string

	ApproveAttributes struct {
		_         struct{}        `cbor:",toarray"`
		TokenID   TokenID         `json:"token_id"`
		AccountID types.AccountID `json:"account_id"`    // the account being approved
		Msg       *string         `json:"msg,omitempty"` // when set the approved account is notified with nft_on_approve
	}

	RevokeAttributes struct {
		_         struct{}        `cbor:",toarray"`
		TokenID   TokenID         `json:"token_id"`
		AccountID types.AccountID `json:"account_id"`
	}

	RevokeAllAttributes struct {
		_       struct{} `cbor:",toarray"`
		TokenID TokenID  `json:"token_id"`
	}

	IsApprovedAttributes struct {
		_                 struct{}        `cbor:",toarray"`
		TokenID           TokenID         `json:"token_id"`
		ApprovedAccountID types.AccountID `json:"approved_account_id"`
		ApprovalID        *uint64         `json:"approval_id,omitempty"` // when set the current approval must have exactly this ID
	}

	// OnApproveAttributes are the arguments of the call the approved
	// account receives when approval was granted with a message.
	OnApproveAttributes struct {
		_          struct{}        `cbor:",toarray"`
		TokenID    TokenID         `json:"token_id"`
		OwnerID    types.AccountID `json:"owner_id"`
		ApprovalID uint64          `json:"approval_id"`
		Msg        string          `json:"msg"`
	}

	ResolveApproveAttributes struct {
		_          struct{}        `cbor:",toarray"`
		OwnerID    types.AccountID `json:"owner_id"`
		AccountID  types.AccountID `json:"account_id"`
		TokenID    TokenID         `json:"token_id"`
		ApprovalID uint64          `json:"approval_id"`
	}

	MintAttributes struct {
		_          struct{}        `cbor:",toarray"`
		TokenID    TokenID         `json:"token_id"`
		ReceiverID types.AccountID `json:"receiver_id"` // the initial owner of the token
		Metadata   *TokenMetadata  `json:"token_metadata,omitempty"`
	}

	TokenAttributes struct {
		_       struct{} `cbor:",toarray"`
		TokenID TokenID  `json:"token_id"`
	}

	TransferAttributes struct {
		_          struct{}        `cbor:",toarray"`
		ReceiverID types.AccountID `json:"receiver_id"` // the new owner of the token
		TokenID    TokenID         `json:"token_id"`
		ApprovalID *uint64         `json:"approval_id,omitempty"` // required to match when the sender is approved account
		Memo       *string         `json:"memo,omitempty"`
	}

	BurnAttributes struct {
		_       struct{} `cbor:",toarray"`
		TokenID TokenID  `json:"token_id"`
	}
)

func (id TokenID) String() string {
	return string(id)
}

// Len returns the number of bytes the ID takes when stored.
func (id TokenID) Len() uint64 {
	return uint64(len(id))
}
