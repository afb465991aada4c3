package nft

import (
	"maps"
	"strings"

	abhash "github.com/alphabill-org/alphabill-nft/hash"
	"github.com/alphabill-org/alphabill-nft/types"
	"github.com/alphabill-org/alphabill-nft/util"
)

type (
	TokenMetadata struct {
		_           struct{} `cbor:",toarray"`
		Title       *string  `json:"title,omitempty"`
		Description *string  `json:"description,omitempty"`
		Media       *string  `json:"media,omitempty"` // URL to associated media
		MediaHash   []byte   `json:"media_hash,omitempty"`
		Copies      *uint64  `json:"copies,omitempty"` // number of copies of this set of metadata in existence when token was minted
		IssuedAt    *uint64  `json:"issued_at,omitempty"`
		ExpiresAt   *uint64  `json:"expires_at,omitempty"`
		Extra       *string  `json:"extra,omitempty"`
		Reference   *string  `json:"reference,omitempty"` // URL to an off-chain JSON file with more info
	}

	Token struct {
		_        struct{}        `cbor:",toarray"`
		TokenID  TokenID         `json:"token_id"`
		OwnerID  types.AccountID `json:"owner_id"`
		Metadata *TokenMetadata  `json:"metadata,omitempty"`
	}

	// TokenView is the token as returned by the nft_token view method.
	TokenView struct {
		_                  struct{}                   `cbor:",toarray"`
		TokenID            TokenID                    `json:"token_id"`
		OwnerID            types.AccountID            `json:"owner_id"`
		Metadata           *TokenMetadata             `json:"metadata,omitempty"`
		ApprovedAccountIDs map[types.AccountID]uint64 `json:"approved_account_ids"`
	}

	// ApprovalEntry is a single approval record of a token.
	ApprovalEntry struct {
		_          struct{}        `cbor:",toarray"`
		TokenID    TokenID         `json:"token_id"`
		AccountID  types.AccountID `json:"account_id"`
		ApprovalID uint64          `json:"approval_id"`
	}

	// TokenApprovals is the approval state of a token: currently approved
	// accounts and the ID to be assigned to the next approval. The counter
	// only grows, revoking approvals doesn't reset it.
	TokenApprovals struct {
		_                  struct{}                   `cbor:",toarray"`
		ApprovedAccountIDs map[types.AccountID]uint64 `json:"approved_account_ids"`
		NextApprovalID     uint64                     `json:"next_approval_id"`
	}
)

func NewTokenApprovals(initialID uint64) *TokenApprovals {
	return &TokenApprovals{
		ApprovedAccountIDs: map[types.AccountID]uint64{},
		NextApprovalID:     initialID,
	}
}

func (t *Token) Copy() *Token {
	if t == nil {
		return nil
	}
	return &Token{
		TokenID:  TokenID(strings.Clone(string(t.TokenID))),
		OwnerID:  types.AccountID(strings.Clone(string(t.OwnerID))),
		Metadata: t.Metadata.Copy(),
	}
}

func (t *Token) Write(hasher abhash.Hasher) {
	hasher.Write(t)
}

func (m *TokenMetadata) Copy() *TokenMetadata {
	if m == nil {
		return nil
	}
	c := *m
	c.MediaHash = append([]byte(nil), m.MediaHash...)
	return &c
}

func (a *TokenApprovals) Copy() *TokenApprovals {
	if a == nil {
		return nil
	}
	return &TokenApprovals{
		ApprovedAccountIDs: maps.Clone(a.ApprovedAccountIDs),
		NextApprovalID:     a.NextApprovalID,
	}
}

// Write adds approvals to the hasher, accounts in ascending order so that
// the hash doesn't depend on map iteration order.
func (a *TokenApprovals) Write(hasher abhash.Hasher) {
	for _, id := range util.SortedKeys(a.ApprovedAccountIDs) {
		hasher.Write(id)
		hasher.Write(a.ApprovedAccountIDs[id])
	}
	hasher.Write(a.NextApprovalID)
}

// Entries returns approvals as a list sorted by account ID.
func (a *TokenApprovals) Entries(tokenID TokenID) []ApprovalEntry {
	if a == nil {
		return nil
	}
	ids := util.SortedKeys(a.ApprovedAccountIDs)
	return util.TransformSlice(ids, func(id types.AccountID) ApprovalEntry {
		return ApprovalEntry{TokenID: tokenID, AccountID: id, ApprovalID: a.ApprovedAccountIDs[id]}
	})
}
