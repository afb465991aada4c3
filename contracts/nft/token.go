package nft

import (
	"encoding/json"
	"fmt"

	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/runtime"
	abnft "github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

type (
	event struct {
		Standard string `json:"standard"`
		Version  string `json:"version"`
		Event    string `json:"event"`
		Data     []any  `json:"data"`
	}

	mintEvent struct {
		OwnerID  types.AccountID `json:"owner_id"`
		TokenIDs []abnft.TokenID `json:"token_ids"`
	}

	transferEvent struct {
		AuthorizedID *types.AccountID `json:"authorized_id,omitempty"`
		OldOwnerID   types.AccountID  `json:"old_owner_id"`
		NewOwnerID   types.AccountID  `json:"new_owner_id"`
		TokenIDs     []abnft.TokenID  `json:"token_ids"`
		Memo         *string          `json:"memo,omitempty"`
	}

	burnEvent struct {
		OwnerID  types.AccountID `json:"owner_id"`
		TokenIDs []abnft.TokenID `json:"token_ids"`
	}
)

// logEvent adds NEP-171 event to the logs of the receipt.
func logEvent(env *runtime.Env, name string, data any) {
	b, err := json.Marshal(event{Standard: "nep171", Version: "1.0.0", Event: name, Data: []any{data}})
	if err != nil {
		env.Logger().Error("encoding event", "event", name, "error", err)
		return
	}
	env.Log("EVENT_JSON:%s", b)
}

// storageBytes returns the number of bytes the token takes in storage.
func storageBytes(t *abnft.Token) (uint64, error) {
	n := t.TokenID.Len() + t.OwnerID.Len() + tokenStorageOverhead
	if t.Metadata != nil {
		md, err := cbor.Marshal(t.Metadata)
		if err != nil {
			return 0, fmt.Errorf("encoding token metadata: %w", err)
		}
		n += uint64(len(md))
	}
	return n, nil
}

func (c *Contract) mint(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	if err := requireCall(env, abnft.MethodMint); err != nil {
		return runtime.Return{}, err
	}
	attr, err := decodeArgs[abnft.MintAttributes](abnft.MethodMint, args)
	if err != nil {
		return runtime.Return{}, err
	}
	if env.Predecessor() != c.owner {
		return runtime.Return{}, fmt.Errorf("%w: only %s may mint tokens", abnft.ErrUnauthorized, c.owner)
	}
	if err := attr.ReceiverID.Validate(); err != nil {
		return runtime.Return{}, fmt.Errorf("token receiver: %w", err)
	}
	if attr.TokenID == "" {
		return runtime.Return{}, fmt.Errorf("token ID is empty")
	}
	if _, ok := c.tokens[attr.TokenID]; ok {
		return runtime.Return{}, fmt.Errorf("%w: %q", abnft.ErrTokenExists, attr.TokenID)
	}

	token := &abnft.Token{TokenID: attr.TokenID, OwnerID: attr.ReceiverID, Metadata: attr.Metadata}
	bytes, err := storageBytes(token)
	if err != nil {
		return runtime.Return{}, err
	}
	required, ok := c.byteCost.MulUint64(bytes)
	if !ok {
		return runtime.Return{}, fmt.Errorf("storage cost of the token overflows")
	}
	refund, ok := env.AttachedDeposit().Sub(required)
	if !ok {
		return runtime.Return{}, fmt.Errorf("%w: attached %s, required %s", abnft.ErrInsufficientDeposit, env.AttachedDeposit(), required)
	}

	if err := c.approvals.Register(token.TokenID); err != nil {
		return runtime.Return{}, err
	}
	c.setToken(token)
	if err := env.Transfer(env.Predecessor(), refund); err != nil {
		return runtime.Return{}, err
	}
	logEvent(env, "nft_mint", mintEvent{OwnerID: token.OwnerID, TokenIDs: []abnft.TokenID{token.TokenID}})
	c.log.Info("token minted", "token_id", token.TokenID, "owner_id", token.OwnerID)
	return runtime.Value(c.view(token))
}

func (c *Contract) view(t *abnft.Token) *abnft.TokenView {
	approved, err := c.approvals.Approvals(t.TokenID)
	if err != nil {
		c.log.Error("loading approvals", "token_id", t.TokenID, "error", err)
	}
	if approved == nil {
		approved = map[types.AccountID]uint64{}
	}
	return &abnft.TokenView{
		TokenID:            t.TokenID,
		OwnerID:            t.OwnerID,
		Metadata:           t.Metadata,
		ApprovedAccountIDs: approved,
	}
}

// token returns the token with it's approvals or null when the token doesn't exist.
func (c *Contract) token(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	attr, err := decodeArgs[abnft.TokenAttributes](abnft.MethodToken, args)
	if err != nil {
		return runtime.Return{}, err
	}
	t, ok := c.tokens[attr.TokenID]
	if !ok {
		return runtime.Void(), nil
	}
	return runtime.Value(c.view(t))
}

func requireOneYocto(env *runtime.Env) error {
	switch env.AttachedDeposit().Cmp(types.NewAmount(1)) {
	case -1:
		return fmt.Errorf("%w: requires attached deposit of exactly 1 yocto", abnft.ErrInsufficientDeposit)
	case 1:
		return fmt.Errorf("%w: requires attached deposit of exactly 1 yocto", abnft.ErrInvalidDeposit)
	}
	return nil
}

/*
transfer changes the owner of the token. The sender must be either the owner
or an approved account, approved account must provide the approval ID when
the ID is known. All approvals of the token are cleared and the storage
deposit they used is returned to the previous owner.
*/
func (c *Contract) transfer(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	if err := requireCall(env, abnft.MethodTransfer); err != nil {
		return runtime.Return{}, err
	}
	if err := requireOneYocto(env); err != nil {
		return runtime.Return{}, err
	}
	attr, err := decodeArgs[abnft.TransferAttributes](abnft.MethodTransfer, args)
	if err != nil {
		return runtime.Return{}, err
	}
	t, ok := c.tokens[attr.TokenID]
	if !ok {
		return runtime.Return{}, fmt.Errorf("%w: %q", abnft.ErrTokenNotFound, attr.TokenID)
	}

	sender := env.Predecessor()
	var authorized *types.AccountID
	if sender != t.OwnerID {
		approved, err := c.approvals.IsApproved(attr.TokenID, sender, attr.ApprovalID)
		if err != nil {
			return runtime.Return{}, err
		}
		if !approved {
			return runtime.Return{}, fmt.Errorf("%w: %s is not approved for token %q", abnft.ErrUnauthorized, sender, attr.TokenID)
		}
		authorized = &sender
	}
	if attr.ReceiverID == t.OwnerID {
		return runtime.Return{}, abnft.ErrSameOwner
	}
	if err := attr.ReceiverID.Validate(); err != nil {
		return runtime.Return{}, fmt.Errorf("token receiver: %w", err)
	}

	released, err := c.approvals.ClearOnTransfer(attr.TokenID)
	if err != nil {
		return runtime.Return{}, err
	}
	oldOwner := t.OwnerID
	nt := t.Copy()
	nt.OwnerID = attr.ReceiverID
	c.setToken(nt)
	if err := env.Transfer(oldOwner, released); err != nil {
		return runtime.Return{}, err
	}
	logEvent(env, "nft_transfer", transferEvent{
		AuthorizedID: authorized,
		OldOwnerID:   oldOwner,
		NewOwnerID:   nt.OwnerID,
		TokenIDs:     []abnft.TokenID{nt.TokenID},
		Memo:         attr.Memo,
	})
	return runtime.Void(), nil
}

/*
burn deletes the token and it's approvals, only the owner may burn. Storage
released by both is refunded to the owner.
*/
func (c *Contract) burn(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	if err := requireCall(env, abnft.MethodBurn); err != nil {
		return runtime.Return{}, err
	}
	if err := requireOneYocto(env); err != nil {
		return runtime.Return{}, err
	}
	attr, err := decodeArgs[abnft.BurnAttributes](abnft.MethodBurn, args)
	if err != nil {
		return runtime.Return{}, err
	}
	t, ok := c.tokens[attr.TokenID]
	if !ok {
		return runtime.Return{}, fmt.Errorf("%w: %q", abnft.ErrTokenNotFound, attr.TokenID)
	}
	if t.OwnerID != env.Predecessor() {
		return runtime.Return{}, fmt.Errorf("%w: token %q is owned by %s", abnft.ErrNotOwner, t.TokenID, t.OwnerID)
	}

	bytes, err := storageBytes(t)
	if err != nil {
		return runtime.Return{}, err
	}
	tokenCost, ok := c.byteCost.MulUint64(bytes)
	if !ok {
		return runtime.Return{}, fmt.Errorf("storage cost of the token overflows")
	}

	released, err := c.approvals.Forget(attr.TokenID)
	if err != nil {
		return runtime.Return{}, err
	}
	refund, ok := released.Add(tokenCost)
	if !ok {
		return runtime.Return{}, fmt.Errorf("refund amount overflows")
	}
	c.deleteToken(attr.TokenID)
	if err := env.Transfer(t.OwnerID, refund); err != nil {
		return runtime.Return{}, err
	}
	logEvent(env, "nft_burn", burnEvent{OwnerID: t.OwnerID, TokenIDs: []abnft.TokenID{t.TokenID}})
	return runtime.Void(), nil
}
