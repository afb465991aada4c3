/*
Package nft implements non-fungible token contract with approval management.
Token bookkeeping is minimal, the approval operations are delegated to the
approvals.Manager.
*/
package nft

import (
	"crypto"
	"fmt"
	"log/slog"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/cbor"
	abhash "github.com/alphabill-org/alphabill-nft/hash"
	"github.com/alphabill-org/alphabill-nft/runtime"
	abnft "github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
	"github.com/alphabill-org/alphabill-nft/util"
)

var (
	_ runtime.Contract        = (*Contract)(nil)
	_ runtime.Revertible      = (*Contract)(nil)
	_ approvals.TokenRegistry = (*Contract)(nil)
)

// tokenStorageOverhead is the number of bytes a token takes in storage
// in addition to it's ID, owner and metadata.
const tokenStorageOverhead = 40

type Contract struct {
	owner     types.AccountID // the account allowed to mint
	tokens    map[abnft.TokenID]*abnft.Token
	journal   []func() // undo functions of the token changes
	snapshots []snapshot
	store     approvals.Store
	approvals *approvals.Manager
	byteCost  types.Amount
	log       *slog.Logger
}

type snapshot struct {
	journal int
	store   int
}

type Option func(*Contract)

func WithLogger(log *slog.Logger) Option {
	return func(c *Contract) {
		c.log = log
	}
}

/*
New returns token contract owned by "owner". When the store implements
runtime.Revertible failed calls are reverted in the store too, otherwise
the store relies on the approvals.Manager checking everything before
modifying the store.
*/
func New(owner types.AccountID, store approvals.Store, cfg approvals.Config, opts ...Option) (*Contract, error) {
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("contract owner: %w", err)
	}
	c := &Contract{
		owner:    owner,
		tokens:   map[abnft.TokenID]*abnft.Token{},
		store:    store,
		byteCost: cfg.StorageByteCost,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	m, err := approvals.NewManager(cfg, store, c, approvals.WithLogger(c.log))
	if err != nil {
		return nil, err
	}
	c.approvals = m
	return c, nil
}

func (c *Contract) Approvals() *approvals.Manager {
	return c.approvals
}

func (c *Contract) Invoke(env *runtime.Env, method string, args cbor.RawCBOR) (runtime.Return, error) {
	switch method {
	case abnft.MethodApprove:
		return c.approve(env, args)
	case abnft.MethodRevoke:
		return c.revoke(env, args)
	case abnft.MethodRevokeAll:
		return c.revokeAll(env, args)
	case abnft.MethodIsApproved:
		return c.isApproved(env, args)
	case abnft.MethodResolveApprove:
		return c.resolveApprove(env, args)
	case abnft.MethodMint:
		return c.mint(env, args)
	case abnft.MethodToken:
		return c.token(env, args)
	case abnft.MethodTransfer:
		return c.transfer(env, args)
	case abnft.MethodBurn:
		return c.burn(env, args)
	default:
		return runtime.Return{}, fmt.Errorf("%w: %s", runtime.ErrMethodNotFound, method)
	}
}

func decodeArgs[T any](method string, args cbor.RawCBOR) (*T, error) {
	attr := new(T)
	if err := cbor.Unmarshal(args, attr); err != nil {
		return nil, fmt.Errorf("decoding %s arguments: %w", method, err)
	}
	return attr, nil
}

func requireCall(env *runtime.Env, method string) error {
	if env.IsView() {
		return fmt.Errorf("%w: %s", abnft.ErrViewCall, method)
	}
	return nil
}

// TokenOwner implements approvals.TokenRegistry.
func (c *Contract) TokenOwner(tokenID abnft.TokenID) (types.AccountID, error) {
	t, ok := c.tokens[tokenID]
	if !ok {
		return "", fmt.Errorf("%w: %q", abnft.ErrTokenNotFound, tokenID)
	}
	return t.OwnerID, nil
}

func (c *Contract) setToken(t *abnft.Token) {
	prev, existed := c.tokens[t.TokenID]
	c.journal = append(c.journal, func() {
		if existed {
			c.tokens[t.TokenID] = prev
		} else {
			delete(c.tokens, t.TokenID)
		}
	})
	c.tokens[t.TokenID] = t
}

func (c *Contract) deleteToken(tokenID abnft.TokenID) {
	prev, ok := c.tokens[tokenID]
	if !ok {
		return
	}
	c.journal = append(c.journal, func() { c.tokens[tokenID] = prev })
	delete(c.tokens, tokenID)
}

func (c *Contract) Snapshot() int {
	s := snapshot{journal: len(c.journal), store: -1}
	if rs, ok := c.store.(runtime.Revertible); ok {
		s.store = rs.Snapshot()
	}
	c.snapshots = append(c.snapshots, s)
	return len(c.snapshots) - 1
}

func (c *Contract) RevertToSnapshot(id int) {
	s := c.snapshots[id]
	for i := len(c.journal) - 1; i >= s.journal; i-- {
		c.journal[i]()
	}
	c.journal = c.journal[:s.journal]
	if rs, ok := c.store.(runtime.Revertible); ok && s.store >= 0 {
		rs.RevertToSnapshot(s.store)
	}
	c.snapshots = c.snapshots[:id]
}

func (c *Contract) Commit() {
	c.journal = nil
	c.snapshots = nil
	if rs, ok := c.store.(runtime.Revertible); ok {
		rs.Commit()
	}
}

/*
StateHash returns hash of the tokens and, when the store supports it, of
the approvals.
*/
func (c *Contract) StateHash(algorithm crypto.Hash) ([]byte, error) {
	hasher := abhash.New(algorithm.New())
	for _, id := range util.SortedKeys(c.tokens) {
		c.tokens[id].Write(hasher)
	}
	if hs, ok := c.store.(interface {
		StateHash(crypto.Hash) ([]byte, error)
	}); ok {
		h, err := hs.StateHash(algorithm)
		if err != nil {
			return nil, fmt.Errorf("hashing approvals: %w", err)
		}
		hasher.WriteRaw(h)
	}
	return hasher.Sum()
}
