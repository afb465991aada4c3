/*
Package sandbox sets up a ledger with the token contract, the approval
receiver contract and a couple of user accounts, the environment the
scenarios, the CLI and the RPC server run against.
*/
package sandbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/contracts/approvalreceiver"
	"github.com/alphabill-org/alphabill-nft/contracts/nft"
	"github.com/alphabill-org/alphabill-nft/runtime"
	abnft "github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

const (
	Root     types.AccountID = "test.near"
	Alice    types.AccountID = "alice.test.near"
	Bob      types.AccountID = "bob.test.near"
	NFT      types.AccountID = "nft.test.near"
	Receiver types.AccountID = "approval-receiver.test.near"
)

// DefaultGas is the gas attached to the calls made by the helpers.
var DefaultGas = types.TGas(300)

type (
	Sandbox struct {
		Ledger   *runtime.Ledger
		NFT      *nft.Contract
		Receiver *approvalreceiver.Contract
	}

	Options struct {
		runtimeCfg runtime.Config
		approvals  approvals.Config
		store      approvals.Store
		balance    types.Amount
		log        *slog.Logger
		ledgerOpts []runtime.Option
	}

	Option func(*Options)
)

func WithRuntimeConfig(cfg runtime.Config) Option {
	return func(o *Options) {
		o.runtimeCfg = cfg
	}
}

func WithApprovalsConfig(cfg approvals.Config) Option {
	return func(o *Options) {
		o.approvals = cfg
	}
}

// WithStore sets the approval store of the token contract, by default
// in-memory store is used.
func WithStore(store approvals.Store) Option {
	return func(o *Options) {
		o.store = store
	}
}

// WithBalance sets the initial balance of the user accounts.
func WithBalance(b types.Amount) Option {
	return func(o *Options) {
		o.balance = b
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(o *Options) {
		o.log = log
	}
}

func WithLedgerOptions(opts ...runtime.Option) Option {
	return func(o *Options) {
		o.ledgerOpts = append(o.ledgerOpts, opts...)
	}
}

func New(opts ...Option) (*Sandbox, error) {
	o := &Options{
		runtimeCfg: runtime.DefaultConfig(),
		approvals:  approvals.DefaultConfig(),
		balance:    types.NEAR(100),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = approvals.NewMemoryStore(o.approvals.InitialApprovalID)
	}

	ledger := runtime.New(o.runtimeCfg, append([]runtime.Option{runtime.WithLogger(o.log)}, o.ledgerOpts...)...)
	for _, id := range []types.AccountID{Root, Alice, Bob, NFT, Receiver} {
		if err := ledger.CreateAccount(id, o.balance); err != nil {
			return nil, fmt.Errorf("creating account %s: %w", id, err)
		}
	}

	nftContract, err := nft.New(NFT, o.store, o.approvals, nft.WithLogger(o.log.With("contract", NFT)))
	if err != nil {
		return nil, fmt.Errorf("creating token contract: %w", err)
	}
	if err := ledger.Deploy(NFT, nftContract); err != nil {
		return nil, fmt.Errorf("deploying token contract: %w", err)
	}
	receiver, err := approvalreceiver.New(NFT, o.log.With("contract", Receiver))
	if err != nil {
		return nil, fmt.Errorf("creating approval receiver contract: %w", err)
	}
	if err := ledger.Deploy(Receiver, receiver); err != nil {
		return nil, fmt.Errorf("deploying approval receiver contract: %w", err)
	}

	return &Sandbox{Ledger: ledger, NFT: nftContract, Receiver: receiver}, nil
}

// Call executes method of the token contract signed by "signer" and returns
// the final outcome of the call.
func (s *Sandbox) Call(ctx context.Context, signer types.AccountID, method string, args any, deposit types.Amount) (*types.Outcome, error) {
	co, err := types.NewCallOrder(signer, NFT, method, args, deposit, DefaultGas)
	if err != nil {
		return nil, err
	}
	return s.Ledger.Call(ctx, co)
}

// Submit queues the call of the token contract without executing it.
func (s *Sandbox) Submit(ctx context.Context, signer types.AccountID, method string, args any, deposit types.Amount, gas types.Gas) (string, error) {
	co, err := types.NewCallOrder(signer, NFT, method, args, deposit, gas)
	if err != nil {
		return "", err
	}
	return s.Ledger.Submit(ctx, co)
}

// Mint mints token owned by "owner", the root account pays the storage.
func (s *Sandbox) Mint(ctx context.Context, tokenID abnft.TokenID, owner types.AccountID) error {
	out, err := s.Call(ctx, NFT, abnft.MethodMint, &abnft.MintAttributes{
		TokenID:    tokenID,
		ReceiverID: owner,
		Metadata:   &abnft.TokenMetadata{Title: &[]string{"Olympus Mons"}[0]},
	}, types.NEAR(1))
	if err != nil {
		return err
	}
	if !out.IsSuccess() {
		return fmt.Errorf("minting token %q: %w", tokenID, out.ErrDetail())
	}
	return nil
}

// Token returns the token view or nil when the token doesn't exist.
func (s *Sandbox) Token(ctx context.Context, tokenID abnft.TokenID) (*abnft.TokenView, error) {
	out, err := s.Ledger.View(ctx, NFT, abnft.MethodToken, &abnft.TokenAttributes{TokenID: tokenID})
	if err != nil {
		return nil, err
	}
	if !out.IsSuccess() {
		return nil, out.ErrDetail()
	}
	var tv *abnft.TokenView
	if err := out.UnmarshalValue(&tv); err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}
	return tv, nil
}

func (s *Sandbox) IsApproved(ctx context.Context, tokenID abnft.TokenID, accountID types.AccountID, approvalID *uint64) (bool, error) {
	out, err := s.Ledger.View(ctx, NFT, abnft.MethodIsApproved, &abnft.IsApprovedAttributes{
		TokenID:           tokenID,
		ApprovedAccountID: accountID,
		ApprovalID:        approvalID,
	})
	if err != nil {
		return false, err
	}
	if !out.IsSuccess() {
		return false, out.ErrDetail()
	}
	var ok bool
	if err := out.UnmarshalValue(&ok); err != nil {
		return false, fmt.Errorf("decoding result: %w", err)
	}
	return ok, nil
}

func (s *Sandbox) Balance(id types.AccountID) (types.Amount, error) {
	return s.Ledger.Balance(id)
}
