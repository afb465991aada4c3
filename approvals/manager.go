package approvals

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

// TokenRegistry answers who owns a token. It must return
// nft.ErrTokenNotFound for unknown tokens.
type TokenRegistry interface {
	TokenOwner(tokenID nft.TokenID) (types.AccountID, error)
}

type (
	ApproveRequest struct {
		TokenID    nft.TokenID
		AccountID  types.AccountID // account to approve
		Caller     types.AccountID // predecessor of the call, must own the token
		Deposit    types.Amount
		PrepaidGas types.Gas
		// UsedGas is the gas the call has burnt by the time it reaches the
		// manager, it must fit into GasForApprove.
		UsedGas types.Gas
		Msg     *string
	}

	ApproveResult struct {
		ApprovalID uint64
		// Refund is the part of the deposit not needed to cover the storage,
		// it must be returned to the caller.
		Refund types.Amount
		// Pending is the notification the caller must dispatch, nil when
		// the request had no message.
		Pending *PendingCall
		Phase   Phase
	}
)

/*
Manager implements the approval operations of the token contract on top
of a Store. All the preconditions are checked before the store is modified
so a rejected call leaves the store unchanged.
*/
type Manager struct {
	cfg      Config
	store    Store
	tokens   TokenRegistry
	notifier *Notifier
	log      *slog.Logger
}

type Option func(*Manager)

func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

func NewManager(cfg Config, store Store, tokens TokenRegistry, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid approval manager config: %w", err)
	}
	if store == nil {
		return nil, errors.New("approval store is nil")
	}
	if tokens == nil {
		return nil, errors.New("token registry is nil")
	}
	m := &Manager{
		cfg:    cfg,
		store:  store,
		tokens: tokens,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.notifier = NewNotifier(cfg, m.log)
	return m, nil
}

func (m *Manager) Notifier() *Notifier {
	return m.notifier
}

func (m *Manager) Config() Config {
	return m.cfg
}

/*
Approve grants req.AccountID access to the token. Re-approving an account
replaces its approval ID with a new one, the old ID stops being valid.
*/
func (m *Manager) Approve(req ApproveRequest) (*ApproveResult, error) {
	log := m.log.With("token_id", req.TokenID, "account_id", req.AccountID)
	log.Debug("approval phase", "phase", PhaseReceived)

	required, err := m.validateApprove(req)
	if err != nil {
		log.Debug("approval phase", "phase", PhaseRejected, "error", err)
		return nil, err
	}
	log.Debug("approval phase", "phase", PhaseValidated)

	id, err := m.store.SetApproval(req.TokenID, req.AccountID)
	if err != nil {
		return nil, fmt.Errorf("storing approval: %w", err)
	}
	refund, _ := req.Deposit.Sub(required)
	log.Info("account approved", "phase", PhaseMutated, "approval_id", id)

	res := &ApproveResult{ApprovalID: id, Refund: refund, Phase: PhaseCompleted}
	if req.Msg != nil {
		entry := nft.ApprovalEntry{TokenID: req.TokenID, AccountID: req.AccountID, ApprovalID: id}
		// gas was checked by validateApprove so this doesn't fail
		if res.Pending, err = m.notifier.Prepare(req.Caller, entry, *req.Msg, req.PrepaidGas, req.UsedGas); err != nil {
			return nil, err
		}
		res.Phase = PhaseOutboundDispatched
	}
	log.Debug("approval phase", "phase", res.Phase)
	return res, nil
}

// validateApprove returns the deposit required by the request.
func (m *Manager) validateApprove(req ApproveRequest) (types.Amount, error) {
	if req.Deposit.IsZero() {
		return types.Amount{}, fmt.Errorf("%w: requires attached deposit of at least 1 yocto", nft.ErrInsufficientDeposit)
	}
	if err := req.AccountID.Validate(); err != nil {
		return types.Amount{}, fmt.Errorf("approved account: %w", err)
	}
	if err := m.checkOwner(req.TokenID, req.Caller); err != nil {
		return types.Amount{}, err
	}
	current, err := m.store.Get(req.TokenID)
	if err != nil {
		return types.Amount{}, fmt.Errorf("loading approvals: %w", err)
	}

	var required types.Amount
	if _, reapprove := current.ApprovedAccountIDs[req.AccountID]; !reapprove {
		if len(current.ApprovedAccountIDs) >= m.cfg.MaxApprovalsPerToken {
			return types.Amount{}, fmt.Errorf("%w: token %q has %d approvals", nft.ErrTooManyApprovals, req.TokenID, len(current.ApprovedAccountIDs))
		}
		if required, err = m.cfg.StorageCost(req.AccountID); err != nil {
			return types.Amount{}, err
		}
	}
	if req.Deposit.Cmp(required) < 0 {
		return types.Amount{}, fmt.Errorf("%w: attached %s, required %s", nft.ErrInsufficientDeposit, req.Deposit, required)
	}
	if req.Msg != nil {
		if err := m.notifier.CheckGas(req.PrepaidGas, req.UsedGas); err != nil {
			return types.Amount{}, err
		}
	}
	return required, nil
}

func (m *Manager) checkOwner(tokenID nft.TokenID, caller types.AccountID) error {
	owner, err := m.tokens.TokenOwner(tokenID)
	if err != nil {
		return err
	}
	if owner != caller {
		return fmt.Errorf("%w: token %q is owned by %s", nft.ErrNotOwner, tokenID, owner)
	}
	return nil
}

/*
Revoke removes the approval of the account. Returned refund is the deposit
plus the storage cost released by the approval.
*/
func (m *Manager) Revoke(tokenID nft.TokenID, accountID, caller types.AccountID, deposit types.Amount) (types.Amount, error) {
	if deposit.IsZero() {
		return types.Amount{}, fmt.Errorf("%w: requires attached deposit of at least 1 yocto", nft.ErrInsufficientDeposit)
	}
	if err := m.checkOwner(tokenID, caller); err != nil {
		return types.Amount{}, err
	}
	released, err := m.cfg.StorageCost(accountID)
	if err != nil {
		return types.Amount{}, err
	}
	refund, ok := deposit.Add(released)
	if !ok {
		return types.Amount{}, errors.New("refund amount overflows")
	}
	removed, err := m.store.RemoveApproval(tokenID, accountID)
	if err != nil {
		return types.Amount{}, fmt.Errorf("removing approval: %w", err)
	}
	if !removed {
		return types.Amount{}, fmt.Errorf("%w: %s is not approved for token %q", nft.ErrApprovalDoesNotExist, accountID, tokenID)
	}
	m.log.Info("approval revoked", "token_id", tokenID, "account_id", accountID)
	return refund, nil
}

// RevokeAll removes all approvals of the token, revoking nothing is not an error.
func (m *Manager) RevokeAll(tokenID nft.TokenID, caller types.AccountID, deposit types.Amount) (types.Amount, error) {
	if deposit.IsZero() {
		return types.Amount{}, fmt.Errorf("%w: requires attached deposit of at least 1 yocto", nft.ErrInsufficientDeposit)
	}
	if err := m.checkOwner(tokenID, caller); err != nil {
		return types.Amount{}, err
	}
	released, err := m.clear(tokenID)
	if err != nil {
		return types.Amount{}, err
	}
	refund, ok := deposit.Add(released)
	if !ok {
		return types.Amount{}, errors.New("refund amount overflows")
	}
	return refund, nil
}

// clear removes all approvals of the token and returns the storage cost released.
func (m *Manager) clear(tokenID nft.TokenID) (types.Amount, error) {
	current, err := m.store.Get(tokenID)
	if err != nil {
		return types.Amount{}, fmt.Errorf("loading approvals: %w", err)
	}
	released, err := m.storageCostOf(current)
	if err != nil {
		return types.Amount{}, err
	}
	if len(current.ApprovedAccountIDs) == 0 {
		return released, nil
	}
	if err := m.store.ClearAll(tokenID); err != nil {
		return types.Amount{}, fmt.Errorf("clearing approvals: %w", err)
	}
	m.log.Info("all approvals revoked", "token_id", tokenID, "count", len(current.ApprovedAccountIDs))
	return released, nil
}

func (m *Manager) storageCostOf(ta *nft.TokenApprovals) (types.Amount, error) {
	var total types.Amount
	for id := range ta.ApprovedAccountIDs {
		cost, err := m.cfg.StorageCost(id)
		if err != nil {
			return types.Amount{}, err
		}
		var ok bool
		if total, ok = total.Add(cost); !ok {
			return types.Amount{}, errors.New("storage cost overflows")
		}
	}
	return total, nil
}

// Register creates empty approval state for a newly minted token.
func (m *Manager) Register(tokenID nft.TokenID) error {
	return m.store.Create(tokenID)
}

/*
ClearOnTransfer removes all approvals of the token when it changes owner.
Returned amount is the storage deposit released, it belongs to the previous
owner.
*/
func (m *Manager) ClearOnTransfer(tokenID nft.TokenID) (types.Amount, error) {
	return m.clear(tokenID)
}

// Forget deletes all approval state of the burned token.
func (m *Manager) Forget(tokenID nft.TokenID) (types.Amount, error) {
	current, err := m.store.Get(tokenID)
	if err != nil {
		return types.Amount{}, fmt.Errorf("loading approvals: %w", err)
	}
	released, err := m.storageCostOf(current)
	if err != nil {
		return types.Amount{}, err
	}
	if err := m.store.Delete(tokenID); err != nil {
		return types.Amount{}, fmt.Errorf("deleting approvals: %w", err)
	}
	return released, nil
}
