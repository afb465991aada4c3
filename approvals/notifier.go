package approvals

import (
	"fmt"
	"log/slog"

	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

type (
	// PendingCall describes the nft_on_approve call to the approved account
	// and the nft_resolve_approve continuation the contract must schedule on
	// itself. It's up to the caller to turn it into a promise of the runtime.
	PendingCall struct {
		Receiver types.AccountID
		Method   string
		Args     nft.OnApproveAttributes
		Gas      types.Gas
		Callback Continuation
	}

	Continuation struct {
		Method string
		Args   nft.ResolveApproveAttributes
		Gas    types.Gas
	}

	// PromiseResult is the outcome of the outbound call as seen by the continuation.
	PromiseResult struct {
		Status types.ExecutionStatus
		Value  cbor.RawCBOR
		Error  string
	}
)

func (r PromiseResult) Succeeded() bool {
	return r.Status == types.StatusSuccessValue
}

// Notifier builds the outbound approval notification and interprets its result.
type Notifier struct {
	gasForApprove  types.Gas
	gasForResolve  types.Gas
	minReceiverGas types.Gas
	log            *slog.Logger
}

func NewNotifier(cfg Config, log *slog.Logger) *Notifier {
	return &Notifier{
		gasForApprove:  cfg.GasForApprove,
		gasForResolve:  cfg.GasForResolveApprove,
		minReceiverGas: cfg.MinGasForReceiver,
		log:            log,
	}
}

// RequiredGas returns the min prepaid gas of the approve call with message.
func (n *Notifier) RequiredGas() types.Gas {
	return n.gasForApprove + n.gasForResolve + n.minReceiverGas
}

/*
CheckGas checks that the prepaid gas covers the approve call, the min gas
of the receiver and the continuation. The gas already used by the approve
call must fit into the part reserved for it, otherwise the outbound calls
can't be scheduled.
*/
func (n *Notifier) CheckGas(prepaid, used types.Gas) error {
	if required := n.RequiredGas(); prepaid < required {
		return fmt.Errorf("%w: attached %d, required %d", nft.ErrInsufficientGas, prepaid, required)
	}
	if used > n.gasForApprove {
		return fmt.Errorf("%w: approve call used %d, reserved %d", nft.ErrInsufficientGas, used, n.gasForApprove)
	}
	return nil
}

/*
Prepare returns the outbound call notifying "accountID" about the approval.
The receiver gets all the prepaid gas except what is reserved for the approve
call itself and for the continuation.
*/
func (n *Notifier) Prepare(owner types.AccountID, entry nft.ApprovalEntry, msg string, prepaid, used types.Gas) (*PendingCall, error) {
	if err := n.CheckGas(prepaid, used); err != nil {
		return nil, err
	}
	return &PendingCall{
		Receiver: entry.AccountID,
		Method:   nft.MethodOnApprove,
		Args: nft.OnApproveAttributes{
			TokenID:    entry.TokenID,
			OwnerID:    owner,
			ApprovalID: entry.ApprovalID,
			Msg:        msg,
		},
		Gas: prepaid - n.gasForApprove - n.gasForResolve,
		Callback: Continuation{
			Method: nft.MethodResolveApprove,
			Args: nft.ResolveApproveAttributes{
				OwnerID:    owner,
				AccountID:  entry.AccountID,
				TokenID:    entry.TokenID,
				ApprovalID: entry.ApprovalID,
			},
			Gas: n.gasForResolve,
		},
	}, nil
}

/*
Resolve is the body of the nft_resolve_approve continuation: it relays the
value returned by the receiver or, when the receiver failed, returns tagged
ReceiverCallFailed value. The approval is not touched either way.

Only the contract itself may call the continuation, ie caller must be equal
to current.
*/
func (n *Notifier) Resolve(caller, current types.AccountID, args nft.ResolveApproveAttributes, results []PromiseResult) (cbor.RawCBOR, error) {
	log := n.log.With("token_id", args.TokenID, "account_id", args.AccountID, "approval_id", args.ApprovalID)
	if caller != current {
		log.Warn("unauthorized continuation call", "caller", caller)
		return nil, fmt.Errorf("%w: called by %s", nft.ErrUnauthorizedCallback, caller)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("expected 1 promise result, got %d", len(results))
	}

	res := results[0]
	if res.Succeeded() {
		log.Debug("approval phase", "phase", PhaseReceiverSucceeded)
		log.Debug("approval phase", "phase", PhaseCompleted)
		if res.Value.IsNil() {
			return cbor.Null(), nil
		}
		return res.Value, nil
	}

	reason := res.Error
	if reason == "" {
		reason = res.Status.String()
	}
	log.Info("receiver failed to handle approval", "phase", PhaseReceiverFailed, "reason", reason)
	value, err := cbor.Marshal(&nft.ReceiverCallFailed{
		Receiver:   args.AccountID,
		TokenID:    args.TokenID,
		ApprovalID: args.ApprovalID,
		Reason:     reason,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding receiver failure: %w", err)
	}
	log.Debug("approval phase", "phase", PhaseCompleted)
	return value, nil
}
