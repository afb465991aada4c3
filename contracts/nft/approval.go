package nft

import (
	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/runtime"
	abnft "github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
	"github.com/alphabill-org/alphabill-nft/util"
)

func (c *Contract) approve(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	if err := requireCall(env, abnft.MethodApprove); err != nil {
		return runtime.Return{}, err
	}
	attr, err := decodeArgs[abnft.ApproveAttributes](abnft.MethodApprove, args)
	if err != nil {
		return runtime.Return{}, err
	}
	res, err := c.approvals.Approve(approvals.ApproveRequest{
		TokenID:    attr.TokenID,
		AccountID:  attr.AccountID,
		Caller:     env.Predecessor(),
		Deposit:    env.AttachedDeposit(),
		PrepaidGas: env.PrepaidGas(),
		UsedGas:    env.UsedGas(),
		Msg:        attr.Msg,
	})
	if err != nil {
		return runtime.Return{}, err
	}
	if err := env.Transfer(env.Predecessor(), res.Refund); err != nil {
		return runtime.Return{}, err
	}
	env.Log("approved %s for token %s with approval id %d", attr.AccountID, attr.TokenID, res.ApprovalID)
	if res.Phase.Final() {
		return runtime.Void(), nil
	}

	call, err := runtime.NewPromise(res.Pending.Receiver, res.Pending.Method, res.Pending.Args, types.Amount{}, res.Pending.Gas)
	if err != nil {
		return runtime.Return{}, err
	}
	cb := res.Pending.Callback
	resolve, err := runtime.NewPromise(env.CurrentAccount(), cb.Method, cb.Args, types.Amount{}, cb.Gas)
	if err != nil {
		return runtime.Return{}, err
	}
	return runtime.Forward(call.Then(resolve)), nil
}

func (c *Contract) resolveApprove(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	attr, err := decodeArgs[abnft.ResolveApproveAttributes](abnft.MethodResolveApprove, args)
	if err != nil {
		return runtime.Return{}, err
	}
	results := util.TransformSlice(env.PromiseResults(), func(r runtime.PromiseResult) approvals.PromiseResult {
		return approvals.PromiseResult{Status: r.Status, Value: r.Value, Error: r.Error}
	})
	value, err := c.approvals.Notifier().Resolve(env.Predecessor(), env.CurrentAccount(), *attr, results)
	if err != nil {
		return runtime.Return{}, err
	}
	return runtime.RawValue(value), nil
}

func (c *Contract) revoke(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	if err := requireCall(env, abnft.MethodRevoke); err != nil {
		return runtime.Return{}, err
	}
	attr, err := decodeArgs[abnft.RevokeAttributes](abnft.MethodRevoke, args)
	if err != nil {
		return runtime.Return{}, err
	}
	refund, err := c.approvals.Revoke(attr.TokenID, attr.AccountID, env.Predecessor(), env.AttachedDeposit())
	if err != nil {
		return runtime.Return{}, err
	}
	if err := env.Transfer(env.Predecessor(), refund); err != nil {
		return runtime.Return{}, err
	}
	env.Log("revoked approval of %s for token %s", attr.AccountID, attr.TokenID)
	return runtime.Void(), nil
}

func (c *Contract) revokeAll(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	if err := requireCall(env, abnft.MethodRevokeAll); err != nil {
		return runtime.Return{}, err
	}
	attr, err := decodeArgs[abnft.RevokeAllAttributes](abnft.MethodRevokeAll, args)
	if err != nil {
		return runtime.Return{}, err
	}
	refund, err := c.approvals.RevokeAll(attr.TokenID, env.Predecessor(), env.AttachedDeposit())
	if err != nil {
		return runtime.Return{}, err
	}
	if err := env.Transfer(env.Predecessor(), refund); err != nil {
		return runtime.Return{}, err
	}
	env.Log("revoked all approvals for token %s", attr.TokenID)
	return runtime.Void(), nil
}

func (c *Contract) isApproved(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	attr, err := decodeArgs[abnft.IsApprovedAttributes](abnft.MethodIsApproved, args)
	if err != nil {
		return runtime.Return{}, err
	}
	ok, err := c.approvals.IsApproved(attr.TokenID, attr.ApprovedAccountID, attr.ApprovalID)
	if err != nil {
		return runtime.Return{}, err
	}
	return runtime.Value(ok)
}
