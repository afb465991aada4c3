/*
Package approvalreceiver implements a contract which handles nft_on_approve
notifications. The behaviour depends on the message of the approval:

  - "return-now" returns "cool" immediately;
  - "panic" panics;
  - "burn-gas" burns more gas than is available;
  - anything else is returned via a promise to the contract itself.
*/
package approvalreceiver

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/runtime"
	abnft "github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

const (
	MethodOkGo = "ok_go"

	MsgReturnNow = "return-now"
	MsgPanic     = "panic"
	MsgBurnGas   = "burn-gas"
)

var ErrUnexpectedCaller = errors.New("unexpected caller")

// OkGoAttributes are the arguments of the ok_go method.
type OkGoAttributes struct {
	_   struct{} `cbor:",toarray"`
	Msg string   `json:"msg"`
}

var _ runtime.Contract = (*Contract)(nil)

type Contract struct {
	nftAccount types.AccountID // the only account allowed to notify
	log        *slog.Logger
}

func New(nftAccount types.AccountID, log *slog.Logger) (*Contract, error) {
	if err := nftAccount.Validate(); err != nil {
		return nil, fmt.Errorf("nft contract account: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Contract{nftAccount: nftAccount, log: log}, nil
}

func (c *Contract) Invoke(env *runtime.Env, method string, args cbor.RawCBOR) (runtime.Return, error) {
	switch method {
	case abnft.MethodOnApprove:
		return c.onApprove(env, args)
	case MethodOkGo:
		return c.okGo(env, args)
	default:
		return runtime.Return{}, fmt.Errorf("%w: %s", runtime.ErrMethodNotFound, method)
	}
}

func (c *Contract) onApprove(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	if env.Predecessor() != c.nftAccount {
		return runtime.Return{}, fmt.Errorf("%w: notification from %s, expected %s", ErrUnexpectedCaller, env.Predecessor(), c.nftAccount)
	}
	attr := &abnft.OnApproveAttributes{}
	if err := cbor.Unmarshal(args, attr); err != nil {
		return runtime.Return{}, fmt.Errorf("decoding %s arguments: %w", abnft.MethodOnApprove, err)
	}
	env.Log("in %s; token_id=%s, owner_id=%s, approval_id=%d, msg=%s", abnft.MethodOnApprove, attr.TokenID, attr.OwnerID, attr.ApprovalID, attr.Msg)
	c.log.Debug("approval notification", "token_id", attr.TokenID, "owner_id", attr.OwnerID, "approval_id", attr.ApprovalID)

	switch attr.Msg {
	case MsgReturnNow:
		return runtime.Value("cool")
	case MsgPanic:
		panic("receiver was asked to panic")
	case MsgBurnGas:
		if err := env.UseGas(math.MaxUint64); err != nil {
			return runtime.Return{}, err
		}
		return runtime.Void(), nil
	}

	p, err := runtime.NewPromise(env.CurrentAccount(), MethodOkGo, &OkGoAttributes{Msg: attr.Msg}, types.Amount{}, env.RemainingGas())
	if err != nil {
		return runtime.Return{}, err
	}
	return runtime.Forward(p), nil
}

func (c *Contract) okGo(env *runtime.Env, args cbor.RawCBOR) (runtime.Return, error) {
	if env.Predecessor() != env.CurrentAccount() {
		return runtime.Return{}, fmt.Errorf("%w: %s is private", ErrUnexpectedCaller, MethodOkGo)
	}
	attr := &OkGoAttributes{}
	if err := cbor.Unmarshal(args, attr); err != nil {
		return runtime.Return{}, fmt.Errorf("decoding %s arguments: %w", MethodOkGo, err)
	}
	env.Log("in %s; msg=%s", MethodOkGo, attr.Msg)
	return runtime.Value(attr.Msg)
}
