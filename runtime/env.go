package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alphabill-org/alphabill-nft/types"
)

type transfer struct {
	to     types.AccountID
	amount types.Amount
}

/*
Env is the execution environment of a single receipt, contract methods
get information about the call from it and use it to burn gas, log and
transfer funds. Transfers are applied only when the method succeeds.
*/
type Env struct {
	ctx         context.Context
	current     types.AccountID
	predecessor types.AccountID
	signer      types.AccountID
	deposit     types.Amount
	prepaid     types.Gas
	used        types.Gas
	view        bool
	results     []PromiseResult
	logs        []string
	transfers   []transfer
	log         *slog.Logger
}

func (env *Env) Context() context.Context { return env.ctx }

// CurrentAccount is the account the contract is deployed on.
func (env *Env) CurrentAccount() types.AccountID { return env.current }

// Predecessor is the account which created the receipt, for the first
// receipt of the call it's the signer.
func (env *Env) Predecessor() types.AccountID { return env.predecessor }

func (env *Env) Signer() types.AccountID { return env.signer }

func (env *Env) AttachedDeposit() types.Amount { return env.deposit }

func (env *Env) PrepaidGas() types.Gas { return env.prepaid }

func (env *Env) UsedGas() types.Gas { return env.used }

// IsView returns true when the method is executed as read only view call.
func (env *Env) IsView() bool { return env.view }

func (env *Env) Logger() *slog.Logger { return env.log }

// RemainingGas returns the gas not yet used by the receipt.
func (env *Env) RemainingGas() types.Gas {
	return env.prepaid - env.used
}

/*
UseGas burns gas, when the receipt runs out of prepaid gas types.ErrOutOfGas
is returned and the method must fail with it.
*/
func (env *Env) UseGas(g types.Gas) error {
	used, ok := env.used.Add(g)
	if !ok || used > env.prepaid {
		env.used = env.prepaid
		return fmt.Errorf("%w: prepaid gas %d exceeded", types.ErrOutOfGas, env.prepaid)
	}
	env.used = used
	return nil
}

// Log adds message to the logs of the receipt outcome.
func (env *Env) Log(format string, args ...any) {
	env.logs = append(env.logs, fmt.Sprintf(format, args...))
}

// Transfer schedules transfer of amount from the current account to "to".
func (env *Env) Transfer(to types.AccountID, amount types.Amount) error {
	if env.view {
		return ErrStateChangeInView
	}
	if amount.IsZero() {
		return nil
	}
	env.transfers = append(env.transfers, transfer{to: to, amount: amount})
	return nil
}

// PromiseResults returns the results of the calls the continuation waited for.
func (env *Env) PromiseResults() []PromiseResult {
	return env.results
}
