package runtime

import (
	"fmt"

	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/types"
)

/*
Promise describes a call the contract wants to be made after the current
receipt has been executed successfully. Continuations attached with Then
are executed after the previous call of the chain has completed and they
get it's result as promise result.
*/
type Promise struct {
	Receiver types.AccountID
	Method   string
	Args     cbor.RawCBOR
	Deposit  types.Amount
	Gas      types.Gas
	then     *Promise
}

// NewPromise encodes args as CBOR and returns promise to call the method.
func NewPromise(receiver types.AccountID, method string, args any, deposit types.Amount, gas types.Gas) (*Promise, error) {
	p := &Promise{Receiver: receiver, Method: method, Deposit: deposit, Gas: gas}
	if args == nil {
		p.Args = cbor.Null()
		return p, nil
	}
	data, err := cbor.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding arguments of %s: %w", method, err)
	}
	p.Args = data
	return p, nil
}

// Then attaches the continuation to the end of the promise chain.
func (p *Promise) Then(next *Promise) *Promise {
	last := p
	for last.then != nil {
		last = last.then
	}
	last.then = next
	return p
}

// chain returns all the calls of the promise in execution order.
func (p *Promise) chain() []*Promise {
	var calls []*Promise
	for c := p; c != nil; c = c.then {
		calls = append(calls, c)
	}
	return calls
}

// totals returns the gas and deposit of the whole chain.
func (p *Promise) totals() (types.Gas, types.Amount, error) {
	var gas types.Gas
	var deposit types.Amount
	for _, c := range p.chain() {
		var ok bool
		if gas, ok = gas.Add(c.Gas); !ok {
			return 0, types.Amount{}, fmt.Errorf("%w: gas of the promise chain overflows", ErrExceededPrepaidGas)
		}
		if deposit, ok = deposit.Add(c.Deposit); !ok {
			return 0, types.Amount{}, fmt.Errorf("%w: deposit of the promise chain overflows", ErrBalanceOverflow)
		}
	}
	return gas, deposit, nil
}

/*
Return is the result of the contract method: either a value or a promise
the result of the call is forwarded to.
*/
type Return struct {
	value   cbor.RawCBOR
	promise *Promise
}

// Value encodes v as the return value.
func Value(v any) (Return, error) {
	data, err := cbor.Marshal(v)
	if err != nil {
		return Return{}, fmt.Errorf("encoding return value: %w", err)
	}
	return Return{value: data}, nil
}

func RawValue(v cbor.RawCBOR) Return {
	return Return{value: v}
}

// Forward returns the result of the promise as the result of the call.
func Forward(p *Promise) Return {
	return Return{promise: p}
}

// Void is the return value of a method which returns nothing.
func Void() Return {
	return Return{}
}

/*
PromiseResult is the outcome of the call the current receipt waited for,
available to continuations via Env.PromiseResults.
*/
type PromiseResult struct {
	Status types.ExecutionStatus
	Value  cbor.RawCBOR
	Error  string
}

func (r PromiseResult) Succeeded() bool {
	return r.Status == types.StatusSuccessValue
}
