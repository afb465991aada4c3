/*
Package runtime implements simulated sequential ledger: accounts with
balances and deployed contracts, and a FIFO queue of receipts which are
executed one at a time. Contract method may return a promise, the calls of
the promise are executed as separate receipts so unrelated calls may be
executed between a call and it's continuation.
*/
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/internal/idgen"
	"github.com/alphabill-org/alphabill-nft/tracing"
	"github.com/alphabill-org/alphabill-nft/types"
)

/*
Contract is the code deployed on an account. Invoke must not modify the
contract state when it returns error, or the contract must implement
Revertible.
*/
type Contract interface {
	Invoke(env *Env, method string, args cbor.RawCBOR) (Return, error)
}

/*
Revertible is implemented by contracts which keep a journal of changes.
The ledger takes a snapshot before executing a receipt on the contract,
reverts to it when the receipt fails and commits otherwise.
*/
type Revertible interface {
	Snapshot() int
	RevertToSnapshot(int)
	Commit()
}

type Config struct {
	// FunctionCallBaseGas is burnt by every receipt before the method is executed.
	FunctionCallBaseGas types.Gas
	// ViewGas is the gas budget of view calls.
	ViewGas types.Gas
}

func DefaultConfig() Config {
	return Config{
		FunctionCallBaseGas: types.TGas(2),
		ViewGas:             types.TGas(100),
	}
}

type Option func(*Ledger)

func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) {
		l.log = log
	}
}

// WithIDGenerator sets the function used to generate receipt IDs.
func WithIDGenerator(f func() string) Option {
	return func(l *Ledger) {
		l.newID = f
	}
}

type (
	account struct {
		balance  types.Amount
		contract Contract
	}

	receipt struct {
		id          string
		origin      string // ID of the receipt created by the signed call
		signer      types.AccountID
		predecessor types.AccountID
		receiver    types.AccountID
		method      string
		args        cbor.RawCBOR
		deposit     types.Amount
		gas         types.Gas
		results     []PromiseResult
	}
)

type Ledger struct {
	mu       sync.Mutex
	cfg      Config
	accounts map[types.AccountID]*account
	queue    []*receipt
	waiting  map[string][]*receipt // receipts waiting for the result of the key receipt
	pending  map[string]*receipt
	outcomes map[string]*types.Outcome
	byOrigin map[string][]string // origin receipt ID -> executed receipts in order
	newID    func() string
	log      *slog.Logger
}

func New(cfg Config, opts ...Option) *Ledger {
	l := &Ledger{
		cfg:      cfg,
		accounts: map[types.AccountID]*account{},
		waiting:  map[string][]*receipt{},
		pending:  map[string]*receipt{},
		outcomes: map[string]*types.Outcome{},
		byOrigin: map[string][]string{},
		newID:    idgen.New,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) CreateAccount(id types.AccountID, balance types.Amount) error {
	if err := id.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.accounts[id]; ok {
		return fmt.Errorf("%w: %s", ErrAccountExists, id)
	}
	l.accounts[id] = &account{balance: balance}
	l.log.Debug("account created", "account_id", id, "balance", balance)
	return nil
}

// Deploy sets the contract of the existing account.
func (l *Ledger) Deploy(id types.AccountID, contract Contract) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	acc.contract = contract
	return nil
}

func (l *Ledger) Balance(id types.AccountID) (types.Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[id]
	if !ok {
		return types.Amount{}, fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	return acc.balance, nil
}

/*
Submit validates the call, takes the attached deposit from the signer and
queues the receipt. The returned receipt ID can be used to query the
outcome once the receipt has been executed.
*/
func (l *Ledger) Submit(ctx context.Context, order *types.CallOrder) (string, error) {
	if err := order.IsValid(); err != nil {
		return "", fmt.Errorf("invalid call: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	signer, ok := l.accounts[order.Signer]
	if !ok {
		return "", fmt.Errorf("signer: %w: %s", ErrAccountNotFound, order.Signer)
	}
	balance, ok := signer.balance.Sub(order.Deposit)
	if !ok {
		return "", fmt.Errorf("%w: %s has %s, deposit %s", ErrInsufficientBalance, order.Signer, signer.balance, order.Deposit)
	}
	signer.balance = balance

	r := &receipt{
		id:          l.newID(),
		signer:      order.Signer,
		predecessor: order.Signer,
		receiver:    order.Receiver,
		method:      order.Method,
		args:        order.Args,
		deposit:     order.Deposit,
		gas:         order.Gas,
	}
	r.origin = r.id
	l.enqueue(r)
	l.log.Debug("call submitted", "receipt_id", r.id, "signer", r.signer, "receiver", r.receiver, "method", r.method)
	return r.id, nil
}

func (l *Ledger) enqueue(r *receipt) {
	l.queue = append(l.queue, r)
	l.pending[r.id] = r
}

// Step executes the next receipt in the queue, returns false when the queue is empty.
func (l *Ledger) Step(ctx context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return false
	}
	r := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.execute(ctx, r)
	return true
}

// Run executes receipts until the queue is empty.
func (l *Ledger) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !l.Step(ctx) {
			return nil
		}
	}
}

// QueueLen returns the number of receipts ready to be executed.
func (l *Ledger) QueueLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

/*
Call submits the call, runs the ledger until the queue is empty and returns
the final outcome of the call. Contract errors are reported by the outcome,
returned error means the call couldn't be submitted.
*/
func (l *Ledger) Call(ctx context.Context, order *types.CallOrder) (*types.Outcome, error) {
	id, err := l.Submit(ctx, order)
	if err != nil {
		return nil, err
	}
	if err := l.Run(ctx); err != nil {
		return nil, err
	}
	return l.FinalOutcome(id)
}

func (l *Ledger) Outcome(id string) (*types.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outcome(id)
}

func (l *Ledger) outcome(id string) (*types.Outcome, error) {
	if out, ok := l.outcomes[id]; ok {
		return out, nil
	}
	if _, ok := l.pending[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrReceiptPending, id)
	}
	return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, id)
}

/*
FinalOutcome follows the receipts the result of the receipt "id" was
forwarded to and returns the outcome of the last one, ie the outcome which
has the value (or error) of the call.
*/
func (l *Ledger) FinalOutcome(id string) (*types.Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		out, err := l.outcome(id)
		if err != nil {
			return nil, err
		}
		if out.Status != types.StatusSuccessReceipt {
			return out, nil
		}
		id = out.ForwardedTo
	}
}

// Receipts returns the outcomes of all the receipts executed on behalf of
// the call "origin", in execution order.
func (l *Ledger) Receipts(origin string) []*types.Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.byOrigin[origin]
	outs := make([]*types.Outcome, 0, len(ids))
	for _, id := range ids {
		outs = append(outs, l.outcomes[id])
	}
	return outs
}

/*
View executes read only method of the contract. State changes made by the
method are reverted (when contract is Revertible) and promises are not
allowed.
*/
func (l *Ledger) View(ctx context.Context, contractID types.AccountID, method string, args any) (*types.Outcome, error) {
	argsCBOR := cbor.Null()
	if args != nil {
		var err error
		if argsCBOR, err = cbor.Marshal(args); err != nil {
			return nil, fmt.Errorf("encoding arguments: %w", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[contractID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, contractID)
	}
	if acc.contract == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoContract, contractID)
	}

	ctx, span := tracing.StartSpan(ctx, "view "+method, "SERVER")
	env := &Env{
		ctx:     ctx,
		current: contractID,
		prepaid: l.cfg.ViewGas,
		view:    true,
		log:     l.log.With("contract", contractID, "method", method),
	}
	out := &types.Outcome{Version: 1, Executor: contractID}
	rv, revertible := acc.contract.(Revertible)
	var snapshot int
	if revertible {
		snapshot = rv.Snapshot()
	}
	ret, err := invoke(acc.contract, env, method, argsCBOR)
	if revertible {
		rv.RevertToSnapshot(snapshot)
	}
	if err == nil && (ret.promise != nil || len(env.transfers) != 0) {
		err = ErrStateChangeInView
	}
	out.GasBurnt = env.used
	out.Logs = env.logs
	if err != nil {
		out.SetError(err)
	} else {
		out.SetValue(ret.value)
	}
	tracing.EndSpan(span, err)
	return out, nil
}

func invoke(c Contract, env *Env, method string, args cbor.RawCBOR) (ret Return, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("contract panicked: %v", r)
		}
	}()
	return c.Invoke(env, method, args)
}

// execute runs the receipt and records it's outcome, must be called while holding the lock.
func (l *Ledger) execute(ctx context.Context, r *receipt) {
	ctx, span := tracing.StartSpan(ctx, "receipt "+r.method, "CONSUMER")
	span.WithAttributes(map[string]string{
		"receipt.id":  r.id,
		"receiver":    r.receiver.String(),
		"predecessor": r.predecessor.String(),
	})
	log := l.log.With("receipt_id", r.id, "receiver", r.receiver, "method", r.method)

	out := &types.Outcome{Version: 1, ReceiptID: r.id, Executor: r.receiver, Predecessor: r.predecessor}
	if err := l.apply(ctx, r, out); err != nil {
		out.SetError(err)
		if rerr := l.credit(r.predecessor, r.deposit); rerr != nil {
			log.Error("refunding deposit", "error", rerr)
		}
		log.Info("receipt failed", "error", err, "status", out.Status)
		tracing.EndSpan(span, err)
	} else {
		log.Debug("receipt executed", "status", out.Status, "gas_burnt", out.GasBurnt)
		tracing.EndSpan(span, nil)
	}

	l.outcomes[r.id] = out
	delete(l.pending, r.id)
	l.byOrigin[r.origin] = append(l.byOrigin[r.origin], r.id)
	l.resolveWaiters(r.id)
}

/*
apply executes the method of the receipt. When error is returned all the
changes (including the deposit credited to the receiver) have been undone
and the caller must refund the deposit to the predecessor.
*/
func (l *Ledger) apply(ctx context.Context, r *receipt, out *types.Outcome) error {
	acc, ok := l.accounts[r.receiver]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, r.receiver)
	}
	if acc.contract == nil {
		return fmt.Errorf("%w: %s", ErrNoContract, r.receiver)
	}

	bj := balanceJournal{}
	if err := bj.credit(acc, r.deposit); err != nil {
		return err
	}
	env := &Env{
		ctx:         ctx,
		current:     r.receiver,
		predecessor: r.predecessor,
		signer:      r.signer,
		deposit:     r.deposit,
		prepaid:     r.gas,
		results:     r.results,
		log:         l.log.With("contract", r.receiver, "method", r.method),
	}

	rv, revertible := acc.contract.(Revertible)
	var snapshot int
	if revertible {
		snapshot = rv.Snapshot()
	}
	err := env.UseGas(l.cfg.FunctionCallBaseGas)
	var ret Return
	if err == nil {
		ret, err = invoke(acc.contract, env, r.method, r.args)
	}
	out.GasBurnt = env.used
	out.Logs = env.logs
	if err == nil {
		err = l.commit(r, env, ret, acc, &bj, out)
	}
	if err != nil {
		if revertible {
			rv.RevertToSnapshot(snapshot)
		}
		bj.revert()
		return err
	}
	if revertible {
		rv.Commit()
	}
	return nil
}

// commit applies transfers of the env and schedules the returned promise.
func (l *Ledger) commit(r *receipt, env *Env, ret Return, acc *account, bj *balanceJournal, out *types.Outcome) error {
	for _, t := range env.transfers {
		to, ok := l.accounts[t.to]
		if !ok {
			return fmt.Errorf("transfer: %w: %s", ErrAccountNotFound, t.to)
		}
		if err := bj.debit(acc, t.amount); err != nil {
			return fmt.Errorf("transfer of %s to %s: %w", t.amount, t.to, err)
		}
		if err := bj.credit(to, t.amount); err != nil {
			return fmt.Errorf("transfer of %s to %s: %w", t.amount, t.to, err)
		}
	}

	if ret.promise == nil {
		out.SetValue(ret.value)
		return nil
	}

	gas, deposit, err := ret.promise.totals()
	if err != nil {
		return err
	}
	if gas > env.RemainingGas() {
		return fmt.Errorf("%w: promise requires %d gas, %d available", ErrExceededPrepaidGas, gas, env.RemainingGas())
	}
	if err := bj.debit(acc, deposit); err != nil {
		return fmt.Errorf("promise deposit: %w", err)
	}

	var prev *receipt
	for _, p := range ret.promise.chain() {
		pr := &receipt{
			id:          l.newID(),
			origin:      r.origin,
			signer:      r.signer,
			predecessor: r.receiver,
			receiver:    p.Receiver,
			method:      p.Method,
			args:        p.Args,
			deposit:     p.Deposit,
			gas:         p.Gas,
		}
		l.pending[pr.id] = pr
		if prev == nil {
			l.queue = append(l.queue, pr)
		} else {
			l.waiting[prev.id] = append(l.waiting[prev.id], pr)
		}
		prev = pr
	}
	out.SetForwarded(prev.id)
	return nil
}

/*
resolveWaiters passes the result of the receipt "id" to the receipts waiting
for it. When the receipt forwarded it's result the waiters wait for the
receipt it was forwarded to.
*/
func (l *Ledger) resolveWaiters(id string) {
	waiters, ok := l.waiting[id]
	if !ok {
		return
	}
	delete(l.waiting, id)

	out := l.outcomes[id]
	if out.Status == types.StatusSuccessReceipt {
		l.waiting[out.ForwardedTo] = append(l.waiting[out.ForwardedTo], waiters...)
		if _, done := l.outcomes[out.ForwardedTo]; done {
			l.resolveWaiters(out.ForwardedTo)
		}
		return
	}

	res := PromiseResult{Status: out.Status, Value: out.Value, Error: out.Error}
	for _, w := range waiters {
		w.results = append(w.results, res)
		l.queue = append(l.queue, w)
	}
}

func (l *Ledger) credit(id types.AccountID, amount types.Amount) error {
	acc, ok := l.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, id)
	}
	balance, ok := acc.balance.Add(amount)
	if !ok {
		return ErrBalanceOverflow
	}
	acc.balance = balance
	return nil
}

// balanceJournal records balance changes of a receipt so they can be undone.
type balanceJournal []balanceChange

type balanceChange struct {
	acc  *account
	prev types.Amount
}

func (bj *balanceJournal) credit(acc *account, amount types.Amount) error {
	balance, ok := acc.balance.Add(amount)
	if !ok {
		return ErrBalanceOverflow
	}
	*bj = append(*bj, balanceChange{acc: acc, prev: acc.balance})
	acc.balance = balance
	return nil
}

func (bj *balanceJournal) debit(acc *account, amount types.Amount) error {
	balance, ok := acc.balance.Sub(amount)
	if !ok {
		return fmt.Errorf("%w: balance %s, required %s", ErrInsufficientBalance, acc.balance, amount)
	}
	*bj = append(*bj, balanceChange{acc: acc, prev: acc.balance})
	acc.balance = balance
	return nil
}

func (bj *balanceJournal) revert() {
	for i := len(*bj) - 1; i >= 0; i-- {
		(*bj)[i].acc.balance = (*bj)[i].prev
	}
	*bj = nil
}
