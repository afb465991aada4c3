package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"

	abnft "github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

// ApproveDeposit covers the storage of any approval made by the scenarios.
var ApproveDeposit = types.MustParseAmount("1000000000000000000000")

const scenarioToken abnft.TokenID = "0"

type Scenario struct {
	Name string
	Run  func(ctx context.Context, s *Sandbox) (string, error)
}

// Scenarios returns the documented approval scenarios.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "simple-approve", Run: simpleApprove},
		{Name: "approve-return-now", Run: approveWithMsg("return-now")},
		{Name: "approve-echo", Run: approveWithMsg("test message")},
		{Name: "approve-receiver-panics", Run: approveWithMsg("panic")},
		{Name: "approved-transfer", Run: approvedTransfer},
		{Name: "revoke-all-before-resolve", Run: revokeAllBeforeResolve},
	}
}

/*
RunScenarios runs every scenario against a fresh sandbox and writes the
results into w. Returned error lists the failed scenarios.
*/
func RunScenarios(ctx context.Context, w io.Writer, opts ...Option) error {
	var errs []error
	for _, sc := range Scenarios() {
		res, err := runScenario(ctx, sc, opts...)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sc.Name, err))
			fmt.Fprintf(w, "%-28s FAIL %v\n", sc.Name, err)
			continue
		}
		fmt.Fprintf(w, "%-28s ok   %s\n", sc.Name, res)
	}
	return errors.Join(errs...)
}

// RunScenario runs the named scenario against a fresh sandbox.
func RunScenario(ctx context.Context, name string, opts ...Option) (string, error) {
	for _, sc := range Scenarios() {
		if sc.Name == name {
			return runScenario(ctx, sc, opts...)
		}
	}
	return "", fmt.Errorf("unknown scenario %q", name)
}

func runScenario(ctx context.Context, sc Scenario, opts ...Option) (string, error) {
	s, err := New(opts...)
	if err != nil {
		return "", err
	}
	if err := s.Mint(ctx, scenarioToken, Alice); err != nil {
		return "", err
	}
	return sc.Run(ctx, s)
}

// Approve calls nft_approve signed by the owner and decodes the result.
func (s *Sandbox) Approve(ctx context.Context, owner types.AccountID, tokenID abnft.TokenID, accountID types.AccountID, msg *string, result any) error {
	out, err := s.Call(ctx, owner, abnft.MethodApprove, &abnft.ApproveAttributes{TokenID: tokenID, AccountID: accountID, Msg: msg}, ApproveDeposit)
	if err != nil {
		return err
	}
	if !out.IsSuccess() {
		return out.ErrDetail()
	}
	return abnft.DecodeApproveResult(out.Value, result)
}

func simpleApprove(ctx context.Context, s *Sandbox) (string, error) {
	if err := s.Approve(ctx, Alice, scenarioToken, Bob, nil, nil); err != nil {
		return "", err
	}
	id := uint64(1)
	ok, err := s.IsApproved(ctx, scenarioToken, Bob, &id)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s is not approved with id %d", Bob, id)
	}
	return fmt.Sprintf("%s approved with id %d", Bob, id), nil
}

func approveWithMsg(msg string) func(ctx context.Context, s *Sandbox) (string, error) {
	return func(ctx context.Context, s *Sandbox) (string, error) {
		var res string
		err := s.Approve(ctx, Alice, scenarioToken, Receiver, &msg, &res)
		var rcf *abnft.ReceiverCallFailedError
		if errors.As(err, &rcf) {
			ok, err := s.IsApproved(ctx, scenarioToken, Receiver, &rcf.ApprovalID)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("receiver failed (%s), approval kept: %t", rcf.Reason, ok), nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("receiver returned %q", res), nil
	}
}

func approvedTransfer(ctx context.Context, s *Sandbox) (string, error) {
	if err := s.Approve(ctx, Alice, scenarioToken, Bob, nil, nil); err != nil {
		return "", err
	}
	id := uint64(1)
	out, err := s.Call(ctx, Bob, abnft.MethodTransfer, &abnft.TransferAttributes{ReceiverID: Bob, TokenID: scenarioToken, ApprovalID: &id}, types.NewAmount(1))
	if err != nil {
		return "", err
	}
	if !out.IsSuccess() {
		return "", out.ErrDetail()
	}
	tv, err := s.Token(ctx, scenarioToken)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("owner %s, %d approvals", tv.OwnerID, len(tv.ApprovedAccountIDs)), nil
}

/*
revokeAllBeforeResolve executes revoke_all after the receiver has been
notified but before the continuation of the approve call runs.
*/
func revokeAllBeforeResolve(ctx context.Context, s *Sandbox) (string, error) {
	msg := "test message"
	approveID, err := s.Submit(ctx, Alice, abnft.MethodApprove, &abnft.ApproveAttributes{TokenID: scenarioToken, AccountID: Receiver, Msg: &msg}, ApproveDeposit, DefaultGas)
	if err != nil {
		return "", err
	}
	// approve and the receiver notification
	for range 2 {
		s.Ledger.Step(ctx)
	}
	revokeID, err := s.Submit(ctx, Alice, abnft.MethodRevokeAll, &abnft.RevokeAllAttributes{TokenID: scenarioToken}, types.NewAmount(1), DefaultGas)
	if err != nil {
		return "", err
	}
	if err := s.Ledger.Run(ctx); err != nil {
		return "", err
	}
	revoked, err := s.Ledger.FinalOutcome(revokeID)
	if err != nil {
		return "", err
	}
	if !revoked.IsSuccess() {
		return "", revoked.ErrDetail()
	}
	approved, err := s.Ledger.FinalOutcome(approveID)
	if err != nil {
		return "", err
	}
	var res string
	if err := approved.UnmarshalValue(&res); err != nil {
		return "", err
	}
	ok, err := s.IsApproved(ctx, scenarioToken, Receiver, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("receiver returned %q, still approved: %t", res, ok), nil
}
