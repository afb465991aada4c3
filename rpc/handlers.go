package rpc

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/alphabill-org/alphabill-nft/cbor"
	"github.com/alphabill-org/alphabill-nft/runtime"
	abnft "github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

// DefaultGas is attached to calls which do not specify gas.
var DefaultGas = types.TGas(300)

type (
	callReq struct {
		Signer  string `json:"signer" validate:"required,account_id"`
		Deposit string `json:"deposit" validate:"required,amount"`
		Gas     uint64 `json:"gas" validate:"omitempty,min=1"`
	}

	approveReq struct {
		callReq
		TokenID   string  `json:"token_id" validate:"required"`
		AccountID string  `json:"account_id" validate:"required,account_id"`
		Msg       *string `json:"msg"`
	}

	revokeReq struct {
		callReq
		TokenID   string `json:"token_id" validate:"required"`
		AccountID string `json:"account_id" validate:"required,account_id"`
	}

	revokeAllReq struct {
		callReq
		TokenID string `json:"token_id" validate:"required"`
	}

	CallResponse struct {
		ReceiptID string       `json:"receipt_id"`
		Status    string       `json:"status"`
		Value     cbor.RawCBOR `json:"value,omitempty"`
		GasBurnt  types.Gas    `json:"gas_burnt"`
		Logs      []string     `json:"logs"`
		// ReceiverCallFailed is set when the approved account failed to
		// handle the approval notification.
		ReceiverCallFailed *abnft.ReceiverCallFailed `json:"receiver_call_failed,omitempty"`
	}
)

func (s *Server) approve(c echo.Context) error {
	var req approveReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return s.call(c, req.callReq, abnft.MethodApprove, &abnft.ApproveAttributes{
		TokenID:   abnft.TokenID(req.TokenID),
		AccountID: types.AccountID(req.AccountID),
		Msg:       req.Msg,
	})
}

func (s *Server) revoke(c echo.Context) error {
	var req revokeReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return s.call(c, req.callReq, abnft.MethodRevoke, &abnft.RevokeAttributes{
		TokenID:   abnft.TokenID(req.TokenID),
		AccountID: types.AccountID(req.AccountID),
	})
}

func (s *Server) revokeAll(c echo.Context) error {
	var req revokeAllReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return s.call(c, req.callReq, abnft.MethodRevokeAll, &abnft.RevokeAllAttributes{TokenID: abnft.TokenID(req.TokenID)})
}

func (s *Server) isApproved(c echo.Context) error {
	args := &abnft.IsApprovedAttributes{
		TokenID:           abnft.TokenID(c.Param("token_id")),
		ApprovedAccountID: types.AccountID(c.Param("account_id")),
	}
	if v := c.QueryParam("approval_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid approval_id"})
		}
		args.ApprovalID = &id
	}
	out, err := s.ledger.View(c.Request().Context(), types.AccountID(c.Param("contract")), abnft.MethodIsApproved, args)
	if err != nil {
		return s.errorResponse(c, err)
	}
	if !out.IsSuccess() {
		return s.errorResponse(c, out.ErrDetail())
	}
	var approved bool
	if err := out.UnmarshalValue(&approved); err != nil {
		return s.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"approved": approved})
}

func (s *Server) token(c echo.Context) error {
	args := &abnft.TokenAttributes{TokenID: abnft.TokenID(c.Param("token_id"))}
	out, err := s.ledger.View(c.Request().Context(), types.AccountID(c.Param("contract")), abnft.MethodToken, args)
	if err != nil {
		return s.errorResponse(c, err)
	}
	if !out.IsSuccess() {
		return s.errorResponse(c, out.ErrDetail())
	}
	var tv *abnft.TokenView
	if err := out.UnmarshalValue(&tv); err != nil {
		return s.errorResponse(c, err)
	}
	if tv == nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: abnft.ErrTokenNotFound.Error()})
	}
	return c.JSON(http.StatusOK, tv)
}

// bindAndValidate returns *echo.HTTPError which is rendered by the echo's error handler.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ErrorResponse{Error: "validation failed", Details: toFieldErrors(err)})
	}
	return nil
}

func (s *Server) call(c echo.Context, req callReq, method string, args any) error {
	deposit, err := types.ParseAmount(req.Deposit)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	}
	gas := DefaultGas
	if req.Gas != 0 {
		gas = types.Gas(req.Gas)
	}
	order, err := types.NewCallOrder(types.AccountID(req.Signer), types.AccountID(c.Param("contract")), method, args, deposit, gas)
	if err != nil {
		return s.errorResponse(c, err)
	}
	out, err := s.ledger.Call(c.Request().Context(), order)
	if err != nil {
		return s.errorResponse(c, err)
	}
	if !out.IsSuccess() {
		return s.errorResponse(c, out.ErrDetail())
	}

	resp := &CallResponse{
		ReceiptID: out.ReceiptID,
		Status:    out.Status.String(),
		Value:     out.Value,
		GasBurnt:  out.GasBurnt,
		Logs:      out.Logs,
	}
	if abnft.IsReceiverCallFailed(out.Value) {
		resp.ReceiverCallFailed = &abnft.ReceiverCallFailed{}
		if err := resp.ReceiverCallFailed.UnmarshalCBOR(out.Value); err != nil {
			return s.errorResponse(c, err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// statusCode maps the error of the call to HTTP status.
func statusCode(err error) int {
	switch {
	case errors.Is(err, abnft.ErrNotOwner),
		errors.Is(err, abnft.ErrUnauthorized),
		errors.Is(err, abnft.ErrUnauthorizedCallback):
		return http.StatusForbidden
	case errors.Is(err, abnft.ErrTokenNotFound),
		errors.Is(err, abnft.ErrApprovalDoesNotExist),
		errors.Is(err, runtime.ErrAccountNotFound),
		errors.Is(err, runtime.ErrNoContract),
		errors.Is(err, runtime.ErrMethodNotFound):
		return http.StatusNotFound
	case errors.Is(err, abnft.ErrInsufficientDeposit),
		errors.Is(err, abnft.ErrInvalidDeposit),
		errors.Is(err, abnft.ErrInsufficientGas),
		errors.Is(err, abnft.ErrTooManyApprovals),
		errors.Is(err, abnft.ErrSameOwner),
		errors.Is(err, types.ErrInvalidAccountID),
		errors.Is(err, runtime.ErrInsufficientBalance),
		errors.Is(err, types.ErrOutOfGas):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorResponse(c echo.Context, err error) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(code, ErrorResponse{Error: err.Error()})
}
