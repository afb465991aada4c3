package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/alphabill-org/alphabill-nft/sandbox"
	"github.com/alphabill-org/alphabill-nft/testutils"
	abnft "github.com/alphabill-org/alphabill-nft/txsystem/nft"
	"github.com/alphabill-org/alphabill-nft/types"
)

const contractPath = "/v1/contracts/nft.test.near"

func newTestServer(t *testing.T, opts ...Option) (*Server, *sandbox.Sandbox) {
	t.Helper()
	log := testutils.NewLogger(t)
	sb, err := sandbox.New(sandbox.WithLogger(log))
	require.NoError(t, err)
	require.NoError(t, sb.Mint(context.Background(), "0", sandbox.Alice))
	return New(sb.Ledger, append([]Option{WithLogger(log)}, opts...)...), sb
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func doReq(t *testing.T, s *Server, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func approveBody(accountID types.AccountID, msg *string) map[string]any {
	body := map[string]any{
		"signer":     sandbox.Alice,
		"deposit":    sandbox.ApproveDeposit.String(),
		"token_id":   "0",
		"account_id": accountID,
	}
	if msg != nil {
		body["msg"] = *msg
	}
	return body
}

func Test_Approve(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s, sb := newTestServer(t)
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Bob, nil), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[CallResponse](t, rec)
		require.Equal(t, "success", resp.Status)
		require.Equal(t, []string{"approved bob.test.near for token 0 with approval id 1"}, resp.Logs)
		require.Nil(t, resp.ReceiverCallFailed)

		ok, err := sb.IsApproved(context.Background(), "0", sandbox.Bob, nil)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("receiver value", func(t *testing.T) {
		s, _ := newTestServer(t)
		msg := "return-now"
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Receiver, &msg), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[CallResponse](t, rec)
		var v string
		require.NoError(t, abnft.DecodeApproveResult(resp.Value, &v))
		require.Equal(t, "cool", v)
	})

	t.Run("receiver failure", func(t *testing.T) {
		s, _ := newTestServer(t)
		msg := "panic"
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Receiver, &msg), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[CallResponse](t, rec)
		require.NotNil(t, resp.ReceiverCallFailed)
		require.Equal(t, sandbox.Receiver, resp.ReceiverCallFailed.Receiver)
		require.EqualValues(t, 1, resp.ReceiverCallFailed.ApprovalID)
	})

	t.Run("not owner", func(t *testing.T) {
		s, _ := newTestServer(t)
		body := approveBody(sandbox.Bob, nil)
		body["signer"] = sandbox.Bob
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", body, nil)
		require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
		resp := decode[ErrorResponse](t, rec)
		require.Equal(t, `predecessor must be the token owner: token "0" is owned by alice.test.near`, resp.Error)
	})

	t.Run("unknown token", func(t *testing.T) {
		s, _ := newTestServer(t)
		body := approveBody(sandbox.Bob, nil)
		body["token_id"] = "1"
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", body, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})

	t.Run("insufficient deposit", func(t *testing.T) {
		s, _ := newTestServer(t)
		body := approveBody(sandbox.Bob, nil)
		body["deposit"] = "1"
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", body, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	})

	t.Run("insufficient gas", func(t *testing.T) {
		s, _ := newTestServer(t)
		msg := "return-now"
		body := approveBody(sandbox.Receiver, &msg)
		body["gas"] = types.TGas(20)
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", body, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		require.Contains(t, decode[ErrorResponse](t, rec).Error, "insufficient gas")
	})

	t.Run("contract doesn't exist", func(t *testing.T) {
		s, _ := newTestServer(t)
		rec := doReq(t, s, http.MethodPost, "/v1/contracts/nothing.test.near/approve", approveBody(sandbox.Bob, nil), nil)
		require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})

	t.Run("validation", func(t *testing.T) {
		s, _ := newTestServer(t)
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", map[string]any{"signer": "Alice", "deposit": "lots"}, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		resp := decode[ErrorResponse](t, rec)
		require.Equal(t, "validation failed", resp.Error)
		require.ElementsMatch(t, []FieldError{
			{Field: "Signer", Message: "must be valid account ID"},
			{Field: "Deposit", Message: "must be decimal yocto amount"},
			{Field: "TokenID", Message: "is required"},
			{Field: "AccountID", Message: "is required"},
		}, resp.Details)
	})

	t.Run("invalid body", func(t *testing.T) {
		s, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, contractPath+"/approve", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})
}

func Test_Revoke(t *testing.T) {
	s, sb := newTestServer(t)
	rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Bob, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	revoke := map[string]any{"signer": sandbox.Alice, "deposit": "1", "token_id": "0", "account_id": sandbox.Bob}
	rec = doReq(t, s, http.MethodPost, contractPath+"/revoke", revoke, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok, err := sb.IsApproved(context.Background(), "0", sandbox.Bob, nil)
	require.NoError(t, err)
	require.False(t, ok)

	rec = doReq(t, s, http.MethodPost, contractPath+"/revoke", revoke, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	require.Contains(t, decode[ErrorResponse](t, rec).Error, "approval does not exist")
}

func Test_RevokeAll(t *testing.T) {
	s, sb := newTestServer(t)
	for _, id := range []types.AccountID{sandbox.Bob, sandbox.Receiver} {
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(id, nil), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := doReq(t, s, http.MethodPost, contractPath+"/revoke_all", map[string]any{"signer": sandbox.Alice, "deposit": "1", "token_id": "0"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tv, err := sb.Token(context.Background(), "0")
	require.NoError(t, err)
	require.Empty(t, tv.ApprovedAccountIDs)

	rec = doReq(t, s, http.MethodPost, contractPath+"/revoke_all", map[string]any{"signer": sandbox.Alice, "deposit": "0", "token_id": "0"}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}

func Test_Views(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Bob, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("is approved", func(t *testing.T) {
		rec := doReq(t, s, http.MethodGet, contractPath+"/tokens/0/approvals/bob.test.near", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, map[string]bool{"approved": true}, decode[map[string]bool](t, rec))

		rec = doReq(t, s, http.MethodGet, contractPath+"/tokens/0/approvals/bob.test.near?approval_id=2", nil, nil)
		require.Equal(t, map[string]bool{"approved": false}, decode[map[string]bool](t, rec))

		rec = doReq(t, s, http.MethodGet, contractPath+"/tokens/0/approvals/bob.test.near?approval_id=x", nil, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = doReq(t, s, http.MethodGet, contractPath+"/tokens/9/approvals/bob.test.near", nil, nil)
		require.Equal(t, map[string]bool{"approved": false}, decode[map[string]bool](t, rec))
	})

	t.Run("token", func(t *testing.T) {
		rec := doReq(t, s, http.MethodGet, contractPath+"/tokens/0", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.JSONEq(t, `{"token_id":"0","owner_id":"alice.test.near","metadata":{"title":"Olympus Mons"},"approved_account_ids":{"bob.test.near":1}}`, rec.Body.String())

		rec = doReq(t, s, http.MethodGet, contractPath+"/tokens/9", nil, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	})
}

func Test_Idempotency(t *testing.T) {
	t.Run("key is required", func(t *testing.T) {
		_, rdb := newMiniredisClient(t)
		s, _ := newTestServer(t, WithIdempotency(rdb, time.Minute))
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Bob, nil), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "missing Idempotency-Key", decode[ErrorResponse](t, rec).Error)

		// views don't need the key
		rec = doReq(t, s, http.MethodGet, contractPath+"/tokens/0", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})

	t.Run("response is replayed", func(t *testing.T) {
		mr, rdb := newMiniredisClient(t)
		s, sb := newTestServer(t, WithIdempotency(rdb, time.Minute))
		hdr := map[string]string{HeaderIdempotencyKey: "k1"}

		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Bob, nil), hdr)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		first := rec.Body.String()
		balance, err := sb.Balance(sandbox.Alice)
		require.NoError(t, err)

		rec = doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Bob, nil), hdr)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
		require.Equal(t, first, rec.Body.String())

		// the call was not executed again
		b, err := sb.Balance(sandbox.Alice)
		require.NoError(t, err)
		require.Equal(t, balance, b)
		ok, err := sb.IsApproved(context.Background(), "0", sandbox.Bob, ptr[uint64](1))
		require.NoError(t, err)
		require.True(t, ok)

		require.True(t, mr.Exists("idemp:nft:"+contractPath+"/approve:k1"))
		require.Equal(t, time.Minute, mr.TTL("idemp:nft:"+contractPath+"/approve:k1"))
	})

	t.Run("error responses are replayed", func(t *testing.T) {
		_, rdb := newMiniredisClient(t)
		s, _ := newTestServer(t, WithIdempotency(rdb, time.Minute))
		hdr := map[string]string{HeaderIdempotencyKey: "k2"}
		body := approveBody(sandbox.Bob, nil)
		body["signer"] = sandbox.Bob

		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", body, hdr)
		require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
		rec = doReq(t, s, http.MethodPost, contractPath+"/approve", body, hdr)
		require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
		require.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	})

	t.Run("key reused with different body", func(t *testing.T) {
		_, rdb := newMiniredisClient(t)
		s, _ := newTestServer(t, WithIdempotency(rdb, time.Minute))
		hdr := map[string]string{HeaderIdempotencyKey: "k3"}

		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Bob, nil), hdr)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Receiver, nil), hdr)
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "Idempotency-Key reused with different body", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("request in progress", func(t *testing.T) {
		mr, rdb := newMiniredisClient(t)
		s, _ := newTestServer(t, WithIdempotency(rdb, time.Minute))
		body := approveBody(sandbox.Bob, nil)
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		entry, err := json.Marshal(idempEntry{InProgress: true, BodySHA256: bodyHash(append(raw, '\n'))})
		require.NoError(t, err)
		require.NoError(t, mr.Set("idemp:nft:"+contractPath+"/approve:k4", string(entry)))

		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", body, map[string]string{HeaderIdempotencyKey: "k4"})
		require.Equal(t, http.StatusConflict, rec.Code)
		require.Equal(t, "request is already in progress", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("store unavailable", func(t *testing.T) {
		mr, rdb := newMiniredisClient(t)
		s, _ := newTestServer(t, WithIdempotency(rdb, time.Minute))
		mr.Close()
		rec := doReq(t, s, http.MethodPost, contractPath+"/approve", approveBody(sandbox.Bob, nil), map[string]string{HeaderIdempotencyKey: "k5"})
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func Test_OpenRedis(t *testing.T) {
	mr, _ := newMiniredisClient(t)
	rdb, err := OpenRedis(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	mr.Close()
	rdb, err = OpenRedis(context.Background(), mr.Addr())
	require.Error(t, err)
	require.Nil(t, rdb)
}

func ptr[T any](v T) *T { return &v }
