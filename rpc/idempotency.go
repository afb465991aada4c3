package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	abhash "github.com/alphabill-org/alphabill-nft/hash"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"

	// how long the "in progress" entry is held, the call must complete before it expires
	provisionalLockTTL = 60 * time.Second
	maxKeyLen          = 128
)

type idempEntry struct {
	InProgress bool      `json:"in_progress"`
	Code       int       `json:"code"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"body_sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

type respRecorder struct {
	w    http.ResponseWriter
	buf  *bytes.Buffer
	code int
}

func (r *respRecorder) Header() http.Header { return r.w.Header() }

func (r *respRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.w.Write(b)
}

func (r *respRecorder) WriteHeader(statusCode int) {
	r.code = statusCode
	r.w.WriteHeader(statusCode)
}

/*
Idempotency returns middleware which makes the payable calls safe to retry:
the response of the first request with given Idempotency-Key is stored in
Redis and replayed for the following requests with the same key and body.
Reusing the key with a different body is a conflict.
*/
func Idempotency(rdb *redis.Client, ttl time.Duration, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodPost {
				return next(c)
			}

			idemKey := strings.TrimSpace(req.Header.Get(HeaderIdempotencyKey))
			if idemKey == "" {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "missing " + HeaderIdempotencyKey})
			}
			if len(idemKey) > maxKeyLen {
				return c.JSON(http.StatusBadRequest, ErrorResponse{Error: HeaderIdempotencyKey + " is too long"})
			}

			var body []byte
			if req.Body != nil {
				var err error
				if body, err = io.ReadAll(req.Body); err != nil {
					return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "reading request body"})
				}
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			bhash := bodyHash(body)

			key := buildKey(req.URL.Path, idemKey)
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()

			ok, err := provisionalSet(ctx, rdb, key, idempEntry{InProgress: true, BodySHA256: bhash, CreatedAt: time.Now().UTC()})
			if err != nil {
				log.Error("idempotency store", "error", err)
				return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "idempotency store unavailable"})
			}
			if !ok {
				cur, err := loadEntry(ctx, rdb, key)
				if err != nil {
					log.Warn("loading idempotency entry", "key", key, "error", err)
				}
				if cur.BodySHA256 != "" && cur.BodySHA256 != bhash {
					return c.JSON(http.StatusConflict, ErrorResponse{Error: HeaderIdempotencyKey + " reused with different body"})
				}
				if !cur.InProgress && cur.Code != 0 {
					c.Response().Header().Set("Idempotent-Replayed", "true")
					return c.Blob(cur.Code, echo.MIMEApplicationJSONCharsetUTF8, cur.Body)
				}
				return c.JSON(http.StatusConflict, ErrorResponse{Error: "request is already in progress"})
			}

			rec := &respRecorder{w: c.Response().Writer, buf: &bytes.Buffer{}, code: http.StatusOK}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				c.Error(err)
			}

			final := idempEntry{Code: rec.code, Body: rec.buf.Bytes(), BodySHA256: bhash, CreatedAt: time.Now().UTC()}
			if err := saveFinal(context.Background(), rdb, key, final, ttl); err != nil {
				log.Error("saving idempotency entry", "key", key, "error", err)
			}
			return nil
		}
	}
}

func bodyHash(b []byte) string {
	return hexutil.Encode(abhash.Sum256(b))
}

func buildKey(path, idemKey string) string {
	return "idemp:nft:" + path + ":" + idemKey
}

func provisionalSet(ctx context.Context, rdb *redis.Client, key string, entry idempEntry) (bool, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}
	return rdb.SetNX(ctx, key, payload, provisionalLockTTL).Result()
}

func loadEntry(ctx context.Context, rdb *redis.Client, key string) (idempEntry, error) {
	var e idempEntry
	v, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return e, nil
		}
		return e, err
	}
	return e, json.Unmarshal(v, &e)
}

func saveFinal(ctx context.Context, rdb *redis.Client, key string, entry idempEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, payload, ttl).Err()
}

// OpenRedis connects to the Redis server and checks the connection.
func OpenRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(err, rdb.Close())
	}
	return rdb, nil
}
