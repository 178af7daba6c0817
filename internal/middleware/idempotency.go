package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotency-Replayed"
	maxIdempotencyBody   = 1 << 20 // 1 MB
)

// storedResponse is the JSON shape persisted per idempotency key.
type storedResponse struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers"`
	Body       []byte              `json:"body"`
}

// Idempotency returns middleware that deduplicates mutating requests by the
// Idempotency-Key header. Vendor feed importers retry aggressively on flaky
// links; replaying the stored response keeps a retried POST from inserting a
// second product or review task. Responses are held in a NATS JetStream KV
// bucket so every instance behind the load balancer sees the same replay.
//
// Keys are scoped to method and path, so reusing one key against two
// endpoints never replays the wrong response. Server errors are not stored;
// a retry after a 5xx reaches the handler again.
func Idempotency(kv jetstream.KeyValue) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := r.Header.Get(headerIdempotencyKey)
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := scopedKey(r.Method, r.URL.Path, clientKey)

			if entry, err := kv.Get(r.Context(), key); err == nil {
				var cached storedResponse
				if err := json.Unmarshal(entry.Value(), &cached); err == nil {
					for name, vals := range cached.Headers {
						for _, v := range vals {
							w.Header().Add(name, v)
						}
					}
					w.Header().Set(headerReplayed, "true")
					w.WriteHeader(cached.StatusCode)
					_, _ = w.Write(cached.Body)
					return
				}
				slog.Warn("idempotency: corrupt cache entry", "key", clientKey, "path", r.URL.Path)
			}

			rec := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(rec, r)

			// Store deterministic outcomes only. A 5xx is usually a dead
			// database or broker; pinning it would turn one bad moment into
			// a permanently failed key.
			if rec.statusCode >= http.StatusInternalServerError {
				return
			}
			if rec.body.Len() > maxIdempotencyBody {
				return
			}
			cached := storedResponse{
				StatusCode: rec.statusCode,
				Headers:    w.Header().Clone(),
				Body:       rec.body.Bytes(),
			}
			data, err := json.Marshal(cached)
			if err != nil {
				return
			}
			if _, err := kv.Put(r.Context(), key, data); err != nil {
				slog.Warn("idempotency: store response", "key", clientKey, "error", err)
			}
		})
	}
}

// scopedKey hashes method, path and the client key into a fixed-width hex
// string. JetStream KV restricts key characters; hashing also keeps
// arbitrary client-chosen keys from colliding across endpoints.
func scopedKey(method, path, clientKey string) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(clientKey))
	return hex.EncodeToString(h.Sum(nil))
}

// responseCapture tees status and body while writing through to the client.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseCapture) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
