package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bizhub/credits-api/internal/pkg/envelope"
	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/metrics"
	"github.com/bizhub/credits-api/internal/pkg/noncecache"
	"github.com/bizhub/credits-api/internal/pkg/response"
)

const maxPartnerBody = 1 << 20

const (
	msgMissingHeaders   = "Missing required headers: X-Timestamp, X-Nonce, X-Signature"
	msgInvalidTimestamp = "Invalid timestamp format"
	msgInvalidSignature = "Invalid signature or expired timestamp"
	msgNonceReused      = "Nonce already used"
)

// PartnerAuth verifies signed requests from the partner system.
type PartnerAuth struct {
	Secret  string
	MaxAge  time.Duration
	Nonces  noncecache.Store
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Verify rejects requests whose headers, timestamp, signature or nonce
// do not check out. The body is restored for the next handler.
func (p *PartnerAuth) Verify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContext(ctx)

		ts := r.Header.Get(envelope.HeaderTimestamp)
		nonce := r.Header.Get(envelope.HeaderNonce)
		sig := r.Header.Get(envelope.HeaderSignature)
		if ts == "" || nonce == "" || sig == "" {
			p.Metrics.IncSignatureFailure("missing_headers")
			response.BadRequest(w, msgMissingHeaders)
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPartnerBody))
		if err != nil {
			response.BadRequest(w, "Failed to read request body")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(raw))

		timestamp, err := strconv.ParseInt(strings.TrimSpace(ts), 10, 64)
		if err != nil {
			p.Metrics.IncSignatureFailure("invalid_timestamp")
			response.BadRequest(w, msgInvalidTimestamp)
			return
		}

		if strings.TrimSpace(p.Secret) == "" {
			log.Error().Msg("partner secret is not configured")
			response.Error(w, http.StatusInternalServerError, "Server configuration error")
			return
		}

		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		if err := envelope.Verify(timestamp, nonce, signedPayload(raw), sig, p.Secret, p.MaxAge, now()); err != nil {
			reason := "mismatch"
			if errors.Is(err, envelope.ErrSignatureExpired) {
				reason = "expired"
			}
			p.Metrics.IncSignatureFailure(reason)
			log.Warn().
				Str("reason", reason).
				Str("path", r.URL.Path).
				Str("ip", getClientIP(r)).
				Int64("timestamp", timestamp).
				Msg("partner signature rejected")
			response.Unauthorized(w, msgInvalidSignature)
			return
		}

		if p.Nonces != nil {
			fresh, err := p.Nonces.Claim(ctx, nonce, p.window())
			if err != nil {
				log.Error().Err(err).Msg("nonce cache unavailable")
				response.InternalError(w)
				return
			}
			if !fresh {
				p.Metrics.IncSignatureFailure("replay")
				log.Warn().Str("path", r.URL.Path).Str("ip", getClientIP(r)).Msg("partner nonce replayed")
				response.Unauthorized(w, msgNonceReused)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (p *PartnerAuth) window() time.Duration {
	if p.MaxAge <= 0 {
		return envelope.DefaultMaxAge
	}
	return p.MaxAge
}

// signedPayload is the inner encrypted_data string when the body carries
// one, else the raw body.
func signedPayload(raw []byte) string {
	var wrapped struct {
		EncryptedData *string `json:"encrypted_data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.EncryptedData != nil {
		return *wrapped.EncryptedData
	}
	return string(raw)
}

// PartnerDecrypt replaces an {"encrypted_data": ...} body with its plaintext.
// Bodies without the field pass through unchanged.
func PartnerDecrypt(aesKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPartnerBody))
			if err != nil {
				response.BadRequest(w, "Failed to read request body")
				return
			}

			plain, encrypted, err := openBody(raw, aesKey)
			if err != nil {
				response.BadRequest(w, "Failed to decrypt data: "+err.Error())
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(plain))
			r.ContentLength = int64(len(plain))
			ctx := context.WithValue(r.Context(), encryptedKey, encrypted)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

const encryptedKey contextKey = "partner_encrypted"

// WasEncrypted reports whether the request body arrived encrypted.
func WasEncrypted(ctx context.Context) bool {
	v, _ := ctx.Value(encryptedKey).(bool)
	return v
}

func openBody(raw []byte, aesKey string) ([]byte, bool, error) {
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, false, err
	}
	field, ok := wrapped["encrypted_data"]
	if !ok {
		return raw, false, nil
	}

	var blob string
	if err := json.Unmarshal(field, &blob); err != nil || blob == "" {
		return raw, false, nil
	}
	plain, err := envelope.Decrypt(blob, aesKey)
	if err != nil {
		return nil, true, err
	}
	return plain, true, nil
}
