package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bizhub/credits-api/internal/pkg/envelope"
	"github.com/bizhub/credits-api/internal/pkg/response"
)

const (
	testSecret = "partner-secret"
	testAESKey = "0123456789abcdef0123456789abcdef"
)

type memoryNonces struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memoryNonces) Claim(_ context.Context, nonce string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[nonce] {
		return false, nil
	}
	m.seen[nonce] = true
	return true, nil
}

func echoHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Encrypted", strconv.FormatBool(WasEncrypted(r.Context())))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(raw)
	})
}

func signedRequest(t *testing.T, method, body, signOver string, ts time.Time) *http.Request {
	t.Helper()
	headers, err := envelope.Headers(signOver, testSecret, ts)
	if err != nil {
		t.Fatalf("headers: %v", err)
	}
	req := httptest.NewRequest(method, "/api/v1/internal/voucher/use", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

func decodeMsg(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp.Msg
}

func TestPartnerAuth_AcceptsPlainSignedBody(t *testing.T) {
	auth := &PartnerAuth{Secret: testSecret}
	body := `{"user_id":"u1"}`

	rec := httptest.NewRecorder()
	auth.Verify(echoHandler()).ServeHTTP(rec, signedRequest(t, http.MethodPost, body, body, time.Now()))

	if rec.Code != http.StatusOK || rec.Body.String() != body {
		t.Fatalf("expected body to pass through, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestPartnerAuth_SignsOverEncryptedData(t *testing.T) {
	blob, err := envelope.Encrypt(map[string]interface{}{"user_id": "u1", "amount": 5}, testAESKey)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	body := `{"encrypted_data":"` + blob + `"}`

	auth := &PartnerAuth{Secret: testSecret}
	h := auth.Verify(PartnerDecrypt(testAESKey)(echoHandler()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, http.MethodPost, body, blob, time.Now()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `{"amount":5,"user_id":"u1"}` {
		t.Fatalf("unexpected plaintext %q", rec.Body.String())
	}
	if rec.Header().Get("X-Encrypted") != "true" {
		t.Fatal("expected request to be marked encrypted")
	}

	// Signing the full envelope instead of the inner string must fail.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, signedRequest(t, http.MethodPost, body, body, time.Now()))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPartnerAuth_GetSignsEmptyBody(t *testing.T) {
	auth := &PartnerAuth{Secret: testSecret}
	rec := httptest.NewRecorder()
	auth.Verify(echoHandler()).ServeHTTP(rec, signedRequest(t, http.MethodGet, "", "", time.Now()))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPartnerAuth_Rejections(t *testing.T) {
	auth := &PartnerAuth{Secret: testSecret, MaxAge: 5 * time.Minute}
	body := `{"a":1}`

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
		msg    string
	}{
		{
			name: "missing nonce",
			req: func() *http.Request {
				r := signedRequest(t, http.MethodPost, body, body, time.Now())
				r.Header.Del(envelope.HeaderNonce)
				return r
			},
			status: http.StatusBadRequest,
			msg:    msgMissingHeaders,
		},
		{
			name: "non numeric timestamp",
			req: func() *http.Request {
				r := signedRequest(t, http.MethodPost, body, body, time.Now())
				r.Header.Set(envelope.HeaderTimestamp, "yesterday")
				return r
			},
			status: http.StatusBadRequest,
			msg:    msgInvalidTimestamp,
		},
		{
			name: "expired",
			req: func() *http.Request {
				return signedRequest(t, http.MethodPost, body, body, time.Now().Add(-6*time.Minute))
			},
			status: http.StatusUnauthorized,
			msg:    msgInvalidSignature,
		},
		{
			name: "future beyond window",
			req: func() *http.Request {
				return signedRequest(t, http.MethodPost, body, body, time.Now().Add(6*time.Minute))
			},
			status: http.StatusUnauthorized,
			msg:    msgInvalidSignature,
		},
		{
			name: "tampered body",
			req: func() *http.Request {
				r := signedRequest(t, http.MethodPost, `{"a":2}`, body, time.Now())
				return r
			},
			status: http.StatusUnauthorized,
			msg:    msgInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			auth.Verify(echoHandler()).ServeHTTP(rec, tt.req())
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if got := decodeMsg(t, rec); got != tt.msg {
				t.Fatalf("expected msg %q, got %q", tt.msg, got)
			}
		})
	}
}

func TestPartnerAuth_RejectsReplayedNonce(t *testing.T) {
	auth := &PartnerAuth{Secret: testSecret, Nonces: &memoryNonces{}}
	body := `{"a":1}`
	first := signedRequest(t, http.MethodPost, body, body, time.Now())

	rec := httptest.NewRecorder()
	auth.Verify(echoHandler()).ServeHTTP(rec, first)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, first.URL.Path, strings.NewReader(body))
	replay.Header = first.Header.Clone()
	rec = httptest.NewRecorder()
	auth.Verify(echoHandler()).ServeHTTP(rec, replay)
	if rec.Code != http.StatusUnauthorized || decodeMsg(t, rec) != msgNonceReused {
		t.Fatalf("expected replay rejection, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestPartnerDecrypt_PassThroughAndFailure(t *testing.T) {
	h := PartnerDecrypt(testAESKey)(echoHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"user_id":"u1"}`)))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"user_id":"u1"}` {
		t.Fatalf("expected plain body to pass through, got %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Encrypted") != "false" {
		t.Fatal("plain body must not be marked encrypted")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"encrypted_data":"bm90LXJlYWxseS1hLWJsb2ItYXQtYWxsLXJlYWxseQ=="}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := decodeMsg(t, rec); !strings.HasPrefix(msg, "Failed to decrypt data: ") {
		t.Fatalf("unexpected message %q", msg)
	}
}
