package credit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bizhub/credits-api/internal/middleware"
	"github.com/bizhub/credits-api/internal/pkg/jwt"
	"github.com/bizhub/credits-api/internal/pkg/response"
)

func newTestRouter(t *testing.T, store *memStore) (http.Handler, *jwt.Service) {
	t.Helper()
	jwtSvc := jwt.NewService("test-secret", time.Hour)
	h := NewHandler(newTestService(store))
	return h.Routes(middleware.Auth(jwtSvc)), jwtSvc
}

func doRequest(t *testing.T, router http.Handler, token, method, path, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rec.Body.String())
	}
	return rec, env
}

func token(t *testing.T, svc *jwt.Service, userID, role string) string {
	t.Helper()
	tok, _, err := svc.GenerateAccessToken(userID, role)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return tok
}

func TestHandlerBalance(t *testing.T) {
	store := newMemStore()
	store.seedLot("lot-a", "u1", 42, baseTime, nil)
	router, jwtSvc := newTestRouter(t, store)

	rec, env := doRequest(t, router, token(t, jwtSvc, "u1", "user"), http.MethodGet, "/balance", "")
	if rec.Code != http.StatusOK || env.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data := env.Data.(map[string]interface{})
	if data["current_credits"].(float64) != 42 {
		t.Errorf("credits = %v", data["current_credits"])
	}
}

func TestHandlerRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, newMemStore())
	rec, _ := doRequest(t, router, "", http.MethodGet, "/balance", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandlerTransfer(t *testing.T) {
	store := newMemStore("u2")
	store.seedLot("lot-a", "u1", 10, baseTime, nil)
	router, jwtSvc := newTestRouter(t, store)
	tok := token(t, jwtSvc, "u1", "user")

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"insufficient", `{"to_user_id":"u2","amount":50}`, http.StatusConflict, "Insufficient credits"},
		{"same user", `{"to_user_id":"u1","amount":1}`, http.StatusBadRequest, "Cannot transfer credits to the same user"},
		{"unknown user", `{"to_user_id":"ghost","amount":1}`, http.StatusNotFound, "User not found"},
		{"validation", `{"amount":1}`, http.StatusBadRequest, ""},
		{"ok", `{"to_user_id":"u2","amount":4}`, http.StatusOK, "Credits transferred successfully"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doRequest(t, router, tok, http.MethodPost, "/transfer", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.msg != "" && env.Msg != tt.msg {
				t.Errorf("msg = %q, want %q", env.Msg, tt.msg)
			}
		})
	}

	if b := store.balanceOf("u2"); b != 4 {
		t.Errorf("receiver balance = %d, want 4", b)
	}
}

func TestHandlerGrantNeedsAdmin(t *testing.T) {
	store := newMemStore("u1")
	router, jwtSvc := newTestRouter(t, store)
	body := `{"user_id":"u1","type":"REGISTER_GIFT","amount":5,"expire_days":7}`

	rec, _ := doRequest(t, router, token(t, jwtSvc, "u1", "user"), http.MethodPost, "/grant", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}

	rec, env := doRequest(t, router, token(t, jwtSvc, "admin-1", middleware.RoleAdmin), http.MethodPost, "/grant", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	data := env.Data.(map[string]interface{})
	want := float64(baseTime.AddDate(0, 0, 7).UnixMilli())
	if data["expiration_date"].(float64) != want {
		t.Errorf("expiration = %v, want %v", data["expiration_date"], want)
	}
	if b := store.balanceOf("u1"); b != 5 {
		t.Errorf("balance = %d, want 5", b)
	}
}

func TestHandlerTransactionsRejectsUnknownType(t *testing.T) {
	router, jwtSvc := newTestRouter(t, newMemStore("u1"))
	rec, _ := doRequest(t, router, token(t, jwtSvc, "u1", "user"), http.MethodGet, "/transactions?type=NOPE", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDefaultExpiry(t *testing.T) {
	if DefaultExpiry(baseTime, 0, 0) != nil {
		t.Error("no days should mean no expiry")
	}
	if got := DefaultExpiry(baseTime, 0, 30); !got.Equal(baseTime.AddDate(0, 0, 30)) {
		t.Errorf("fallback expiry = %v", got)
	}
	if got := DefaultExpiry(baseTime, 3, 30); !got.Equal(baseTime.AddDate(0, 0, 3)) {
		t.Errorf("explicit expiry = %v", got)
	}
}
