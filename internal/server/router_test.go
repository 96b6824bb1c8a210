package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/E011011101001/HEAL-backend/internal/config"
	"github.com/E011011101001/HEAL-backend/internal/service"
	"github.com/E011011101001/HEAL-backend/internal/ws"
)

// testRouter wires the router without a database. Only routes that
// reject before touching storage are exercised here.
func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{Env: "dev", JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, RefreshTokenTTLDays: 14}
	users := service.NewUserService(cfg, nil, nil)
	h := NewHandlers(cfg, users, nil, nil, nil, nil)
	sessions := ws.NewSessionManager(nil, nil, cfg.JWTSecret)
	return SetupRouter(cfg, nil, h, ws.NewHub(nil), sessions)
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := doRequest(testRouter(), http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := doRequest(testRouter(), http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "heal_ws_connections") {
		t.Error("expected application metrics in /metrics output")
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	w := doRequest(testRouter(), http.MethodGet, "/chats/rooms", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "unauthorizedError" || body["message"] != "No Authorization Token" {
		t.Errorf("unexpected error body: %v", body)
	}
}

func TestProtectedRouteRejectsBadToken(t *testing.T) {
	r := testRouter()
	req := httptest.NewRequest(http.MethodGet, "/chats/rooms", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	var body map[string]string
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["message"] != "User invalid" {
		t.Errorf("unexpected message: %v", body)
	}
}

func TestRegisterRejectsMissingItems(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"no password", `{"email":"a@b.c","name":"A","language":"en","type":"PATIENT"}`},
		{"bad role", `{"email":"a@b.c","password":"pw","name":"A","language":"en","type":"WIZARD"}`},
		{"patient without dateOfBirth", `{"email":"a@b.c","password":"pw","name":"A","language":"en","type":"PATIENT"}`},
		{"doctor without hospital", `{"email":"d@b.c","password":"pw","name":"D","language":"jp","type":"DOCTOR","specialisation":"Cardiology"}`},
	}
	r := testRouter()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/users/register", tc.body)
			if w.Code != http.StatusNotAcceptable {
				t.Fatalf("expected 406, got %d", w.Code)
			}
			var body map[string]string
			json.Unmarshal(w.Body.Bytes(), &body)
			if body["error"] != "typeError" || body["message"] != "Missing items." {
				t.Errorf("unexpected error body: %v", body)
			}
		})
	}
}

func TestLoginRejectsMissingItems(t *testing.T) {
	w := doRequest(testRouter(), http.MethodPost, "/users/login", `{"email":"a@b.c"}`)
	if w.Code != http.StatusNotAcceptable {
		t.Fatalf("expected 406, got %d", w.Code)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	r := testRouter()
	req := httptest.NewRequest(http.MethodGet, "/users/verify-token", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
