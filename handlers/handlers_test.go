package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"todoapi/database"
	"todoapi/handlers"
	"todoapi/models"
	"todoapi/utils"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) SendWelcome(ctx context.Context, to, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return m.err
}

type testServer struct {
	handler http.Handler
	db      *database.DB
	redis   *miniredis.Miniredis
	mailer  *recordingMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}

	mr := miniredis.RunT(t)
	client, err := utils.OpenRedisPool(ctx, "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("OpenRedisPool() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	mailer := &recordingMailer{}
	h := handlers.NewRouter(handlers.Deps{
		DB:          db,
		Sessions:    utils.NewSessionStore(client, time.Hour),
		Mailer:      mailer,
		CORSOrigins: []string{"http://localhost:3000"},
	})
	return &testServer{handler: h, db: db, redis: mr, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Detail string             `json:"detail"`
	Errors []utils.FieldError `json:"errors"`
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, status, rec.Body.String())
	}
}

// registerAndLogin creates a user and returns its id and access token.
func (s *testServer) registerAndLogin(t *testing.T, username string) (int64, string) {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/auth/register", models.UserCreate{
		Username: username, Email: username + "@example.com", Password: "password123",
	}, "")
	wantStatus(t, rec, http.StatusCreated)
	user := decode[models.UserResponse](t, rec)

	rec = s.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Username: username, Password: "password123"}, "")
	wantStatus(t, rec, http.StatusOK)
	return user.ID, decode[models.Token](t, rec).AccessToken
}

func TestRoot(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/", nil, "")
	wantStatus(t, rec, http.StatusOK)

	got := decode[map[string]string](t, rec)
	if got["message"] != "Todo API - Phase II" || got["status"] != "running" || len(got) != 2 {
		t.Errorf("GET / = %v", got)
	}
	if v := rec.Header().Get("X-API-Version"); v != "2.0" {
		t.Errorf("X-API-Version = %q, want 2.0", v)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil, "")
	wantStatus(t, rec, http.StatusOK)
	if !decode[map[string]bool](t, rec)["ok"] {
		t.Errorf("health body = %s", rec.Body.String())
	}

	s.redis.Close()
	rec = s.do(t, http.MethodGet, "/health", nil, "")
	wantStatus(t, rec, http.StatusServiceUnavailable)
}

func TestNotFoundIsJSON(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/nope", nil, "")
	wantStatus(t, rec, http.StatusNotFound)
	if got := decode[errorBody](t, rec).Detail; got != "Not Found" {
		t.Errorf("detail = %q", got)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{name: "Allowed origin", origin: "http://localhost:3000", want: "http://localhost:3000"},
		{name: "Unknown origin", origin: "http://evil.example", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/tasks/", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			s.handler.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/register", models.UserCreate{
		Username: "alice", Email: "alice@example.com", Password: "password123",
	}, "")
	wantStatus(t, rec, http.StatusCreated)

	body := decode[map[string]any](t, rec)
	if body["username"] != "alice" || body["email"] != "alice@example.com" {
		t.Errorf("register body = %v", body)
	}
	for _, field := range []string{"password", "password_hash", "PasswordHash"} {
		if _, ok := body[field]; ok {
			t.Errorf("register response leaks %q", field)
		}
	}
	if len(s.mailer.sent) != 1 || s.mailer.sent[0] != "alice@example.com" {
		t.Errorf("welcome mails = %v", s.mailer.sent)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/register", models.UserCreate{
		Username: "alice", Email: "other@example.com", Password: "password123",
	}, "")
	wantStatus(t, rec, http.StatusConflict)
}

func TestRegisterMailFailureStillSucceeds(t *testing.T) {
	s := newTestServer(t)
	s.mailer.err = errors.New("smtp down")

	rec := s.do(t, http.MethodPost, "/api/auth/register", models.UserCreate{
		Username: "bob", Email: "bob@example.com", Password: "password123",
	}, "")
	wantStatus(t, rec, http.StatusCreated)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		body      any
		wantField string
	}{
		{name: "Malformed JSON", body: "{not json", wantField: "body"},
		{name: "Missing username", body: map[string]string{"email": "a@example.com", "password": "password123"}, wantField: "username"},
		{name: "Invalid email", body: models.UserCreate{Username: "a", Email: "nope", Password: "password123"}, wantField: "email"},
		{name: "Short password", body: models.UserCreate{Username: "a", Email: "a@example.com", Password: "short"}, wantField: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/auth/register", tt.body, "")
			wantStatus(t, rec, http.StatusUnprocessableEntity)

			body := decode[errorBody](t, rec)
			if body.Detail != "Validation failed" {
				t.Errorf("detail = %q", body.Detail)
			}
			if len(body.Errors) == 0 || body.Errors[0].Field != tt.wantField {
				t.Errorf("errors = %+v, want field %q", body.Errors, tt.wantField)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	userID, _ := s.registerAndLogin(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Username: "alice", Password: "password123"}, "")
	wantStatus(t, rec, http.StatusOK)
	tok := decode[models.Token](t, rec)
	if tok.AccessToken == "" || tok.TokenType != "bearer" || tok.User.ID != userID {
		t.Errorf("login body = %+v", tok)
	}

	tests := []struct {
		name string
		body models.LoginRequest
	}{
		{name: "Wrong password", body: models.LoginRequest{Username: "alice", Password: "wrongpass1"}},
		{name: "Unknown user", body: models.LoginRequest{Username: "mallory", Password: "password123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/auth/login", tt.body, "")
			wantStatus(t, rec, http.StatusUnauthorized)
			if got := decode[errorBody](t, rec).Detail; got != "Incorrect username or password" {
				t.Errorf("detail = %q", got)
			}
		})
	}
}

func TestMeAndLogout(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.registerAndLogin(t, "alice")

	rec := s.do(t, http.MethodGet, "/api/auth/me", nil, token)
	wantStatus(t, rec, http.StatusOK)
	if me := decode[models.UserResponse](t, rec); me.ID != userID || me.Username != "alice" {
		t.Errorf("me = %+v", me)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/logout", nil, token)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[models.Message](t, rec).Message; got != "Logged out" {
		t.Errorf("logout message = %q", got)
	}

	rec = s.do(t, http.MethodGet, "/api/auth/me", nil, token)
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestRequireAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "Missing token", token: ""},
		{name: "Unknown token", token: "forged"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/tasks/", nil, tt.token)
			wantStatus(t, rec, http.StatusUnauthorized)
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Error("WWW-Authenticate header missing")
			}
		})
	}
}

func TestLogoutAll(t *testing.T) {
	s := newTestServer(t)
	_, first := s.registerAndLogin(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/auth/login", models.LoginRequest{Username: "alice", Password: "password123"}, "")
	wantStatus(t, rec, http.StatusOK)
	second := decode[models.Token](t, rec).AccessToken
	_, bob := s.registerAndLogin(t, "bob")

	rec = s.do(t, http.MethodPost, "/api/auth/logout-all", nil, first)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[models.Message](t, rec).Message; got != "Logged out of 2 sessions" {
		t.Errorf("logout-all message = %q", got)
	}

	for _, token := range []string{first, second} {
		wantStatus(t, s.do(t, http.MethodGet, "/api/auth/me", nil, token), http.StatusUnauthorized)
	}
	wantStatus(t, s.do(t, http.MethodGet, "/api/auth/me", nil, bob), http.StatusOK)
	wantStatus(t, s.do(t, http.MethodPost, "/api/auth/logout-all", nil, ""), http.StatusUnauthorized)
}
