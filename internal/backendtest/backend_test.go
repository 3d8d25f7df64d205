package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func do(t *testing.T, b *Backend, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	b.Router().ServeHTTP(w, req)
	return w
}

func accessToken(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("login body is not JSON: %v", err)
	}
	tok, _ := resp["access_token"].(string)
	return tok
}

// ---------------------------------------------------------------------------
// Registration and login
// ---------------------------------------------------------------------------

func TestRegister_CreatesThenConflicts(t *testing.T) {
	b := New()
	body := `{"username":"u","password":"p","email":"u@test.com"}`

	if w := do(t, b, http.MethodPost, "/v1/api/auth/register", body, ""); w.Code != http.StatusCreated {
		t.Fatalf("first register = %d, want 201", w.Code)
	}
	if !b.HasUser("u") {
		t.Fatal("user not stored after register")
	}
	if w := do(t, b, http.MethodPost, "/v1/api/auth/register", body, ""); w.Code != http.StatusConflict {
		t.Errorf("second register = %d, want 409", w.Code)
	}
}

func TestRegister_ConcurrentSameNameCreatesOnce(t *testing.T) {
	b := New()
	router := b.Router()
	body := `{"username":"racer","password":"p","email":"racer@test.com"}`

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/v1/api/auth/register", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			codes[i] = w.Code
		}()
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	if created != 1 || conflicts != n-1 {
		t.Errorf("got %d created and %d conflicts, want 1 and %d (codes %v)", created, conflicts, n-1, codes)
	}
}

func TestRegister_RejectsIncompleteBody(t *testing.T) {
	b := New()
	if w := do(t, b, http.MethodPost, "/v1/api/auth/register", `{"username":"u"}`, ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("register = %d, want 422", w.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	b := New(WithUser("u", "right"))
	if w := do(t, b, http.MethodPost, "/v1/api/auth/login", `{"username":"u","password":"wrong"}`, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("login = %d, want 401", w.Code)
	}
}

func TestLogin_IssuesJWTAcceptedByProtectedRoutes(t *testing.T) {
	b := New(WithUser("u", "p"))

	w := do(t, b, http.MethodPost, "/v1/api/auth/login", `{"username":"u","password":"p"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d, want 200", w.Code)
	}
	tok := accessToken(t, w)
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("access_token %q does not look like a JWT", tok)
	}

	for _, path := range []string{"/v1/api/emotional_records/", "/v1/api/breathing_sessions/", "/v1/api/breathing_patterns/", "/v1/api/custom_emotions/", "/v1/api/agents"} {
		if w := do(t, b, http.MethodGet, path, "", tok); w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
	chat := `{"agent_type":"therapy","message":"hi","context":{}}`
	if w := do(t, b, http.MethodPost, "/v1/api/chat", chat, tok); w.Code != http.StatusOK {
		t.Errorf("POST /v1/api/chat = %d, want 200", w.Code)
	}
}

func TestStaticToken(t *testing.T) {
	b := New(WithUser("u", "p"), WithStaticToken("abc123"))

	w := do(t, b, http.MethodPost, "/v1/api/auth/login", `{"username":"u","password":"p"}`, "")
	if got := accessToken(t, w); got != "abc123" {
		t.Fatalf("access_token = %q, want abc123", got)
	}
	if w := do(t, b, http.MethodGet, "/v1/api/agents", "", "abc123"); w.Code != http.StatusOK {
		t.Errorf("GET with static token = %d, want 200", w.Code)
	}
	if w := do(t, b, http.MethodGet, "/v1/api/agents", "", "other"); w.Code != http.StatusUnauthorized {
		t.Errorf("GET with wrong token = %d, want 401", w.Code)
	}
}

func TestProtectedRoutes_RequireBearer(t *testing.T) {
	b := New()
	if w := do(t, b, http.MethodGet, "/v1/api/emotional_records/", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
	if w := do(t, b, http.MethodGet, "/v1/api/emotional_records/", "", "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Overrides and recording
// ---------------------------------------------------------------------------

func TestSetStatus(t *testing.T) {
	b := New()
	b.SetStatus(http.MethodGet, "/health/", http.StatusServiceUnavailable)

	if w := do(t, b, http.MethodGet, "/health/", "", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /health/ = %d, want 503", w.Code)
	}
	if w := do(t, b, http.MethodGet, "/health/detailed", "", ""); w.Code != http.StatusOK {
		t.Errorf("GET /health/detailed = %d, want 200", w.Code)
	}
}

func TestSetLoginBody(t *testing.T) {
	b := New(WithUser("u", "p"))
	b.SetLoginBody(`{"token_type":"bearer"}`)

	w := do(t, b, http.MethodPost, "/v1/api/auth/login", `{"username":"u","password":"p"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d, want 200", w.Code)
	}
	if tok := accessToken(t, w); tok != "" {
		t.Errorf("access_token = %q, want none", tok)
	}
}

func TestRequestsAreRecorded(t *testing.T) {
	b := New()
	req := httptest.NewRequest(http.MethodGet, "/health/", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	req.Header.Set("Authorization", "Bearer xyz")
	w := httptest.NewRecorder()
	b.Router().ServeHTTP(w, req)

	if got := w.Header().Get(RequestIDHeader); got != "rid-1" {
		t.Errorf("echoed request id = %q, want rid-1", got)
	}
	got := b.RequestsTo(http.MethodGet, "/health/")
	if len(got) != 1 {
		t.Fatalf("recorded %d requests, want 1", len(got))
	}
	if got[0].RequestID != "rid-1" || got[0].Authorization != "Bearer xyz" {
		t.Errorf("recorded request = %+v", got[0])
	}
}
