// Package backendtest provides an in-process fake of the EmotionAI backend for
// tests. It serves the endpoints a smoke run touches, keeps registered users in
// memory, issues real HS256 JWTs at login, and records every request it sees so
// tests can assert on headers and call counts.
//
// Individual routes can be forced to a status code, and the login response body
// can be replaced, to drive the harness through its failure paths.
package backendtest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Request is what the fake saw for one inbound call.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          []byte
}

// Backend is the fake server state.
type Backend struct {
	mu sync.Mutex

	secret      []byte
	tokenTTL    time.Duration
	staticToken string

	users     map[string]user
	overrides map[string]int
	loginBody []byte
	requests  []Request
}

type user struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
}

// Option configures a Backend.
type Option func(*Backend)

// WithStaticToken makes login return token verbatim instead of a signed JWT,
// and makes the protected routes accept exactly that token.
func WithStaticToken(token string) Option { return func(b *Backend) { b.staticToken = token } }

// WithTokenTTL sets the lifetime of issued JWTs.
func WithTokenTTL(d time.Duration) Option { return func(b *Backend) { b.tokenTTL = d } }

// WithUser pre-registers a user.
func WithUser(username, password string) Option {
	return func(b *Backend) {
		if err := b.addUser(username, password, username+"@test.com"); err != nil {
			panic(err)
		}
	}
}

// New creates a Backend with no users.
func New(opts ...Option) *Backend {
	gin.SetMode(gin.TestMode)
	b := &Backend{
		secret:    []byte("backendtest-signing-secret-32-chars!"),
		tokenTTL:  time.Hour,
		users:     make(map[string]user),
		overrides: make(map[string]int),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Start serves the backend on a local httptest server.
func (b *Backend) Start() *httptest.Server {
	return httptest.NewServer(b.Router())
}

// SetStatus forces method+path to answer with status and an empty JSON object.
func (b *Backend) SetStatus(method, path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[method+" "+path] = status
}

// SetLoginBody replaces the JSON body of a successful login response.
func (b *Backend) SetLoginBody(body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loginBody = []byte(body)
}

// Requests returns a copy of every request seen so far, in arrival order.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// RequestsTo returns the recorded requests for one method and path.
func (b *Backend) RequestsTo(method, path string) []Request {
	var out []Request
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// HasUser reports whether username is registered.
func (b *Backend) HasUser(username string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.users[username]
	return ok
}

func (b *Backend) record(r Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r)
}

func (b *Backend) override(method, path string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	status, ok := b.overrides[method+" "+path]
	return status, ok
}

// Router builds the gin engine serving the fake backend.
func (b *Backend) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(b.recordMiddleware())
	r.Use(b.overrideMiddleware())

	r.GET("/health/", b.health)
	r.GET("/health/detailed", b.detailedHealth)

	api := r.Group("/v1/api")
	api.POST("/auth/register", b.register)
	api.POST("/auth/login", b.login)

	protected := api.Group("")
	protected.Use(b.bearerMiddleware())
	protected.GET("/emotional_records/", listHandler("emotional_records"))
	protected.GET("/breathing_sessions/", listHandler("breathing_sessions"))
	protected.GET("/breathing_patterns/", listHandler("breathing_patterns"))
	protected.GET("/custom_emotions/", listHandler("custom_emotions"))
	protected.GET("/agents", b.agents)
	protected.POST("/chat", b.chat)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	return r
}
