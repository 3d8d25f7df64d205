package smoke

import (
	"net/http"
	"slices"
)

// Section groups probes for headings and metrics.
type Section string

const (
	SectionHealth    Section = "health"
	SectionAuth      Section = "auth"
	SectionProtected Section = "protected"
	SectionChat      Section = "chat"
)

// Probe describes one HTTP request and the statuses that count as a pass.
type Probe struct {
	Name   string
	Method string
	Path   string
	Body   any
	Accept []int
}

// Accepts reports whether status counts as a pass.
func (p Probe) Accepts(status int) bool {
	return slices.Contains(p.Accept, status)
}

var onlyOK = []int{http.StatusOK}

var (
	HealthProbe = Probe{Name: "Health Check", Method: http.MethodGet, Path: "/health/", Accept: onlyOK}

	DetailedHealthProbe = Probe{Name: "Detailed Health", Method: http.MethodGet, Path: "/health/detailed", Accept: onlyOK}

	// ProtectedProbes need a bearer token and are independent of each other.
	ProtectedProbes = []Probe{
		{Name: "Get Emotional Records", Method: http.MethodGet, Path: "/v1/api/emotional_records/", Accept: onlyOK},
		{Name: "Get Breathing Sessions", Method: http.MethodGet, Path: "/v1/api/breathing_sessions/", Accept: onlyOK},
		{Name: "Get Breathing Patterns", Method: http.MethodGet, Path: "/v1/api/breathing_patterns/", Accept: onlyOK},
		{Name: "Get Custom Emotions", Method: http.MethodGet, Path: "/v1/api/custom_emotions/", Accept: onlyOK},
	}

	// ChatProbes need a bearer token and are independent of each other.
	ChatProbes = []Probe{
		{Name: "List AI Agents", Method: http.MethodGet, Path: "/v1/api/agents", Accept: onlyOK},
		{
			Name:   "Send Chat Message",
			Method: http.MethodPost,
			Path:   "/v1/api/chat",
			Body: ChatMessage{
				AgentType: "therapy",
				Message:   "Hello, this is a test message",
				Context:   map[string]any{},
			},
			Accept: onlyOK,
		},
	}
)

// ChatMessage is the payload sent by the chat probe.
type ChatMessage struct {
	AgentType string         `json:"agent_type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
}

// Credentials identify the test user.
type Credentials struct {
	Username string
	Password string
	Email    string
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterProbe registers the test user. 409 passes: the user already exists.
func RegisterProbe(c Credentials) Probe {
	return Probe{
		Name:   "User Registration",
		Method: http.MethodPost,
		Path:   "/v1/api/auth/register",
		Body:   registerRequest{Username: c.Username, Password: c.Password, Email: c.Email},
		Accept: []int{http.StatusOK, http.StatusCreated, http.StatusConflict},
	}
}

// LoginProbe logs the test user in.
func LoginProbe(c Credentials) Probe {
	return Probe{
		Name:   "User Login",
		Method: http.MethodPost,
		Path:   "/v1/api/auth/login",
		Body:   loginRequest{Username: c.Username, Password: c.Password},
		Accept: onlyOK,
	}
}
