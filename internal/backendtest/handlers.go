package backendtest

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type chatRequest struct {
	AgentType string         `json:"agent_type" binding:"required"`
	Message   string         `json:"message" binding:"required"`
	Context   map[string]any `json:"context"`
}

func (b *Backend) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (b *Backend) detailedHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"checks": gin.H{"database": "healthy", "llm": "healthy"},
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

var errUserExists = errors.New("username already registered")

// addUser stores a new user. The existence check and the insert happen under
// one lock, so concurrent registrations of a name create it exactly once.
func (b *Backend) addUser(username, password, email string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[username]; ok {
		return errUserExists
	}
	b.users[username] = user{ID: uuid.New().String(), Username: username, Email: email, PasswordHash: hash}
	return nil
}

func (b *Backend) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	if err := b.addUser(req.Username, req.Password, req.Email); err != nil {
		if errors.Is(err, errUserExists) {
			c.JSON(http.StatusConflict, gin.H{"detail": "Username already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to hash password"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": req.Username, "email": req.Email})
}

func (b *Backend) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	u, ok := b.users[req.Username]
	loginBody := b.loginBody
	b.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password"})
		return
	}

	if loginBody != nil {
		c.Data(http.StatusOK, "application/json", loginBody)
		return
	}

	token := b.staticToken
	if token == "" {
		var err error
		token, err = b.issueToken(u)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to issue token"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (b *Backend) issueToken(u user) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   u.Username,
		ID:        uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.tokenTTL)),
		Issuer:    "emotionai-backendtest",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

func listHandler(resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{resource: []any{}, "owner": c.GetString(userKey)})
	}
}

func (b *Backend) agents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": []gin.H{
		{"agent_type": "therapy", "name": "Therapy Agent"},
		{"agent_type": "wellness", "name": "Wellness Agent"},
	}})
}

func (b *Backend) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"agent_type": req.AgentType,
		"message":    "Thanks for checking in. How are you feeling today?",
	})
}
