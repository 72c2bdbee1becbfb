package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SAP-F-2025/quizform-service/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTProviderRoundTrip(t *testing.T) {
	p := NewJWTProvider("secret")
	token, err := p.Issue("user-1", "a@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	id, err := p.CurrentUser(req)
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "user-1", id.ID)
	assert.Equal(t, "a@example.com", id.Email)
}

func TestJWTProviderRejectsBadTokens(t *testing.T) {
	p := NewJWTProvider("secret")

	expired, err := p.Issue("user-1", "", -time.Minute)
	require.NoError(t, err)
	other, err := NewJWTProvider("other").Issue("user-1", "", time.Hour)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, token := range map[string]string{"expired": expired, "wrong secret": other, "alg none": none, "garbage": "abc"} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			_, err := p.CurrentUser(req)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTProviderAnonymousWithoutHeader(t *testing.T) {
	id, err := NewJWTProvider("secret").CurrentUser(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NoError(t, err)
	assert.Nil(t, id)
}

func TestSubmitter(t *testing.T) {
	id, email := Submitter(nil)
	assert.Equal(t, models.AnonymousID, id)
	assert.Equal(t, models.AnonymousEmail, email)

	id, email = Submitter(&Identity{ID: "u1", Email: "u1@example.com"})
	assert.Equal(t, "u1", id)
	assert.Equal(t, "u1@example.com", email)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	p := NewJWTProvider("secret")

	router := gin.New()
	router.Use(Middleware(p))
	router.GET("/open", func(c *gin.Context) {
		if id := FromContext(c); id != nil {
			c.String(http.StatusOK, id.ID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	router.GET("/closed", RequireUser(), func(c *gin.Context) {
		c.String(http.StatusOK, FromContext(c).ID)
	})

	token, err := p.Issue("user-7", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		path   string
		header string
		status int
		body   string
	}{
		{"/open", "", http.StatusOK, "anonymous"},
		{"/open", "Bearer " + token, http.StatusOK, "user-7"},
		{"/open", "Bearer nope", http.StatusUnauthorized, ""},
		{"/closed", "", http.StatusUnauthorized, ""},
		{"/closed", "Bearer " + token, http.StatusOK, "user-7"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, tt.status, w.Code, tt.path)
		if tt.body != "" {
			assert.Equal(t, tt.body, w.Body.String())
		}
	}
}
