// Package auth resolves the caller's identity from bearer tokens. Login and
// token issuance belong to the identity provider; this service only
// verifies tokens.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/quizform-service/internal/models"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// IdentityProvider returns the authenticated caller, or nil for an anonymous
// request. An error means a token was presented but is not valid.
type IdentityProvider interface {
	CurrentUser(r *http.Request) (*Identity, error)
}

// Submitter returns the id and email stored on a submission. Anonymous
// callers share the fixed anonymous identity.
func Submitter(id *Identity) (string, string) {
	if id == nil || id.ID == "" {
		return models.AnonymousID, models.AnonymousEmail
	}
	email := id.Email
	if email == "" {
		email = models.AnonymousEmail
	}
	return id.ID, email
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// AnonymousProvider treats every request as anonymous. Development only.
type AnonymousProvider struct{}

func (AnonymousProvider) CurrentUser(*http.Request) (*Identity, error) {
	return nil, nil
}
