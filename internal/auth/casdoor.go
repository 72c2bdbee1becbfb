package auth

import (
	"fmt"
	"net/http"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// CasdoorProvider verifies access tokens issued by a Casdoor instance.
type CasdoorProvider struct {
	client *casdoorsdk.Client
}

func NewCasdoorProvider(cfg CasdoorConfig) *CasdoorProvider {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.OrganizationName,
		cfg.ApplicationName,
	)
	return &CasdoorProvider{client: client}
}

func (p *CasdoorProvider) CurrentUser(r *http.Request) (*Identity, error) {
	tokenStr := bearerToken(r)
	if tokenStr == "" {
		return nil, nil
	}

	claims, err := p.client.ParseJwtToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := claims.User.Id
	if id == "" {
		id = claims.RegisteredClaims.Subject
	}
	if id == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{ID: id, Email: claims.User.Email}, nil
}
