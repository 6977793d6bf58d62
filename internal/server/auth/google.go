package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recipebox/internal/common"
	"github.com/dmitrijs2005/recipebox/internal/server/models"
	"google.golang.org/api/idtoken"
)

// IdentityVerifier turns a provider-issued token into a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*models.Identity, error)
}

// GoogleVerifier validates Google ID tokens against the configured OAuth
// client id.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty id token", common.ErrInvalidToken)
	}
	if v.clientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	id := &models.Identity{
		ExternalID: payload.Subject,
		Email:      claimString(payload.Claims, "email"),
		Name:       claimString(payload.Claims, "name"),
		Picture:    claimString(payload.Claims, "picture"),
	}
	if id.ExternalID == "" || id.Email == "" {
		return nil, fmt.Errorf("%w: token lacks subject or email", common.ErrInvalidToken)
	}

	return id, nil
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}
