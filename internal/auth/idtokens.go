package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

type ExternalTokenClaims struct {
	Issuer        string
	Subject       string
	Email         string
	EmailVerified bool
}

// GoogleVerifier validates Google ID tokens issued for one OAuth client.
type GoogleVerifier struct {
	ClientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{ClientID: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, tokenString string) (*ExternalTokenClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, errors.New("missing id token")
	}
	if strings.TrimSpace(v.ClientID) == "" {
		return nil, errors.New("missing google client id")
	}
	validate := v.validate
	if validate == nil {
		validate = idtoken.Validate
	}

	payload, err := validate(ctx, tokenString, v.ClientID)
	if err != nil {
		return nil, err
	}
	return claimsFromPayload(payload)
}

func claimsFromPayload(payload *idtoken.Payload) (*ExternalTokenClaims, error) {
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return nil, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}

	claims := &ExternalTokenClaims{Issuer: payload.Issuer, Subject: payload.Subject}
	if v, ok := payload.Claims["email"].(string); ok {
		claims.Email = strings.TrimSpace(strings.ToLower(v))
	}
	if v, ok := payload.Claims["email_verified"].(bool); ok {
		claims.EmailVerified = v
	}
	return claims, nil
}
