// Package devtoken builds unsigned Firebase-shaped JWTs for local development.
// Tokens pair with the dev auth provider, which decodes payloads without
// signature validation. Never enable that provider in production.
package devtoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Params describes the claims of the generated token.
type Params struct {
	ProjectID      string
	UserID         string
	Email          string
	Name           string
	AccountID      int64
	IsAdmin        bool
	EmailVerified  bool
	SignInProvider string
	ExpiresIn      time.Duration
	Audience       string
	Issuer         string
}

// Generate returns an unsigned JWT (empty signature segment) carrying the
// standard Firebase claims plus the scheduler's account_id custom claim.
func Generate(p Params) (string, error) {
	if strings.TrimSpace(p.UserID) == "" {
		return "", errors.New("user id is required")
	}
	if p.ExpiresIn <= 0 {
		p.ExpiresIn = time.Hour
	}

	audience := p.Audience
	if audience == "" {
		audience = p.ProjectID
	}
	issuer := p.Issuer
	if issuer == "" && p.ProjectID != "" {
		issuer = fmt.Sprintf("https://securetoken.google.com/%s", p.ProjectID)
	}

	now := time.Now()
	claims := map[string]any{
		"iss":            issuer,
		"aud":            audience,
		"sub":            p.UserID,
		"user_id":        p.UserID,
		"uid":            p.UserID,
		"iat":            now.Unix(),
		"exp":            now.Add(p.ExpiresIn).Unix(),
		"email_verified": p.EmailVerified,
	}
	if p.Email != "" {
		claims["email"] = p.Email
	}
	if p.Name != "" {
		claims["name"] = p.Name
	}
	if p.AccountID != 0 {
		claims["account_id"] = p.AccountID
	}
	if p.IsAdmin {
		claims["isAdmin"] = true
	}

	signInProvider := p.SignInProvider
	if signInProvider == "" {
		signInProvider = "password"
	}
	claims["firebase"] = map[string]any{"sign_in_provider": signInProvider}

	header := map[string]any{"alg": "none", "typ": "JWT"}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	return fmt.Sprintf("%s.%s.",
		base64.RawURLEncoding.EncodeToString(headerJSON),
		base64.RawURLEncoding.EncodeToString(claimsJSON),
	), nil
}
