package integrations

import (
	"errors"
	"fmt"
	"time"

	"pm-backend/internal/domain"
	"pm-backend/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrSecretRequired = errors.New("Integration token secret is not configured")
	ErrInvalidToken   = errors.New("Invalid integration token")
)

const issuer = "pm-backend"

// Claims carried by an integration token. The org role is re-read on every check;
// the claim is informational.
type Claims struct {
	jwt.RegisteredClaims
	WorkspaceID string `json:"workspace_id"`
	Email       string `json:"email"`
	Fullname    string `json:"fullname"`
	OrgRole     string `json:"org_role"`
	Label       string `json:"label,omitempty"`
}

// IssuedToken is returned once to the caller; the raw token is never stored.
type IssuedToken struct {
	Token       string    `json:"token"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Label       string    `json:"label,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenService issues and verifies HS256 tokens for CI/CD callers.
type TokenService struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Issue signs a token bound to user and workspaceID.
func (s *TokenService) Issue(user *domain.User, workspaceID uuid.UUID, label string) (*IssuedToken, error) {
	if len(s.Secret) == 0 {
		return nil, ErrSecretRequired
	}
	now := s.now().UTC()
	exp := now.Add(s.TTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.UserID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		WorkspaceID: workspaceID.String(),
		Email:       user.Email,
		Fullname:    user.Fullname,
		OrgRole:     user.OrgRole,
		Label:       label,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign integration token: %w", err)
	}
	return &IssuedToken{Token: signed, WorkspaceID: workspaceID, Label: label, ExpiresAt: exp.Truncate(time.Second)}, nil
}

// Parse validates signature, issuer and expiry.
func (s *TokenService) Parse(raw string) (*Claims, error) {
	if len(s.Secret) == 0 {
		return nil, ErrSecretRequired
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidToken
	}
	if _, err := uuid.Parse(claims.WorkspaceID); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyToken implements middleware.TokenVerifier.
func (s *TokenService) VerifyToken(raw string) (*middleware.SessionUser, error) {
	c, err := s.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &middleware.SessionUser{
		UserID:         c.Subject,
		Fullname:       c.Fullname,
		Email:          c.Email,
		OrgRole:        c.OrgRole,
		WorkspaceScope: c.WorkspaceID,
	}, nil
}

var _ middleware.TokenVerifier = (*TokenService)(nil)
