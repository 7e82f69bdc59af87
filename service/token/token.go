package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Role is the closed set of identities a token can assert. Route-level
// checks compare against these constants rather than raw strings.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleDoctor, RolePatient:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrRoleMismatch   = errors.New("token role mismatch")
	ErrUnknownSubject = errors.New("token subject no longer exists")
)

// Claims is the decoded payload handed back to callers. The subject is the
// identity's unique key: username for admins, email for doctors and patients.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// SubjectDirectory confirms that the subject of a decoded token still exists
// under the claimed role. It guards against tokens outliving their account.
type SubjectDirectory interface {
	SubjectExists(ctx context.Context, role Role, subject string) (bool, error)
}

// Authority issues and verifies signed bearer tokens. It holds no state
// beyond the signing key and the directory, so it is safe for concurrent use.
type Authority struct {
	secret    []byte
	directory SubjectDirectory
}

func NewAuthority(secret []byte, directory SubjectDirectory) *Authority {
	return &Authority{secret: secret, directory: directory}
}

const validity = 7 * 24 * time.Hour

// Issue produces a signed token embedding subject and role, valid for 7 days.
func (a *Authority) Issue(subject string, role Role) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify decodes and validates a token and requires its role to equal want.
func (a *Authority) Verify(ctx context.Context, tokenString string, want Role) (*Claims, error) {
	claims, err := a.decode(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Role != want {
		return nil, ErrRoleMismatch
	}
	return claims, nil
}

// VerifyAny decodes and validates a token of any role. Used on routes where
// the expected role arrives with the request rather than being fixed.
func (a *Authority) VerifyAny(ctx context.Context, tokenString string) (*Claims, error) {
	return a.decode(ctx, tokenString)
}

func (a *Authority) decode(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if _, err := ParseRole(string(claims.Role)); err != nil {
		return nil, ErrInvalidToken
	}

	exists, err := a.directory.SubjectExists(ctx, claims.Role, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("subject lookup: %w", err)
	}
	if !exists {
		return nil, ErrUnknownSubject
	}
	return claims, nil
}
