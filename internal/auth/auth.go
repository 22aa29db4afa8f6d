// Package auth issues and verifies the bearer tokens that identify
// instructors, admins and students.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuerName = "eduflex"

// ErrUnauthenticated is returned when a request carries no valid token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Role is the permission level carried by a token.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
	RoleStudent    Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleInstructor, RoleAdmin, RoleStudent:
		return true
	}
	return false
}

// Actor is the authenticated caller.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// CanAuthor reports whether the actor may create and edit course material.
func (a Actor) CanAuthor() bool {
	return a.Role == RoleInstructor || a.Role == RoleAdmin
}

// IsAdmin reports whether the actor is an admin.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Claims is the JWT payload.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. ttl is the lifetime of issued tokens.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue returns a signed token for userID with the given role.
func (i *Issuer) Issue(userID string, role Role) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("user id is empty")
	}
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := i.now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns its actor.
func (i *Issuer) Parse(tokenString string) (Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Actor{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return Actor{}, fmt.Errorf("%w: token is missing subject or role", ErrUnauthenticated)
	}
	return Actor{ID: claims.Subject, Role: claims.Role}, nil
}

// Authenticate reads the bearer token from the Authorization header, or
// from the access_token query parameter for websocket clients.
func (i *Issuer) Authenticate(r *http.Request) (Actor, error) {
	token := ""
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return Actor{}, fmt.Errorf("%w: malformed authorization header", ErrUnauthenticated)
		}
		token = strings.TrimSpace(value)
	} else {
		token = r.URL.Query().Get("access_token")
	}
	if token == "" {
		return Actor{}, fmt.Errorf("%w: no bearer token", ErrUnauthenticated)
	}
	return i.Parse(token)
}

type actorKey struct{}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored in ctx.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}
