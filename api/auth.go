/*
auth.go - Admin authentication

PURPOSE:
  Two shared admin roles log in with a password and receive a signed
  bearer token. Kiosk routes need no token.

ROLES:
  hr   employees, areas, holidays, imports, records, exports
  mgr  records and exports

FLOW:
  POST /api/auth/login {role, password}
    password checked against the role's bcrypt hash
    -> HS256 token with claims {role, type: "access", exp}
  Protected routes: jwtauth.Verifier -> AuthRequired -> RequireRole

SEE ALSO:
  - server.go: route groups
  - cmd/punchclock: hash-password produces the configured hashes
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/crypto/bcrypt"
)

// Role is an admin role.
type Role string

const (
	RoleHR      Role = "hr"
	RoleManager Role = "mgr"
)

const tokenTypeAccess = "access"

var (
	ErrInvalidCredentials = errors.New("invalid role or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("role not allowed")
)

// Auth issues and verifies admin tokens.
type Auth struct {
	tokenAuth *jwtauth.JWTAuth
	ttl       time.Duration
	hashes    map[Role]string
	now       func() time.Time
}

// NewAuth creates an Auth. hashes maps each role to its bcrypt password
// hash; a role without a hash cannot log in.
func NewAuth(secret string, ttl time.Duration, hashes map[Role]string) *Auth {
	return &Auth{
		tokenAuth: jwtauth.New("HS256", []byte(secret), nil, jwt.WithAcceptableSkew(30*time.Second)),
		ttl:       ttl,
		hashes:    hashes,
		now:       time.Now,
	}
}

// HashPassword returns a bcrypt hash for the configuration.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Authenticate checks a role's password.
func (a *Auth) Authenticate(role Role, password string) error {
	hash, ok := a.hashes[role]
	if !ok || hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Issue signs a token for role.
func (a *Auth) Issue(role Role) (string, time.Time, error) {
	expiresAt := a.now().Add(a.ttl)
	claims := map[string]any{
		"role": string(role),
		"type": tokenTypeAccess,
	}
	jwtauth.SetIssuedAt(claims, a.now())
	jwtauth.SetExpiry(claims, expiresAt)
	_, token, err := a.tokenAuth.Encode(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Login handles POST /api/auth/login.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(r, &req, func(form func(string) string) {
		req.Role, req.Password = form("role"), form("password")
	}); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	role := Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if err := a.Authenticate(role, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "Login failed", err)
		return
	}

	token, expiresAt, err := a.Issue(role)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		Role:      string(role),
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// Verifier finds and validates the bearer token.
func (a *Auth) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(a.tokenAuth)
}

// AuthRequired rejects requests without a valid access token.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized", ErrInvalidToken)
			return
		}
		if typ, _ := claims["type"].(string); typ != tokenTypeAccess {
			writeError(w, http.StatusUnauthorized, "Unauthorized", ErrInvalidToken)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows only the listed roles. It runs after AuthRequired.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized", ErrInvalidToken)
				return
			}
			role, _ := claims["role"].(string)
			if !slices.Contains(roles, Role(role)) {
				writeError(w, http.StatusForbidden, "Forbidden", ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// decodeBody reads JSON bodies, or form fields through fromForm.
func decodeBody(r *http.Request, dst any, fromForm func(func(string) string)) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return json.NewDecoder(r.Body).Decode(dst)
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	fromForm(r.PostForm.Get)
	return nil
}
