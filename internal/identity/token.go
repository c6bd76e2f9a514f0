// Package identity issues and verifies admin session tokens and provides the
// Gin middleware that gates the administrative API on them.
package identity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jakaria-jihad/certchain/internal/registrar/model"
)

// ctxSessionClaims is the Gin context key under which verified claims are stored.
const ctxSessionClaims = "certchain_session_claims"

// SessionClaims are the JWT claims for an admin session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	AdminID string     `json:"admin_id"`
	Role    model.Role `json:"role"`
}

// SessionIssuer issues and verifies admin session JWTs signed with an
// HMAC-SHA256 secret shared across registrar instances.
type SessionIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewSessionIssuer creates a SessionIssuer.
//
//	secret — the HS256 signing key; must be non-empty.
//	issuerURL — the "iss" claim value; matches the registrar's base URL.
//	ttl — token lifetime (default: 8 hours).
func NewSessionIssuer(secret, issuerURL string, ttl time.Duration) (*SessionIssuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("session token secret must not be empty")
	}
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	return &SessionIssuer{secret: []byte(secret), issuer: issuerURL, ttl: ttl}, nil
}

// Issue creates a signed session token for an authenticated admin.
func (s *SessionIssuer) Issue(adminID string, role model.Role) (string, error) {
	now := time.Now().UTC()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.New().String(),
		},
		AdminID: adminID,
		Role:    role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a session token, returning its claims.
func (s *SessionIssuer) Verify(tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&SessionClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify session token: %w", err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid session token claims")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q in session token", claims.Role)
	}
	return claims, nil
}

// RequireSession returns a Gin middleware that enforces a valid admin session
// Bearer token.
//
// On success it injects the *SessionClaims into the context; handlers read
// them back with ClaimsFromCtx.
func RequireSession(tokens *SessionIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer token required",
			})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid session token",
			})
			return
		}

		c.Set(ctxSessionClaims, claims)
		c.Next()
	}
}

// ClaimsFromCtx retrieves the session claims injected by RequireSession.
// Returns nil when the request carried no valid session.
func ClaimsFromCtx(c *gin.Context) *SessionClaims {
	v, _ := c.Get(ctxSessionClaims)
	claims, _ := v.(*SessionClaims)
	return claims
}
