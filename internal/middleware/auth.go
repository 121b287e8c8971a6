package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/labelkit/labelkit/internal/models"
	"github.com/labelkit/labelkit/internal/services"
)

// Claims carried by access tokens. The subject holds the user id. Email and
// role are hints from the issuer; the stored profile stays authoritative
// once it exists.
type Claims struct {
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ProfileProvider resolves a verified identity to its stored profile,
// creating the profile on first sight.
type ProfileProvider interface {
	EnsureProfile(id, email, fullName string, role models.UserRole) (*models.UserProfile, error)
}

// AuthConfig carries token verification settings.
type AuthConfig struct {
	Secret      []byte
	Audience    string
	AdminEmails map[string]bool
}

const userKey = "currentUser"

// SignToken issues an HS256 access token for the given identity.
func SignToken(secret []byte, audience, userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseToken(cfg AuthConfig, tok string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (any, error) {
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// Auth verifies the bearer token and attaches the stored profile to the
// request context. Requests without an Authorization header pass through
// anonymously; RequireAuth and RequireAdmin reject them downstream. A
// present but invalid token always fails the request.
func Auth(cfg AuthConfig, profiles ProfileProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.Next()
			return
		}
		claims, err := parseToken(cfg, strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")))
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		role := models.UserRole(claims.Role)
		if cfg.AdminEmails[strings.ToLower(claims.Email)] {
			role = models.RoleAdmin
		}
		profile, err := profiles.EnsureProfile(claims.Subject, claims.Email, claims.FullName, role)
		if err != nil {
			status := http.StatusInternalServerError
			message := "error resolving user profile"
			if se, ok := services.AsServiceError(err); ok && se.Code == services.ErrorUnauthorized {
				status, message = http.StatusUnauthorized, se.Message
			}
			abort(c, status, message)
			return
		}
		if !profile.IsActive {
			abort(c, http.StatusForbidden, "account is deactivated")
			return
		}
		c.Set(userKey, profile)
		c.Next()
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests from anyone but admins.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if u.Role != models.RoleAdmin {
			abort(c, http.StatusForbidden, "admin access required")
			return
		}
		c.Next()
	}
}

// CurrentUser returns the profile attached by Auth, or nil for anonymous
// requests.
func CurrentUser(c *gin.Context) *models.UserProfile {
	if v, ok := c.Get(userKey); ok {
		if p, ok := v.(*models.UserProfile); ok {
			return p
		}
	}
	return nil
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": message})
}
