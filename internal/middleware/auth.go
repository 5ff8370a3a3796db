package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/warpVIT1/tarot-booking-app/internal/config"
	"github.com/warpVIT1/tarot-booking-app/internal/domain/identity"
	"github.com/warpVIT1/tarot-booking-app/internal/httperr"
)

const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
	ContextUserName = "userName"
)

type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for id.
func IssueToken(cfg *config.Config, id identity.Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(id.Role),
		Name: id.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_authorization_header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_authorization_header"})
			return
		}

		var claims Claims
		token, err := jwt.ParseWithClaims(parts[1], &claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenMalformed
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		role, err := identity.ParseRole(claims.Role)
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token_payload"})
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextUserRole, role)
		c.Set(ContextUserName, claims.Name)

		c.Next()
	}
}

// RequireRole rejects callers without role. Use after AuthMiddleware.
func RequireRole(role identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if Actor(c).Role != role {
			httperr.FromError(c, httperr.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Actor returns the authenticated caller.
func Actor(c *gin.Context) identity.Actor {
	role, _ := c.Get(ContextUserRole)
	r, _ := role.(identity.Role)
	return identity.Actor{ID: c.GetString(ContextUserID), Role: r}
}

// Session exposes the request's caller as an identity.Session.
type Session struct {
	c *gin.Context
}

func SessionFrom(c *gin.Context) Session {
	return Session{c: c}
}

func (s Session) CurrentIdentity() (identity.Identity, bool) {
	a := Actor(s.c)
	if a.ID == "" {
		return identity.Identity{}, false
	}
	return identity.Identity{
		ID:          a.ID,
		Role:        a.Role,
		DisplayName: s.c.GetString(ContextUserName),
	}, true
}

func (s Session) Role() identity.Role {
	return Actor(s.c).Role
}
