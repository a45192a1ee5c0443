package middleware

import (
	"errors"
	"strings"
	"time"

	"linkvault/internal/apperror"
	"linkvault/internal/config"
	"linkvault/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCookie carries the JWT for browser pages.
const TokenCookie = "token"

// Context keys set by the auth middleware.
const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "role"
)

// AuthClaims represents the JWT claims structure
type AuthClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenTTL is how long an issued token stays valid.
const TokenTTL = 24 * time.Hour

var jwtSecret []byte

// SetJWTSecret sets the JWT secret key
func SetJWTSecret(cfg *config.Config) {
	jwtSecret = []byte(cfg.JWTSecret)
}

// GenerateJWT creates a new JWT token for a user
func GenerateJWT(userID uint, username, role string) (string, error) {
	claims := AuthClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken validates a token and returns its claims.
func ParseToken(tokenString string) (*AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AuthClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*AuthClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// tokenFromRequest reads the bearer token, falling back to the cookie.
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := c.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

func setClaims(c *gin.Context, claims *AuthClaims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUsername, claims.Username)
	c.Set(ctxRole, claims.Role)
}

// AuthMiddleware validates JWT tokens for protected routes
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			apperror.HandleError(c, apperror.New(apperror.ErrUnauthorized, "missing token"))
			return
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			apperror.HandleError(c, apperror.Wrap(apperror.ErrInvalidToken, "invalid token", err))
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth identifies the viewer when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := tokenFromRequest(c); tokenString != "" {
			if claims, err := ParseToken(tokenString); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// RequireRole lets through only users holding one of roles. It must run after
// AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ctxRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		apperror.HandleError(c, apperror.New(apperror.ErrForbidden, "insufficient permissions"))
	}
}

// CurrentUser returns the authenticated user from the context, or nil.
func CurrentUser(c *gin.Context) *models.User {
	id := c.GetUint(ctxUserID)
	if id == 0 {
		return nil
	}
	return &models.User{
		ID:       id,
		Username: c.GetString(ctxUsername),
		Role:     c.GetString(ctxRole),
	}
}
