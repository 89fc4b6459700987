package middlewares

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"log/slog"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware verifies the bearer token and exposes the acting identity
// (user_id, role, name, email, lang) to handlers.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			c.Abort()
			return
		}

		if !applyClaims(c, tokenString) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the identity when a token is present but
// lets anonymous requests through. Used on public routes that personalize
// their response for signed-in users.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			applyClaims(c, tokenString)
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return authHeader[7:]
		}
		return authHeader
	}
	if cookie, err := c.Cookie("auth_token"); err == nil {
		return cookie
	}
	return ""
}

func applyClaims(c *gin.Context, tokenString string) bool {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "JWT secret not configured"})
		return false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		slog.Debug("token validation failed", slog.String("error", fmt.Sprintf("%v", err)))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		return false
	}
	userID, exists := claims["user_id"]
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		return false
	}
	c.Set("user_id", userID)
	for _, key := range []string{"role", "name", "email", "lang"} {
		if v, ok := claims[key].(string); ok {
			c.Set(key, v)
		}
	}
	return true
}
