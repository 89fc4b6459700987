package utils

import (
	"fmt"
	"os"
	"time"

	"localvoice-be/models"

	"github.com/dgrijalva/jwt-go"
)

// GenerateToken mints a JWT carrying the acting identity: id, role and
// preferred language, so authorization and locale decisions need no extra
// user lookup.
func GenerateToken(user models.User) (string, error) {
	secretStr := os.Getenv("JWT_SECRET")
	if secretStr == "" {
		return "", fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	jwtSecret := []byte(secretStr)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"role":    string(user.Role),
		"name":    user.Name,
		"email":   user.Email,
		"lang":    user.PreferredLanguage,
		"exp":     time.Now().Add(time.Hour * 72).Unix(), // Token expires in 72 hours
	})

	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
