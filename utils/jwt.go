package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the verified identity carried by a bearer token.
type TokenClaims struct {
	UserID    uint
	Role      string
	TokenType string
}

// GenerateToken signs a token of the given type for a user.
func GenerateToken(userID uint, role, tokenType string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"type":    tokenType,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// ParseToken verifies the signature and expiry of a bearer token and returns
// its claims. It does NOT check the token type; callers decide whether a
// refresh token is acceptable for their operation.
func ParseToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if exp, ok := claims["exp"].(float64); ok {
		if time.Now().Unix() > int64(exp) {
			return nil, fmt.Errorf("token has expired")
		}
	}

	parsed := &TokenClaims{}
	if userIDFloat, ok := claims["user_id"].(float64); ok {
		parsed.UserID = uint(userIDFloat)
	}
	if parsed.UserID == 0 {
		return nil, fmt.Errorf("token has no user id")
	}
	if role, ok := claims["role"].(string); ok {
		parsed.Role = role
	}
	if tokenType, ok := claims["type"].(string); ok {
		parsed.TokenType = tokenType
	}

	return parsed, nil
}

// TokenFromQuery extracts a bearer token from a websocket connection URL.
// Clients either pass ?token=<jwt> or smuggle it inside the raw query string
// as a segment prefixed "token-".
func TokenFromQuery(namedToken, rawQuery string) string {
	if namedToken != "" {
		return namedToken
	}
	for _, part := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(part, "token-") {
			return strings.TrimPrefix(part, "token-")
		}
	}
	return ""
}

// AuthMiddleware guards REST routes. It requires a valid access token in the
// Authorization header and stores the caller's identity in Locals.
func AuthMiddleware(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "No Token Provided",
		})
	}

	var tokenString string
	fmt.Sscanf(authHeader, "Bearer %s", &tokenString)

	if tokenString == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Token format is invalid",
		})
	}

	claims, err := ParseToken(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if claims.TokenType != TokenTypeAccess {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Access token required",
		})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)

	return c.Next()
}
