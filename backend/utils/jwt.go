package utils

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessToken     TokenType = "access"
	RefreshToken    TokenType = "refresh"
	RecoveryToken   TokenType = "recovery"
	OAuthStateToken TokenType = "oauth_state"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenClaims struct {
	Type       TokenType              `json:"typ"`
	SessionID  string                 `json:"sid,omitempty"`
	Email      string                 `json:"email,omitempty"`
	Metadata   map[string]interface{} `json:"user_metadata,omitempty"`
	RedirectTo string                 `json:"redirect_to,omitempty"`
	jwt.RegisteredClaims
}

// GenerateJWTToken signs claims for subject with HS256. The returned claims carry the issued id and expiry.
func GenerateJWTToken(subject string, claims TokenClaims, ttl time.Duration, secret string) (string, *TokenClaims, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, &claims, nil
}

// ParseJWTToken validates signature, expiry and token type.
func ParseJWTToken(tokenString string, want TokenType, secret string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractToken reads the bearer token from the Authorization header.
func ExtractToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}
