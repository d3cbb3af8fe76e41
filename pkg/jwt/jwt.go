package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// Claims admin access token payload
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	Level    int    `json:"level"`
}

// Manager issues and verifies HMAC-signed access tokens
type Manager struct {
	secretKey []byte
	expiresIn time.Duration
}

// NewManager creates a Manager; expiresIn is in seconds
func NewManager(secret string, expiresIn int) *Manager {
	return &Manager{
		secretKey: []byte(secret),
		expiresIn: time.Duration(expiresIn) * time.Second,
	}
}

// GenerateAccessToken signs a token for the given admin
func (m *Manager) GenerateAccessToken(userID, nickname string, level int) (string, error) {
	if len(m.secretKey) == 0 {
		return "", ErrInvalidToken
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiresIn)),
		},
		UserID:   userID,
		Nickname: nickname,
		Level:    level,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken parses and validates a token string
// An empty secret verifies nothing.
func (m *Manager) VerifyToken(tokenString string) (*Claims, error) {
	if len(m.secretKey) == 0 {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
