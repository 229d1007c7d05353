package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

var (
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrInvalidToken  = errors.New("invalid token")
)

// AuthService exchanges the configured API key for short-lived HS256 tokens
// and validates them on protected routes.
type AuthService struct {
	jwtSecret   string
	apiKeyHash  string
	tokenExpiry time.Duration
}

func NewAuthService(jwtSecret, apiKeyHash string, tokenExpiry time.Duration) *AuthService {
	return &AuthService{
		jwtSecret:   jwtSecret,
		apiKeyHash:  apiKeyHash,
		tokenExpiry: tokenExpiry,
	}
}

// HashAPIKey produces the bcrypt hash to store in API_KEY_HASH.
func HashAPIKey(apiKey string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey compares a presented key against the configured hash.
func (a *AuthService) VerifyAPIKey(apiKey string) error {
	if a.apiKeyHash == "" {
		return ErrInvalidAPIKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.apiKeyHash), []byte(apiKey)); err != nil {
		return ErrInvalidAPIKey
	}
	return nil
}

// GenerateToken issues a token for a verified client.
func (a *AuthService) GenerateToken(subject string) (string, error) {
	if a.jwtSecret == "" {
		return "", errors.New("jwt secret not configured")
	}
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(a.tokenExpiry).Unix(),
		"iat": time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.jwtSecret))
}

// ValidateToken returns the token subject or an error.
func (a *AuthService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(a.jwtSecret), nil
	})
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		sub, ok := claims["sub"].(string)
		if !ok {
			return "", errors.New("invalid token: 'sub' claim missing or not a string")
		}
		return sub, nil
	}
	return "", ErrInvalidToken
}
