package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/windoze95/saltybytes-voice/internal/config"
)

const (
	sessionTokenType = "voice_session"

	// SessionTokenTTL bounds how long an acquired recipe can seed new voice
	// sessions through its token.
	SessionTokenTTL = 12 * time.Hour
)

// ErrInvalidSessionToken is returned for tokens that fail verification.
var ErrInvalidSessionToken = errors.New("invalid or expired session token")

// IssueSessionToken signs a short-lived token naming a recipe session.
func IssueSessionToken(sessionID, secretKey string) (string, error) {
	claims := jwt.MapClaims{
		"session_id": sessionID,
		"exp":        time.Now().Add(SessionTokenTTL).Unix(),
		"iat":        time.Now().Unix(),
		"type":       sessionTokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", fmt.Errorf("IssueSessionToken: %v", err)
	}
	return tokenString, nil
}

// ParseSessionToken verifies tokenString and returns the session ID it names.
func ParseSessionToken(tokenString, secretKey string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secretKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", ErrInvalidSessionToken
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != sessionTokenType {
		return "", ErrInvalidSessionToken
	}
	sessionID, ok := claims["session_id"].(string)
	if !ok || sessionID == "" {
		return "", ErrInvalidSessionToken
	}
	return sessionID, nil
}

// EnsureSessionSigningKey fills in a random signing key when none is
// configured. Tokens issued with it do not survive a restart.
func EnsureSessionSigningKey(cfg *config.Config) (generated bool, err error) {
	if cfg.EnvVars.SessionSigningKey != "" {
		return false, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return false, fmt.Errorf("failed to generate session signing key: %w", err)
	}
	cfg.EnvVars.SessionSigningKey = hex.EncodeToString(buf)
	return true, nil
}
