// Package auth provides bcrypt password hashing and tenant JWT issuing/parsing.
// Leaf package with no domain dependencies; used by internal/domain/auth and internal/api/middleware.
package auth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// BCryptCost is the bcrypt work factor.
const BCryptCost = 12

// DefaultJWTExpiry is the token lifetime in hours when JWT_EXPIRY is unset or invalid.
const DefaultJWTExpiry = 24

const (
	envJWTSecret = "JWT_SECRET"
	envJWTExpiry = "JWT_EXPIRY"
)

// ErrMissingSecret is returned when JWT_SECRET is not configured.
var ErrMissingSecret = errors.New(envJWTSecret + " environment variable not set")

func jwtSecret() ([]byte, error) {
	secret := os.Getenv(envJWTSecret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return []byte(secret), nil
}

// parseJWTExpiry turns an hours string into a Duration, falling back to DefaultJWTExpiry.
func parseJWTExpiry(expiryStr string) time.Duration {
	hours, err := strconv.Atoi(expiryStr)
	if err != nil || hours <= 0 {
		return time.Duration(DefaultJWTExpiry) * time.Hour
	}
	return time.Duration(hours) * time.Hour
}

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BCryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Claims identifies the tenant a bearer token was issued to.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// GenerateJWT signs an HS256 token for tenantID.
func GenerateJWT(tenantID string) (string, error) {
	secret, err := jwtSecret()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := &Claims{
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenantID,
			ExpiresAt: jwt.NewNumericDate(now.Add(parseJWTExpiry(os.Getenv(envJWTExpiry)))),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}
	return signed, nil
}

// ParseJWT validates tokenString and returns its claims.
// Tokens without a tenant id are rejected.
func ParseJWT(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("token is empty")
	}
	secret, err := jwtSecret()
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// HMAC only; rejects alg substitution.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TenantID == "" {
		return nil, errors.New("invalid JWT claims or signature")
	}
	return claims, nil
}
