package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/vaultgate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenTypeAccess is the only token type accepted for API access
const TokenTypeAccess = "access"

// TokenManager checks HS256 bearer tokens issued by the identity provider
// that shares JWT_SECRET. Minting exists for the token command and tests.
type TokenManager struct {
	key    []byte
	expiry time.Duration
	parser *jwt.Parser
}

func NewTokenManager(secret string, accessExpiry time.Duration) *TokenManager {
	return &TokenManager{
		key:    []byte(secret),
		expiry: accessExpiry,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

// GenerateAccessToken signs an access token for userID valid for the
// configured expiry.
func (tm *TokenManager) GenerateAccessToken(userID, email string) (string, error) {
	issued := time.Now()
	claims := models.TokenClaims{
		Type:   TokenTypeAccess,
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(tm.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// ValidateToken returns the claims of a valid token. Tokens without a user id
// fall back to the subject claim; tokens with neither are rejected.
func (tm *TokenManager) ValidateToken(raw string) (*models.TokenClaims, error) {
	var claims models.TokenClaims
	if _, err := tm.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return tm.key, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUnauthorized, err)
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	switch {
	case claims.Type == "":
		return nil, errors.Join(models.ErrUnauthorized, errors.New("token has no type"))
	case claims.UserID == "":
		return nil, errors.Join(models.ErrUnauthorized, errors.New("token has no user"))
	}
	return &claims, nil
}
