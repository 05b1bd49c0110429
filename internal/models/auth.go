package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the claims of access tokens issued by the identity provider.
type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UnlockClaims are carried by the session unlock cookie.
type UnlockClaims struct {
	Type  string `json:"typ"`
	Epoch int64  `json:"epoch"`
	jwt.RegisteredClaims
}
