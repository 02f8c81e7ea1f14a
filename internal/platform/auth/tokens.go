package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token lifetimes mirror the session policy: a week for access tokens and a
// month for refresh tokens.
const (
	AccessTokenTTL  = 7 * 24 * time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour
)

// Claims carried by both access and refresh tokens. ClinicID is set only for
// clinic accounts and scopes every clinic-side operation.
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	ClinicID string `json:"clinic_id,omitempty"`
	Type     string `json:"type"` // "access" or "refresh"
}

// TokenIssuer signs and parses HS256 tokens.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
}

func NewTokenIssuer(accessSecret, refreshSecret string) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}
}

// IssuePair creates an access/refresh token pair for the given account.
func (i *TokenIssuer) IssuePair(userID uuid.UUID, role string, clinicID string) (access, refresh string, err error) {
	access, err = i.issue(userID, role, clinicID, "access", AccessTokenTTL, i.accessSecret)
	if err != nil {
		return "", "", err
	}
	refresh, err = i.issue(userID, role, clinicID, "refresh", RefreshTokenTTL, i.refreshSecret)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (i *TokenIssuer) issue(userID uuid.UUID, role, clinicID, typ string, ttl time.Duration, secret []byte) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:     role,
		ClinicID: clinicID,
		Type:     typ,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseAccess validates an access token and returns its claims.
func (i *TokenIssuer) ParseAccess(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, "access", i.accessSecret)
}

// ParseRefresh validates a refresh token and returns its claims.
func (i *TokenIssuer) ParseRefresh(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, "refresh", i.refreshSecret)
}

func (i *TokenIssuer) parse(tokenStr, wantType string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("unexpected token type %q", claims.Type)
	}
	return claims, nil
}
