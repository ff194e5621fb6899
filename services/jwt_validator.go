package services

import (
	"context"
	"errors"
	"fmt"

	"hunter-quest-system/middleware"

	"github.com/golang-jwt/jwt/v5"
)

// JWTValidator checks HMAC-signed access tokens locally, for deployments where
// the identity service shares its signing secret instead of exposing /auth/validate.
type JWTValidator struct {
	Secret []byte
	Issuer string
}

type accessClaims struct {
	DeviceID string   `json:"device_id"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

func (v *JWTValidator) ValidateToken(_ context.Context, accessToken, deviceID string) (*middleware.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithExpirationRequired()}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("access token has no subject")
	}
	if claims.DeviceID != "" && claims.DeviceID != deviceID {
		return nil, errors.New("access token issued for another device")
	}
	return &middleware.Identity{UserID: claims.Subject, DeviceID: deviceID, Roles: claims.Roles}, nil
}
