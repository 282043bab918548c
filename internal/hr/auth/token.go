// Package auth issues and checks the bearer tokens of the API and hashes
// user passwords.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gartstein/hr/internal/hr/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const Issuer = "hr-service"

// DefaultTTL is the token lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

type contextKey string

const (
	userContextKey contextKey = "user"
)

// Claims identify the caller of a request. CompanyID is the tenant every
// request is scoped to.
type Claims struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Admin     bool
	ExpiresAt time.Time
}

func GenerateToken(user *models.User, secret string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	expires := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":        user.ID.String(),
		"company_id": user.CompanyID.String(),
		"admin":      user.Admin,
		"exp":        expires.Unix(),
		"iat":        now.Unix(),
		"iss":        Issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, time.Unix(expires.Unix(), 0), nil
}

// ParseToken validates tokenString and extracts its claims.
func ParseToken(tokenString, secret string) (*Claims, error) {
	mapClaims, err := validateToken(tokenString, secret)
	if err != nil {
		return nil, err
	}

	sub, _ := mapClaims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	company, _ := mapClaims["company_id"].(string)
	companyID, err := uuid.Parse(company)
	if err != nil {
		return nil, fmt.Errorf("invalid company: %w", err)
	}
	admin, _ := mapClaims["admin"].(bool)

	claims := &Claims{UserID: userID, CompanyID: companyID, Admin: admin}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// validateToken checks the token signature and returns parsed claims if valid.
func validateToken(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

// FromContext returns the claims stored by the middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userContextKey).(*Claims)
	return claims, ok && claims != nil
}
