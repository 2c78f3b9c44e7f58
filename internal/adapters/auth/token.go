package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"eventticketing/internal/domain"
)

const orderTokenAudience = "crypto-order"

// verifyLeeway tolerates callbacks that land shortly after the order expired.
const verifyLeeway = time.Hour

type orderClaims struct {
	jwt.RegisteredClaims
}

type jwtOrderTokens struct {
	secret []byte
}

// NewOrderTokenIssuer returns an OrderTokenIssuer that signs HS256 tokens
// whose subject is the order reference.
func NewOrderTokenIssuer(secret string) domain.OrderTokenIssuer {
	return &jwtOrderTokens{secret: []byte(secret)}
}

func (i *jwtOrderTokens) Issue(orderReference string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := orderClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   orderReference,
			Audience:  jwt.ClaimStrings{orderTokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign order token: %w", err)
	}
	return tokenString, nil
}

// Verify returns the order reference the token was issued for.
func (i *jwtOrderTokens) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &orderClaims{}, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(orderTokenAudience),
		jwt.WithLeeway(verifyLeeway),
	)
	if err != nil || !parsed.Valid {
		return "", domain.ErrInvalidOrderToken
	}
	claims, ok := parsed.Claims.(*orderClaims)
	if !ok || claims.Subject == "" {
		return "", domain.ErrInvalidOrderToken
	}
	return claims.Subject, nil
}
