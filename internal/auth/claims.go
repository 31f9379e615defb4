package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// defaultTTLMinutes applies when the configured TTL is not positive.
	defaultTTLMinutes = 15

	// TokenIssuer is stamped into every token and required on parse, so a
	// token minted by another service sharing the secret is refused.
	TokenIssuer = "api-websocket-messages"
)

// CustomClaims extends the registered claims with the holder's role and the
// project key the token acts for.
type CustomClaims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	Project   string `json:"prj"`
	SessionID string `json:"sid"`
}

// GenerateAccessToken signs an HS256 token for user. Tokens are validated by
// signature only; there is no revocation list.
func GenerateAccessToken(user *User, secret string, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = defaultTTLMinutes
	}

	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
		Role:      user.Role,
		Project:   user.Project,
		SessionID: uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// parserOptions pin HS256, the issuer and a mandatory exp claim.
var parserOptions = []jwt.ParserOption{
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithIssuer(TokenIssuer),
	jwt.WithExpirationRequired(),
}

// ParseToken validates signature, method, issuer and expiry and returns the
// claims. Subject, role and project are all required.
func ParseToken(tokenString, secret string) (*CustomClaims, error) {
	key := []byte(secret)
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(*jwt.Token) (any, error) {
		return key, nil
	}, parserOptions...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	switch {
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	case claims.Role == "":
		return nil, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	case claims.Project == "":
		return nil, fmt.Errorf("%w: missing project", ErrTokenInvalid)
	}

	return claims, nil
}
