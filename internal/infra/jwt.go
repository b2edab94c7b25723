// README: HS256 token verifier for local development and service-to-service calls.
package infra

import (
	"context"
	"errors"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
)

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a TokenVerifier for HS256 tokens carrying "sub" and "role" claims.
func NewJWTVerifier(secret string) (TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &jwtVerifier{secret: []byte(secret)}, nil
}

type roleClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (v *jwtVerifier) VerifyIDToken(_ context.Context, idToken string) (*Token, error) {
	tok, err := jwt.ParseWithClaims(idToken, &roleClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	c, ok := tok.Claims.(*roleClaims)
	if !ok || !tok.Valid || c.Subject == "" {
		return nil, errors.New("invalid token")
	}
	claims := map[string]interface{}{}
	if c.Role != "" {
		claims["role"] = strings.ToLower(c.Role)
	}
	return &Token{UID: c.Subject, Claims: claims}, nil
}
