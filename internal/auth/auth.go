package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quiz-share-service/internal/domain"
)

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Verifier turns HS256 bearer tokens into identities.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Authenticate reads the bearer token of r, falling back to the access_token
// query parameter that browsers use for websocket upgrades. It returns
// (nil, nil) when the request carries no token and domain.ErrUnauthorized
// when the token is present but unusable.
func (v *Verifier) Authenticate(r *http.Request) (*domain.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return v.Verify(token)
		}
		return nil, nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, domain.ErrUnauthorized
	}
	return v.Verify(strings.TrimSpace(raw))
}

// Verify parses and checks a signed token.
func (v *Verifier) Verify(token string) (*domain.Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: malformed token", domain.ErrUnauthorized)
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	case !parsed.Valid:
		return nil, domain.ErrUnauthorized
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	return &domain.Identity{UserID: claims.Subject, Email: claims.Email, Name: claims.Name}, nil
}

// Sign issues a token for id. Used by tests and local tooling.
func (v *Verifier) Sign(id domain.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
