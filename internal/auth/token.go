package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/clock"
)

var signingMethod = jwt.SigningMethodHS256

// Claims describes the JWT payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token and the instants it covers.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer builds and signs tokens for authenticated identities.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clock.Clock
}

// NewIssuer builds a new issuer. A missing secret or issuer is a startup error.
func NewIssuer(secret, issuer string, ttl time.Duration, clk clock.Clock) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if ttl < 0 {
		return nil, errors.New("token ttl must not be negative")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, clock: clk}, nil
}

// Issue signs a token for subjectID. The email claim is carried unverified.
func (i *Issuer) Issue(subjectID, email string) (IssuedToken, error) {
	if subjectID == "" {
		return IssuedToken{}, errors.New("subject is required")
	}

	now := i.clock.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(signingMethod, claims)
	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{
		Token:     tokenString,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
