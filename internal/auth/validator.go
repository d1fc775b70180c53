package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/auth-service/internal/clock"
)

// ValidatorConfig holds the trust parameters of a Validator.
type ValidatorConfig struct {
	Secret string
	Issuer string
	// Timeout bounds the revocation and directory lookups. Zero means the
	// caller's context is the only bound.
	Timeout time.Duration
	Clock   clock.Clock
}

// Validator runs the ordered verification pipeline over incoming tokens.
//
// Stages run strictly in order and stop at the first failure: format,
// signature, issuer, expiry, revocation, identity. Only the last two
// perform I/O.
type Validator struct {
	secret      []byte
	issuer      string
	timeout     time.Duration
	clock       clock.Clock
	parser      *jwt.Parser
	revocations RevocationChecker
	identities  IdentityLookup
}

// NewValidator constructs a validator.
func NewValidator(cfg ValidatorConfig, revocations RevocationChecker, identities IdentityLookup) (*Validator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("signing secret is required")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if revocations == nil || identities == nil {
		return nil, errors.New("revocation store and identity lookup are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	return &Validator{
		secret:      []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		timeout:     cfg.Timeout,
		clock:       cfg.Clock,
		parser:      jwt.NewParser(jwt.WithStrictDecoding(), jwt.WithValidMethods([]string{signingMethod.Alg()})),
		revocations: revocations,
		identities:  identities,
	}, nil
}

// Validate authenticates rawToken. Every non-nil error is a *Rejection.
func (v *Validator) Validate(ctx context.Context, rawToken string) (Principal, error) {
	claims, err := v.Verify(rawToken)
	if err != nil {
		return Principal{}, err
	}

	if claims.Issuer != v.issuer {
		return Principal{}, reject(ReasonUnknownIssuer, fmt.Errorf("issuer %q", claims.Issuer))
	}

	if !v.clock.Now().Before(claims.ExpiresAt.Time) {
		return Principal{}, reject(ReasonExpiredToken, nil)
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	if err := v.checkRevoked(ctx, rawToken); err != nil {
		return Principal{}, err
	}

	identity, err := v.identities.FindByID(ctx, claims.Subject)
	// An answer that arrived after the deadline is not trusted, not even "not found".
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Principal{}, reject(ReasonInternalError, fmt.Errorf("identity lookup: %w", ctxErr))
	}
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return Principal{}, reject(ReasonUnknownIdentity, nil)
		}
		return Principal{}, reject(ReasonInternalError, fmt.Errorf("identity lookup: %w", err))
	}
	if identity.Email != claims.Email {
		return Principal{}, reject(ReasonIdentityMismatch, nil)
	}

	return Principal{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify checks the token shape and signature and returns its claims. It does
// not consult the issuer, the clock, or any store.
func (v *Validator) Verify(rawToken string) (*Claims, error) {
	if rawToken == "" {
		return nil, reject(ReasonMissingToken, nil)
	}

	segments := strings.Split(rawToken, ".")
	if len(segments) != 3 {
		return nil, reject(ReasonMalformedToken, fmt.Errorf("expected 3 segments, got %d", len(segments)))
	}
	for _, segment := range segments {
		if segment == "" {
			return nil, reject(ReasonMalformedToken, errors.New("empty segment"))
		}
	}

	// The signature is checked over the raw bytes before anything is decoded.
	signature, err := v.parser.DecodeSegment(segments[2])
	if err != nil {
		return nil, reject(ReasonInvalidSignature, err)
	}
	if err := signingMethod.Verify(segments[0]+"."+segments[1], signature, v.secret); err != nil {
		return nil, reject(ReasonInvalidSignature, err)
	}

	claims := &Claims{}
	token, _, err := v.parser.ParseUnverified(rawToken, claims)
	if err != nil {
		return nil, reject(ReasonMalformedToken, err)
	}
	if token.Method == nil || token.Method.Alg() != signingMethod.Alg() {
		return nil, reject(ReasonInvalidSignature, errors.New("unexpected signing method"))
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, reject(ReasonMalformedToken, errors.New("missing sub or exp claim"))
	}
	return claims, nil
}

func (v *Validator) checkRevoked(ctx context.Context, rawToken string) error {
	if err := ctx.Err(); err != nil {
		return reject(ReasonInternalError, fmt.Errorf("revocation check: %w", err))
	}
	revoked, err := v.revocations.IsRevoked(ctx, rawToken)
	if err != nil {
		return reject(ReasonInternalError, fmt.Errorf("revocation check: %w", err))
	}
	// A lookup that answered after the deadline is not trusted.
	if err := ctx.Err(); err != nil {
		return reject(ReasonInternalError, fmt.Errorf("revocation check: %w", err))
	}
	if revoked {
		return reject(ReasonRevokedToken, nil)
	}
	return nil
}
