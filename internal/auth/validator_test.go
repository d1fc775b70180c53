package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spec-kit/auth-service/internal/auth"
	mock_auth "github.com/spec-kit/auth-service/internal/auth/mock"
	"github.com/spec-kit/auth-service/internal/clock"
	"github.com/spec-kit/auth-service/internal/revocation"
)

const (
	secret     = "validator-test-secret"
	issuerName = "auth-service"
	subject    = "42"
	email      = "jane@example.com"
)

var start = time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)

type harness struct {
	clock      *clock.Fake
	issuer     *auth.Issuer
	revoked    *mock_auth.MockRevocationChecker
	identities *mock_auth.MockIdentityLookup
	validator  *auth.Validator
}

func newHarness(t *testing.T, ttl, timeout time.Duration) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		clock:      clock.NewFake(start),
		revoked:    mock_auth.NewMockRevocationChecker(ctrl),
		identities: mock_auth.NewMockIdentityLookup(ctrl),
	}
	var err error
	h.issuer, err = auth.NewIssuer(secret, issuerName, ttl, h.clock)
	require.NoError(t, err)
	h.validator, err = auth.NewValidator(auth.ValidatorConfig{
		Secret:  secret,
		Issuer:  issuerName,
		Timeout: timeout,
		Clock:   h.clock,
	}, h.revoked, h.identities)
	require.NoError(t, err)
	return h
}

func (h *harness) issue(t *testing.T) string {
	t.Helper()
	issued, err := h.issuer.Issue(subject, email)
	require.NoError(t, err)
	return issued.Token
}

func (h *harness) expectHealthy(token string) {
	h.revoked.EXPECT().IsRevoked(gomock.Any(), token).Return(false, nil)
	h.identities.EXPECT().FindByID(gomock.Any(), subject).Return(auth.Identity{SubjectID: subject, Email: email}, nil)
}

func assertReason(t *testing.T, want auth.Reason, err error) {
	t.Helper()
	require.Error(t, err)
	var rejection *auth.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, want, rejection.Reason)
}

func flip(s string, i int) string {
	replacement := byte('A')
	if s[i] == 'A' {
		replacement = 'B'
	}
	return s[:i] + string(replacement) + s[i+1:]
}

func TestValidateRoundTrip(t *testing.T) {
	h := newHarness(t, 15*time.Minute, 0)
	token := h.issue(t)
	h.expectHealthy(token)

	principal, err := h.validator.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, subject, principal.SubjectID)
	assert.Equal(t, email, principal.Email)
	assert.True(t, principal.ExpiresAt.Equal(start.Add(15*time.Minute)))
}

func TestValidateZeroTTLIsExpired(t *testing.T) {
	h := newHarness(t, 0, 0)

	_, err := h.validator.Validate(context.Background(), h.issue(t))
	assertReason(t, auth.ReasonExpiredToken, err)
}

func TestValidateExpiryBoundary(t *testing.T) {
	h := newHarness(t, time.Minute, 0)
	token := h.issue(t)

	h.clock.Advance(time.Minute - time.Second)
	h.expectHealthy(token)
	_, err := h.validator.Validate(context.Background(), token)
	require.NoError(t, err)

	h.clock.Advance(time.Second)
	_, err = h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonExpiredToken, err)
}

func TestValidateTamperedSegments(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	token := h.issue(t)
	segments := strings.Split(token, ".")
	payloadStart := len(segments[0]) + 1
	signatureStart := payloadStart + len(segments[1]) + 1

	for i := payloadStart; i < len(token); i++ {
		if i == signatureStart-1 {
			continue
		}
		_, err := h.validator.Validate(context.Background(), flip(token, i))
		assertReason(t, auth.ReasonInvalidSignature, err)
	}
}

func TestValidateFormatGuards(t *testing.T) {
	h := newHarness(t, time.Hour, 0)

	_, err := h.validator.Validate(context.Background(), "")
	assertReason(t, auth.ReasonMissingToken, err)

	for _, raw := range []string{"not-a-token", "a.b", "a..c", "a.b.c.d"} {
		_, err := h.validator.Validate(context.Background(), raw)
		assertReason(t, auth.ReasonMalformedToken, err)
	}
}

func TestValidateForeignIssuer(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	foreign, err := auth.NewIssuer(secret, "someone-else", time.Hour, h.clock)
	require.NoError(t, err)
	issued, err := foreign.Issue(subject, email)
	require.NoError(t, err)

	_, err = h.validator.Validate(context.Background(), issued.Token)
	assertReason(t, auth.ReasonUnknownIssuer, err)
}

func TestValidateForeignSecret(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	foreign, err := auth.NewIssuer("other-secret", issuerName, time.Hour, h.clock)
	require.NoError(t, err)
	issued, err := foreign.Issue(subject, email)
	require.NoError(t, err)

	_, err = h.validator.Validate(context.Background(), issued.Token)
	assertReason(t, auth.ReasonInvalidSignature, err)
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	claims := &auth.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuerName,
			ExpiresAt: jwt.NewNumericDate(start.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonInvalidSignature, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = h.validator.Validate(context.Background(), unsigned)
	assertReason(t, auth.ReasonMalformedToken, err)
}

func TestValidateMissingClaims(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuerName},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonMalformedToken, err)
}

func TestValidateRevoked(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	token := h.issue(t)
	h.revoked.EXPECT().IsRevoked(gomock.Any(), token).Return(true, nil)

	_, err := h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonRevokedToken, err)
}

func TestValidateRevocationStoreFailure(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	token := h.issue(t)
	h.revoked.EXPECT().IsRevoked(gomock.Any(), token).Return(false, errors.New("redis: connection refused"))

	_, err := h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonInternalError, err)
}

func TestValidateIdentityChecks(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	token := h.issue(t)

	h.revoked.EXPECT().IsRevoked(gomock.Any(), token).Return(false, nil).Times(3)
	gomock.InOrder(
		h.identities.EXPECT().FindByID(gomock.Any(), subject).Return(auth.Identity{}, auth.ErrIdentityNotFound),
		h.identities.EXPECT().FindByID(gomock.Any(), subject).Return(auth.Identity{SubjectID: subject, Email: "new@example.com"}, nil),
		h.identities.EXPECT().FindByID(gomock.Any(), subject).Return(auth.Identity{}, errors.New("db down")),
	)

	_, err := h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonUnknownIdentity, err)

	_, err = h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonIdentityMismatch, err)

	_, err = h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonInternalError, err)
}

func TestValidateRevocationWinsOverHealthyIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	identities := mock_auth.NewMockIdentityLookup(ctrl)
	clk := clock.NewFake(start)
	store := revocation.NewMemoryStore(clk)

	issuer, err := auth.NewIssuer(secret, issuerName, time.Hour, clk)
	require.NoError(t, err)
	validator, err := auth.NewValidator(auth.ValidatorConfig{Secret: secret, Issuer: issuerName, Clock: clk}, store, identities)
	require.NoError(t, err)

	issued, err := issuer.Issue(subject, email)
	require.NoError(t, err)
	identities.EXPECT().FindByID(gomock.Any(), subject).Return(auth.Identity{SubjectID: subject, Email: email}, nil)

	_, err = validator.Validate(context.Background(), issued.Token)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = store.Revoke(context.Background(), issued.Token, subject, issued.ExpiresAt)
		require.NoError(t, err)
	}

	_, err = validator.Validate(context.Background(), issued.Token)
	assertReason(t, auth.ReasonRevokedToken, err)
}

func TestValidateTimeout(t *testing.T) {
	h := newHarness(t, time.Hour, 20*time.Millisecond)
	token := h.issue(t)
	h.revoked.EXPECT().IsRevoked(gomock.Any(), token).DoAndReturn(func(ctx context.Context, _ string) (bool, error) {
		<-ctx.Done()
		return false, nil
	})

	_, err := h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonInternalError, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidateLateIdentityNotFoundIsInternal(t *testing.T) {
	h := newHarness(t, time.Hour, 10*time.Millisecond)
	token := h.issue(t)
	h.revoked.EXPECT().IsRevoked(gomock.Any(), token).Return(false, nil)
	h.identities.EXPECT().FindByID(gomock.Any(), subject).DoAndReturn(func(ctx context.Context, _ string) (auth.Identity, error) {
		<-ctx.Done()
		return auth.Identity{}, auth.ErrIdentityNotFound
	})

	_, err := h.validator.Validate(context.Background(), token)
	assertReason(t, auth.ReasonInternalError, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidateCancelledContext(t *testing.T) {
	h := newHarness(t, time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.validator.Validate(ctx, h.issue(t))
	assertReason(t, auth.ReasonInternalError, err)
}

func TestVerifyAcceptsExpiredTokens(t *testing.T) {
	h := newHarness(t, time.Minute, 0)
	token := h.issue(t)
	h.clock.Advance(time.Hour)

	claims, err := h.validator.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, subject, claims.Subject)
}

func TestNewValidatorRequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	revoked := mock_auth.NewMockRevocationChecker(ctrl)
	identities := mock_auth.NewMockIdentityLookup(ctrl)

	_, err := auth.NewValidator(auth.ValidatorConfig{Issuer: issuerName}, revoked, identities)
	assert.Error(t, err)
	_, err = auth.NewValidator(auth.ValidatorConfig{Secret: secret}, revoked, identities)
	assert.Error(t, err)
	_, err = auth.NewValidator(auth.ValidatorConfig{Secret: secret, Issuer: issuerName}, nil, identities)
	assert.Error(t, err)
}
