package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/clock"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
	mock_repository "github.com/spec-kit/auth-service/internal/repository/mock"
	"github.com/spec-kit/auth-service/internal/revocation"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

const (
	testSecret = "service-test-secret"
	testIssuer = "auth-service"
)

type fixture struct {
	users     *mock_repository.MockUserRepository
	clock     *clock.Fake
	store     *revocation.MemoryStore
	issuer    *auth.Issuer
	svc       *service.AuthService
	published []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		users: mock_repository.NewMockUserRepository(ctrl),
		clock: clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.store = revocation.NewMemoryStore(f.clock)

	issuer, err := auth.NewIssuer(testSecret, testIssuer, 15*time.Minute, f.clock)
	require.NoError(t, err)
	f.issuer = issuer

	validator, err := auth.NewValidator(auth.ValidatorConfig{
		Secret: testSecret,
		Issuer: testIssuer,
		Clock:  f.clock,
	}, f.store, repository.NewIdentityDirectory(f.users))
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{events.EventUserLoggedIn, events.EventUserLoggedOut, events.EventTokenRevoked} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.published = append(f.published, e)
			return nil
		})
	}

	f.svc = service.NewAuthService(service.AuthDependencies{
		UserRepo:    f.users,
		Issuer:      issuer,
		Verifier:    validator,
		Revocations: f.store,
		Dispatcher:  dispatcher,
		Clock:       f.clock,
	})
	return f
}

func testUser(t *testing.T) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword("password", 4)
	require.NoError(t, err)
	return &domain.User{ID: "42", Name: "Jane", Email: "jane@example.com", PasswordHash: hash, Status: domain.UserStatusActive}
}

func domainStatus(t *testing.T, err error) int {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.HTTPStatus
}

func TestLoginIssuesToken(t *testing.T) {
	f := newFixture(t)
	user := testUser(t)
	f.users.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(user, nil)

	got, issued, err := f.svc.Login(context.Background(), " jane@example.com ", "password")
	require.NoError(t, err)
	assert.Equal(t, user, got)
	assert.NotEmpty(t, issued.Token)
	assert.True(t, f.clock.Now().Add(15*time.Minute).Equal(issued.ExpiresAt))

	require.Len(t, f.published, 1)
	assert.Equal(t, events.EventUserLoggedIn, f.published[0].Type)
	payload := f.published[0].Payload.(events.TokenPayload)
	assert.Equal(t, revocation.Fingerprint(issued.Token), payload.Fingerprint)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByEmail(gomock.Any(), "jane@example.com").Return(testUser(t), nil)
	f.users.EXPECT().GetByEmail(gomock.Any(), "nobody@example.com").Return(nil, pgx.ErrNoRows)

	_, _, err := f.svc.Login(context.Background(), "jane@example.com", "wrong")
	assert.Equal(t, http.StatusUnprocessableEntity, domainStatus(t, err))

	_, _, err = f.svc.Login(context.Background(), "nobody@example.com", "password")
	assert.Equal(t, http.StatusUnprocessableEntity, domainStatus(t, err))
	assert.Empty(t, f.published)
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	f := newFixture(t)
	user := testUser(t)
	user.Status = domain.UserStatusSuspended
	f.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(user, nil)

	_, _, err := f.svc.Login(context.Background(), "jane@example.com", "password")
	assert.Equal(t, http.StatusUnprocessableEntity, domainStatus(t, err))
}

func TestLoginPropagatesRepositoryFailure(t *testing.T) {
	f := newFixture(t)
	f.users.EXPECT().GetByEmail(gomock.Any(), gomock.Any()).Return(nil, errors.New("db down"))

	_, _, err := f.svc.Login(context.Background(), "jane@example.com", "password")
	assert.EqualError(t, err, "db down")
}

func TestLogoutRevokesCurrentToken(t *testing.T) {
	f := newFixture(t)
	issued, err := f.issuer.Issue("42", "jane@example.com")
	require.NoError(t, err)
	principal := auth.Principal{SubjectID: "42", Email: "jane@example.com", ExpiresAt: issued.ExpiresAt}

	outcome, err := f.svc.Logout(context.Background(), principal, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, revocation.OutcomeRevoked, outcome)

	outcome, err = f.svc.Logout(context.Background(), principal, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, revocation.OutcomeAlreadyRevoked, outcome)

	revoked, err := f.store.IsRevoked(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.True(t, revoked)
	require.Len(t, f.published, 2)
	assert.Equal(t, events.EventUserLoggedOut, f.published[0].Type)
}

func TestBlacklistAcceptsExpiredSignedToken(t *testing.T) {
	f := newFixture(t)
	issued, err := f.issuer.Issue("42", "jane@example.com")
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	outcome, err := f.svc.Blacklist(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, revocation.OutcomeRevoked, outcome)

	outcome, err = f.svc.Blacklist(context.Background(), issued.Token)
	require.NoError(t, err)
	assert.Equal(t, revocation.OutcomeAlreadyRevoked, outcome)

	require.NotEmpty(t, f.published)
	assert.Equal(t, "42", f.published[0].SubjectID)
}

func TestBlacklistRejectsUnsignedInput(t *testing.T) {
	f := newFixture(t)

	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := f.svc.Blacklist(context.Background(), raw)
		require.Error(t, err, raw)
		assert.Equal(t, http.StatusBadRequest, domainStatus(t, err), raw)
	}
	assert.Zero(t, f.store.Len())
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	user := testUser(t)
	f.users.EXPECT().GetByID(gomock.Any(), "42").Return(user, nil)
	f.users.EXPECT().GetByID(gomock.Any(), "7").Return(nil, pgx.ErrNoRows)

	got, err := f.svc.Me(context.Background(), auth.Principal{SubjectID: "42"})
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Name)

	_, err = f.svc.Me(context.Background(), auth.Principal{SubjectID: "7"})
	assert.Equal(t, http.StatusNotFound, domainStatus(t, err))
}
