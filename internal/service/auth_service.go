package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/clock"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/revocation"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

const invalidCredentials = "invalid email or password"

// TokenVerifier checks the shape and signature of a token without consulting
// the clock or any store.
type TokenVerifier interface {
	Verify(rawToken string) (*auth.Claims, error)
}

// AuthService coordinates login, logout and revocation flows.
type AuthService struct {
	users       repository.UserRepository
	issuer      *auth.Issuer
	verifier    TokenVerifier
	revocations revocation.Store
	passwords   auth.PasswordVerifier
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	clock       clock.Clock
	logger      *zap.Logger
}

// AuthDependencies encapsulates the collaborators of the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	Issuer      *auth.Issuer
	Verifier    TokenVerifier
	Revocations revocation.Store
	Passwords   auth.PasswordVerifier
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Clock       clock.Clock
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	if deps.Passwords == nil {
		deps.Passwords = auth.BcryptVerifier{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AuthService{
		users:       deps.UserRepo,
		issuer:      deps.Issuer,
		verifier:    deps.Verifier,
		revocations: deps.Revocations,
		passwords:   deps.Passwords,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
}

// Login authenticates an account by email and password and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, auth.IssuedToken, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.IssuedToken{}, apperrors.NewUnprocessable(invalidCredentials)
		}
		return nil, auth.IssuedToken{}, err
	}
	if !s.passwords.Matches(password, user.PasswordHash) {
		return nil, auth.IssuedToken{}, apperrors.NewUnprocessable(invalidCredentials)
	}
	if user.Status == domain.UserStatusSuspended {
		return nil, auth.IssuedToken{}, apperrors.NewUnprocessable("account is suspended")
	}

	issued, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, auth.IssuedToken{}, err
	}

	s.publish(ctx, events.EventUserLoggedIn, user.ID, events.TokenPayload{
		Fingerprint: revocation.Fingerprint(issued.Token),
		ExpiresAt:   issued.ExpiresAt,
	})
	return user, issued, nil
}

// Logout revokes the token that authenticated the current request.
func (s *AuthService) Logout(ctx context.Context, principal auth.Principal, rawToken string) (revocation.Outcome, error) {
	outcome, err := s.revoke(ctx, rawToken, principal.SubjectID, principal.ExpiresAt)
	if err != nil {
		return "", err
	}
	s.publish(ctx, events.EventUserLoggedOut, principal.SubjectID, events.TokenPayload{
		Fingerprint: revocation.Fingerprint(rawToken),
		ExpiresAt:   principal.ExpiresAt,
		Outcome:     string(outcome),
	})
	return outcome, nil
}

// Blacklist revokes an arbitrary token. Only tokens carrying a valid
// signature are accepted; expired ones are allowed.
func (s *AuthService) Blacklist(ctx context.Context, rawToken string) (revocation.Outcome, error) {
	claims, err := s.verifier.Verify(strings.TrimSpace(rawToken))
	if err != nil {
		reason := auth.ReasonOf(err)
		return "", apperrors.NewValidationError(reason.Message(), map[string]any{"reason": reason.Code()})
	}
	rawToken = strings.TrimSpace(rawToken)

	outcome, err := s.revoke(ctx, rawToken, claims.Subject, claims.ExpiresAt.Time)
	if err != nil {
		return "", err
	}
	s.publish(ctx, events.EventTokenRevoked, claims.Subject, events.TokenPayload{
		Fingerprint: revocation.Fingerprint(rawToken),
		ExpiresAt:   claims.ExpiresAt.Time,
		Outcome:     string(outcome),
	})
	return outcome, nil
}

// Me loads the account behind the principal.
func (s *AuthService) Me(ctx context.Context, principal auth.Principal) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, principal.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": principal.SubjectID})
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) revoke(ctx context.Context, rawToken, subjectID string, expiresAt time.Time) (revocation.Outcome, error) {
	outcome, err := s.revocations.Revoke(ctx, rawToken, subjectID, expiresAt)
	if err != nil {
		s.metrics.RecordRevocation("error")
		return "", err
	}
	s.metrics.RecordRevocation(string(outcome))
	return outcome, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subjectID string, payload events.TokenPayload) {
	if s.dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, subjectID, s.clock.Now(), payload)
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
