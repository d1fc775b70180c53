package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/observability"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// TokenValidator validates raw bearer tokens.
type TokenValidator interface {
	Validate(ctx context.Context, rawToken string) (Principal, error)
}

// Authenticator enforces bearer authentication on every route outside the
// public allow-list.
type Authenticator struct {
	validator TokenValidator
	public    map[string]struct{}
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewAuthenticator constructs middleware. Public routes are either a bare
// path or "METHOD /path".
func NewAuthenticator(validator TokenValidator, publicRoutes []string, logger *zap.Logger, metrics *observability.Metrics) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	public := make(map[string]struct{}, len(publicRoutes))
	for _, route := range publicRoutes {
		method, path, found := strings.Cut(strings.TrimSpace(route), " ")
		if found {
			public[strings.ToUpper(method)+" "+normalizePath(path)] = struct{}{}
			continue
		}
		public[normalizePath(method)] = struct{}{}
	}
	return &Authenticator{validator: validator, public: public, logger: logger, metrics: metrics}
}

// Handle authenticates the request and attaches the principal to its user context.
func (m *Authenticator) Handle(c *fiber.Ctx) error {
	if m.IsPublic(c.Method(), c.Path()) {
		return c.Next()
	}

	ctx := c.UserContext()
	principal, rawToken, err := m.Authenticate(ctx, c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return RejectionError(err)
	}

	c.SetUserContext(WithPrincipal(ctx, principal, rawToken))
	return c.Next()
}

// Authenticate validates the token carried by an Authorization header value.
func (m *Authenticator) Authenticate(ctx context.Context, header string) (Principal, string, error) {
	rawToken, ok := BearerToken(header)
	if !ok {
		m.metrics.RecordValidation(string(ReasonMissingToken))
		return Principal{}, "", reject(ReasonMissingToken, nil)
	}

	principal, err := m.validator.Validate(ctx, rawToken)
	if err != nil {
		reason := ReasonOf(err)
		m.metrics.RecordValidation(string(reason))
		if reason == ReasonInternalError {
			m.logger.Error("token validation failed", zap.Error(err))
		} else {
			m.logger.Debug("token rejected", zap.String("reason", string(reason)), zap.Error(err))
		}
		return Principal{}, "", err
	}

	m.metrics.RecordValidation("ok")
	return principal, rawToken, nil
}

// IsPublic reports whether the route skips authentication.
func (m *Authenticator) IsPublic(method, path string) bool {
	path = normalizePath(path)
	if _, ok := m.public[path]; ok {
		return true
	}
	_, ok := m.public[strings.ToUpper(method)+" "+path]
	return ok
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// RejectionError maps a validation failure onto the HTTP error taxonomy.
// Internal causes never reach the response body.
func RejectionError(err error) error {
	reason := ReasonOf(err)
	if reason == ReasonInternalError {
		return apperrors.NewInternalError(err)
	}
	return apperrors.NewUnauthorized(reason.Code(), reason.Message(), err)
}

func normalizePath(path string) string {
	path = strings.ToLower(strings.TrimSpace(path))
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
