package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/revocation"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

var revocationMessages = map[revocation.Outcome]string{
	revocation.OutcomeRevoked:        "token revoked",
	revocation.OutcomeAlreadyRevoked: "token already revoked",
}

// AuthHandler exposes login, logout and revocation endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, issued, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(dto.LoginResponse{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		User:      dto.NewUserSummary(user),
	})
}

// Logout handles GET and POST /api/v1/auth/logout by revoking the caller's token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()
	principal, ok := auth.PrincipalFromContext(ctx)
	rawToken, hasToken := auth.TokenFromContext(ctx)
	if !ok || !hasToken {
		return apperrors.NewInternalError(nil)
	}

	outcome, err := h.auth.Logout(ctx, principal, rawToken)
	if err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: revocationMessages[outcome]})
}

// Blacklist handles POST /api/v1/auth/blacklisted_tokens.
func (h *AuthHandler) Blacklist(c *fiber.Ctx) error {
	var req dto.BlacklistTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	outcome, err := h.auth.Blacklist(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: revocationMessages[outcome]})
}
