package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-service/internal/api/dto"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/service"
	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

// UsersHandler exposes the caller's own account.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Me handles GET /api/v1/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c.UserContext())
	if !ok {
		return apperrors.NewInternalError(nil)
	}

	user, err := h.auth.Me(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return c.JSON(dto.ProfileResponse{Message: "SUCCESS", Data: dto.NewProfile(user)})
}
