package dto

import (
	"time"

	"github.com/spec-kit/auth-service/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// BlacklistTokenRequest payload for explicit revocation.
type BlacklistTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// UserSummary is the public view of an account embedded in auth responses.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserSummary `json:"user"`
}

// MessageResponse carries a bare status message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ProfileResponse is the body of GET /me.
type ProfileResponse struct {
	Message string  `json:"message"`
	Data    Profile `json:"data"`
}

// Profile is the caller's own account.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// NewUserSummary builds a summary from the domain model.
func NewUserSummary(user *domain.User) UserSummary {
	return UserSummary{ID: user.ID, Email: user.Email, Name: user.Name}
}

// NewProfile builds a profile from the domain model.
func NewProfile(user *domain.User) Profile {
	return Profile{ID: user.ID, Email: user.Email, Name: user.Name, Phone: user.Phone}
}
