package domain

import "time"

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is an account that can log in and be named by a token subject.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Phone        string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
