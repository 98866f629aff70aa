package domain

import "time"

// User is an account that can own tickets or act as tutor/admin.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	IsTutor      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
