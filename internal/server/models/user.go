package models

import "time"

// User is a stored credential. Salt is generated once at registration and never changes.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash []byte
	Salt         []byte
	CreatedAt    time.Time
}
