package models

import "time"

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Fullname     string    `json:"fullname" gorm:"size:255;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255"`
	Role         string    `json:"role" gorm:"size:50;not null"` // admin, users
	Status       string    `json:"status" gorm:"size:50;not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "users"
)

const (
	UserActive   = "active"
	UserInactive = "inactive"
)
