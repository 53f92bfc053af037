package models

import "time"

type Notification struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    *uint            `json:"user_id" gorm:"index"`
	Title     string           `json:"title" gorm:"size:255;not null"`
	Message   string           `json:"message" gorm:"size:1000;not null"`
	Type      NotificationType `json:"type" gorm:"size:20;not null"`
	Read      bool             `json:"read" gorm:"column:is_read;not null;default:false;index"`
	CreatedAt time.Time        `json:"created_at" gorm:"index"`
}

type NotificationType string

const (
	NotificationOrder  NotificationType = "order"
	NotificationUser   NotificationType = "user"
	NotificationSystem NotificationType = "system"
)
