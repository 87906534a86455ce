package models

import (
	"time"
)

const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

type User struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string `gorm:"type:varchar(64);unique;not null" json:"username"`
	Email     string `gorm:"type:varchar(255)" json:"email"`
	Password  string `json:"-"`
	Role      string `gorm:"type:varchar(20);not null;default:User" json:"role"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
