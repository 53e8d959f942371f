package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"

	PlanBase = "BASE"
	PlanPro  = "PRO"
)

type User struct {
	gorm.Model
	ProfileImage      string    `gorm:"default:''"`
	FirstName         string    `gorm:"default:''"`
	LastName          string    `gorm:"default:''"`
	Email             string    `gorm:"unique;not null"`
	Role              string    `gorm:"default:'USER'"` // USER, ADMIN
	Plan              string    `gorm:"default:'BASE'"` // BASE, PRO
	Password          string    `gorm:"not null"`
	PaymentCustomerID string    `gorm:"index;default:''"` // Customer id at the payment provider
	PaymentEmail      string    `gorm:"default:''"`
	LastLogin         time.Time `gorm:"default:NULL"`
	IsDeleted         bool      `gorm:"default:false"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsPro reports whether the user is on a paid subscription plan.
func (u *User) IsPro() bool {
	return u.Plan == PlanPro
}
