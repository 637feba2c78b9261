package models

import "time"

// Roles
const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

type User struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"type:varchar(255); not null" json:"name"`
	Email     string `gorm:"type:varchar(255); unique;not null" json:"email"`
	EmailName string `gorm:"type:varchar(255)" json:"email_name"`
	Phone     string `gorm:"type:varchar(30)" json:"phone"`
	Password  string `gorm:"type:varchar(255); not null" json:"-"`
	Role      string `gorm:"type:varchar(20); not null;default:'customer'" json:"role"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
