/**
 * @description
 * User database model.
 * Maps to the 'users' table in PostgreSQL. The ID is the subject of the caller's
 * JWT, so listings and notifications reference users by that string.
 *
 * @dependencies
 * - gorm.io/gorm
 */

package models

import (
	"time"
)

// UserRole mirrors the roles carried in access tokens
type UserRole string

const (
	UserRoleFarmer   UserRole = "farmer"
	UserRoleConsumer UserRole = "consumer"
	UserRoleAdmin    UserRole = "admin"
)

// User represents a registered farmer or consumer
type User struct {
	ID       string   `gorm:"primaryKey;size:64" json:"id"`
	Name     string   `gorm:"size:255" json:"name"`
	Email    string   `gorm:"size:255" json:"email"`
	Phone    string   `gorm:"size:32" json:"phone"`
	Address  string   `json:"address"`
	Role     UserRole `gorm:"size:16;not null;default:'consumer'" json:"role"`
	IsActive bool     `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName overrides the table name used by User to `users`
func (User) TableName() string {
	return "users"
}
