package domain

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	RoleID       uint      `gorm:"not null;index" json:"role_id"`
	Role         *Role     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"role,omitempty"`
	Realname     string    `gorm:"size:100;not null" json:"realname"`
	Email        string    `gorm:"size:100;not null;index" json:"email"`
	Image        string    `gorm:"size:1024" json:"image,omitempty"`
	Active       bool      `gorm:"not null;default:true;index:idx_users_active" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleName is empty when the role association was not loaded.
func (u *User) RoleName() string {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Name
}
