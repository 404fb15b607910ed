package models

import "ams/src/types"

type Role struct {
	Name string `gorm:"primarykey" json:"name"`

	Permissions []Permission `gorm:"many2many:role_permissions;" json:"-"`
}

type Permission struct {
	Name string `gorm:"primarykey" json:"name"`

	Role Role `gorm:"many2many:role_permissions;" json:"-"`
}

type RolePermission struct {
	ID         uint   `json:"id"`
	Role       string `gorm:"uniqueIndex:role_permission" json:"role"`
	Permission string `gorm:"uniqueIndex:role_permission" json:"permission"`

	InnerRole       Role       `gorm:"foreignKey:role" json:"-"`
	InnerPermission Permission `gorm:"foreignKey:permission" json:"-"`
}

// UserRole is a role grant. A user holds a role at most once; the unique
// index makes repeated grants idempotent at the store level.
type UserRole struct {
	ID     uint       `gorm:"primarykey" json:"id"`
	UserID uint       `gorm:"uniqueIndex:user_role" json:"user_id"`
	Role   types.Role `gorm:"uniqueIndex:user_role" json:"role"`

	User User `gorm:"foreignKey:user_id" json:"-"`
}
