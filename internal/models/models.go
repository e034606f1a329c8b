package models

import "time"

type User struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string `gorm:"uniqueIndex;not null"     json:"username"`
	Email          string `gorm:"not null"                 json:"email"`
	EmailConfirmed bool   `gorm:"default:false"            json:"email_confirmed"`
	PasswordHash   string `gorm:"not null"                 json:"-"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Locale         string `json:"locale"`
	TimeZone       string `json:"time_zone"`
	Formats        string `json:"formats"`

	// Two-factor state. The secret is written during enrollment; the
	// enabled flag flips only after the first code validates on login.
	GoogleAuthenticatorSecret  string `json:"-"`
	GoogleAuthenticatorEnabled bool   `gorm:"default:false" json:"-"`
	TwoFactorEnabled           bool   `gorm:"default:false" json:"two_factor_enabled"`

	FailedAccessCount int        `gorm:"default:0" json:"-"`
	LockoutEnd        *time.Time `json:"-"`
}

type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null"     json:"name"`
}

type UserRole struct {
	UserID uint `gorm:"primaryKey" json:"user_id"`
	RoleID uint `gorm:"primaryKey" json:"role_id"`
}

type UserClaim struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uint   `gorm:"index;not null"           json:"user_id"`
	ClaimType  string `gorm:"not null"                 json:"claim_type"`
	ClaimValue string `gorm:"not null"                 json:"claim_value"`
}

type RoleClaim struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleID     uint   `gorm:"index;not null"           json:"role_id"`
	ClaimType  string `gorm:"not null"                 json:"claim_type"`
	ClaimValue string `gorm:"not null"                 json:"claim_value"`
}

// Setting is a key/value application setting row, read through typed
// accessors on the repository.
type Setting struct {
	Key   string `gorm:"primaryKey" json:"key"`
	Value string `gorm:"not null"   json:"value"`
}

// All lists every entity for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Role{},
		&UserRole{},
		&UserClaim{},
		&RoleClaim{},
		&Setting{},
	}
}
