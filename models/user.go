// Package models, domain modellerini ve HTTP request struct'larını tanımlar.
//
// `json:"..."` tag'leri API yanıtlarının şeklini, `validate:"..."` tag'leri
// request doğrulama kurallarını belirler. Request'lerin Validate() method'ları
// önce normalize eder (trim, lowercase), sonra validation.Struct çağırır.
package models

import (
	"strings"
	"time"

	"github.com/akinalp/storefront/pkg/validation"
)

// Role, kullanıcının yetki seviyesi.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User, bir müşteri veya admin hesabı.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Language     string    `json:"language"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin, admin dashboard yetkisini kontrol eder.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Name, email ve UI'da gösterilecek ad. DisplayName yoksa username.
func (u *User) Name() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}

// CreateUserRequest, kayıt isteği. Hash'leme service katmanında yapılır.
type CreateUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=32,username"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"display_name" validate:"max=32"`
	// Language boşsa handler Accept-Language'dan doldurur.
	Language string `json:"language" validate:"omitempty,oneof=en tr"`
}

func (r *CreateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.Language = strings.ToLower(strings.TrimSpace(r.Language))
	return validation.Struct(r)
}

// LoginRequest: Username alanı username veya email kabul eder.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	return validation.Struct(r)
}

// UpdateUserRequest, profil güncellemesi. nil alanlar değişmez.
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name" validate:"omitnil,max=32"`
	Language    *string `json:"language" validate:"omitnil,oneof=en tr"`
}

func (r *UpdateUserRequest) Validate() error {
	if r.DisplayName != nil {
		trimmed := strings.TrimSpace(*r.DisplayName)
		r.DisplayName = &trimmed
	}
	return validation.Struct(r)
}

// ChangePasswordRequest, oturum açıkken şifre değişikliği.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

func (r *ChangePasswordRequest) Validate() error {
	return validation.Struct(r)
}

// RefreshRequest, refresh ve logout body'si.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (r *RefreshRequest) Validate() error {
	return validation.Struct(r)
}
