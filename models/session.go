package models

import "time"

// Session, rotating refresh token oturumu. Her refresh'te eski satır
// silinip yenisi yazılır; logout sadece ilgili satırı siler.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthTokens, login/register/refresh yanıtı.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}
