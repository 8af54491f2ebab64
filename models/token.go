package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, access token payload'u. Middleware rolü DB'den tekrar okur;
// token'daki Role sadece gateway ve ws tarafında kullanıcıyı yüklemeden karar vermek içindir.
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}
