package models

import "github.com/google/uuid"

// Session is the token pair handed out at login.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Identity is what a verified access token asserts about its bearer.
type Identity struct {
	UserID uuid.UUID `json:"userId"`
	Role   Role      `json:"role"`
}

type LoginResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	Role         Role      `json:"role"`
	UserID       uuid.UUID `json:"userId"`
	Name         string    `json:"name"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}
