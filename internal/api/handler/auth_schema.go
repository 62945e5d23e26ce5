package handler

import (
	"time"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone"`
	Community string `json:"community"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type verifyTwoFactorRequest struct {
	ChallengeID string `json:"challengeId" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

type updateProfileRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Community  string `json:"community"`
}

type twoFactorCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type userResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Phone       string     `json:"phone,omitempty"`
	Department  string     `json:"department,omitempty"`
	Community   string     `json:"community,omitempty"`
	Role        string     `json:"role"`
	TwoFactor   string     `json:"twoFactorState"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type loginResponse struct {
	TwoFactorRequired bool           `json:"twoFactorRequired"`
	ChallengeID       string         `json:"challengeId,omitempty"`
	User              *userResponse  `json:"user,omitempty"`
	Tokens            *tokenResponse `json:"tokens,omitempty"`
}

type enrollmentResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioningUri"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(u *domain.User) *userResponse {
	resp := &userResponse{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		Department: u.Department,
		Community:  u.Community,
		Role:       u.Role,
		TwoFactor:  u.TwoFactorState,
		CreatedAt:  u.CreatedAt,
	}
	if !u.LastLoginAt.IsZero() {
		t := u.LastLoginAt
		resp.LastLoginAt = &t
	}
	return resp
}

func toTokenResponse(p domain.TokenPair) *tokenResponse {
	return &tokenResponse{AccessToken: p.AccessToken, RefreshToken: p.RefreshToken}
}
