package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

type User struct {
	ID          int         `json:"id"`
	Email       string      `json:"email"`
	Username    string      `json:"username"`
	FirstName   string      `json:"first_name,omitempty"`
	LastName    string      `json:"last_name,omitempty"`
	Password    string      `json:"-"` // Không bao giờ trả về password hash trong JSON
	Role        UserRole    `json:"role"`
	Status      UserStatus  `json:"status"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	PhoneNumber null.String `json:"phone_number"`
	Address     null.String `json:"address"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type RegisterUserDTO struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required,min=3,max=50"`
	Password  string `json:"password" binding:"required,min=6,max=100"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type LoginUserDTO struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileDTO struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AvatarURL   string `json:"avatar_url"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

type AuthResponseDTO struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	UserID       int      `json:"user_id"`
	Username     string   `json:"username"`
	Role         UserRole `json:"role"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type WSTokenResponseDTO struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // Giây
}
