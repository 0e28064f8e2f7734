package model

import "time"

// User is an account able to obtain access tokens
type User struct {
	ID             string     `bson:"_id" json:"id"`
	Email          string     `bson:"email" json:"email"`
	HashedPassword string     `bson:"hashed_password" json:"-"`
	FullName       string     `bson:"full_name,omitempty" json:"full_name,omitempty"`
	IsActive       bool       `bson:"is_active" json:"is_active"`
	IsAdmin        bool       `bson:"is_admin" json:"is_admin"`
	CreatedAt      time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `bson:"updated_at" json:"updated_at"`
	LastLogin      *time.Time `bson:"last_login,omitempty" json:"last_login,omitempty"`
}

// UserCreate is the registration payload
type UserCreate struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	FullName string `json:"full_name"`
}

// UserLogin is the JSON login payload
type UserLogin struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate is what a user may change about themselves
type ProfileUpdate struct {
	FullName *string `json:"full_name"`
	Password *string `json:"password" validate:"omitempty,password"`
}

// UserAdminUpdate is what an admin may change about any user
type UserAdminUpdate struct {
	FullName *string `json:"full_name"`
	IsActive *bool   `json:"is_active"`
	IsAdmin  *bool   `json:"is_admin"`
}

// Token is the access token response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
