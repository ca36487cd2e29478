// Package users encapsulates the user pipeline: payload validation, the PostgreSQL
// repository and the HTTP handlers for /users.
// This file, `dto.go`, defines the request and response shapes of the users API.
package users

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/user/postboard-go/validation"
)

// User is the public projection of a users row. The password hash and the deletion
// timestamp are never part of it.
// @Description A user without credentials
type User struct {
	ID        uuid.UUID `json:"id" example:"3f1c2e9a-8d4b-4f6e-9a21-5b7c8d9e0f12"`
	Name      string    `json:"name" example:"Ann Lee"`
	Email     string    `json:"email" example:"ann@x.com"`
	Username  string    `json:"username" example:"annlee"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// CreateUserRequest is the body of POST /users.
// @Description Request body for creating a user
type CreateUserRequest struct {
	Name     string `json:"name" example:"Ann Lee"`
	Email    string `json:"email" example:"ann@x.com"`
	Username string `json:"username" example:"annlee"`
	Password string `json:"password" example:"secret123"`
}

// UpdateUserRequest is the body of PATCH /users/{id}.
// Pointer fields allow partial updates: a nil field is left untouched.
// @Description Request body for partially updating a user
type UpdateUserRequest struct {
	Name     *string `json:"name,omitempty" example:"Ann Smith"`
	Email    *string `json:"email,omitempty" example:"ann.smith@x.com"`
	Username *string `json:"username,omitempty" example:"annsmith"`

	nulls map[string]bool // fields sent as an explicit null
}

// UnmarshalJSON decodes the payload and remembers which fields were null.
func (r *UpdateUserRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateUserRequest
	if err := json.Unmarshal(data, (*plain)(r)); err != nil {
		return err
	}
	nulls, err := validation.NullFields(data)
	if err != nil {
		return err
	}
	r.nulls = nulls
	return nil
}

// NewUser is what the repository inserts.
type NewUser struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Username     string
	PasswordHash string
}

// Changes lists the columns a partial update touches. nil means unchanged.
type Changes struct {
	Name     *string
	Email    *string
	Username *string
}
