package users

import (
	"strings"

	"github.com/user/postboard-go/validation"
)

const (
	nameRules     = "required,min=2"
	emailRules    = "required,email"
	usernameRules = "required,min=3"
)

// ValidateCreate checks a create payload. It returns nil or a ValidationError.
func ValidateCreate(req CreateUserRequest) error {
	ch := validation.New()
	ch.Field("name", req.Name, nameRules)
	ch.Field("email", req.Email, emailRules)
	ch.Field("username", req.Username, usernameRules)
	ch.Field("password", req.Password, "required")
	return ch.Err("invalid user payload")
}

// ValidateUpdate checks only the fields present in a partial update.
func ValidateUpdate(req UpdateUserRequest) error {
	ch := validation.New()
	ch.Optional("name", req.Name, req.nulls["name"], nameRules)
	ch.Optional("email", req.Email, req.nulls["email"], emailRules)
	ch.Optional("username", req.Username, req.nulls["username"], usernameRules)
	return ch.Err("invalid user payload")
}

// normalizeEmail stores emails in a consistent case so uniqueness is case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
