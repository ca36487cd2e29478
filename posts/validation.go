package posts

import (
	"strings"

	"github.com/google/uuid"

	"github.com/user/postboard-go/validation"
)

const (
	titleRules    = "required,min=3"
	contentRules  = "required,min=10"
	authorIDRules = "required,uuid"
)

// ValidateCreate checks a create payload. It returns nil or a ValidationError.
func ValidateCreate(req CreatePostRequest) error {
	ch := validation.New()
	ch.Field("title", req.Title, titleRules)
	ch.Field("content", req.Content, contentRules)
	ch.Field("author_id", strings.ToLower(req.AuthorID), authorIDRules)
	return ch.Err("invalid post payload")
}

// ValidateUpdate checks only the fields present in a partial update.
func ValidateUpdate(req UpdatePostRequest) error {
	ch := validation.New()
	ch.Optional("title", req.Title, req.nulls["title"], titleRules)
	ch.Optional("content", req.Content, req.nulls["content"], contentRules)
	var authorID *string
	if req.AuthorID != nil {
		lowered := strings.ToLower(*req.AuthorID)
		authorID = &lowered
	}
	ch.Optional("author_id", authorID, req.nulls["author_id"], authorIDRules)
	return ch.Err("invalid post payload")
}

// parseAuthorID is only called on values that passed validation.
func parseAuthorID(s string) uuid.UUID {
	return uuid.MustParse(s)
}
