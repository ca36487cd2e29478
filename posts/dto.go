// Package posts implements the post pipeline: payload validation, the PostgreSQL
// repository (with the author left join) and the HTTP handlers for /posts.
package posts

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/user/postboard-go/validation"
)

// Post is the projection returned by create and update.
// @Description A post without author details
type Post struct {
	ID        uuid.UUID `json:"id" example:"9b2f6c1e-2a7d-4e3b-8c5a-1d0e9f8a7b6c"`
	Title     string    `json:"title" example:"Hello world"`
	Content   string    `json:"content" example:"My very first post on the board."`
	AuthorID  uuid.UUID `json:"author_id" example:"3f1c2e9a-8d4b-4f6e-9a21-5b7c8d9e0f12"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// Author is the slice of the users row attached to a post at read time.
// @Description Author metadata joined from users
type Author struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
}

// PostWithAuthor is the projection returned by list and get. Author is null when the
// referenced users row cannot be found.
// @Description A post with its author
type PostWithAuthor struct {
	Post
	Author *Author `json:"author"`
}

// CreatePostRequest is the body of POST /posts.
// @Description Request body for creating a post
type CreatePostRequest struct {
	Title    string `json:"title" example:"Hello world"`
	Content  string `json:"content" example:"My very first post on the board."`
	AuthorID string `json:"author_id" example:"3f1c2e9a-8d4b-4f6e-9a21-5b7c8d9e0f12"`
}

// UpdatePostRequest is the body of PATCH /posts/{id}. nil fields are left untouched.
// @Description Request body for partially updating a post
type UpdatePostRequest struct {
	Title    *string `json:"title,omitempty" example:"Hello again"`
	Content  *string `json:"content,omitempty" example:"An edited version of the post."`
	AuthorID *string `json:"author_id,omitempty" example:"3f1c2e9a-8d4b-4f6e-9a21-5b7c8d9e0f12"`

	nulls map[string]bool
}

// UnmarshalJSON decodes the payload and remembers which fields were null.
func (r *UpdatePostRequest) UnmarshalJSON(data []byte) error {
	type plain UpdatePostRequest
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

// NewPost is what the repository inserts.
type NewPost struct {
	ID       uuid.UUID
	Title    string
	Content  string
	AuthorID uuid.UUID
}

// Changes lists the columns a partial update touches. nil means unchanged.
type Changes struct {
	Title    *string
	Content  *string
	AuthorID *uuid.UUID
}
