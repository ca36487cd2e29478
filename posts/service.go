package posts

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/user/postboard-go/apperror"
)

// PostService holds the post business rules. Whether author_id points at an existing
// user is left to the foreign key.
type PostService struct {
	repo  Repository
	newID func() uuid.UUID
}

// NewPostService creates a new PostService.
func NewPostService(repo Repository) *PostService {
	return &PostService{repo: repo, newID: uuid.New}
}

// List returns all posts that are not soft-deleted, each with its author.
func (s *PostService) List(ctx context.Context) ([]PostWithAuthor, error) {
	return s.repo.List(ctx)
}

// Get returns one post with its author.
func (s *PostService) Get(ctx context.Context, id uuid.UUID) (*PostWithAuthor, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates the payload and inserts the post.
func (s *PostService) Create(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if err := ValidateCreate(req); err != nil {
		return nil, err
	}

	post, err := s.repo.Create(ctx, NewPost{
		ID:       s.newID(),
		Title:    req.Title,
		Content:  req.Content,
		AuthorID: parseAuthorID(req.AuthorID),
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "post created", "post_id", post.ID, "author_id", post.AuthorID)
	return post, nil
}

// Update applies a partial update after the existence check.
func (s *PostService) Update(ctx context.Context, id uuid.UUID, req UpdatePostRequest) (*Post, error) {
	if err := s.mustExist(ctx, id); err != nil {
		return nil, err
	}
	if err := ValidateUpdate(req); err != nil {
		return nil, err
	}

	changes := Changes{Title: req.Title, Content: req.Content}
	if req.AuthorID != nil {
		authorID := parseAuthorID(*req.AuthorID)
		changes.AuthorID = &authorID
	}
	return s.repo.Update(ctx, id, changes)
}

// Delete soft-deletes a post.
func (s *PostService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.mustExist(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "post soft-deleted", "post_id", id)
	return nil
}

func (s *PostService) mustExist(ctx context.Context, id uuid.UUID) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFoundError("Post not found", nil)
	}
	return nil
}
