package posts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/user/postboard-go/apperror"
	"github.com/user/postboard-go/db"
)

// Repository is the storage contract of the post pipeline. Every method issues a
// single statement and reports failures as *apperror.AppError.
type Repository interface {
	// List returns non-deleted posts, newest first, with their authors.
	List(ctx context.Context) ([]PostWithAuthor, error)
	// GetByID returns the post and its author regardless of deletion state.
	GetByID(ctx context.Context, id uuid.UUID) (*PostWithAuthor, error)
	// Exists reports whether a row with id exists, deleted or not.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, p NewPost) (*Post, error)
	// Update applies the non-nil changes and always refreshes updated_at.
	Update(ctx context.Context, id uuid.UUID, changes Changes) (*Post, error)
	// SoftDelete stamps deleted_at.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

const postColumns = `id, title, content, author_id, created_at, updated_at`

// selectWithAuthor left-joins users so a post whose author row is missing is still
// returned, with NULL author columns.
const selectWithAuthor = `
	SELECT p.id, p.title, p.content, p.author_id, p.created_at, p.updated_at,
	       u.id, u.name, u.username
	FROM posts p
	LEFT JOIN users u ON u.id = p.author_id
`

// PostgresRepository implements Repository on PostgreSQL through pgx.
type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository creates a repository on top of a pool, connection or transaction.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

var _ Repository = (*PostgresRepository)(nil)

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPostWithAuthor(row pgx.Row) (*PostWithAuthor, error) {
	var (
		p              PostWithAuthor
		authorID       *uuid.UUID
		name, username *string
	)
	err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
		&authorID, &name, &username,
	)
	if err != nil {
		return nil, err
	}
	if authorID != nil {
		p.Author = &Author{ID: *authorID}
		if name != nil {
			p.Author.Name = *name
		}
		if username != nil {
			p.Author.Username = *username
		}
	}
	return &p, nil
}

// List returns all posts that have not been soft-deleted.
func (r *PostgresRepository) List(ctx context.Context) ([]PostWithAuthor, error) {
	query := selectWithAuthor + `
		WHERE p.deleted_at IS NULL
		ORDER BY p.created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperror.NewDatabaseError("Failed to fetch posts", err)
	}
	defer rows.Close()

	posts := make([]PostWithAuthor, 0)
	for rows.Next() {
		p, err := scanPostWithAuthor(rows)
		if err != nil {
			return nil, apperror.NewDatabaseError("Failed to fetch posts", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("Failed to fetch posts", err)
	}
	return posts, nil
}

// GetByID fetches one post with its author. Soft-deleted posts are still returned.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*PostWithAuthor, error) {
	p, err := scanPostWithAuthor(r.db.QueryRow(ctx, selectWithAuthor+` WHERE p.id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NewNotFoundError("Post not found", nil)
		}
		return nil, apperror.NewDatabaseError("Failed to fetch post", err)
	}
	return p, nil
}

// Exists is the existence check used before update and delete.
func (r *PostgresRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, apperror.NewDatabaseError("Failed to look up post", err)
	}
	return exists, nil
}

// Create inserts a post. The response carries no author join.
func (r *PostgresRepository) Create(ctx context.Context, p NewPost) (*Post, error) {
	query := `
		INSERT INTO posts (id, title, content, author_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + postColumns
	created, err := scanPost(r.db.QueryRow(ctx, query, p.ID, p.Title, p.Content, p.AuthorID))
	if err != nil {
		return nil, classifyWriteError("Failed to create post", err)
	}
	return created, nil
}

// Update builds the SET clause from the supplied fields only.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, changes Changes) (*Post, error) {
	setClauses := []string{"updated_at = now()"}
	var args []any
	argID := 1

	add := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}
	if changes.Title != nil {
		add("title", *changes.Title)
	}
	if changes.Content != nil {
		add("content", *changes.Content)
	}
	if changes.AuthorID != nil {
		add("author_id", *changes.AuthorID)
	}

	args = append(args, id) // For the WHERE clause
	query := fmt.Sprintf(`
		UPDATE posts
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argID, postColumns)

	updated, err := scanPost(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NewNotFoundError("Post not found", nil)
		}
		return nil, classifyWriteError("Failed to update post", err)
	}
	return updated, nil
}

// SoftDelete marks the row deleted. Rows that are already deleted get a fresh stamp.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE posts SET deleted_at = now() WHERE id = $1`, id)
	if err != nil {
		return apperror.NewDatabaseError("Failed to delete post", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("Post not found", nil)
	}
	return nil
}

// classifyWriteError reports an unknown author as a validation failure on author_id
// instead of a server error.
func classifyWriteError(message string, err error) error {
	if _, ok := db.ForeignKeyViolation(err); ok {
		appErr := apperror.NewValidationError("invalid post payload", apperror.FieldError{
			Field:   "author_id",
			Message: "does not reference an existing user",
		})
		appErr.Err = err
		return appErr
	}
	return apperror.NewDatabaseError(message, err)
}
