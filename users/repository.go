package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/user/postboard-go/apperror"
	"github.com/user/postboard-go/db"
)

// Repository is the storage contract of the user pipeline. Every method issues a
// single statement and reports failures as *apperror.AppError.
type Repository interface {
	// List returns non-deleted users, newest first.
	List(ctx context.Context) ([]User, error)
	// GetByID returns the user regardless of its deletion state.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// Exists reports whether a row with id exists, deleted or not.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Create(ctx context.Context, u NewUser) (*User, error)
	// Update applies the non-nil changes and always refreshes updated_at.
	Update(ctx context.Context, id uuid.UUID, changes Changes) (*User, error)
	// SoftDelete stamps deleted_at.
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// userColumns is the public projection; password_hash is never selected.
const userColumns = `id, name, email, username, created_at, updated_at`

// PostgresRepository implements Repository on PostgreSQL through pgx.
type PostgresRepository struct {
	db db.Querier
}

// NewPostgresRepository creates a repository on top of a pool, connection or transaction.
func NewPostgresRepository(q db.Querier) *PostgresRepository {
	return &PostgresRepository{db: q}
}

var _ Repository = (*PostgresRepository)(nil)

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Username, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// List returns all users that have not been soft-deleted.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperror.NewDatabaseError("Failed to fetch users", err)
	}
	defer rows.Close()

	// A non-nil empty slice encodes as [] rather than null.
	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperror.NewDatabaseError("Failed to fetch users", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabaseError("Failed to fetch users", err)
	}
	return users, nil
}

// GetByID fetches one user. Soft-deleted rows are still returned.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NewNotFoundError("User not found", nil)
		}
		return nil, apperror.NewDatabaseError("Failed to fetch user", err)
	}
	return u, nil
}

// Exists is the existence check used before update and delete.
func (r *PostgresRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, apperror.NewDatabaseError("Failed to look up user", err)
	}
	return exists, nil
}

// Create inserts a user and returns its projection.
func (r *PostgresRepository) Create(ctx context.Context, u NewUser) (*User, error) {
	query := `
		INSERT INTO users (id, name, email, username, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	created, err := scanUser(r.db.QueryRow(ctx, query, u.ID, u.Name, u.Email, u.Username, u.PasswordHash))
	if err != nil {
		return nil, classifyWriteError("Failed to create user", err)
	}
	return created, nil
}

// Update builds the SET clause from the supplied fields only.
func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, changes Changes) (*User, error) {
	setClauses := []string{"updated_at = now()"}
	var args []any
	argID := 1

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, *value)
		argID++
	}
	add("name", changes.Name)
	add("email", changes.Email)
	add("username", changes.Username)

	args = append(args, id) // For the WHERE clause
	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argID, userColumns)

	updated, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperror.NewNotFoundError("User not found", nil)
		}
		return nil, classifyWriteError("Failed to update user", err)
	}
	return updated, nil
}

// SoftDelete marks the row deleted. Rows that are already deleted get a fresh stamp.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET deleted_at = now() WHERE id = $1`, id)
	if err != nil {
		return apperror.NewDatabaseError("Failed to delete user", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFoundError("User not found", nil)
	}
	return nil
}

// classifyWriteError reports a taken email or username as a validation failure on
// that field. Email and username stay unique across deleted rows too.
func classifyWriteError(message string, err error) error {
	if constraint, ok := db.UniqueViolation(err); ok {
		field := "email"
		if strings.Contains(constraint, "username") {
			field = "username"
		}
		appErr := apperror.NewValidationError("invalid user payload", apperror.FieldError{
			Field:   field,
			Message: "already exists",
		})
		appErr.Err = err
		return appErr
	}
	return apperror.NewDatabaseError(message, err)
}
