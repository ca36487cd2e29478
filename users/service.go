package users

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/postboard-go/apperror"
)

// UserService holds the user business rules: validation, password hashing and the
// existence checks in front of update and delete.
type UserService struct {
	repo     Repository
	hashCost int
	newID    func() uuid.UUID
}

// NewUserService creates a new UserService. hashCost is the bcrypt cost.
func NewUserService(repo Repository, hashCost int) *UserService {
	return &UserService{repo: repo, hashCost: hashCost, newID: uuid.New}
}

// List returns all users that are not soft-deleted.
func (s *UserService) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get returns one user by id.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Create validates the payload, hashes the password and inserts the user.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*User, error) {
	if err := ValidateCreate(req); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, apperror.NewInternalError("Failed to create user", err)
	}

	user, err := s.repo.Create(ctx, NewUser{
		ID:           s.newID(),
		Name:         req.Name,
		Email:        normalizeEmail(req.Email),
		Username:     req.Username,
		PasswordHash: string(hashedPassword),
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "user created", "user_id", user.ID)
	return user, nil
}

// Update applies a partial update. The existence check comes before validation, so an
// unknown id is reported as NotFound even when the payload is also invalid.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*User, error) {
	if err := s.mustExist(ctx, id); err != nil {
		return nil, err
	}
	if err := ValidateUpdate(req); err != nil {
		return nil, err
	}

	changes := Changes{Name: req.Name, Username: req.Username}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		changes.Email = &email
	}
	return s.repo.Update(ctx, id, changes)
}

// Delete soft-deletes a user.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.mustExist(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "user soft-deleted", "user_id", id)
	return nil
}

// mustExist does not look at deleted_at: a soft-deleted user can still be updated
// and deleted again.
func (s *UserService) mustExist(ctx context.Context, id uuid.UUID) error {
	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NewNotFoundError("User not found", nil)
	}
	return nil
}
