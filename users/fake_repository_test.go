package users_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/postboard-go/apperror"
	"github.com/user/postboard-go/users"
)

type fakeRow struct {
	user      users.User
	hash      string
	deletedAt *time.Time
}

// fakeRepository mimics the PostgreSQL repository in memory, including the unique
// constraints on email and username across deleted and active rows.
type fakeRepository struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*fakeRow
	tick time.Time
	err  error // returned by every call when set
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		rows: make(map[uuid.UUID]*fakeRow),
		tick: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

var _ users.Repository = (*fakeRepository)(nil)

// now advances a fake clock so every write gets a distinct, increasing timestamp.
func (f *fakeRepository) now() time.Time {
	f.tick = f.tick.Add(time.Second)
	return f.tick
}

func (f *fakeRepository) List(ctx context.Context) ([]users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]users.User, 0)
	for _, row := range f.rows {
		if row.deletedAt == nil {
			out = append(out, row.user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, apperror.NewNotFoundError("User not found", nil)
	}
	u := row.user
	return &u, nil
}

func (f *fakeRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.rows[id]
	return ok, nil
}

func (f *fakeRepository) conflict(id uuid.UUID, email, username *string) error {
	for otherID, row := range f.rows {
		if otherID == id {
			continue
		}
		if email != nil && row.user.Email == *email {
			return taken("email")
		}
		if username != nil && row.user.Username == *username {
			return taken("username")
		}
	}
	return nil
}

func taken(field string) error {
	return apperror.NewValidationError("invalid user payload", apperror.FieldError{Field: field, Message: "already exists"})
}

func (f *fakeRepository) Create(ctx context.Context, u users.NewUser) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if err := f.conflict(u.ID, &u.Email, &u.Username); err != nil {
		return nil, err
	}
	now := f.now()
	row := &fakeRow{
		user: users.User{
			ID: u.ID, Name: u.Name, Email: u.Email, Username: u.Username,
			CreatedAt: now, UpdatedAt: now,
		},
		hash: u.PasswordHash,
	}
	f.rows[u.ID] = row
	created := row.user
	return &created, nil
}

func (f *fakeRepository) Update(ctx context.Context, id uuid.UUID, changes users.Changes) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, apperror.NewNotFoundError("User not found", nil)
	}
	if err := f.conflict(id, changes.Email, changes.Username); err != nil {
		return nil, err
	}
	if changes.Name != nil {
		row.user.Name = *changes.Name
	}
	if changes.Email != nil {
		row.user.Email = *changes.Email
	}
	if changes.Username != nil {
		row.user.Username = *changes.Username
	}
	row.user.UpdatedAt = f.now()
	updated := row.user
	return &updated, nil
}

func (f *fakeRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	row, ok := f.rows[id]
	if !ok {
		return apperror.NewNotFoundError("User not found", nil)
	}
	now := f.now()
	row.deletedAt = &now
	return nil
}

func (f *fakeRepository) passwordHash(id uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].hash
}

func (f *fakeRepository) isDeleted(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].deletedAt != nil
}
