package posts_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/user/postboard-go/apperror"
	"github.com/user/postboard-go/posts"
)

type fakeRow struct {
	post      posts.Post
	deletedAt *time.Time
}

// fakeRepository keeps posts in memory and resolves authors from a users map, the
// way the left join and the author_id foreign key do.
type fakeRepository struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]*fakeRow
	authors map[uuid.UUID]posts.Author
	tick    time.Time
	err     error // returned by every call when set
}

func newFakeRepository(authors ...posts.Author) *fakeRepository {
	f := &fakeRepository{
		rows:    make(map[uuid.UUID]*fakeRow),
		authors: make(map[uuid.UUID]posts.Author),
		tick:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, a := range authors {
		f.authors[a.ID] = a
	}
	return f
}

var _ posts.Repository = (*fakeRepository)(nil)

func (f *fakeRepository) now() time.Time {
	f.tick = f.tick.Add(time.Second)
	return f.tick
}

func (f *fakeRepository) withAuthor(p posts.Post) posts.PostWithAuthor {
	out := posts.PostWithAuthor{Post: p}
	if a, ok := f.authors[p.AuthorID]; ok {
		out.Author = &a
	}
	return out
}

func (f *fakeRepository) unknownAuthor() error {
	return apperror.NewValidationError("invalid post payload", apperror.FieldError{
		Field:   "author_id",
		Message: "does not reference an existing user",
	})
}

func (f *fakeRepository) List(ctx context.Context) ([]posts.PostWithAuthor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]posts.PostWithAuthor, 0)
	for _, row := range f.rows {
		if row.deletedAt == nil {
			out = append(out, f.withAuthor(row.post))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepository) GetByID(ctx context.Context, id uuid.UUID) (*posts.PostWithAuthor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, apperror.NewNotFoundError("Post not found", nil)
	}
	p := f.withAuthor(row.post)
	return &p, nil
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

func (f *fakeRepository) Create(ctx context.Context, p posts.NewPost) (*posts.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.authors[p.AuthorID]; !ok {
		return nil, f.unknownAuthor()
	}
	now := f.now()
	row := &fakeRow{post: posts.Post{
		ID: p.ID, Title: p.Title, Content: p.Content, AuthorID: p.AuthorID,
		CreatedAt: now, UpdatedAt: now,
	}}
	f.rows[p.ID] = row
	created := row.post
	return &created, nil
}

func (f *fakeRepository) Update(ctx context.Context, id uuid.UUID, changes posts.Changes) (*posts.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, apperror.NewNotFoundError("Post not found", nil)
	}
	if changes.AuthorID != nil {
		if _, ok := f.authors[*changes.AuthorID]; !ok {
			return nil, f.unknownAuthor()
		}
		row.post.AuthorID = *changes.AuthorID
	}
	if changes.Title != nil {
		row.post.Title = *changes.Title
	}
	if changes.Content != nil {
		row.post.Content = *changes.Content
	}
	row.post.UpdatedAt = f.now()
	updated := row.post
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
		return apperror.NewNotFoundError("Post not found", nil)
	}
	now := f.now()
	row.deletedAt = &now
	return nil
}

// dropAuthor simulates an author row that is no longer there.
func (f *fakeRepository) dropAuthor(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.authors, id)
}

func (f *fakeRepository) isDeleted(id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].deletedAt != nil
}
