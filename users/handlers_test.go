package users_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/postboard-go/users"
)

func newTestRouter() (http.Handler, *fakeRepository) {
	repo := newFakeRepository()
	h := users.NewUserHandlers(users.NewUserService(repo, bcrypt.MinCost))
	r := chi.NewRouter()
	r.Route("/users", h.RegisterRoutes)
	return r, repo
}

func do(c *qt.C, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	c.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		c.Assert(json.Unmarshal(rec.Body.Bytes(), &decoded), qt.IsNil)
	}
	return rec, decoded
}

const annLeeJSON = `{"name":"Ann Lee","email":"ann@x.com","username":"annlee","password":"secret123"}`

func TestCreateThenGetUser(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestRouter()

	rec, created := do(c, h, http.MethodPost, "/users", annLeeJSON)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)
	c.Assert(created["name"], qt.Equals, "Ann Lee")
	c.Assert(created["email"], qt.Equals, "ann@x.com")
	c.Assert(created["username"], qt.Equals, "annlee")
	_, hasPassword := created["password"]
	c.Assert(hasPassword, qt.IsFalse)
	_, hasHash := created["password_hash"]
	c.Assert(hasHash, qt.IsFalse)

	id, ok := created["id"].(string)
	c.Assert(ok, qt.IsTrue)
	_, err := uuid.Parse(id)
	c.Assert(err, qt.IsNil)

	rec, fetched := do(c, h, http.MethodGet, "/users/"+id, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(fetched, qt.DeepEquals, created)
}

func TestCreateUserErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{name: "malformed JSON", body: `{"name":`, status: http.StatusBadRequest},
		{name: "validation", body: `{"name":"A","email":"ann@x.com","username":"annlee","password":"x"}`, status: http.StatusBadRequest, errMsg: "invalid user payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			h, _ := newTestRouter()

			rec, body := do(c, h, http.MethodPost, "/users", tt.body)
			c.Assert(rec.Code, qt.Equals, tt.status)
			c.Assert(body["error"], qt.Not(qt.IsNil))
			if tt.errMsg != "" {
				c.Assert(body["error"], qt.Equals, tt.errMsg)
			}
		})
	}
}

func TestCreateDuplicateUserIsBadRequest(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestRouter()

	rec, _ := do(c, h, http.MethodPost, "/users", annLeeJSON)
	c.Assert(rec.Code, qt.Equals, http.StatusCreated)

	rec, body := do(c, h, http.MethodPost, "/users", annLeeJSON)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(body["error"], qt.Equals, "invalid user payload")
	c.Assert(body["details"], qt.DeepEquals, []any{
		map[string]any{"field": "email", "message": "already exists"},
	})

	rec, body = do(c, h, http.MethodPost, "/users",
		`{"name":"Ann Two","email":"ann2@x.com","username":"annlee","password":"secret123"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(body["details"], qt.DeepEquals, []any{
		map[string]any{"field": "username", "message": "already exists"},
	})
}

func TestPatchUserToTakenUsernameIsBadRequest(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestRouter()

	do(c, h, http.MethodPost, "/users", annLeeJSON)
	_, bob := do(c, h, http.MethodPost, "/users",
		`{"name":"Bob Ray","email":"bob@x.com","username":"bobray","password":"secret123"}`)

	rec, body := do(c, h, http.MethodPatch, "/users/"+bob["id"].(string), `{"username":"annlee"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(body["details"], qt.DeepEquals, []any{
		map[string]any{"field": "username", "message": "already exists"},
	})
}

func TestListUsers(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestRouter()

	rec, _ := do(c, h, http.MethodGet, "/users", "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(strings.TrimSpace(rec.Body.String()), qt.Equals, "[]")

	_, created := do(c, h, http.MethodPost, "/users", annLeeJSON)

	rec, _ = do(c, h, http.MethodGet, "/users", "")
	var list []map[string]any
	c.Assert(json.Unmarshal(rec.Body.Bytes(), &list), qt.IsNil)
	c.Assert(list, qt.HasLen, 1)
	c.Assert(list[0]["id"], qt.Equals, created["id"])
}

func TestGetUserNotFound(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestRouter()

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		rec, body := do(c, h, http.MethodGet, "/users/"+id, "")
		c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
		c.Assert(body["error"], qt.Equals, "User not found")
	}
}

func TestPatchUser(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestRouter()

	_, created := do(c, h, http.MethodPost, "/users", annLeeJSON)
	id := created["id"].(string)

	rec, updated := do(c, h, http.MethodPatch, "/users/"+id, `{"username":"ann_lee"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(updated["username"], qt.Equals, "ann_lee")
	c.Assert(updated["name"], qt.Equals, "Ann Lee")
	c.Assert(updated["updated_at"], qt.Not(qt.Equals), created["updated_at"])

	rec, _ = do(c, h, http.MethodPatch, "/users/"+id, `{"email":"nope"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)

	rec, _ = do(c, h, http.MethodPatch, "/users/"+uuid.NewString(), `{"name":"Bob"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
}

func TestDeleteUser(t *testing.T) {
	c := qt.New(t)
	h, repo := newTestRouter()

	_, created := do(c, h, http.MethodPost, "/users", annLeeJSON)
	id := created["id"].(string)

	rec, body := do(c, h, http.MethodDelete, "/users/"+id, "")
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	c.Assert(body, qt.DeepEquals, map[string]any{"message": "User deleted successfully"})
	c.Assert(repo.isDeleted(uuid.MustParse(id)), qt.IsTrue)

	rec, _ = do(c, h, http.MethodGet, "/users", "")
	c.Assert(strings.TrimSpace(rec.Body.String()), qt.Equals, "[]")

	rec, _ = do(c, h, http.MethodDelete, "/users/"+uuid.NewString(), "")
	c.Assert(rec.Code, qt.Equals, http.StatusNotFound)
}

func TestPatchUserRejectsNulls(t *testing.T) {
	c := qt.New(t)
	h, _ := newTestRouter()

	_, created := do(c, h, http.MethodPost, "/users", annLeeJSON)
	id := created["id"].(string)

	rec, body := do(c, h, http.MethodPatch, "/users/"+id, `{"name":null,"username":"ann_lee"}`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)
	c.Assert(body["details"], qt.DeepEquals, []any{
		map[string]any{"field": "name", "message": "must not be null"},
	})

	rec, _ = do(c, h, http.MethodPatch, "/users/"+id, `null`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)

	rec, _ = do(c, h, http.MethodPost, "/users", `null`)
	c.Assert(rec.Code, qt.Equals, http.StatusBadRequest)

	_, fetched := do(c, h, http.MethodGet, "/users/"+id, "")
	c.Assert(fetched["username"], qt.Equals, "annlee")
}
