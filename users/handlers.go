package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/postboard-go/respond"
)

// UserHandlers provides HTTP handlers for the users resource.
// It holds a reference to the `UserService`, which contains the business logic.
type UserHandlers struct {
	service *UserService
}

// NewUserHandlers creates new UserHandlers.
func NewUserHandlers(service *UserService) *UserHandlers {
	return &UserHandlers{service: service}
}

// RegisterRoutes mounts the user endpoints on a router, typically one created by
// `r.Route("/users", ...)`.
func (h *UserHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListUsers())
	r.Post("/", h.HandleCreateUser())
	r.Get("/{id}", h.HandleGetUser())
	r.Patch("/{id}", h.HandleUpdateUser())
	r.Delete("/{id}", h.HandleDeleteUser())
}

// HandleListUsers godoc
// @Summary List users
// @Description Returns every user that has not been soft-deleted, newest first.
// @Tags users
// @Produce json
// @Success 200 {array} User
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /users [get]
func (h *UserHandlers) HandleListUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := h.service.List(r.Context())
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, users)
	}
}

// HandleCreateUser godoc
// @Summary Create a user
// @Description Creates a user. The password is stored hashed and never returned.
// @Tags users
// @Accept json
// @Produce json
// @Param user body CreateUserRequest true "User to create"
// @Success 201 {object} User
// @Failure 400 {object} apperror.ErrorResponse "Bad Request - Invalid input, or email or username already exists"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /users [post]
func (h *UserHandlers) HandleCreateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}

		user, err := h.service.Create(r.Context(), req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusCreated, user)
	}
}

// HandleGetUser godoc
// @Summary Get a user
// @Description Returns one user by id.
// @Tags users
// @Produce json
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} User
// @Failure 404 {object} apperror.ErrorResponse "Not Found"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /users/{id} [get]
func (h *UserHandlers) HandleGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.IDParam(r, "User not found")
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		user, err := h.service.Get(r.Context(), id)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, user)
	}
}

// HandleUpdateUser godoc
// @Summary Update a user
// @Description Partially updates a user. Only supplied fields change; updated_at is always refreshed.
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID" format(uuid)
// @Param user body UpdateUserRequest true "Fields to update"
// @Success 200 {object} User
// @Failure 400 {object} apperror.ErrorResponse "Bad Request - Invalid input, or email or username already exists"
// @Failure 404 {object} apperror.ErrorResponse "Not Found"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /users/{id} [patch]
func (h *UserHandlers) HandleUpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateUserRequest
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		id, err := respond.IDParam(r, "User not found")
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		user, err := h.service.Update(r.Context(), id, req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, user)
	}
}

// HandleDeleteUser godoc
// @Summary Delete a user
// @Description Soft-deletes a user by stamping deleted_at.
// @Tags users
// @Produce json
// @Param id path string true "User ID" format(uuid)
// @Success 200 {object} apperror.MessageResponse
// @Failure 404 {object} apperror.ErrorResponse "Not Found"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /users/{id} [delete]
func (h *UserHandlers) HandleDeleteUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.IDParam(r, "User not found")
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		if err := h.service.Delete(r.Context(), id); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Message(w, "User deleted successfully")
	}
}
