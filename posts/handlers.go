package posts

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/postboard-go/respond"
)

// PostHandlers provides HTTP handlers for the posts resource.
type PostHandlers struct {
	service *PostService
}

// NewPostHandlers creates new PostHandlers.
func NewPostHandlers(service *PostService) *PostHandlers {
	return &PostHandlers{service: service}
}

// RegisterRoutes mounts the post endpoints on a router.
func (h *PostHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListPosts())
	r.Post("/", h.HandleCreatePost())
	r.Get("/{id}", h.HandleGetPost())
	r.Patch("/{id}", h.HandleUpdatePost())
	r.Delete("/{id}", h.HandleDeletePost())
}

// HandleListPosts godoc
// @Summary List posts
// @Description Returns every post that has not been soft-deleted, newest first, with author details.
// @Tags posts
// @Produce json
// @Success 200 {array} PostWithAuthor
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /posts [get]
func (h *PostHandlers) HandleListPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		posts, err := h.service.List(r.Context())
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, posts)
	}
}

// HandleCreatePost godoc
// @Summary Create a post
// @Description Creates a post owned by an existing user.
// @Tags posts
// @Accept json
// @Produce json
// @Param post body CreatePostRequest true "Post to create"
// @Success 201 {object} Post
// @Failure 400 {object} apperror.ErrorResponse "Bad Request - Invalid input or unknown author"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /posts [post]
func (h *PostHandlers) HandleCreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePostRequest
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}

		post, err := h.service.Create(r.Context(), req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusCreated, post)
	}
}

// HandleGetPost godoc
// @Summary Get a post
// @Description Returns one post by id with author details. author is null when the user row is missing.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID" format(uuid)
// @Success 200 {object} PostWithAuthor
// @Failure 404 {object} apperror.ErrorResponse "Not Found"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /posts/{id} [get]
func (h *PostHandlers) HandleGetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.IDParam(r, "Post not found")
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		post, err := h.service.Get(r.Context(), id)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, post)
	}
}

// HandleUpdatePost godoc
// @Summary Update a post
// @Description Partially updates a post. Only supplied fields change; updated_at is always refreshed.
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID" format(uuid)
// @Param post body UpdatePostRequest true "Fields to update"
// @Success 200 {object} Post
// @Failure 400 {object} apperror.ErrorResponse "Bad Request - Invalid input or unknown author"
// @Failure 404 {object} apperror.ErrorResponse "Not Found"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /posts/{id} [patch]
func (h *PostHandlers) HandleUpdatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdatePostRequest
		if err := respond.DecodeJSON(r, &req); err != nil {
			respond.Error(w, r, err)
			return
		}
		id, err := respond.IDParam(r, "Post not found")
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		post, err := h.service.Update(r.Context(), id, req)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.JSON(w, http.StatusOK, post)
	}
}

// HandleDeletePost godoc
// @Summary Delete a post
// @Description Soft-deletes a post by stamping deleted_at.
// @Tags posts
// @Produce json
// @Param id path string true "Post ID" format(uuid)
// @Success 200 {object} apperror.MessageResponse
// @Failure 404 {object} apperror.ErrorResponse "Not Found"
// @Failure 500 {object} apperror.ErrorResponse "Internal Server Error"
// @Router /posts/{id} [delete]
func (h *PostHandlers) HandleDeletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := respond.IDParam(r, "Post not found")
		if err != nil {
			respond.Error(w, r, err)
			return
		}

		if err := h.service.Delete(r.Context(), id); err != nil {
			respond.Error(w, r, err)
			return
		}
		respond.Message(w, "Post deleted successfully")
	}
}
