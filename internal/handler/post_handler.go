package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "blogserver/internal/errors"
	"blogserver/internal/middleware"
	"blogserver/internal/model"
	"blogserver/internal/service"
)

// PostHandler serves post endpoints.
type PostHandler struct {
	svc service.PostService
}

// NewPostHandler creates a new post handler.
func NewPostHandler(svc service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

// PostRequest carries the text fields of a post form.
type PostRequest struct {
	Title       string `json:"title" form:"title" validate:"required"`
	Category    string `json:"category" form:"category" validate:"required"`
	Description string `json:"description" form:"description" validate:"required"`
}

func (r PostRequest) input() service.PostInput {
	return service.PostInput{Title: r.Title, Category: r.Category, Description: r.Description}
}

// CreatePost godoc
// @Summary Create a post
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param category formData string true "Category"
// @Param description formData string true "Description"
// @Param thumbnail formData file true "Thumbnail image"
// @Success 201 {object} model.Post
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) CreatePost(c echo.Context) error {
	callerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req PostRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrMissingPostFields
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.ErrMissingPostFields
	}
	fh, err := optionalFile(c, "thumbnail")
	if err != nil {
		return err
	}

	post, err := h.svc.Create(c.Request().Context(), callerID, req.input(), fh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

// ListPosts godoc
// @Summary List posts, most recently updated first
// @Tags posts
// @Produce json
// @Success 200 {array} model.Post
// @Router /posts [get]
func (h *PostHandler) ListPosts(c echo.Context) error {
	posts, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// GetPost godoc
// @Summary Get post by id
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} model.Post
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(c echo.Context) error {
	id, err := pathID(c, apperrors.ErrPostNotFound)
	if err != nil {
		return err
	}
	post, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// ListByCategory godoc
// @Summary List posts in a category, newest first
// @Tags posts
// @Produce json
// @Param category path string true "Category"
// @Success 200 {array} model.Post
// @Router /posts/categories/{category} [get]
func (h *PostHandler) ListByCategory(c echo.Context) error {
	posts, err := h.svc.ListByCategory(c.Request().Context(), c.Param("category"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// ListByUser godoc
// @Summary List posts written by a user
// @Tags posts
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {array} model.Post
// @Router /posts/users/{id} [get]
func (h *PostHandler) ListByUser(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusOK, []model.Post{})
	}
	posts, err := h.svc.ListByCreator(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

// EditPost godoc
// @Summary Edit a post owned by the caller
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param title formData string true "Title"
// @Param category formData string true "Category"
// @Param description formData string true "Description"
// @Param thumbnail formData file false "Replacement thumbnail"
// @Success 200 {object} model.Post
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /posts/{id} [patch]
func (h *PostHandler) EditPost(c echo.Context) error {
	callerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, apperrors.ErrPostNotFound)
	if err != nil {
		return err
	}

	var req PostRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrMissingFields
	}
	fh, err := optionalFile(c, "thumbnail")
	if err != nil {
		return err
	}

	post, err := h.svc.Update(c.Request().Context(), callerID, id, req.input(), fh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a post owned by the caller
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {string} string "Post <id> deleted successfully"
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(c echo.Context) error {
	callerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, apperrors.ErrPostNotFound)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), callerID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, "Post "+id.String()+" deleted successfully")
}
