package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "blogserver/internal/errors"
	"blogserver/internal/middleware"
	"blogserver/internal/service"
)

// UserHandler serves profile endpoints.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// EditUserRequest represents a profile edit.
type EditUserRequest struct {
	Name               string `json:"name" form:"name" validate:"required"`
	Email              string `json:"email" form:"email" validate:"required"`
	CurrentPassword    string `json:"currentPassword" form:"currentPassword" validate:"required"`
	NewPassword        string `json:"newPassword" form:"newPassword" validate:"required"`
	NewConfirmPassword string `json:"newConfirmPassword" form:"newConfirmPassword"`
}

// GetUser godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, apperrors.ErrUserNotFound)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// ListAuthors godoc
// @Summary List authors
// @Tags users
// @Produce json
// @Success 200 {array} model.User
// @Router /users/authors [get]
func (h *UserHandler) ListAuthors(c echo.Context) error {
	users, err := h.svc.ListAuthors(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// ChangeAvatar godoc
// @Summary Replace the caller's avatar
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /users/change-avatar [post]
func (h *UserHandler) ChangeAvatar(c echo.Context) error {
	callerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	fh, err := optionalFile(c, "avatar")
	if err != nil {
		return err
	}
	user, err := h.svc.ChangeAvatar(c.Request().Context(), callerID, fh)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// EditUser godoc
// @Summary Edit the caller's profile and password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EditUserRequest true "Profile data"
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /users/edit-user [patch]
func (h *UserHandler) EditUser(c echo.Context) error {
	callerID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req EditUserRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ErrMissingFields
	}
	if err := c.Validate(&req); err != nil {
		return apperrors.ErrMissingFields
	}

	user, err := h.svc.EditUser(c.Request().Context(), callerID, service.EditUserInput{
		Name:               req.Name,
		Email:              req.Email,
		CurrentPassword:    req.CurrentPassword,
		NewPassword:        req.NewPassword,
		NewConfirmPassword: req.NewConfirmPassword,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
