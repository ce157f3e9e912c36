package errors

import (
	"errors"
	"net/http"
)

// Validation errors (422).
var (
	// ErrMissingFields is returned when a required account field is empty.
	ErrMissingFields = errors.New("Fill in all fields")
	// ErrMissingPostFields is returned when a post is created without every field or a thumbnail.
	ErrMissingPostFields = errors.New("Fill in all the fields and choose thumbnail")
	// ErrEmailExists is returned when the email already belongs to another account.
	ErrEmailExists = errors.New("Email already exists")
	// ErrPasswordTooShort is returned when a password has fewer than 6 characters.
	ErrPasswordTooShort = errors.New("Password should be at least 6 characters")
	// ErrPasswordMismatch is returned when a password and its confirmation differ.
	ErrPasswordMismatch = errors.New("Passwords do not match")
	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrInvalidCurrentPassword is returned when edit-user gets the wrong current password.
	ErrInvalidCurrentPassword = errors.New("Invalid current password")
	// ErrDescriptionTooShort is returned when an edited post description is under 12 characters.
	ErrDescriptionTooShort = errors.New("Description should be at least 12 characters")
	// ErrFileMissing is returned when the expected upload field is absent.
	ErrFileMissing = errors.New("Please choose an image")
	// ErrFileTooLarge is returned when an upload exceeds its size limit.
	ErrFileTooLarge = errors.New("File too large")
	// ErrUnsupportedFileType is returned when an upload is not an image.
	ErrUnsupportedFileType = errors.New("File must be an image")
)

// Not found, ownership and authentication errors.
var (
	ErrUserNotFound = errors.New("User not found")
	ErrPostNotFound = errors.New("Post not found")
	// ErrPostEditForbidden is returned when a caller edits a post they did not create.
	ErrPostEditForbidden = errors.New("Post couldn't be edited")
	// ErrPostDeleteForbidden is returned when a caller deletes a post they did not create.
	ErrPostDeleteForbidden = errors.New("Post couldn't be deleted")
	// ErrMissingToken is returned when the Authorization header carries no bearer token.
	ErrMissingToken = errors.New("Unauthorized, no token")
	// ErrInvalidToken is returned when the bearer token fails signature or expiry checks.
	ErrInvalidToken = errors.New("Unauthorized, invalid token")
)

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Message: e.Message,
		Code:    e.Code,
	}
}

var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrMissingFields, http.StatusUnprocessableEntity, "MISSING_FIELDS"},
	{ErrMissingPostFields, http.StatusUnprocessableEntity, "MISSING_FIELDS"},
	{ErrEmailExists, http.StatusUnprocessableEntity, "EMAIL_EXISTS"},
	{ErrPasswordTooShort, http.StatusUnprocessableEntity, "PASSWORD_TOO_SHORT"},
	{ErrPasswordMismatch, http.StatusUnprocessableEntity, "PASSWORD_MISMATCH"},
	{ErrInvalidCredentials, http.StatusUnprocessableEntity, "INVALID_CREDENTIALS"},
	{ErrInvalidCurrentPassword, http.StatusUnprocessableEntity, "INVALID_CURRENT_PASSWORD"},
	{ErrDescriptionTooShort, http.StatusUnprocessableEntity, "DESCRIPTION_TOO_SHORT"},
	{ErrFileMissing, http.StatusUnprocessableEntity, "FILE_MISSING"},
	{ErrFileTooLarge, http.StatusUnprocessableEntity, "FILE_TOO_LARGE"},
	{ErrUnsupportedFileType, http.StatusUnprocessableEntity, "UNSUPPORTED_FILE_TYPE"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrPostNotFound, http.StatusNotFound, "POST_NOT_FOUND"},
	{ErrPostEditForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrPostDeleteForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrMissingToken, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrInvalidToken, http.StatusUnauthorized, "UNAUTHORIZED"},
}

// MapErrorToHTTP maps domain errors to HTTP errors. Wrapped errors are
// unwrapped; anything unknown becomes a generic 500.
func MapErrorToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, m.err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
