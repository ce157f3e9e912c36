package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"blogserver/internal/auth"
	"blogserver/internal/config"
	apperrors "blogserver/internal/errors"
	"blogserver/internal/handler"
	"blogserver/internal/logging"
	authmw "blogserver/internal/middleware"
)

// Handlers groups the endpoint handlers mounted by Register.
type Handlers struct {
	Auth  *handler.AuthHandler
	Users *handler.UserHandler
	Posts *handler.PostHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, logger logging.Logger, jwtService *auth.JWTService, h Handlers) {
	e.HideBanner = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(requestContext())
	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.Static("/uploads", cfg.UploadDir)

	requireAuth := authmw.RequireAuth(jwtService)
	api := e.Group("/api")

	api.POST("/users/register", h.Auth.Register)
	api.POST("/users/login", h.Auth.Login)
	api.GET("/users/authors", h.Users.ListAuthors)
	api.GET("/users/:id", h.Users.GetUser, requireAuth)
	api.POST("/users/change-avatar", h.Users.ChangeAvatar, requireAuth)
	api.PATCH("/users/edit-user", h.Users.EditUser, requireAuth)

	api.GET("/posts", h.Posts.ListPosts)
	api.POST("/posts", h.Posts.CreatePost, requireAuth)
	api.GET("/posts/categories/:category", h.Posts.ListByCategory)
	api.GET("/posts/users/:id", h.Posts.ListByUser)
	api.GET("/posts/:id", h.Posts.GetPost)
	api.PATCH("/posts/:id", h.Posts.EditPost, requireAuth)
	api.DELETE("/posts/:id", h.Posts.DeletePost, requireAuth)
}

// requestContext copies the request id into the request context so services
// log it without depending on echo.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			req := c.Request()
			c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
			return next(c)
		}
	}
}

func requestLogger(logger logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
			}
			if v.Status >= http.StatusInternalServerError {
				logger.Error(c.Request().Context(), "request", append(args, "error", v.Error)...)
				return nil
			}
			logger.Info(c.Request().Context(), "request", args...)
			return nil
		},
	})
}

// ErrorHandler renders every handler error as an ErrorResponse with the
// mapped status. Unexpected errors are logged and hidden behind a generic message.
func ErrorHandler(logger logging.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *apperrors.HTTPError
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			httpErr = fromEchoError(echoErr)
		} else {
			httpErr = apperrors.MapErrorToHTTP(err)
		}

		if httpErr.StatusCode >= http.StatusInternalServerError {
			logger.Error(c.Request().Context(), "request failed", "error", err, "path", c.Path())
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(httpErr.StatusCode)
		} else {
			err = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		if err != nil {
			logger.Error(c.Request().Context(), "write error response", "error", err)
		}
	}
}

func fromEchoError(he *echo.HTTPError) *apperrors.HTTPError {
	if he.Code >= http.StatusInternalServerError {
		return apperrors.MapErrorToHTTP(he)
	}
	msg := http.StatusText(he.Code)
	if he.Message != nil {
		if s := fmt.Sprint(he.Message); s != "" {
			msg = s
		}
	}
	return apperrors.NewHTTPError(he.Code, msg, codeFor(he.Code))
}

func codeFor(status int) string {
	switch status {
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "BODY_TOO_LARGE"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "BAD_REQUEST"
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator installed on the server.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
