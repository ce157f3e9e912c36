// Package middleware holds the access-control gate placed in front of
// protected routes.
package middleware

import (
	"strings"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"blogserver/internal/auth"
	apperrors "blogserver/internal/errors"
)

const identityKey = "identity"

// RequireAuth verifies the bearer token on every request and stores the
// caller's claims on the context. Missing and invalid tokens both yield 401.
func RequireAuth(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		// The raw header value is handed to VerifyBearer, which owns scheme parsing.
		TokenLookup: "header:" + echo.HeaderAuthorization,
		ContextKey:  identityKey,
		ParseTokenFunc: func(c echo.Context, header string) (interface{}, error) {
			return jwtService.VerifyBearer(header)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
			if header == "" {
				return apperrors.ErrMissingToken
			}
			return apperrors.ErrInvalidToken
		},
	})
}

// Identity returns the verified claims attached by RequireAuth.
func Identity(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(identityKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// UserID returns the caller's id, or ErrMissingToken when the route is not gated.
func UserID(c echo.Context) (uuid.UUID, error) {
	claims, ok := Identity(c)
	if !ok {
		return uuid.Nil, apperrors.ErrMissingToken
	}
	return claims.UserID, nil
}
