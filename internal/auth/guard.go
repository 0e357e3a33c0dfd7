package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "wikishelf/internal/errors"
)

const userIDKey = "auth.user_id"

// UserResolver reports whether a token subject is still a live user.
type UserResolver interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Guard authenticates bearer tokens and resolves them to live users.
type Guard struct {
	codec  *TokenCodec
	users  UserResolver
	logger *zap.Logger
}

// NewGuard creates a new access guard.
func NewGuard(codec *TokenCodec, users UserResolver, logger *zap.Logger) *Guard {
	return &Guard{codec: codec, users: users, logger: logger}
}

// Middleware rejects requests with 401 when no bearer token is present, with
// 403 when the token is invalid or its user is gone, and otherwise stores the
// user id for UserID.
func (g *Guard) Middleware() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey:  userIDKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return g.codec.Verify(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var parseErr *echojwt.TokenParsingError
			if errors.As(err, &parseErr) || errors.Is(err, apperrors.ErrInvalidToken) {
				return reject(apperrors.ErrInvalidToken)
			}
			return reject(apperrors.ErrUnauthorized)
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(g.resolve(next))
	}
}

func (g *Guard) resolve(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := UserID(c)
		if !ok {
			return reject(apperrors.ErrUnauthorized)
		}

		exists, err := g.users.Exists(c.Request().Context(), id)
		if err != nil {
			g.logger.Error("resolve token subject", zap.String("user_id", id.String()), zap.Error(err))
			return reject(err)
		}
		if !exists {
			return reject(fmt.Errorf("%w: user no longer exists", apperrors.ErrForbidden))
		}
		return next(c)
	}
}

// UserID returns the authenticated user id stored by the guard.
func UserID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func reject(err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}
