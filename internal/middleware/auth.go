package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/internal/service"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"github.com/tony-42069/abare-v2/prometheus"
	"go.uber.org/zap"
)

const userKey = "user"

// Authenticated resolves the bearer token to a user and stores it in the context.
// cost is the configured bcrypt work factor. It must run after StoreMiddleware.
func Authenticated(tokens service.TokenIssuer, cost int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				log.Warn("Missing or malformed bearer token")
				prometheus.RecordAuthError("missing_token")
				return &service.Error{Kind: service.ErrInvalidToken, Msg: "Not authenticated"}
			}

			// Resolve the token against the store serving this request
			auth := service.NewAuthService(Store(c), tokens, cost)
			user, err := auth.ResolveToken(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrInvalidToken) {
					log.Warn("Rejected access token", zap.Error(err))
					prometheus.RecordAuthError("invalid_token")
				}
				return err
			}

			c.Set(userKey, user)
			c.Set("logger", log.With(zap.String("user_id", user.ID)))
			return next(c)
		}
	}
}

// RequireActive rejects requests from deactivated users
func RequireActive(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := service.RequireActive(CurrentUser(c)); err != nil {
			prometheus.RecordAuthError("inactive_user")
			return err
		}
		return next(c)
	}
}

// RequireAdmin rejects requests from users who are inactive or not administrators
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := service.RequireAdmin(CurrentUser(c)); err != nil {
			if errors.Is(err, service.ErrForbidden) {
				logger.FromContext(c).Warn("Admin access denied")
				prometheus.RecordAuthError("forbidden")
			} else {
				prometheus.RecordAuthError("inactive_user")
			}
			return err
		}
		return next(c)
	}
}

// CurrentUser returns the user attached by Authenticated
func CurrentUser(c echo.Context) *model.User {
	user, ok := c.Get(userKey).(*model.User)
	if !ok {
		panic("middleware: no authenticated user in request context")
	}
	return user
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
