package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"go.uber.org/zap"
)

// ListUsers returns a page of accounts (admin only)
func (h *Handler) ListUsers(c echo.Context) error {
	skip, limit, err := page(c)
	if err != nil {
		return err
	}
	users, err := h.auth(c).ListUsers(c.Request().Context(), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser returns one account (admin only)
func (h *Handler) GetUser(c echo.Context) error {
	user, err := h.auth(c).GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateUser changes the profile or privileges of an account (admin only)
func (h *Handler) UpdateUser(c echo.Context) error {
	var req model.UserAdminUpdate
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth(c).UpdateUser(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("User updated by admin",
		zap.String("target_user_id", user.ID),
		zap.Bool("is_active", user.IsActive),
		zap.Bool("is_admin", user.IsAdmin))
	return c.JSON(http.StatusOK, user)
}
