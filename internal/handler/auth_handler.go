package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/middleware"
	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/internal/service"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"github.com/tony-42069/abare-v2/prometheus"
	"go.uber.org/zap"
)

// Token handles the OAuth2 password grant (form fields username and password)
func (h *Handler) Token(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" {
		return &service.Error{Kind: service.ErrValidation, Msg: "username and password are required"}
	}
	return h.login(c, username, password)
}

// Login handles JSON email/password login
func (h *Handler) Login(c echo.Context) error {
	var req model.UserLogin
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	return h.login(c, req.Email, req.Password)
}

func (h *Handler) login(c echo.Context, email, password string) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	// Verify credentials
	auth := h.auth(c)
	user, err := auth.Authenticate(c.Request().Context(), email, password)
	if err != nil {
		log.Warn("Login failed", zap.String("email", email), zap.Error(err))
		prometheus.RecordAuthError("invalid_credentials")
		return err
	}

	// Generate access token
	token, err := auth.IssueToken(user)
	if err != nil {
		return err
	}

	log.Info("User logged in", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, token)
}

// Register creates a new account. Privilege flags in the body are ignored.
func (h *Handler) Register(c echo.Context) error {
	log := logger.FromContext(c)

	// Bind and validate request
	var req model.UserCreate
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	// Hash the password and create the user
	user, err := h.auth(c).Register(c.Request().Context(), req)
	if err != nil {
		log.Warn("Registration rejected", zap.String("email", req.Email), zap.Error(err))
		return err
	}
	prometheus.RegisterCounter.Inc()

	log.Info("User registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, user)
}

// Me returns the authenticated user
func (h *Handler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// UpdateMe changes the authenticated user's own profile
func (h *Handler) UpdateMe(c echo.Context) error {
	var req model.ProfileUpdate
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth(c).UpdateProfile(c.Request().Context(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Profile updated", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, user)
}
