package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/middleware"
	"github.com/tony-42069/abare-v2/internal/service"
	"github.com/tony-42069/abare-v2/pkg/config"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"github.com/tony-42069/abare-v2/pkg/storage"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Handler serves the REST API. Services are bound to the store selected for each request.
type Handler struct {
	cfg    *config.Config
	tokens service.TokenIssuer
	files  storage.Storage
}

func New(cfg *config.Config, tokens service.TokenIssuer, files storage.Storage) *Handler {
	return &Handler{cfg: cfg, tokens: tokens, files: files}
}

func (h *Handler) auth(c echo.Context) *service.AuthService {
	return service.NewAuthService(middleware.Store(c), h.tokens, h.cfg.JWT.BcryptCost)
}

func (h *Handler) properties(c echo.Context) *service.PropertyService {
	return service.NewPropertyService(middleware.Store(c))
}

func (h *Handler) documents(c echo.Context) *service.DocumentService {
	return service.NewDocumentService(middleware.Store(c), h.files, &h.cfg.Upload, logger.FromContext(c))
}

func (h *Handler) analyses(c echo.Context) *service.AnalysisService {
	return service.NewAnalysisService(middleware.Store(c))
}

// page reads the skip and limit query parameters.
func page(c echo.Context) (int64, int64, error) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if skip < 0 {
		return 0, 0, &service.Error{Kind: service.ErrValidation, Msg: "skip must not be negative"}
	}
	if limit < 1 || limit > maxLimit {
		return 0, 0, &service.Error{Kind: service.ErrValidation, Msg: "limit must be between 1 and 1000"}
	}
	return skip, limit, nil
}

func queryInt(c echo.Context, name string, def int64) (int64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &service.Error{Kind: service.ErrValidation, Msg: name + " must be an integer"}
	}
	return v, nil
}

// bindAndValidate decodes the request body into req and runs the struct validation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}
