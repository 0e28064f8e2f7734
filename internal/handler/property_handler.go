package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"go.uber.org/zap"
)

// ListProperties handles retrieving a page of properties
func (h *Handler) ListProperties(c echo.Context) error {
	skip, limit, err := page(c)
	if err != nil {
		return err
	}
	properties, err := h.properties(c).List(c.Request().Context(), skip, limit)
	if err != nil {
		return err
	}
	logger.FromContext(c).Debug("Properties retrieved", zap.Int("count", len(properties)))
	return c.JSON(http.StatusOK, properties)
}

// CreateProperty handles creating a new property
func (h *Handler) CreateProperty(c echo.Context) error {
	// Bind and validate request
	var req model.PropertyCreate
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	property, err := h.properties(c).Create(c.Request().Context(), req)
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Property created",
		zap.String("property_id", property.ID),
		zap.String("name", property.Name))
	return c.JSON(http.StatusCreated, property)
}

// GetProperty handles retrieving a single property by ID
func (h *Handler) GetProperty(c echo.Context) error {
	property, err := h.properties(c).Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, property)
}

// UpdateProperty handles a partial update of a property
func (h *Handler) UpdateProperty(c echo.Context) error {
	var req model.PropertyUpdate
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	property, err := h.properties(c).Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Property updated", zap.String("property_id", property.ID))
	return c.JSON(http.StatusOK, property)
}

// DeleteProperty handles deleting a property. Linked documents and analyses are kept.
func (h *Handler) DeleteProperty(c echo.Context) error {
	id := c.Param("id")
	if err := h.properties(c).Delete(c.Request().Context(), id); err != nil {
		return err
	}
	logger.FromContext(c).Info("Property deleted", zap.String("property_id", id))
	return c.NoContent(http.StatusNoContent)
}
