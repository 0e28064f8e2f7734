package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tony-42069/abare-v2/internal/middleware"
	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/pkg/logger"
	"github.com/tony-42069/abare-v2/prometheus"
	"go.uber.org/zap"
)

// ListAnalyses handles retrieving analyses, optionally of one property
func (h *Handler) ListAnalyses(c echo.Context) error {
	skip, limit, err := page(c)
	if err != nil {
		return err
	}
	analyses, err := h.analyses(c).List(c.Request().Context(), c.QueryParam("property_id"), skip, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analyses)
}

// CreateAnalysis handles creating a pending analysis for an existing property
func (h *Handler) CreateAnalysis(c echo.Context) error {
	var req model.AnalysisCreate
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	analysis, err := h.analyses(c).Create(c.Request().Context(), middleware.CurrentUser(c), req)
	if err != nil {
		return err
	}

	logger.FromContext(c).Info("Analysis created",
		zap.String("analysis_id", analysis.ID),
		zap.String("property_id", analysis.PropertyID),
		zap.String("analysis_type", analysis.AnalysisType))
	return c.JSON(http.StatusCreated, analysis)
}

// GetAnalysis handles retrieving a single analysis
func (h *Handler) GetAnalysis(c echo.Context) error {
	analysis, err := h.analyses(c).Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analysis)
}

// UpdateAnalysis handles a partial update of an analysis
func (h *Handler) UpdateAnalysis(c echo.Context) error {
	var req model.AnalysisUpdate
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	analysis, err := h.analyses(c).Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analysis)
}

// DeleteAnalysis handles deleting an analysis
func (h *Handler) DeleteAnalysis(c echo.Context) error {
	id := c.Param("id")
	if err := h.analyses(c).Delete(c.Request().Context(), id); err != nil {
		return err
	}
	logger.FromContext(c).Info("Analysis deleted", zap.String("analysis_id", id))
	return c.NoContent(http.StatusNoContent)
}

// ProcessAnalysis computes the analysis results from its property
func (h *Handler) ProcessAnalysis(c echo.Context) error {
	analysis, err := h.analyses(c).Process(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	prometheus.RecordAnalysisProcessed(analysis.AnalysisType)

	logger.FromContext(c).Info("Analysis processed",
		zap.String("analysis_id", analysis.ID),
		zap.Any("results", analysis.Results))
	return c.JSON(http.StatusOK, analysis)
}
