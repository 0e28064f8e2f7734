package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/pkg/database"
)

const analysesCollection = "analyses"

// AnalysisService manages analyses and computes their results.
type AnalysisService struct {
	analyses   database.Collection
	properties *PropertyService
}

func NewAnalysisService(store database.Store) *AnalysisService {
	return &AnalysisService{
		analyses:   store.Collection(analysesCollection),
		properties: NewPropertyService(store),
	}
}

// List returns a page of analyses, restricted to one property when propertyID is set.
func (s *AnalysisService) List(ctx context.Context, propertyID string, skip, limit int64) ([]model.Analysis, error) {
	filter := database.Filter{}
	if propertyID != "" {
		filter["property_id"] = propertyID
	}
	analyses := []model.Analysis{}
	if err := s.analyses.Find(ctx, filter, &analyses,
		database.WithSkip(skip), database.WithLimit(limit)); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	for i := range analyses {
		analyses[i].Normalize()
	}
	return analyses, nil
}

// Create records a pending analysis of an existing property.
func (s *AnalysisService) Create(ctx context.Context, user *model.User, in model.AnalysisCreate) (*model.Analysis, error) {
	if err := s.properties.Exists(ctx, in.PropertyID); err != nil {
		return nil, err
	}
	now := timestamp()
	analysis := &model.Analysis{
		Title:        in.Title,
		Description:  in.Description,
		PropertyID:   in.PropertyID,
		DocumentIDs:  in.DocumentIDs,
		AnalysisType: in.AnalysisType,
		Parameters:   in.Parameters,
		Status:       model.AnalysisPending,
		CreatedBy:    user.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	analysis.Normalize()

	id, err := s.analyses.InsertOne(ctx, analysis)
	if err != nil {
		return nil, fmt.Errorf("insert analysis: %w", err)
	}
	analysis.ID = id
	return analysis, nil
}

// Get loads one analysis.
func (s *AnalysisService) Get(ctx context.Context, id string) (*model.Analysis, error) {
	var analysis model.Analysis
	err := s.analyses.FindOne(ctx, database.Filter{database.IDField: id}, &analysis)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("Analysis")
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	analysis.Normalize()
	return &analysis, nil
}

// Update merges the provided fields. A completed analysis keeps its status.
func (s *AnalysisService) Update(ctx context.Context, id string, in model.AnalysisUpdate) (*model.Analysis, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	filter := database.Filter{database.IDField: id}
	patch := database.Patch{"updated_at": timestamp()}
	if in.Title != nil {
		patch["title"] = *in.Title
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.DocumentIDs != nil {
		patch["document_ids"] = nonNil(*in.DocumentIDs)
	}
	if in.AnalysisType != nil {
		patch["analysis_type"] = *in.AnalysisType
	}
	if in.Parameters != nil {
		params := *in.Parameters
		if params == nil {
			params = map[string]any{}
		}
		patch["parameters"] = params
	}
	if in.Status != nil {
		if current.Status == model.AnalysisCompleted {
			return nil, newError(ErrConflict, "Cannot change status of completed analysis")
		}
		if !model.ValidAnalysisStatus(*in.Status) {
			return nil, newError(ErrValidation, "Invalid analysis status %q", *in.Status)
		}
		patch["status"] = *in.Status
		filter["status"] = current.Status
	}

	if err := s.apply(ctx, id, filter, patch); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes the analysis.
func (s *AnalysisService) Delete(ctx context.Context, id string) error {
	n, err := s.analyses.DeleteOne(ctx, database.Filter{database.IDField: id})
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if n == 0 {
		return notFound("Analysis")
	}
	return nil
}

// Process computes the financial results from the analysed property and completes the analysis.
func (s *AnalysisService) Process(ctx context.Context, id string) (*model.Analysis, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == model.AnalysisCompleted {
		return nil, newError(ErrConflict, "Analysis already completed")
	}
	property, err := s.properties.Get(ctx, current.PropertyID)
	if err != nil {
		return nil, err
	}

	now := timestamp()
	err = s.apply(ctx, id,
		database.Filter{database.IDField: id, "status": current.Status},
		database.Patch{
			"results":      ComputeResults(property),
			"status":       model.AnalysisCompleted,
			"completed_at": now,
			"updated_at":   now,
		})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// apply runs an update whose filter may pin the observed status. When nothing
// matches it tells a deleted analysis apart from a concurrent status change.
func (s *AnalysisService) apply(ctx context.Context, id string, filter database.Filter, patch database.Patch) error {
	n, err := s.analyses.UpdateOne(ctx, filter, patch)
	if err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return newError(ErrConflict, "Analysis status changed concurrently, retry the request")
}

// ComputeResults derives cap rate and price per square foot from a property.
// Missing figures count as zero and a zero divisor yields zero.
func ComputeResults(p *model.Property) map[string]any {
	noi := deref(p.FinancialMetrics.NOI)
	value := deref(p.FinancialMetrics.PropertyValue)
	totalSF := deref(p.TotalSF)
	return map[string]any{
		"cap_rate":       round2(ratio(noi, value) * 100),
		"price_per_sf":   round2(ratio(value, totalSF)),
		"noi":            noi,
		"property_value": value,
		"total_sf":       totalSF,
		"occupancy_rate": deref(p.FinancialMetrics.OccupancyRate),
	}
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
