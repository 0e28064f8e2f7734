package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/pkg/database"
)

const propertiesCollection = "properties"

// PropertyService manages property records.
type PropertyService struct {
	properties database.Collection
}

func NewPropertyService(store database.Store) *PropertyService {
	return &PropertyService{properties: store.Collection(propertiesCollection)}
}

// List returns a page of properties in insertion order.
func (s *PropertyService) List(ctx context.Context, skip, limit int64) ([]model.Property, error) {
	properties := []model.Property{}
	if err := s.properties.Find(ctx, database.Filter{}, &properties,
		database.WithSkip(skip), database.WithLimit(limit)); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	for i := range properties {
		properties[i].Normalize()
	}
	return properties, nil
}

// Create stores a new property. The country defaults to USA and the status to active.
func (s *PropertyService) Create(ctx context.Context, in model.PropertyCreate) (*model.Property, error) {
	now := timestamp()
	property := &model.Property{
		Name:          in.Name,
		PropertyType:  in.PropertyType,
		PropertyClass: in.PropertyClass,
		YearBuilt:     in.YearBuilt,
		TotalSF:       in.TotalSF,
		Address:       withDefaultCountry(in.Address),
		Status:        in.Status,
		Description:   in.Description,
		Features:      in.Features,
		Tenants:       in.Tenants,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.FinancialMetrics != nil {
		property.FinancialMetrics = *in.FinancialMetrics
	}
	if property.Status == "" {
		property.Status = model.PropertyStatusActive
	}
	property.Normalize()

	id, err := s.properties.InsertOne(ctx, property)
	if err != nil {
		return nil, fmt.Errorf("insert property: %w", err)
	}
	property.ID = id
	return property, nil
}

// Get loads one property.
func (s *PropertyService) Get(ctx context.Context, id string) (*model.Property, error) {
	var property model.Property
	err := s.properties.FindOne(ctx, database.Filter{database.IDField: id}, &property)
	if errors.Is(err, database.ErrNotFound) {
		return nil, notFound("Property")
	}
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	property.Normalize()
	return &property, nil
}

// Exists returns a not found error unless a property with id is stored.
func (s *PropertyService) Exists(ctx context.Context, id string) error {
	_, err := s.Get(ctx, id)
	return err
}

// Update merges the provided fields into the property and refreshes updated_at.
func (s *PropertyService) Update(ctx context.Context, id string, in model.PropertyUpdate) (*model.Property, error) {
	patch := database.Patch{"updated_at": timestamp()}
	if in.Name != nil {
		patch["name"] = *in.Name
	}
	if in.PropertyType != nil {
		patch["property_type"] = *in.PropertyType
	}
	if in.PropertyClass != nil {
		patch["property_class"] = *in.PropertyClass
	}
	if in.YearBuilt != nil {
		patch["year_built"] = *in.YearBuilt
	}
	if in.TotalSF != nil {
		patch["total_sf"] = *in.TotalSF
	}
	if in.Address != nil {
		patch["address"] = withDefaultCountry(*in.Address)
	}
	if in.FinancialMetrics != nil {
		patch["financial_metrics"] = *in.FinancialMetrics
	}
	if in.Status != nil {
		patch["status"] = *in.Status
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.Features != nil {
		patch["features"] = nonNil(*in.Features)
	}
	if in.Tenants != nil {
		patch["tenants"] = nonNil(*in.Tenants)
	}

	n, err := s.properties.UpdateOne(ctx, database.Filter{database.IDField: id}, patch)
	if err != nil {
		return nil, fmt.Errorf("update property: %w", err)
	}
	if n == 0 {
		return nil, notFound("Property")
	}
	return s.Get(ctx, id)
}

// Delete removes the property. Documents and analyses referring to it are kept.
func (s *PropertyService) Delete(ctx context.Context, id string) error {
	n, err := s.properties.DeleteOne(ctx, database.Filter{database.IDField: id})
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if n == 0 {
		return notFound("Property")
	}
	return nil
}

// AttachDocument appends documentID to the property's document list once.
func (s *PropertyService) AttachDocument(ctx context.Context, propertyID, documentID string) error {
	return s.editDocuments(ctx, propertyID, func(ids []string) ([]string, bool) {
		if slices.Contains(ids, documentID) {
			return ids, false
		}
		return append(ids, documentID), true
	})
}

// DetachDocument removes documentID from the property's document list.
func (s *PropertyService) DetachDocument(ctx context.Context, propertyID, documentID string) error {
	return s.editDocuments(ctx, propertyID, func(ids []string) ([]string, bool) {
		if !slices.Contains(ids, documentID) {
			return ids, false
		}
		return slices.DeleteFunc(ids, func(id string) bool { return id == documentID }), true
	})
}

// editDocuments rewrites document_ids with edit when it reports a change.
// Concurrent edits of the same property can lose one of the writes.
func (s *PropertyService) editDocuments(ctx context.Context, propertyID string, edit func([]string) ([]string, bool)) error {
	property, err := s.Get(ctx, propertyID)
	if err != nil {
		return err
	}
	ids, changed := edit(slices.Clone(property.DocumentIDs))
	if !changed {
		return nil
	}
	n, err := s.properties.UpdateOne(ctx, database.Filter{database.IDField: propertyID}, database.Patch{
		"document_ids": nonNil(ids),
		"updated_at":   timestamp(),
	})
	if err != nil {
		return fmt.Errorf("update property documents: %w", err)
	}
	if n == 0 {
		return notFound("Property")
	}
	return nil
}

func withDefaultCountry(a model.Address) model.Address {
	if a.Country == "" {
		a.Country = model.DefaultCountry
	}
	return a
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
