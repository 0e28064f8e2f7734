package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tony-42069/abare-v2/internal/model"
	"github.com/tony-42069/abare-v2/pkg/database"
)

func createAnalysis(t *testing.T, store database.Store, user *model.User, propertyID string) *model.Analysis {
	t.Helper()
	a, err := NewAnalysisService(store).Create(context.Background(), user, model.AnalysisCreate{
		Title:        "Valuation",
		PropertyID:   propertyID,
		AnalysisType: "valuation",
	})
	require.NoError(t, err)
	return a
}

func TestAnalysisCreate(t *testing.T) {
	store := newStore(t)
	user := registerUser(t, store, "a@x.com")
	p := createProperty(t, store, nil, nil)

	a := createAnalysis(t, store, user, p.ID)
	assert.Equal(t, model.AnalysisPending, a.Status)
	assert.Equal(t, user.ID, a.CreatedBy)
	assert.Equal(t, []string{}, a.DocumentIDs)
	assert.Equal(t, map[string]any{}, a.Parameters)

	_, err := NewAnalysisService(store).Create(context.Background(), user, model.AnalysisCreate{
		Title: "x", PropertyID: "missing", AnalysisType: "valuation",
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, store.Len(analysesCollection))
}

func TestAnalysisProcess_ComputesResults(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	user := registerUser(t, store, "a@x.com")
	p := createProperty(t, store, &model.FinancialMetrics{
		NOI:           ptr(100000.0),
		PropertyValue: ptr(1250000.0),
		OccupancyRate: ptr(0.95),
	}, ptr(10000.0))
	svc := NewAnalysisService(store)
	a := createAnalysis(t, store, user, p.ID)

	done, err := svc.Process(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, 8.0, done.Results["cap_rate"])
	assert.Equal(t, 125.0, done.Results["price_per_sf"])
	assert.Equal(t, 100000.0, done.Results["noi"])
	assert.Equal(t, 0.95, done.Results["occupancy_rate"])

	_, err = svc.Process(ctx, a.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Update(ctx, a.ID, model.AnalysisUpdate{Status: ptr(model.AnalysisPending)})
	assert.ErrorIs(t, err, ErrConflict)

	renamed, err := svc.Update(ctx, a.ID, model.AnalysisUpdate{Title: ptr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", renamed.Title)
	assert.Equal(t, model.AnalysisCompleted, renamed.Status)
}

func TestAnalysisProcess_MissingProperty(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	user := registerUser(t, store, "a@x.com")
	p := createProperty(t, store, nil, nil)
	a := createAnalysis(t, store, user, p.ID)
	require.NoError(t, NewPropertyService(store).Delete(ctx, p.ID))

	_, err := NewAnalysisService(store).Process(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComputeResults_ZeroDivisors(t *testing.T) {
	results := ComputeResults(&model.Property{
		FinancialMetrics: model.FinancialMetrics{NOI: ptr(5000.0)},
	})
	assert.Equal(t, 0.0, results["cap_rate"])
	assert.Equal(t, 0.0, results["price_per_sf"])
	assert.Equal(t, 0.0, results["total_sf"])
}

func TestComputeResults_Rounds(t *testing.T) {
	results := ComputeResults(&model.Property{
		TotalSF:          ptr(3.0),
		FinancialMetrics: model.FinancialMetrics{NOI: ptr(1.0), PropertyValue: ptr(3.0)},
	})
	assert.Equal(t, 33.33, results["cap_rate"])
	assert.Equal(t, 1.0, results["price_per_sf"])
}

func TestAnalysisUpdate_StatusChange(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	user := registerUser(t, store, "a@x.com")
	p := createProperty(t, store, nil, nil)
	svc := NewAnalysisService(store)
	a := createAnalysis(t, store, user, p.ID)

	_, err := svc.Update(ctx, a.ID, model.AnalysisUpdate{Status: ptr("bogus")})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := svc.Update(ctx, a.ID, model.AnalysisUpdate{Status: ptr(model.AnalysisProcessing)})
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisProcessing, updated.Status)
	assert.Equal(t, "Valuation", updated.Title)
}

func TestAnalysisApply_DetectsConcurrentStatusChange(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	user := registerUser(t, store, "a@x.com")
	p := createProperty(t, store, nil, nil)
	svc := NewAnalysisService(store)
	a := createAnalysis(t, store, user, p.ID)

	_, err := svc.Update(ctx, a.ID, model.AnalysisUpdate{Status: ptr(model.AnalysisProcessing)})
	require.NoError(t, err)

	stale := database.Filter{database.IDField: a.ID, "status": model.AnalysisPending}
	err = svc.apply(ctx, a.ID, stale, database.Patch{"status": model.AnalysisFailed})
	assert.ErrorIs(t, err, ErrConflict)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisProcessing, got.Status)

	require.NoError(t, svc.Delete(ctx, a.ID))
	err = svc.apply(ctx, a.ID, stale, database.Patch{"status": model.AnalysisFailed})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)
}

func TestAnalysisList_FiltersByProperty(t *testing.T) {
	store := newStore(t)
	user := registerUser(t, store, "a@x.com")
	p1 := createProperty(t, store, nil, nil)
	p2 := createProperty(t, store, nil, nil)
	createAnalysis(t, store, user, p1.ID)
	createAnalysis(t, store, user, p2.ID)
	createAnalysis(t, store, user, p2.ID)

	svc := NewAnalysisService(store)
	all, err := svc.List(context.Background(), "", 0, 100)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyP2, err := svc.List(context.Background(), p2.ID, 0, 100)
	require.NoError(t, err)
	assert.Len(t, onlyP2, 2)
}
