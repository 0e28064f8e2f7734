package model

import "time"

// Analysis lifecycle states. Only pending and completed are reached by the API today.
const (
	AnalysisPending    = "pending"
	AnalysisProcessing = "processing"
	AnalysisCompleted  = "completed"
	AnalysisFailed     = "failed"
)

// Analysis is a set of metrics derived from one property
type Analysis struct {
	ID           string         `bson:"_id" json:"id"`
	Title        string         `bson:"title" json:"title"`
	Description  string         `bson:"description,omitempty" json:"description,omitempty"`
	PropertyID   string         `bson:"property_id" json:"property_id"`
	DocumentIDs  []string       `bson:"document_ids" json:"document_ids"`
	AnalysisType string         `bson:"analysis_type" json:"analysis_type"`
	Parameters   map[string]any `bson:"parameters" json:"parameters"`
	Results      map[string]any `bson:"results,omitempty" json:"results,omitempty"`
	Status       string         `bson:"status" json:"status"`
	CreatedBy    string         `bson:"created_by" json:"created_by"`
	CreatedAt    time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at" json:"updated_at"`
	CompletedAt  *time.Time     `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Normalize replaces nil collections so they serialize as empty values
func (a *Analysis) Normalize() {
	if a.DocumentIDs == nil {
		a.DocumentIDs = []string{}
	}
	if a.Parameters == nil {
		a.Parameters = map[string]any{}
	}
}

// AnalysisCreate is the payload creating an analysis
type AnalysisCreate struct {
	Title        string         `json:"title" validate:"required"`
	Description  string         `json:"description"`
	PropertyID   string         `json:"property_id" validate:"required"`
	DocumentIDs  []string       `json:"document_ids"`
	AnalysisType string         `json:"analysis_type" validate:"required"`
	Parameters   map[string]any `json:"parameters"`
}

// AnalysisUpdate carries only the fields to change
type AnalysisUpdate struct {
	Title        *string         `json:"title" validate:"omitempty,min=1"`
	Description  *string         `json:"description"`
	DocumentIDs  *[]string       `json:"document_ids"`
	AnalysisType *string         `json:"analysis_type" validate:"omitempty,min=1"`
	Parameters   *map[string]any `json:"parameters"`
	Status       *string         `json:"status" validate:"omitempty,oneof=pending processing completed failed"`
}

// ValidAnalysisStatus reports whether s is a known lifecycle state
func ValidAnalysisStatus(s string) bool {
	switch s {
	case AnalysisPending, AnalysisProcessing, AnalysisCompleted, AnalysisFailed:
		return true
	}
	return false
}
