package model

import "time"

const (
	PropertyStatusActive = "active"
	DefaultCountry       = "USA"
)

// Address of a property
type Address struct {
	Street  string `bson:"street" json:"street" validate:"required"`
	City    string `bson:"city" json:"city" validate:"required"`
	State   string `bson:"state" json:"state" validate:"required"`
	ZipCode string `bson:"zip_code" json:"zip_code" validate:"required"`
	Country string `bson:"country" json:"country"`
}

// FinancialMetrics are the optional money figures of a property
type FinancialMetrics struct {
	NOI           *float64 `bson:"noi,omitempty" json:"noi,omitempty"`
	CapRate       *float64 `bson:"cap_rate,omitempty" json:"cap_rate,omitempty"`
	OccupancyRate *float64 `bson:"occupancy_rate,omitempty" json:"occupancy_rate,omitempty"`
	PropertyValue *float64 `bson:"property_value,omitempty" json:"property_value,omitempty"`
	PricePerSF    *float64 `bson:"price_per_sf,omitempty" json:"price_per_sf,omitempty"`
}

// Tenant occupying part of a property
type Tenant struct {
	Name        string     `bson:"name" json:"name" validate:"required"`
	LeaseStart  *time.Time `bson:"lease_start,omitempty" json:"lease_start,omitempty"`
	LeaseEnd    *time.Time `bson:"lease_end,omitempty" json:"lease_end,omitempty"`
	SFLeased    *float64   `bson:"sf_leased,omitempty" json:"sf_leased,omitempty" validate:"omitempty,gte=0"`
	MonthlyRent *float64   `bson:"monthly_rent,omitempty" json:"monthly_rent,omitempty" validate:"omitempty,gte=0"`
	Notes       string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Property is a physical real estate asset
type Property struct {
	ID               string           `bson:"_id" json:"id"`
	Name             string           `bson:"name" json:"name"`
	PropertyType     string           `bson:"property_type" json:"property_type"`
	PropertyClass    string           `bson:"property_class,omitempty" json:"property_class,omitempty"`
	YearBuilt        *int             `bson:"year_built,omitempty" json:"year_built,omitempty"`
	TotalSF          *float64         `bson:"total_sf,omitempty" json:"total_sf,omitempty"`
	Address          Address          `bson:"address" json:"address"`
	FinancialMetrics FinancialMetrics `bson:"financial_metrics" json:"financial_metrics"`
	Status           string           `bson:"status" json:"status"`
	Description      string           `bson:"description,omitempty" json:"description,omitempty"`
	Features         []string         `bson:"features" json:"features"`
	Tenants          []Tenant         `bson:"tenants" json:"tenants"`
	DocumentIDs      []string         `bson:"document_ids" json:"document_ids"`
	CreatedAt        time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `bson:"updated_at" json:"updated_at"`
}

// Normalize replaces nil lists so they serialize as empty arrays
func (p *Property) Normalize() {
	if p.Features == nil {
		p.Features = []string{}
	}
	if p.Tenants == nil {
		p.Tenants = []Tenant{}
	}
	if p.DocumentIDs == nil {
		p.DocumentIDs = []string{}
	}
}

// PropertyCreate is the payload creating a property
type PropertyCreate struct {
	Name             string            `json:"name" validate:"required"`
	PropertyType     string            `json:"property_type" validate:"required"`
	PropertyClass    string            `json:"property_class"`
	YearBuilt        *int              `json:"year_built"`
	TotalSF          *float64          `json:"total_sf" validate:"omitempty,gte=0"`
	Address          Address           `json:"address"`
	FinancialMetrics *FinancialMetrics `json:"financial_metrics"`
	Status           string            `json:"status"`
	Description      string            `json:"description"`
	Features         []string          `json:"features"`
	Tenants          []Tenant          `json:"tenants" validate:"dive"`
}

// PropertyUpdate carries only the fields to change. Nested objects replace the stored ones whole.
type PropertyUpdate struct {
	Name             *string           `json:"name" validate:"omitempty,min=1"`
	PropertyType     *string           `json:"property_type" validate:"omitempty,min=1"`
	PropertyClass    *string           `json:"property_class"`
	YearBuilt        *int              `json:"year_built"`
	TotalSF          *float64          `json:"total_sf" validate:"omitempty,gte=0"`
	Address          *Address          `json:"address"`
	FinancialMetrics *FinancialMetrics `json:"financial_metrics"`
	Status           *string           `json:"status" validate:"omitempty,min=1"`
	Description      *string           `json:"description"`
	Features         *[]string         `json:"features"`
	Tenants          *[]Tenant         `json:"tenants" validate:"omitempty,dive"`
}
