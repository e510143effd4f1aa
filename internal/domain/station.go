package domain

import (
	"context"
	"time"

	"github.com/simp-lee/gasboard/internal/query"
)

// PriceRecord is one fuel station's price snapshot.
// A price of 0 means the fuel is not sold at that station.
type PriceRecord struct {
	ID            string    `gorm:"primaryKey;size:20" json:"id" validate:"required,max=20"`
	Region        string    `gorm:"size:30;not null" json:"region" validate:"required,max=30"`
	Name          string    `gorm:"size:100;not null" json:"name" validate:"required,max=100"`
	Address       string    `gorm:"size:200;not null" json:"address" validate:"required,max=200"`
	Brand         string    `gorm:"size:50;not null" json:"brand" validate:"required,max=50"`
	SelfService   string    `gorm:"size:10;not null" json:"self_service" validate:"required,max=10"`
	PremiumPrice  int       `gorm:"not null" json:"premium_price" validate:"min=0"`
	RegularPrice  int       `gorm:"not null" json:"regular_price" validate:"min=0"`
	DieselPrice   int       `gorm:"not null" json:"diesel_price" validate:"min=0"`
	KerosenePrice int       `gorm:"not null" json:"kerosene_price" validate:"min=0"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName keeps the table name stable regardless of the struct name.
func (PriceRecord) TableName() string {
	return "gas_station_prices"
}

// Price returns the value of a fuel-price column, or 0 for any other column.
func (r *PriceRecord) Price(col query.Column) int {
	switch col {
	case query.ColumnPremiumPrice:
		return r.PremiumPrice
	case query.ColumnRegularPrice:
		return r.RegularPrice
	case query.ColumnDieselPrice:
		return r.DieselPrice
	case query.ColumnKerosenePrice:
		return r.KerosenePrice
	default:
		return 0
	}
}

// StationRepository is the storage contract for price records.
//
// Count and FetchPage must be called with the same FilterSpec for a listing
// so that the reported total matches the fetched window.
type StationRepository interface {
	Insert(ctx context.Context, rec *PriceRecord) error
	Count(ctx context.Context, spec query.FilterSpec) (int64, error)
	FetchPage(ctx context.Context, spec query.FilterSpec, sort query.Column, dir query.Direction, offset, limit int) ([]PriceRecord, error)
	FetchAll(ctx context.Context, spec query.FilterSpec, sort query.Column, dir query.Direction) ([]PriceRecord, error)
	// InTx runs fn against a repository whose statements share one transaction.
	InTx(ctx context.Context, fn func(repo StationRepository) error) error
}

// StationService defines the business logic for price records.
type StationService interface {
	List(ctx context.Context, req QueryRequest) (*PageResult[PriceRecord], error)
	Export(ctx context.Context, req QueryRequest) ([]PriceRecord, error)
	Stats(ctx context.Context, searchColumn, keyword string) (*Stats, error)
	Import(ctx context.Context, recs []PriceRecord) (*ImportReport, error)
}

// ImportReport describes the outcome of one batch import.
//
// Records are applied in order and the batch stops at the first failure.
// Unless Atomic is set, records inserted before the failure stay in place.
type ImportReport struct {
	BatchID  string `json:"batch_id"`
	Total    int    `json:"total"`
	Inserted int    `json:"inserted"`
	Atomic   bool   `json:"atomic"`
	FailedID string `json:"failed_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the batch stopped early.
func (r *ImportReport) Failed() bool {
	return r.Error != ""
}

// CategoryCount is the number of stations sharing one category value.
type CategoryCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// FuelAverage is the mean price of one fuel over the stations that sell it.
type FuelAverage struct {
	Column   string  `json:"column"`
	Average  float64 `json:"average"`
	Stations int     `json:"stations"`
}

// Stats aggregates a (possibly keyword-filtered) set of records.
type Stats struct {
	Total         int             `json:"total"`
	ByBrand       []CategoryCount `json:"by_brand"`
	BySelfService []CategoryCount `json:"by_self_service"`
	Averages      []FuelAverage   `json:"averages"`
}
