package station

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/gasboard/internal/domain"
	"github.com/simp-lee/gasboard/internal/pkg"
	"github.com/simp-lee/gasboard/internal/query"
)

// stationRepository implements domain.StationRepository using GORM.
type stationRepository struct {
	db *gorm.DB
}

// NewStationRepository creates a StationRepository backed by the given GORM database.
func NewStationRepository(db *gorm.DB) domain.StationRepository {
	return &stationRepository{db: db}
}

// Insert adds one record with a plain INSERT. An existing row with the same
// id is left untouched and a duplicate key error is returned.
func (r *stationRepository) Insert(ctx context.Context, rec *domain.PriceRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// Count returns the number of rows matching spec.
func (r *stationRepository) Count(ctx context.Context, spec query.FilterSpec) (int64, error) {
	var total int64
	if err := r.filtered(ctx, spec).Count(&total).Error; err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

// FetchPage returns one window of the rows matching spec, ordered by sort.
func (r *stationRepository) FetchPage(ctx context.Context, spec query.FilterSpec, sort query.Column, dir query.Direction, offset, limit int) ([]domain.PriceRecord, error) {
	var recs []domain.PriceRecord
	err := r.filtered(ctx, spec).
		Scopes(
			pkg.Sort(sort, dir),
			pkg.Paginate(pkg.PageWindow{Offset: offset, Limit: limit}),
		).
		Find(&recs).Error
	if err != nil {
		return nil, mapError(err)
	}
	return recs, nil
}

// FetchAll returns every row matching spec, ordered by sort.
func (r *stationRepository) FetchAll(ctx context.Context, spec query.FilterSpec, sort query.Column, dir query.Direction) ([]domain.PriceRecord, error) {
	var recs []domain.PriceRecord
	if err := r.filtered(ctx, spec).Scopes(pkg.Sort(sort, dir)).Find(&recs).Error; err != nil {
		return nil, mapError(err)
	}
	return recs, nil
}

// InTx runs fn with a repository bound to a single transaction.
func (r *stationRepository) InTx(ctx context.Context, fn func(repo domain.StationRepository) error) error {
	return pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		return fn(&stationRepository{db: tx})
	})
}

// filtered is the single place a FilterSpec becomes a WHERE clause, shared by
// Count and both fetch paths.
func (r *stationRepository) filtered(ctx context.Context, spec query.FilterSpec) *gorm.DB {
	return r.db.WithContext(ctx).Model(&domain.PriceRecord{}).Scopes(pkg.Filter(spec))
}

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeDuplicateKey, "duplicate key", err)
	}
	return domain.NewAppError(domain.CodeStorage, "storage error", err)
}

// isDuplicateKeyError detects unique constraint violations by examining the
// error message. Not every dialector translates driver errors to
// gorm.ErrDuplicatedKey (the pure-Go SQLite driver does not).
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
