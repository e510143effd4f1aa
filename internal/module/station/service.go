package station

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/simp-lee/gasboard/internal/domain"
	"github.com/simp-lee/gasboard/internal/pkg"
	"github.com/simp-lee/gasboard/internal/query"
)

// Listing is a listing request after allow-list resolution. Only these
// resolved values reach the query layer.
type Listing struct {
	Sort         query.Column
	Direction    query.Direction
	SearchColumn query.Column
	Keyword      string
	Filter       query.FilterSpec
}

// Resolve runs the raw request parameters through the column policy and
// builds the filter shared by the count and fetch queries.
func Resolve(req domain.QueryRequest) Listing {
	sort := query.ResolveSortColumn(req.SortColumn)
	search := query.ResolveSearchColumn(req.SearchColumn)
	keyword := strings.TrimSpace(req.SearchKeyword)
	return Listing{
		Sort:         sort,
		Direction:    query.ResolveDirection(req.SortDirection),
		SearchColumn: search,
		Keyword:      keyword,
		Filter:       query.Build(sort, search, keyword),
	}
}

// Options tunes the station service.
type Options struct {
	// AtomicImport wraps each import batch in one transaction so a failure
	// leaves no partial batch behind.
	AtomicImport bool
}

// stationService implements domain.StationService.
type stationService struct {
	repo     domain.StationRepository
	validate *validator.Validate
	opts     Options
}

// NewStationService creates a StationService with the given repository.
func NewStationService(repo domain.StationRepository, opts Options) domain.StationService {
	return &stationService{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		opts:     opts,
	}
}

// List returns one page of records for the request.
func (s *stationService) List(ctx context.Context, req domain.QueryRequest) (*domain.PageResult[domain.PriceRecord], error) {
	l := Resolve(req)

	total, err := s.repo.Count(ctx, l.Filter)
	if err != nil {
		return nil, err
	}

	w := pkg.Window(req.Page, req.PageSize, total)
	items, err := s.repo.FetchPage(ctx, l.Filter, l.Sort, l.Direction, w.Offset, w.Limit)
	if err != nil {
		return nil, err
	}

	return pkg.NewPageResult(items, total, w), nil
}

// Export returns every record matching the request's filter and order,
// without pagination.
func (s *stationService) Export(ctx context.Context, req domain.QueryRequest) ([]domain.PriceRecord, error) {
	l := Resolve(req)
	return s.repo.FetchAll(ctx, l.Filter, l.Sort, l.Direction)
}

// Stats aggregates the records matching an optional keyword search.
func (s *stationService) Stats(ctx context.Context, searchColumn, keyword string) (*domain.Stats, error) {
	spec := query.Build(query.DefaultColumn, query.ResolveSearchColumn(searchColumn), keyword)
	recs, err := s.repo.FetchAll(ctx, spec, query.DefaultColumn, query.Ascending)
	if err != nil {
		return nil, err
	}
	return Aggregate(recs), nil
}

// Import inserts recs one by one in order and stops at the first failure.
func (s *stationService) Import(ctx context.Context, recs []domain.PriceRecord) (*domain.ImportReport, error) {
	report := &domain.ImportReport{
		BatchID: uuid.NewString(),
		Total:   len(recs),
		Atomic:  s.opts.AtomicImport,
	}
	log := slog.With(slog.String("batch_id", report.BatchID))

	var err error
	if s.opts.AtomicImport {
		err = s.repo.InTx(ctx, func(repo domain.StationRepository) error {
			return s.apply(ctx, repo, recs, report)
		})
		if err != nil {
			report.Inserted = 0
		}
	} else {
		err = s.apply(ctx, s.repo, recs, report)
	}

	importedRecords.Add(float64(report.Inserted))
	if err != nil {
		importFailures.Inc()
		report.Error = errorMessage(err)
		log.WarnContext(ctx, "import stopped",
			slog.String("failed_id", report.FailedID),
			slog.Int("inserted", report.Inserted),
			slog.Int("total", report.Total),
			slog.Any("error", err),
		)
		return report, err
	}

	log.InfoContext(ctx, "import completed", slog.Int("inserted", report.Inserted))
	return report, nil
}

func (s *stationService) apply(ctx context.Context, repo domain.StationRepository, recs []domain.PriceRecord, report *domain.ImportReport) error {
	for i := range recs {
		rec := &recs[i]
		if err := s.validateRecord(rec); err != nil {
			report.FailedID = rec.ID
			return err
		}
		if err := repo.Insert(ctx, rec); err != nil {
			report.FailedID = rec.ID
			return withRecordID(rec.ID, err)
		}
		report.Inserted++
	}
	return nil
}

// validateRecord checks one record against its struct tags.
func (s *stationService) validateRecord(rec *domain.PriceRecord) error {
	err := s.validate.Struct(rec)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return domain.NewAppError(domain.CodeValidation, fmt.Sprintf("record %q: invalid", rec.ID), err)
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, fieldName(fe.Field())+": "+msg)
	}
	return domain.NewAppError(domain.CodeValidation, fmt.Sprintf("record %q: %s", rec.ID, strings.Join(parts, ", ")), nil)
}

// withRecordID prefixes the error message with the failing record's id while
// keeping its error code.
func withRecordID(id string, err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return domain.NewAppError(appErr.Code, fmt.Sprintf("record %q: %s", id, appErr.Message), appErr.Err)
	}
	return domain.NewAppError(domain.CodeStorage, fmt.Sprintf("record %q: storage error", id), err)
}

// errorMessage is the client-facing text of err. Wrapped driver errors are
// left out.
func errorMessage(err error) string {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

var fieldNames = map[string]string{
	"ID":            query.ColumnID.Name(),
	"Region":        query.ColumnRegion.Name(),
	"Name":          query.ColumnName.Name(),
	"Address":       query.ColumnAddress.Name(),
	"Brand":         query.ColumnBrand.Name(),
	"SelfService":   query.ColumnSelfService.Name(),
	"PremiumPrice":  query.ColumnPremiumPrice.Name(),
	"RegularPrice":  query.ColumnRegularPrice.Name(),
	"DieselPrice":   query.ColumnDieselPrice.Name(),
	"KerosenePrice": query.ColumnKerosenePrice.Name(),
}

func fieldName(structField string) string {
	if n, ok := fieldNames[structField]; ok {
		return n
	}
	return strings.ToLower(structField)
}

// Aggregate counts records by brand and self-service flag and averages each
// fuel price over the stations that sell it. Zero prices are skipped.
func Aggregate(recs []domain.PriceRecord) *domain.Stats {
	brands := map[string]int{}
	self := map[string]int{}
	fuels := query.FuelPriceColumns()
	sums := make([]int64, len(fuels))
	counts := make([]int, len(fuels))

	for i := range recs {
		r := &recs[i]
		brands[r.Brand]++
		self[r.SelfService]++
		for j, col := range fuels {
			if p := r.Price(col); p > 0 {
				sums[j] += int64(p)
				counts[j]++
			}
		}
	}

	stats := &domain.Stats{
		Total:         len(recs),
		ByBrand:       sortedCounts(brands),
		BySelfService: sortedCounts(self),
		Averages:      make([]domain.FuelAverage, len(fuels)),
	}
	for j, col := range fuels {
		avg := domain.FuelAverage{Column: col.Name(), Stations: counts[j]}
		if counts[j] > 0 {
			avg.Average = float64(sums[j]) / float64(counts[j])
		}
		stats.Averages[j] = avg
	}
	return stats
}

// sortedCounts orders categories by count, largest first, then by value.
func sortedCounts(m map[string]int) []domain.CategoryCount {
	out := make([]domain.CategoryCount, 0, len(m))
	for v, n := range m {
		out = append(out, domain.CategoryCount{Value: v, Count: n})
	}
	slices.SortFunc(out, func(a, b domain.CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})
	return out
}
