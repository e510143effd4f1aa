package pkg

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/gasboard/internal/domain"
	"github.com/simp-lee/gasboard/internal/query"
)

const (
	defaultPage     = 1
	DefaultPageSize = 20
)

// Query parameter names accepted by listing endpoints.
const (
	ParamSort         = "sort"
	ParamOrder        = "order"
	ParamSearchColumn = "search_column"
	ParamKeyword      = "keyword"
	ParamPage         = "page"
)

// PageWindow is the slice of a result set to return.
type PageWindow struct {
	Page       int
	Offset     int
	Limit      int
	TotalPages int
}

// ParseQueryRequest extracts raw listing parameters from the query string.
// The page size is fixed by the server and never read from the request.
// Column and direction values are passed through untouched; they are
// resolved against the allow-list by the service.
func ParseQueryRequest(c *gin.Context, pageSize int) domain.QueryRequest {
	page, err := strconv.Atoi(c.Query(ParamPage))
	if err != nil {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	return domain.QueryRequest{
		SortColumn:    c.Query(ParamSort),
		SortDirection: c.Query(ParamOrder),
		SearchColumn:  c.Query(ParamSearchColumn),
		SearchKeyword: c.Query(ParamKeyword),
		Page:          page,
		PageSize:      pageSize,
	}
}

// Window computes the LIMIT/OFFSET pair and page count for a listing.
//
// Pages below 1 are clamped to 1. There is no upper clamp: a page past the
// last one yields an offset beyond the data and therefore an empty page.
// The offset saturates at math.MaxInt instead of overflowing.
func Window(page, pageSize int, total int64) PageWindow {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = defaultPage
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}

	offset := math.MaxInt
	if page-1 <= math.MaxInt/pageSize {
		offset = (page - 1) * pageSize
	}

	return PageWindow{
		Page:       page,
		Offset:     offset,
		Limit:      pageSize,
		TotalPages: totalPages,
	}
}

// NewPageResult wraps fetched items with the window's metadata.
func NewPageResult[T any](items []T, total int64, w PageWindow) *domain.PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return &domain.PageResult[T]{
		Items:      items,
		Total:      total,
		Page:       w.Page,
		PageSize:   w.Limit,
		TotalPages: w.TotalPages,
	}
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET for the window.
func Paginate(w PageWindow) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(w.Offset).Limit(w.Limit)
	}
}

// Sort returns a GORM scope that orders by col, then by id ascending so that
// rows with equal sort keys come back in a stable order.
func Sort(col query.Column, dir query.Direction) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Order(clause.OrderByColumn{
			Column: clause.Column{Name: col.Name()},
			Desc:   dir == query.Descending,
		})
		if col.Name() != query.ColumnID.Name() {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: query.ColumnID.Name()}})
		}
		return db
	}
}

// Filter returns a GORM scope that applies every condition of spec with AND.
// Column names come from the allow-list and are quoted by the dialect; the
// search keyword is always a bound parameter.
func Filter(spec query.FilterSpec) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, cond := range spec.Conditions {
			col := clause.Column{Name: cond.Column.Name()}
			switch cond.Op {
			case query.OpContains:
				pattern := "%" + query.EscapeLike(strings.ToLower(cond.Value)) + "%"
				db = db.Where(`LOWER(CAST(? AS TEXT)) LIKE ? ESCAPE '\'`, col, pattern)
			case query.OpPositive:
				db = db.Where("? > 0", col)
			}
		}
		return db
	}
}
