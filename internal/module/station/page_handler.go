package station

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gasboard/internal/domain"
	"github.com/simp-lee/gasboard/internal/middleware"
	"github.com/simp-lee/gasboard/internal/pkg"
	"github.com/simp-lee/gasboard/internal/query"
)

const listPath = "/stations"

// pagerWidth is the number of page links shown around the current page.
const pagerWidth = 5

var columnLabels = map[query.Column]string{
	query.ColumnID:            "ID",
	query.ColumnRegion:        "Region",
	query.ColumnName:          "Station",
	query.ColumnAddress:       "Address",
	query.ColumnBrand:         "Brand",
	query.ColumnSelfService:   "Self",
	query.ColumnPremiumPrice:  "Premium",
	query.ColumnRegularPrice:  "Regular",
	query.ColumnDieselPrice:   "Diesel",
	query.ColumnKerosenePrice: "Kerosene",
}

// HeaderCell is one sortable column heading on the listing page.
type HeaderCell struct {
	Name   string
	Label  string
	URL    string
	Active bool
	Dir    string
}

// PageLink is one entry of the pager.
type PageLink struct {
	Number  int
	URL     string
	Current bool
}

// StationPageHandler renders the HTML pages of the station module.
type StationPageHandler struct {
	svc    domain.StationService
	limits Limits
}

// NewStationPageHandler creates a new StationPageHandler with the given service.
func NewStationPageHandler(svc domain.StationService, limits Limits) *StationPageHandler {
	return &StationPageHandler{svc: svc, limits: limits}
}

// ListPage renders one page of the listing with sort links and a pager.
// GET /stations
func (h *StationPageHandler) ListPage(c *gin.Context) {
	req := pkg.ParseQueryRequest(c, h.limits.PageSize)

	result, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "list stations failed", slog.Any("error", err))
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return
	}

	l := Resolve(req)
	c.HTML(http.StatusOK, "stations/list.html", gin.H{
		"Records":      result.Items,
		"Pagination":   result,
		"Headers":      headerCells(l),
		"Pages":        pageLinks(l, result.Page, result.TotalPages),
		"PrevURL":      listURL(l, l.Sort, l.Direction, result.Page-1),
		"NextURL":      listURL(l, l.Sort, l.Direction, result.Page+1),
		"ExportURL":    "/api/v1/stations/export?" + listQuery(l, l.Sort, l.Direction, 0).Encode(),
		"SearchColumn": l.SearchColumn.Name(),
		"Keyword":      l.Keyword,
		"Columns":      searchableColumns(),
		"CSRFToken":    middleware.GetCSRFToken(c),
	})
}

// UploadPage renders the upload form.
// GET /stations/upload
func (h *StationPageHandler) UploadPage(c *gin.Context) {
	c.HTML(http.StatusOK, "stations/upload.html", gin.H{
		"MaxSizeMB": h.limits.MaxUploadBytes >> 20,
		"CSRFToken": middleware.GetCSRFToken(c),
	})
}

// Upload imports a submitted file and renders the outcome on the upload form.
// POST /stations/upload
func (h *StationPageHandler) Upload(c *gin.Context) {
	data := gin.H{
		"MaxSizeMB": h.limits.MaxUploadBytes >> 20,
		"CSRFToken": middleware.GetCSRFToken(c),
	}

	var req UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		slog.Debug("upload: bind error", "error", err)
		data["Error"] = "Choose a .csv or .xlsx file to upload."
		c.HTML(http.StatusOK, "stations/upload.html", data)
		return
	}

	recs, err := readUpload(req.File, h.limits.MaxUploadBytes)
	if err != nil {
		data["Error"] = safePageErrorMessage(err, "The file could not be read.")
		c.HTML(http.StatusOK, "stations/upload.html", data)
		return
	}

	report, err := h.svc.Import(c.Request.Context(), recs)
	data["Report"] = report
	if err != nil {
		data["Error"] = safePageErrorMessage(err, "Import failed, please try again later.")
	}
	c.HTML(http.StatusOK, "stations/upload.html", data)
}

// StatsPage renders aggregate statistics for the optional search filter.
// GET /stations/stats
func (h *StationPageHandler) StatsPage(c *gin.Context) {
	req := StatsRequest{
		SearchColumn: c.Query(pkg.ParamSearchColumn),
		Keyword:      c.Query(pkg.ParamKeyword),
	}

	stats, err := h.svc.Stats(c.Request.Context(), req.SearchColumn, req.Keyword)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "station stats failed", slog.Any("error", err))
		c.HTML(http.StatusInternalServerError, "errors/500.html", gin.H{})
		return
	}

	c.HTML(http.StatusOK, "stations/stats.html", gin.H{
		"Stats":        stats,
		"SearchColumn": query.ResolveSearchColumn(req.SearchColumn).Name(),
		"Keyword":      req.Keyword,
		"Columns":      searchableColumns(),
	})
}

// headerCells builds the column headings. Clicking the active column flips
// its direction; any other column starts ascending.
func headerCells(l Listing) []HeaderCell {
	cols := query.Columns()
	cells := make([]HeaderCell, 0, len(cols))
	for _, col := range cols {
		dir := query.Ascending
		active := col == l.Sort
		if active {
			dir = l.Direction.Toggle()
		}
		cell := HeaderCell{
			Name:   col.Name(),
			Label:  columnLabels[col],
			URL:    listURL(l, col, dir, 1),
			Active: active,
		}
		if active {
			cell.Dir = l.Direction.String()
		}
		cells = append(cells, cell)
	}
	return cells
}

// pageLinks returns at most pagerWidth links centred on current. A page past
// the end shows the last pages.
func pageLinks(l Listing, current, total int) []PageLink {
	start := max(1, min(current, total)-pagerWidth/2)
	end := min(total, start+pagerWidth-1)
	start = max(1, end-pagerWidth+1)

	links := make([]PageLink, 0, pagerWidth)
	for p := start; p <= end; p++ {
		links = append(links, PageLink{
			Number:  p,
			URL:     listURL(l, l.Sort, l.Direction, p),
			Current: p == current,
		})
	}
	return links
}

func listURL(l Listing, sort query.Column, dir query.Direction, page int) string {
	return listPath + "?" + listQuery(l, sort, dir, page).Encode()
}

// listQuery carries only resolved values, so links never echo raw input
// other than the keyword.
func listQuery(l Listing, sort query.Column, dir query.Direction, page int) url.Values {
	v := url.Values{}
	v.Set(pkg.ParamSort, sort.Name())
	v.Set(pkg.ParamOrder, dir.String())
	if l.Keyword != "" {
		v.Set(pkg.ParamSearchColumn, l.SearchColumn.Name())
		v.Set(pkg.ParamKeyword, l.Keyword)
	}
	if page > 0 {
		v.Set(pkg.ParamPage, strconv.Itoa(page))
	}
	return v
}

func searchableColumns() []HeaderCell {
	cols := query.Columns()
	out := make([]HeaderCell, 0, len(cols))
	for _, col := range cols {
		out = append(out, HeaderCell{Name: col.Name(), Label: columnLabels[col]})
	}
	return out
}

// safePageErrorMessage extracts a user-safe error message from an AppError.
// Storage and unknown errors always return the fallback.
func safePageErrorMessage(err error, fallback string) string {
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		switch appErr.Code {
		case domain.CodeNotFound, domain.CodeDuplicateKey, domain.CodeValidation:
			return appErr.Message
		}
	}
	return fallback
}
