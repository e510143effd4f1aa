package station

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gasboard/internal/domain"
	"github.com/simp-lee/gasboard/internal/ingest"
	"github.com/simp-lee/gasboard/internal/pkg"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Limits bounds what a single request may ask of the station handlers.
type Limits struct {
	PageSize       int
	MaxUploadBytes int64
}

// StationHandler handles REST API requests for price records.
type StationHandler struct {
	svc    domain.StationService
	limits Limits
}

// NewStationHandler creates a new StationHandler with the given service.
func NewStationHandler(svc domain.StationService, limits Limits) *StationHandler {
	return &StationHandler{svc: svc, limits: limits}
}

// List handles GET /api/v1/stations.
func (h *StationHandler) List(c *gin.Context) {
	req := pkg.ParseQueryRequest(c, h.limits.PageSize)

	result, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.List(c, result)
}

// Stats handles GET /api/v1/stations/stats.
func (h *StationHandler) Stats(c *gin.Context) {
	var req StatsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		pkg.ValidationError(c, err)
		return
	}

	stats, err := h.svc.Stats(c.Request.Context(), req.SearchColumn, req.Keyword)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	pkg.Success(c, stats)
}

// Import handles POST /api/v1/stations/import.
// A batch that stops early still returns its report alongside the error.
func (h *StationHandler) Import(c *gin.Context) {
	var req UploadRequest
	if !pkg.BindAndValidate(c, &req) {
		return
	}

	recs, err := readUpload(req.File, h.limits.MaxUploadBytes)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	report, err := h.svc.Import(c.Request.Context(), recs)
	if err != nil {
		status := domain.HTTPStatusCode(err)
		if domain.IsStorage(err) {
			_ = c.Error(err)
		}
		c.JSON(status, pkg.Response{
			Code:    status,
			Message: report.Error,
			Data:    report,
		})
		return
	}

	c.JSON(http.StatusCreated, pkg.Response{
		Code:    http.StatusCreated,
		Message: "success",
		Data:    report,
	})
}

// Export handles GET /api/v1/stations/export. The response is every row of
// the current listing as an XLSX workbook.
func (h *StationHandler) Export(c *gin.Context) {
	req := pkg.ParseQueryRequest(c, h.limits.PageSize)

	recs, err := h.svc.Export(c.Request.Context(), req)
	if err != nil {
		pkg.Error(c, err)
		return
	}

	var buf bytes.Buffer
	if err := ingest.WriteXLSX(&buf, recs); err != nil {
		pkg.Error(c, domain.NewAppError(domain.CodeStorage, "export failed", err))
		return
	}

	filename := fmt.Sprintf("gas_station_prices_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// readUpload checks the upload size and parses the file into records.
func readUpload(fh *multipart.FileHeader, maxBytes int64) ([]domain.PriceRecord, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, domain.NewAppError(domain.CodeValidation,
			fmt.Sprintf("file is larger than %d MB", maxBytes>>20), nil)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "cannot open uploaded file", err)
	}
	defer f.Close()

	return ingest.Parse(fh.Filename, f)
}
