package station

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/gasboard/internal/domain"
	"github.com/simp-lee/gasboard/internal/query"
)

// setupTestRouter creates a gin engine with stub templates so that c.HTML
// calls render a short, checkable body.
func setupTestRouter(h *StationPageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	tmpl := template.Must(template.New("").Parse(
		`{{define "stations/list.html"}}list:{{len .Records}}{{range .Headers}}|{{.URL}}{{end}}{{end}}` +
			`{{define "stations/upload.html"}}upload{{with .Report}}:inserted={{.Inserted}}{{end}}{{if .Error}}:{{.Error}}{{end}}{{end}}` +
			`{{define "stations/stats.html"}}stats:{{.Stats.Total}}{{end}}` +
			`{{define "errors/500.html"}}500{{end}}`,
	))
	r.SetHTMLTemplate(tmpl)

	r.GET("/stations", h.ListPage)
	r.GET("/stations/upload", h.UploadPage)
	r.POST("/stations/upload", h.Upload)
	r.GET("/stations/stats", h.StatsPage)

	return r
}

func TestListPage_Success(t *testing.T) {
	svc := newMockService()
	svc.listResult = &domain.PageResult[domain.PriceRecord]{
		Items:      []domain.PriceRecord{record("A0001", "SK에너지", 1900)},
		Total:      1,
		Page:       1,
		PageSize:   20,
		TotalPages: 1,
	}
	r := setupTestRouter(NewStationPageHandler(svc, Limits{PageSize: 20}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stations?sort=brand&order=asc", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.HasPrefix(body, "list:1") {
		t.Errorf("unexpected body %q", body)
	}
	// The active column links to the opposite direction.
	if !strings.Contains(body, "sort=brand") || !strings.Contains(body, "order=desc") {
		t.Errorf("expected toggled brand link in %q", body)
	}
}

func TestListPage_ServiceError(t *testing.T) {
	svc := newMockService()
	svc.listErr = domain.NewAppError(domain.CodeStorage, "storage error", nil)
	r := setupTestRouter(NewStationPageHandler(svc, Limits{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stations", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
}

func TestUpload_Success(t *testing.T) {
	svc := newMockService()
	r := setupTestRouter(NewStationPageHandler(svc, Limits{MaxUploadBytes: 1 << 20}))

	body, ct := multipartUpload(t, "file", "prices.csv",
		csvHeader+"A0001,서울,테스트,서울 중구,SK에너지,Y,1900,1700,1600,0\n")
	req := httptest.NewRequest(http.MethodPost, "/stations/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := w.Body.String(); got != "upload:inserted=1" {
		t.Errorf("unexpected body %q", got)
	}
}

func TestUpload_UnsupportedFile(t *testing.T) {
	svc := newMockService()
	r := setupTestRouter(NewStationPageHandler(svc, Limits{}))

	body, ct := multipartUpload(t, "file", "prices.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/stations/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if !strings.Contains(w.Body.String(), "unsupported file type") {
		t.Errorf("expected unsupported file message, got %q", w.Body.String())
	}
	if svc.imported != nil {
		t.Error("service must not be called")
	}
}

func TestUpload_StorageErrorIsHidden(t *testing.T) {
	svc := newMockService()
	svc.importErr = domain.NewAppError(domain.CodeStorage, "disk I/O error", nil)
	r := setupTestRouter(NewStationPageHandler(svc, Limits{}))

	body, ct := multipartUpload(t, "file", "prices.csv",
		csvHeader+"A0001,서울,테스트,서울 중구,SK에너지,Y,1900,1700,1600,0\n")
	req := httptest.NewRequest(http.MethodPost, "/stations/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if strings.Contains(w.Body.String(), "disk I/O") {
		t.Errorf("storage detail leaked: %q", w.Body.String())
	}
}

func TestStatsPage(t *testing.T) {
	svc := newMockService()
	svc.stats = &domain.Stats{Total: 4}
	r := setupTestRouter(NewStationPageHandler(svc, Limits{}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stations/stats?search_column=brand&keyword=SK", nil))

	if w.Code != http.StatusOK || w.Body.String() != "stats:4" {
		t.Fatalf("unexpected response %d %q", w.Code, w.Body.String())
	}
	if svc.statsColumn != "brand" || svc.statsKw != "SK" {
		t.Errorf("filter not passed through: column=%q keyword=%q", svc.statsColumn, svc.statsKw)
	}
}

func TestHeaderCells_Toggle(t *testing.T) {
	l := Resolve(domain.QueryRequest{SortColumn: "diesel_price", SortDirection: "desc", SearchColumn: "name", SearchKeyword: "셀프"})
	cells := headerCells(l)
	if len(cells) != len(query.Columns()) {
		t.Fatalf("expected %d cells, got %d", len(query.Columns()), len(cells))
	}
	for _, c := range cells {
		u, err := url.Parse(c.URL)
		if err != nil {
			t.Fatalf("parse %q: %v", c.URL, err)
		}
		q := u.Query()
		if q.Get("keyword") != "셀프" || q.Get("search_column") != "name" {
			t.Errorf("%s: search not carried in %q", c.Name, c.URL)
		}
		if q.Get("page") != "1" {
			t.Errorf("%s: expected page reset to 1 in %q", c.Name, c.URL)
		}
		if c.Active != (c.Name == "diesel_price") {
			t.Errorf("%s: unexpected active flag", c.Name)
		}
		if c.Active && c.Dir != "desc" {
			t.Errorf("active dir: expected desc, got %q", c.Dir)
		}
		// Inactive columns start ascending; the active descending one flips.
		if q.Get("order") != "asc" {
			t.Errorf("%s: expected order asc, got %s", c.Name, q.Get("order"))
		}
	}
}

func TestPageLinks(t *testing.T) {
	l := Resolve(domain.QueryRequest{})
	links := pageLinks(l, 2, 3)
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	if !links[1].Current || links[0].Current {
		t.Error("expected only page 2 to be current")
	}
	if !strings.Contains(links[2].URL, "page=3") {
		t.Errorf("unexpected url %q", links[2].URL)
	}
}

func TestPageLinks_Window(t *testing.T) {
	l := Resolve(domain.QueryRequest{})
	tests := []struct {
		name    string
		current int
		total   int
		want    []int
	}{
		{"middle", 50, 100, []int{48, 49, 50, 51, 52}},
		{"first", 1, 100, []int{1, 2, 3, 4, 5}},
		{"second", 2, 100, []int{1, 2, 3, 4, 5}},
		{"last", 100, 100, []int{96, 97, 98, 99, 100}},
		{"past the end", 999, 100, []int{96, 97, 98, 99, 100}},
		{"fewer than width", 2, 3, []int{1, 2, 3}},
		{"no pages", 1, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := pageLinks(l, tt.current, tt.total)
			if len(links) != len(tt.want) {
				t.Fatalf("got %d links; want %d", len(links), len(tt.want))
			}
			for i, link := range links {
				if link.Number != tt.want[i] {
					t.Errorf("links[%d].Number = %d; want %d", i, link.Number, tt.want[i])
				}
				if link.Current != (link.Number == tt.current) {
					t.Errorf("links[%d].Current = %v", i, link.Current)
				}
			}
		})
	}
}
