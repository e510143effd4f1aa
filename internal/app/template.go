package app

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TemplateRenderer is a gin HTML renderer built from a shared base set
// (templates/layouts and templates/partials) plus one clone per page
// template. Pages invoke {{ template "base" . }} and fill the "title" and
// "content" blocks.
//
// Debug renderers re-parse on every request; release renderers parse once.
type TemplateRenderer struct {
	templates map[string]*template.Template // release mode only
	fs        fs.FS
	funcMap   template.FuncMap
	debug     bool
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer creates a renderer over fsys, which must contain a
// templates/ directory.
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		fs:      fsys,
		funcMap: templateFuncMap(),
		debug:   debug,
	}

	if !debug {
		templates, err := r.parseAllTemplates()
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		r.templates = templates
	}

	return r, nil
}

// Instance executes the page named relative to templates/, for example
// "stations/list.html".
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	pages := r.templates
	if r.debug {
		var err error
		if pages, err = r.parseAllTemplates(); err != nil {
			return &HTMLInstance{Name: name, err: err}
		}
	}
	return &HTMLInstance{Template: pages[name], Name: name, Data: data}
}

// parseAllTemplates returns one compiled set per page, keyed by the page path
// relative to templates/.
func (r *TemplateRenderer) parseAllTemplates() (map[string]*template.Template, error) {
	base := template.New("").Funcs(r.funcMap)
	for _, pattern := range []string{"templates/layouts/*.html", "templates/partials/*.html"} {
		files, err := fs.Glob(r.fs, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, f := range files {
			if err := r.parseInto(base, f, f); err != nil {
				return nil, err
			}
		}
	}

	pageFiles, err := r.discoverPageTemplates()
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		set, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base for %s: %w", pf, err)
		}
		name := strings.TrimPrefix(pf, "templates/")
		if err := r.parseInto(set, name, pf); err != nil {
			return nil, err
		}
		pages[name] = set
	}
	return pages, nil
}

// parseInto adds the file at path to set under name.
func (r *TemplateRenderer) parseInto(set *template.Template, name, path string) error {
	content, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := set.New(name).Parse(string(content)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// discoverPageTemplates lists every .html file under templates/ outside
// layouts/ and partials/.
func (r *TemplateRenderer) discoverPageTemplates() ([]string, error) {
	var pages []string
	err := fs.WalkDir(r.fs, "templates", func(path string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			if path == "templates/layouts" || path == "templates/partials" {
				return fs.SkipDir
			}
		case strings.HasSuffix(path, ".html"):
			pages = append(pages, path)
		}
		return nil
	})
	return pages, err
}

// templateFuncMap returns the helper functions available to every page.
func templateFuncMap() template.FuncMap {
	p := message.NewPrinter(language.Korean)
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		// formatPrice prints a won price with grouping; 0 means not sold.
		"formatPrice": func(v int) string {
			if v <= 0 {
				return "-"
			}
			return p.Sprintf("%d", v)
		},
		"formatNumber": func(v any) string {
			return p.Sprintf("%v", v)
		},
		"formatAverage": func(v float64) string {
			if v <= 0 {
				return "-"
			}
			return p.Sprintf("%.1f", v)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

// HTMLInstance is a single page execution.
type HTMLInstance struct {
	Template *template.Template
	Name     string
	Data     any
	err      error // debug-mode parse failure
}

const htmlContentType = "text/html; charset=utf-8"

func (h *HTMLInstance) Render(w http.ResponseWriter) error {
	h.WriteContentType(w)
	if h.err != nil {
		return h.err
	}
	if h.Template == nil {
		return fmt.Errorf("template %q not found", h.Name)
	}
	return h.Template.ExecuteTemplate(w, h.Name, h.Data)
}

func (h *HTMLInstance) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{htmlContentType}
	}
}
