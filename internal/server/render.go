package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/smallbiznis/idadmin/internal/authorization"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutTemplate = "layout.html"
	timeLayout     = "2006-01-02 15:04 MST"
)

// view is the data every page template receives. Data carries the
// page-specific model.
type view struct {
	Title     string
	Principal *authorization.Principal
	Flashes   []string
	Errors    []string
	Data      any
}

// htmlRender holds one template set per page, each cloned from the layout so
// every page can define its own "content" block.
type htmlRender struct {
	pages map[string]*template.Template
}

func newHTMLRender() (*htmlRender, error) {
	base, err := template.New(layoutTemplate).Funcs(templateFuncs()).ParseFS(templateFS, "templates/"+layoutTemplate)
	if err != nil {
		return nil, err
	}

	entries, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(path.Base(entry), ".html")
		if name+".html" == layoutTemplate {
			continue
		}
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		page, err := clone.ParseFS(templateFS, entry)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry, err)
		}
		pages[name] = page
	}
	return &htmlRender{pages: pages}, nil
}

func (r *htmlRender) Instance(name string, data any) render.Render {
	tmpl, ok := r.pages[name]
	if !ok {
		tmpl = r.pages["error"]
	}
	return render.HTML{Template: tmpl, Name: layoutTemplate, Data: data}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"tabClass":   tabClass,
		"contains":   contains,
		"formatTime": formatTime,
		"deref":      deref,
		"listEditor": newListEditor,
	}
}

func tabClass(current, tab string) string {
	if strings.EqualFold(current, tab) {
		return "active"
	}
	return ""
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

func formatTime(value any) string {
	switch t := value.(type) {
	case time.Time:
		if t.IsZero() {
			return "-"
		}
		return t.UTC().Format(timeLayout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return "-"
		}
		return t.UTC().Format(timeLayout)
	default:
		return "-"
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// listEditor describes one editable string list on the client form. Row is
// the suffix of the add-/remove- handler names.
type listEditor struct {
	Label   string
	Field   string
	Row     string
	Action  string
	Values  []string
	Options []string
}

func newListEditor(label, field, row, action string, values, options []string) listEditor {
	return listEditor{Label: label, Field: field, Row: row, Action: action, Values: values, Options: options}
}

// render fills the shared layout fields and writes the page. Flashes are
// popped here so they show exactly once.
func (s *Server) render(c *gin.Context, status int, name string, v view) {
	if v.Principal == nil {
		v.Principal = authorization.PrincipalFromContext(c.Request.Context())
	}
	if s.sessions != nil {
		v.Flashes = append(v.Flashes, s.sessions.Flashes(c)...)
	}
	c.HTML(status, name, v)
}

// redirectWithFlash stores message for the next page and redirects there.
func (s *Server) redirectWithFlash(c *gin.Context, location, message string) {
	if s.sessions != nil && message != "" {
		if err := s.sessions.AddFlash(c, message); err != nil {
			s.log.Warn("failed to store flash", zap.Error(err))
		}
	}
	c.Redirect(http.StatusFound, location)
}
