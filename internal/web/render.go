package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"noticeboard/internal/notice/model"
	"noticeboard/pkg/logger"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"board", "create", "detail"}

type formValues struct {
	Title   string
	Content string
}

type pageData struct {
	Title   string
	Flash   *Flash
	CSRF    template.HTML
	LiveURL string

	Notices []model.Notice
	Notice  model.Notice
	Form    formValues
	Error   string
}

// parseTemplates builds one template set per page, each sharing the layout.
func parseTemplates(md goldmark.Markdown) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"formatDate": formatDate,
		"markdown": func(src string) template.HTML {
			var buf bytes.Buffer
			if err := md.Convert([]byte(src), &buf); err != nil {
				logger.Sugar.Warnf("Failed to render markdown: %v", err)
				return template.HTML(template.HTMLEscapeString(src))
			}
			// goldmark drops raw HTML unless html.WithUnsafe is set.
			return template.HTML(buf.String())
		},
	}

	set := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", page, err)
		}
		set[page] = t
	}
	return set, nil
}

// formatDate renders dates the way the board cards show them: "May 1, 2024".
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	t, ok := h.templates[page]
	if !ok {
		logger.Sugar.Errorf("Unknown page %q", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.CSRF = csrf.TemplateField(r)
	data.LiveURL = h.LiveURL

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Sugar.Errorf("Failed to render %s: %v", page, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
