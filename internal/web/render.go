package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// LoginPageData is the template data for the login page.
type LoginPageData struct {
	PageData
	Error string
}

// ListPageData is the template data for the dashboard list.
type ListPageData struct {
	PageData
	Items           []item.Item
	Count           int
	Query           string
	Types           []string
	ExcludeTypes    []string
	Statuses        []string
	ExcludeStatuses []string
	Min             string
	Max             string
	IncludeArchived bool
	TypeOptions     []string
	StatusOptions   []string
}

// DetailPageData is the template data for the item detail page.
type DetailPageData struct {
	PageData
	Item     *item.Item
	CardHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string) *Renderer {
	funcMap := template.FuncMap{
		"since":    since,
		"date":     date,
		"percent":  percent,
		"deref":    deref,
		"contains": contains,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"list":   "list.html",
		"detail": "detail.html",
		"login":  "login.html",
		"error":  "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
	}
}

// renderPage renders a named page template with HTTP 200.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		slog.Error("template not found", slog.String("name", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("template execution error", slog.String("name", name), slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error page, or JSON when the client asks for it.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderAPIError(w, err)
		return
	}

	status, message := publicError(err)
	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// renderAPIError writes {"error": message, "code": code} with the error's status.
func renderAPIError(w http.ResponseWriter, err error) {
	status, message := publicError(err)
	body := map[string]any{"error": message}
	if tErr := errors.As(err); tErr != nil && tErr.Code != errors.ErrInternal {
		body["code"] = string(tErr.Code)
		if len(tErr.Details) > 0 {
			body["details"] = tErr.Details
		}
	}
	renderJSON(w, status, body)
}

// publicError maps err to a status and a client-safe message.
// Internal and unclassified errors never expose their cause.
func publicError(err error) (int, string) {
	tErr := errors.As(err)
	if tErr == nil || tErr.Code == errors.ErrInternal {
		slog.Error("internal error", slog.Any("error", err))
		return http.StatusInternalServerError, "Internal server error"
	}
	return tErr.Status, tErr.Message
}

// cardPolicy allows the markup goldmark produces for an item card.
var cardPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}()

// renderMarkdown converts Markdown to sanitized HTML.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(cardPolicy.SanitizeBytes(buf.Bytes()))
}

// since renders an RFC 3339 timestamp relative to now ("3 days ago").
func since(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}

// date renders an RFC 3339 timestamp as a calendar date.
func date(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.UTC().Format("Jan 2, 2006")
}

// percent clamps a progress string's leading integer to 0..100 for the progress bar.
func percent(progress string) int {
	return min(max(item.ProgressValue(progress), 0), 100)
}

// deref returns *s, or "" for nil.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func contains(list []string, v string) bool {
	return slices.Contains(list, v)
}
