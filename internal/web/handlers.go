package web

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nas/track-learning/internal/config"
	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/ops"
	"github.com/nas/track-learning/internal/store"
)

// Handlers contains HTTP route handlers for the API and dashboard.
type Handlers struct {
	store    store.Store
	parser   ops.Parser
	cfg      *config.Config
	logger   *slog.Logger
	renderer *Renderer
	sessions *sessionStore
}

// HandleList handles GET /, the dashboard filtered by query parameters.
// Archived items are hidden unless archived=1 or the status filter selects them.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	criteria, err := criteriaFromQuery(q)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := ops.Filter(r.Context(), h.store, criteria)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	includeArchived := parseBoolParam(r, "archived") || criteria.Status.Contains(item.StatusArchived)
	items := out.Items
	if !includeArchived {
		items = make([]item.Item, 0, len(out.Items))
		for _, it := range out.Items {
			if !it.IsArchived() {
				items = append(items, it)
			}
		}
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "Learning",
			Version: h.renderer.version,
		},
		Items:           items,
		Count:           len(items),
		Query:           q.Get("q"),
		Types:           q["type"],
		ExcludeTypes:    q["exclude_type"],
		Statuses:        q["status"],
		ExcludeStatuses: q["exclude_status"],
		Min:             q.Get("min"),
		Max:             q.Get("max"),
		IncludeArchived: includeArchived,
		TypeOptions:     item.TypeNames(),
		StatusOptions:   item.StatusNames(),
	})
}

// HandleDetail handles GET /items/{id}.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	it, err := ops.Get(r.Context(), h.store, chi.URLParam(r, "id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   it.Title,
			Version: h.renderer.version,
		},
		Item:     it,
		CardHTML: renderMarkdown(it.Markdown()),
	})
}

// criteriaFromQuery builds search criteria from dashboard query parameters.
// Repeated enum parameters form a multi-value selection; the result gets the
// same cleaning as parser output.
func criteriaFromQuery(q url.Values) (item.Criteria, error) {
	raw := make(map[string]any)

	if s := strings.TrimSpace(q.Get("q")); s != "" {
		raw["searchText"] = s
	}
	for param, key := range map[string]string{
		"type":           "type",
		"exclude_type":   "excludeType",
		"status":         "status",
		"exclude_status": "excludeStatus",
	} {
		if v := nonEmpty(q[param]); len(v) == 1 {
			raw[key] = v[0]
		} else if len(v) > 1 {
			list := make([]any, len(v))
			for i, s := range v {
				list[i] = s
			}
			raw[key] = list
		}
	}
	if s := strings.TrimSpace(q.Get("min")); s != "" {
		raw["progressMin"] = s
	}
	if s := strings.TrimSpace(q.Get("max")); s != "" {
		raw["progressMax"] = s
	}

	return item.ParseCriteria(raw)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
