package web

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/ops"
)

// maxBodyBytes bounds API request bodies.
const maxBodyBytes = 1 << 20

// HandleAPIList handles GET /api/learning-items. Archived items are included.
func (h *Handlers) HandleAPIList(w http.ResponseWriter, r *http.Request) {
	out, err := ops.List(r.Context(), h.store, ops.ListInput{IncludeArchived: true})
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out.Items)
}

// HandleAPIAdd handles POST /api/learning-items with an item-creation record.
func (h *Handlers) HandleAPIAdd(w http.ResponseWriter, r *http.Request) {
	var in item.AddInput
	if err := decodeBody(r, &in); err != nil {
		renderAPIError(w, err)
		return
	}

	it, err := ops.Add(r.Context(), h.store, in)
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, it)
}

// patchRequest is the body of PATCH /api/learning-items.
type patchRequest struct {
	ID      string                     `json:"id"`
	Updates map[string]json.RawMessage `json:"updates"`
}

// HandleAPIUpdate handles PATCH /api/learning-items with {id, updates}.
// Keys other than title, author, type, status, progress and url are ignored;
// a null or empty url removes the link.
func (h *Handlers) HandleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeBody(r, &req); err != nil {
		renderAPIError(w, err)
		return
	}

	input, err := updateInputFromPatch(req)
	if err != nil {
		renderAPIError(w, err)
		return
	}

	it, err := ops.Update(r.Context(), h.store, input)
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, it)
}

func updateInputFromPatch(req patchRequest) (ops.UpdateInput, error) {
	input := ops.UpdateInput{ID: req.ID}

	str := func(key string) (*string, error) {
		v, ok := req.Updates[key]
		if !ok {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, errors.NewValidation(key, key+" must be a string")
		}
		return &s, nil
	}

	var err error
	if input.Title, err = str("title"); err != nil {
		return input, err
	}
	if input.Author, err = str("author"); err != nil {
		return input, err
	}
	if input.Progress, err = str("progress"); err != nil {
		return input, err
	}

	typ, err := str("type")
	if err != nil {
		return input, err
	}
	if typ != nil {
		t := item.Type(*typ)
		input.Type = &t
	}

	status, err := str("status")
	if err != nil {
		return input, err
	}
	if status != nil {
		s := item.Status(*status)
		input.Status = &s
	}

	if v, ok := req.Updates["url"]; ok {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			input.ClearURL = true
		} else if input.URL, err = str("url"); err != nil {
			return input, err
		} else if strings.TrimSpace(*input.URL) == "" {
			input.URL = nil
			input.ClearURL = true
		}
	}

	return input, nil
}

// HandleAPIArchive handles POST /api/learning-items/{id}/archive.
func (h *Handlers) HandleAPIArchive(w http.ResponseWriter, r *http.Request) {
	it, err := ops.Archive(r.Context(), h.store, chi.URLParam(r, "id"))
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, it)
}

type searchRequest struct {
	Criteria item.Criteria `json:"criteria"`
}

// HandleAPISearch handles POST /api/learning-items/search with structured criteria.
func (h *Handlers) HandleAPISearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		renderAPIError(w, err)
		return
	}

	out, err := ops.Filter(r.Context(), h.store, req.Criteria)
	if err != nil {
		renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"items": out.Items})
}

// HandleParse handles POST /api/learning-items/parse. Nothing is stored.
func (h *Handlers) HandleParse(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeObject(w, r)
	if !ok {
		return
	}
	message, ok := stringField(body, "message")
	if !ok {
		renderJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
		return
	}

	parsed, err := h.parser.ParseAdd(r.Context(), message)
	if err != nil {
		h.parseFailed(w, r, err, "Failed to parse learning item")
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"item": parsed})
}

// HandleParseEdit handles POST /api/learning-items/parse-edit.
func (h *Handlers) HandleParseEdit(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeObject(w, r)
	if !ok {
		return
	}
	message, ok := stringField(body, "message")
	if !ok {
		renderJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
		return
	}

	rawItem := bytes.TrimSpace(body["item"])
	var current item.Context
	if len(rawItem) == 0 || rawItem[0] != '{' || json.Unmarshal(rawItem, &current) != nil {
		renderJSON(w, http.StatusBadRequest, map[string]string{"error": "Item is required"})
		return
	}

	updates, err := h.parser.ParseEdit(r.Context(), message, current)
	if err != nil {
		h.parseFailed(w, r, err, "Failed to parse edit updates")
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"updates": updates})
}

// HandleParseSearch handles POST /api/learning-items/parse-search.
func (h *Handlers) HandleParseSearch(w http.ResponseWriter, r *http.Request) {
	body, ok := h.decodeObject(w, r)
	if !ok {
		return
	}
	query, ok := stringField(body, "query")
	if !ok {
		renderJSON(w, http.StatusBadRequest, map[string]string{"error": "Query is required"})
		return
	}

	criteria, err := h.parser.ParseSearch(r.Context(), query)
	if err != nil {
		h.parseFailed(w, r, err, "Failed to parse search query")
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"criteria": criteria})
}

// parseFailed logs the cause and answers with a fixed 500 message.
func (h *Handlers) parseFailed(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.logger.Error("parse request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	renderJSON(w, http.StatusInternalServerError, map[string]string{"error": message})
}

// decodeObject reads the body as a JSON object. On failure it writes a 400 and returns false.
func (h *Handlers) decodeObject(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, bool) {
	var body map[string]json.RawMessage
	if err := decodeBody(r, &body); err != nil {
		renderAPIError(w, err)
		return nil, false
	}
	return body, true
}

// stringField returns body[key] when it is a non-blank JSON string.
func stringField(body map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := body[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// decodeBody decodes a bounded JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if tErr := errors.As(err); tErr != nil {
			return tErr
		}
		return errors.NewInvalidRequest("Invalid request body")
	}
	return nil
}
