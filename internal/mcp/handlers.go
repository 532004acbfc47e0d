package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nas/track-learning/internal/config"
	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/ops"
	"github.com/nas/track-learning/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store      store.Store
	parser     ops.Parser
	cfg        *config.Config
	exportsDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st store.Store, parser ops.Parser, cfg *config.Config, exportsDir string) *Handlers {
	return &Handlers{store: st, parser: parser, cfg: cfg, exportsDir: exportsDir}
}

// Request types for each tool

// MessageRequest carries free text for item_add.
type MessageRequest struct {
	Message string `json:"message"`
}

// CreateRequest represents the arguments for item_create.
type CreateRequest struct {
	Title     *string      `json:"title,omitempty"`
	Author    *string      `json:"author,omitempty"`
	Website   *string      `json:"website,omitempty"`
	Type      *item.Type   `json:"type,omitempty"`
	Status    *item.Status `json:"status,omitempty"`
	Progress  *string      `json:"progress,omitempty"`
	URL       *string      `json:"url,omitempty"`
	StartDate *string      `json:"start_date,omitempty"`
}

// EditRequest represents the arguments for item_edit.
type EditRequest struct {
	ID      string           `json:"id"`
	Message string           `json:"message"`
	Updates *item.EditUpdate `json:"updates,omitempty"`
}

// UpdateRequest represents the arguments for item_update.
type UpdateRequest struct {
	ID       string       `json:"id"`
	Title    *string      `json:"title,omitempty"`
	Author   *string      `json:"author,omitempty"`
	Type     *item.Type   `json:"type,omitempty"`
	Status   *item.Status `json:"status,omitempty"`
	Progress *string      `json:"progress,omitempty"`
	URL      *string      `json:"url,omitempty"`
	ClearURL bool         `json:"clear_url,omitempty"`
}

// IDRequest identifies one item.
type IDRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for item_list.
type ListRequest struct {
	IncludeArchived bool `json:"include_archived,omitempty"`
	Limit           int  `json:"limit,omitempty"`
	Offset          int  `json:"offset,omitempty"`
}

// SearchRequest represents the arguments for item_search.
type SearchRequest struct {
	Query string `json:"query"`
}

// FilterRequest represents the arguments for item_filter.
type FilterRequest struct {
	Criteria item.Criteria `json:"criteria"`
}

// ParseRequest represents the arguments for item_parse.
type ParseRequest struct {
	Message string `json:"message"`
	Intent  string `json:"intent,omitempty"`
	ID      string `json:"id,omitempty"`
}

// ExportRequest represents the arguments for item_export.
type ExportRequest struct {
	Path   string `json:"path,omitempty"`
	Format string `json:"format,omitempty"`
}

// ImportRequest represents the arguments for item_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleAdd handles the item_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MessageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ChatAdd(ctx, h.store, h.parser, input.Message)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCreate handles the item_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Create(ctx, h.store, item.Draft{
		Title:     input.Title,
		Author:    input.Author,
		Website:   input.Website,
		Type:      input.Type,
		Status:    input.Status,
		Progress:  input.Progress,
		URL:       input.URL,
		StartDate: input.StartDate,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleEdit handles the item_edit tool call. Structured updates are applied
// directly; otherwise the message goes through the edit parser.
func (h *Handlers) HandleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[EditRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Updates != nil {
		saved, err := ops.Edit(ctx, h.store, ops.EditInput{ID: input.ID, Update: *input.Updates})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(ops.ChatEditOutput{Updates: *input.Updates, Item: saved})
	}

	result, err := ops.ChatEdit(ctx, h.store, h.parser, ops.ChatEditInput{
		ID:      input.ID,
		Message: input.Message,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUpdate handles the item_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Update(ctx, h.store, ops.UpdateInput{
		ID:       input.ID,
		Title:    input.Title,
		Author:   input.Author,
		Type:     input.Type,
		Status:   input.Status,
		Progress: input.Progress,
		URL:      input.URL,
		ClearURL: input.ClearURL,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleArchive handles the item_archive tool call.
func (h *Handlers) HandleArchive(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Archive(ctx, h.store, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleGet handles the item_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Get(ctx, h.store, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the item_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.store, ops.ListInput{
		IncludeArchived: input.IncludeArchived,
		Limit:           input.Limit,
		Offset:          input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the item_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ChatSearch(ctx, h.store, h.parser, input.Query)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFilter handles the item_filter tool call.
func (h *Handlers) HandleFilter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FilterRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Filter(ctx, h.store, input.Criteria)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleParse handles the item_parse tool call. Nothing is stored.
func (h *Handlers) HandleParse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ParseRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if strings.TrimSpace(input.Message) == "" {
		return errorResult(errors.NewInvalidRequest("Message is required")), nil
	}

	switch input.Intent {
	case "", "add":
		parsed, err := h.parser.ParseAdd(ctx, input.Message)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]any{"item": parsed})

	case "edit":
		current, err := ops.Get(ctx, h.store, input.ID)
		if err != nil {
			return errorResult(err), nil
		}
		updates, err := h.parser.ParseEdit(ctx, input.Message, current.Context())
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]any{"updates": updates})

	case "search":
		criteria, err := h.parser.ParseSearch(ctx, input.Message)
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(map[string]any{"criteria": criteria})

	default:
		return errorResult(errors.NewInvalidRequest("intent must be one of: add, edit, search")), nil
	}
}

// HandleExport handles the item_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.store, h.cfg, h.exportsDir, ops.ExportInput{
		Path:   input.Path,
		Format: ops.Format(input.Format),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the item_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.store, h.cfg, h.exportsDir, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal errors keep their code but not their message or details.
func errorResult(err error) *mcp.CallToolResult {
	var errorObj map[string]any

	if tErr := errors.As(err); tErr != nil && tErr.Code != errors.ErrInternal {
		message := tErr.Message
		// Keep context added by wrapping, e.g. "line 3: ..."
		if prefix := strings.TrimSuffix(err.Error(), tErr.Error()); prefix != err.Error() {
			message = prefix + message
		}
		errorObj = map[string]any{
			"code":    tErr.Code,
			"message": message,
			"status":  tErr.Status,
		}
		if tErr.Details != nil {
			errorObj["details"] = tErr.Details
		}
	} else {
		errorObj = map[string]any{
			"code":    errors.ErrInternal,
			"message": "an internal error occurred",
			"status":  500,
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
