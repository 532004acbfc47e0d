package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nas/track-learning/internal/item"
)

var (
	typeEnum   = item.TypeNames()
	statusEnum = item.StatusNames()
)

var addToolDef = mcp.NewTool("item_add",
	mcp.WithDescription("Describe a learning item in plain language; it is parsed and saved. Example: \"started reading Dune by Frank Herbert, 10% in\"."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("message",
		mcp.Required(),
		mcp.Description("Free-text description of the item"),
	),
)

var createToolDef = mcp.NewTool("item_create",
	mcp.WithDescription("Save a learning item from structured fields. Missing fields get defaults: author Unknown, type Book, status In Progress, progress 0%, start date now."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("title", mcp.Required(), mcp.Description("Item title")),
	mcp.WithString("author", mcp.Description("Author or creator")),
	mcp.WithString("website", mcp.Description("Publisher or site, used as author when author is empty")),
	mcp.WithString("type", mcp.Description("Kind of material"), mcp.Enum(typeEnum...)),
	mcp.WithString("status", mcp.Description("Learning status"), mcp.Enum(statusEnum...)),
	mcp.WithString("progress", mcp.Description("Progress, conventionally NN%")),
	mcp.WithString("url", mcp.Description("Link to the material")),
	mcp.WithString("start_date", mcp.Description("Start date (RFC 3339 or YYYY-MM-DD)")),
)

var editToolDef = mcp.NewTool("item_edit",
	mcp.WithDescription("Change an item's status, progress or link by describing the change in plain language. Example: \"finished it\". Passing updates from item_parse (intent edit) applies them without parsing again."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	mcp.WithString("message", mcp.Description("What changed; required unless updates is given")),
	mcp.WithObject("updates",
		mcp.Description("Parsed updates: status, progress, url (null removes the link)"),
	),
)

var updateToolDef = mcp.NewTool("item_update",
	mcp.WithDescription("Update an item's fields directly. Omitted fields are unchanged; the start date never changes."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
	mcp.WithString("title", mcp.Description("New title")),
	mcp.WithString("author", mcp.Description("New author")),
	mcp.WithString("type", mcp.Description("New type"), mcp.Enum(typeEnum...)),
	mcp.WithString("status", mcp.Description("New status"), mcp.Enum(statusEnum...)),
	mcp.WithString("progress", mcp.Description("New progress")),
	mcp.WithString("url", mcp.Description("New link")),
	mcp.WithBoolean("clear_url", mcp.Description("Remove the link")),
)

var archiveToolDef = mcp.NewTool("item_archive",
	mcp.WithDescription("Mark an item Archived. Archived items are hidden from item_list unless include_archived is set."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
)

var getToolDef = mcp.NewTool("item_get",
	mcp.WithDescription("Fetch one learning item by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Item id")),
)

var listToolDef = mcp.NewTool("item_list",
	mcp.WithDescription("List learning items in the order they were added."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithBoolean("include_archived", mcp.Description("Include archived items (default: false)")),
	mcp.WithNumber("limit", mcp.Description("Maximum items to return (default: all, max: 500)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip (default: 0)")),
)

var searchToolDef = mcp.NewTool("item_search",
	mcp.WithDescription("Search items with a plain-language query, e.g. \"unfinished books\". Returns the criteria the query was read as and the matching items."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
)

var filterToolDef = mcp.NewTool("item_filter",
	mcp.WithDescription("Filter items with structured criteria. type, excludeType, status and excludeStatus take one value or a list; progressMin and progressMax are inclusive percentages."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithObject("criteria",
		mcp.Required(),
		mcp.Description("Criteria object: searchText, type, excludeType, status, excludeStatus, progressMin, progressMax"),
	),
)

var parseToolDef = mcp.NewTool("item_parse",
	mcp.WithDescription("Parse plain language into a structured record without saving anything. intent add returns an item, edit returns updates for the item with the given id, search returns criteria."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("message", mcp.Required(), mcp.Description("Text to parse")),
	mcp.WithString("intent", mcp.Description("What to parse (default: add)"), mcp.Enum("add", "edit", "search")),
	mcp.WithString("id", mcp.Description("Item id, required for intent edit")),
)

var exportToolDef = mcp.NewTool("item_export",
	mcp.WithDescription("Export every item to a JSONL or YAML file. The format follows the path extension."),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("path", mcp.Description("Output file (default: exports directory, timestamped)")),
	mcp.WithString("format", mcp.Description("Format for the default path"), mcp.Enum("jsonl", "yaml")),
)

var importToolDef = mcp.NewTool("item_import",
	mcp.WithDescription("Import items from a JSONL or YAML export. mode error imports nothing on an id collision; mode replace overwrites."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("path", mcp.Required(), mcp.Description("File to import")),
	mcp.WithString("mode", mcp.Description("Collision handling (default: error)"), mcp.Enum("error", "replace")),
)
