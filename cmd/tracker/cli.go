package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/mcp"
	"github.com/nas/track-learning/internal/ops"
	"github.com/nas/track-learning/internal/web"
)

// maxStdinBytes bounds messages read from stdin.
const maxStdinBytes = 64 << 10

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "tracker",
		Usage:   "Track what you are learning, in plain language",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(env),
			createCmd(env),
			editCmd(env),
			updateCmd(env),
			archiveCmd(env),
			getCmd(env),
			listCmd(env),
			searchCmd(env),
			filterCmd(env),
			exportCmd(env),
			importCmd(env),
			serveCmd(env),
			mcpCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addCmd creates the add command.
func addCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Describe a learning item; it is parsed and saved (message from args or stdin)",
		ArgsUsage: "<message...>",
		Action: func(c *cli.Context) error {
			message, err := messageArg(c, 0)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.ChatAdd(c.Context, env.store, env.parser, message)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// createCmd creates the create command.
func createCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Save a learning item from flags; missing fields get defaults",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Item title (required)"},
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author or creator"},
			&cli.StringFlag{Name: "website", Usage: "Publisher or site, used when author is empty"},
			&cli.StringFlag{Name: "type", Usage: "Book|Course|Article"},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "In Progress|Completed|On Hold|Archived"},
			&cli.StringFlag{Name: "progress", Aliases: []string{"p"}, Usage: "Progress, e.g. 25%"},
			&cli.StringFlag{Name: "url", Usage: "Link to the material"},
			&cli.StringFlag{Name: "start-date", Usage: "Start date (RFC 3339 or YYYY-MM-DD)"},
		},
		Action: func(c *cli.Context) error {
			draft := item.Draft{
				Title:     optionalString(c, "title"),
				Author:    optionalString(c, "author"),
				Website:   optionalString(c, "website"),
				Progress:  optionalString(c, "progress"),
				URL:       optionalString(c, "url"),
				StartDate: optionalString(c, "start-date"),
			}
			if c.IsSet("type") {
				t := item.Type(c.String("type"))
				draft.Type = &t
			}
			if c.IsSet("status") {
				s := item.Status(c.String("status"))
				draft.Status = &s
			}

			output, err := ops.Create(c.Context, env.store, draft)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// editCmd creates the edit command.
func editCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Describe a change to an item, e.g. \"finished it\"",
		ArgsUsage: "<id> <message...>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id is required"))
			}
			message, err := messageArg(c, 1)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.ChatEdit(c.Context, env.store, env.parser, ops.ChatEditInput{
				ID:      c.Args().First(),
				Message: message,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update an item's fields directly",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "New author"},
			&cli.StringFlag{Name: "type", Usage: "New type"},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "New status"},
			&cli.StringFlag{Name: "progress", Aliases: []string{"p"}, Usage: "New progress"},
			&cli.StringFlag{Name: "url", Usage: "New link"},
			&cli.BoolFlag{Name: "clear-url", Usage: "Remove the link"},
		},
		Action: func(c *cli.Context) error {
			input := ops.UpdateInput{
				ID:       c.Args().First(),
				Title:    optionalString(c, "title"),
				Author:   optionalString(c, "author"),
				Progress: optionalString(c, "progress"),
				URL:      optionalString(c, "url"),
				ClearURL: c.Bool("clear-url"),
			}
			if c.IsSet("type") {
				t := item.Type(c.String("type"))
				input.Type = &t
			}
			if c.IsSet("status") {
				s := item.Status(c.String("status"))
				input.Status = &s
			}

			output, err := ops.Update(c.Context, env.store, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// archiveCmd creates the archive command.
func archiveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "archive",
		Usage:     "Mark an item Archived",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Archive(c.Context, env.store, c.Args().First())
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// getCmd creates the get command.
func getCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one item",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "markdown", Aliases: []string{"m"}, Usage: "Print a Markdown card instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Get(c.Context, env.store, c.Args().First())
			if err != nil {
				return outputError(err)
			}

			if c.Bool("markdown") {
				_, err := fmt.Fprint(os.Stdout, output.Markdown())
				return err
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List items in the order they were added",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "archived", Usage: "Include archived items"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum items (default: all)"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "table", Usage: "Print a table instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, env.store, ops.ListInput{
				IncludeArchived: c.Bool("archived"),
				Limit:           c.Int("limit"),
				Offset:          c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("table") {
				return outputTable(os.Stdout, output.Items, time.Now())
			}
			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search with a plain-language query, e.g. \"unfinished books\"",
		ArgsUsage: "<query...>",
		Action: func(c *cli.Context) error {
			query, err := messageArg(c, 0)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.ChatSearch(c.Context, env.store, env.parser, query)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// filterCmd creates the filter command.
func filterCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "filter",
		Usage: "Filter items with structured criteria (repeat enum flags for several values)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "text", Aliases: []string{"q"}, Usage: "Substring of title or author"},
			&cli.StringSliceFlag{Name: "type", Usage: "Include type"},
			&cli.StringSliceFlag{Name: "exclude-type", Usage: "Exclude type"},
			&cli.StringSliceFlag{Name: "status", Usage: "Include status"},
			&cli.StringSliceFlag{Name: "exclude-status", Usage: "Exclude status"},
			&cli.StringFlag{Name: "min", Usage: "Minimum progress (inclusive)"},
			&cli.StringFlag{Name: "max", Usage: "Maximum progress (inclusive)"},
		},
		Action: func(c *cli.Context) error {
			criteria, err := criteriaFromFlags(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Filter(c.Context, env.store, criteria)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export every item to JSONL or YAML",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output path (default: exports directory, timestamped)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "jsonl|yaml, for the default path"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, env.store, env.cfg, env.exportsDir, ops.ExportInput{
				Path:   c.String("path"),
				Format: ops.Format(c.String("format")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import items from a JSONL or YAML export",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, env.store, env.cfg, env.exportsDir, ops.ImportInput{
				Path: c.Args().First(),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Listen address (overrides config)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg := *env.cfg
			if c.IsSet("bind") {
				cfg.Bind = c.String("bind")
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := web.NewServer(web.Deps{
				Store:    env.store,
				Parser:   env.parser,
				Config:   &cfg,
				Logger:   env.logger,
				Version:  Version,
				Metrics:  env.metrics,
				Gatherer: env.registry,
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return web.Run(gctx, srv, env.logger)
			})
			if err := g.Wait(); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(env.store, env.parser, env.cfg, env.exportsDir, Version)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if tErr := errors.As(err); tErr != nil {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// outputTable prints items as an aligned table with relative update times.
func outputTable(w io.Writer, items []item.Item, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tSTATUS\tPROGRESS\tUPDATED")
	for _, it := range items {
		updated := it.LastUpdated
		if t, err := time.Parse(time.RFC3339, it.LastUpdated); err == nil {
			updated = humanize.RelTime(t, now, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", it.ID, it.Title, it.Type, it.Status, it.Progress, updated)
	}
	return tw.Flush()
}

// messageArg joins the positional args from index start into one message.
// With no such args, the message is read from piped stdin.
func messageArg(c *cli.Context, start int) (string, error) {
	args := c.Args().Slice()
	if len(args) > start {
		return strings.Join(args[start:], " "), nil
	}
	if !stdinHasData() {
		return "", nil
	}
	text, err := readStdin(maxStdinBytes)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return text, nil
}

// optionalString returns a pointer to the flag value when the flag was set.
func optionalString(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// criteriaFromFlags builds criteria from filter flags with the same cleaning
// as parser output.
func criteriaFromFlags(c *cli.Context) (item.Criteria, error) {
	raw := make(map[string]any)
	if v := strings.TrimSpace(c.String("text")); v != "" {
		raw["searchText"] = v
	}
	for flag, key := range map[string]string{
		"type":           "type",
		"exclude-type":   "excludeType",
		"status":         "status",
		"exclude-status": "excludeStatus",
	} {
		values := c.StringSlice(flag)
		if len(values) == 0 {
			continue
		}
		list := make([]any, len(values))
		for i, v := range values {
			list[i] = v
		}
		raw[key] = list
	}
	if v := strings.TrimSpace(c.String("min")); v != "" {
		raw["progressMin"] = v
	}
	if v := strings.TrimSpace(c.String("max")); v != "" {
		raw["progressMax"] = v
	}
	return item.ParseCriteria(raw)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}
