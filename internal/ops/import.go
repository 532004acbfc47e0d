package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/nas/track-learning/internal/config"
	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/store"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any id collision, importing nothing
	ImportModeReplace ImportMode = "replace" // overwrite on collision
)

// maxImportLine bounds a single JSONL record.
const maxImportLine = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Replaced int           `json:"replaced"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line,omitempty"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type importRecord struct {
	line int
	item item.Item
}

// Import reads a JSONL or YAML export and stores its items.
func Import(ctx context.Context, st store.Store, cfg *config.Config, exportsDir string, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace")
	}

	if err := ValidatePath(input.Path, PathCheckRead, cfg, exportsDir); err != nil {
		return nil, err
	}
	format, err := FormatForPath(input.Path)
	if err != nil {
		return nil, err
	}

	file, err := store.OpenNoFollow(input.Path)
	if err != nil {
		if errors.As(err) != nil {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	var records []importRecord
	var parseErrors []ImportError
	if format == FormatYAML {
		records, parseErrors = parseYAMLExport(file)
	} else {
		records, parseErrors = parseJSONLExport(file)
	}

	existing, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, it := range existing {
		known[it.ID] = true
	}

	if input.Mode == ImportModeError {
		return importModeError(ctx, st, records, parseErrors, known)
	}
	return importModeReplace(ctx, st, records, parseErrors, known)
}

// importModeError checks every record before writing any, so a collision or
// parse error imports nothing.
func importModeError(ctx context.Context, st store.Store, records []importRecord, parseErrors []ImportError, known map[string]bool) (*ImportOutput, error) {
	if len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	var importErrors []ImportError
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if known[r.item.ID] || seen[r.item.ID] {
			importErrors = append(importErrors, ImportError{
				Line:    r.line,
				ID:      r.item.ID,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("Item with id %s already exists", r.item.ID),
			})
		}
		seen[r.item.ID] = true
	}
	if len(importErrors) > 0 {
		return &ImportOutput{Errors: importErrors}, nil
	}

	out := &ImportOutput{Errors: []ImportError{}}
	for i := range records {
		if err := st.Insert(ctx, &records[i].item); err != nil {
			return nil, err
		}
		out.Imported++
	}
	return out, nil
}

// importModeReplace writes every valid record, updating items whose id exists.
func importModeReplace(ctx context.Context, st store.Store, records []importRecord, parseErrors []ImportError, known map[string]bool) (*ImportOutput, error) {
	out := &ImportOutput{
		Skipped: len(parseErrors),
		Errors:  append([]ImportError{}, parseErrors...),
	}

	for i := range records {
		it := &records[i].item
		if known[it.ID] {
			if err := st.Update(ctx, it); err != nil {
				return nil, err
			}
			out.Replaced++
			continue
		}
		if err := st.Insert(ctx, it); err != nil {
			return nil, err
		}
		known[it.ID] = true
		out.Imported++
	}
	return out, nil
}

// jsonlRecord decodes either the header line or an item line.
type jsonlRecord struct {
	TrackerExport bool `json:"_tracker_export"`
	item.Item
}

func parseJSONLExport(r io.Reader) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if rec.TrackerExport {
			continue
		}

		if ie := checkRecord(lineNum, rec.Item); ie != nil {
			parseErrors = append(parseErrors, *ie)
			continue
		}
		records = append(records, importRecord{line: lineNum, item: rec.Item})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}

func parseYAMLExport(r io.Reader) ([]importRecord, []ImportError) {
	var doc yamlExport
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, []ImportError{{
			Code:    "PARSE_ERROR",
			Message: fmt.Sprintf("invalid YAML: %v", err),
		}}
	}

	var records []importRecord
	var parseErrors []ImportError
	for i, it := range doc.Items {
		// Items are numbered from 1, like lines
		if ie := checkRecord(i+1, it); ie != nil {
			parseErrors = append(parseErrors, *ie)
			continue
		}
		records = append(records, importRecord{line: i + 1, item: it})
	}
	return records, parseErrors
}

func checkRecord(line int, it item.Item) *ImportError {
	if err := item.Validate(it); err != nil {
		msg := err.Error()
		if tErr := errors.As(err); tErr != nil {
			msg = tErr.Message
		}
		return &ImportError{
			Line:    line,
			ID:      it.ID,
			Code:    "INVALID_RECORD",
			Message: msg,
		}
	}
	return nil
}
