package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nas/track-learning/internal/config"
	"github.com/nas/track-learning/internal/errors"
	"github.com/nas/track-learning/internal/item"
	"github.com/nas/track-learning/internal/store"
)

// Format is an export file encoding.
type Format string

const (
	FormatJSONL Format = "jsonl" // header line, then one item per line
	FormatYAML  Format = "yaml"  // one document with a header and an items list
)

// ExportSchemaVersion is written into every export header.
const ExportSchemaVersion = "1.0"

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		return FormatJSONL, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.NewInvalidRequest("path must have .jsonl, .yaml or .yml extension")
	}
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path   string // optional, default: <exportsDir>/learning-items-<timestamp>.<format>
	Format Format // only used to name the default path; default: jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Format     Format `json:"format"`
	Count      int    `json:"count"`
	ExportedAt string `json:"exported_at"`
}

// ExportHeader is the first line of a JSONL export and the top of a YAML export.
type ExportHeader struct {
	TrackerExport bool   `json:"_tracker_export" yaml:"tracker_export"`
	SchemaVersion string `json:"schema_version" yaml:"schema_version"`
	ExportedAt    string `json:"exported_at" yaml:"exported_at"`
	Count         int    `json:"count" yaml:"count"`
}

type yamlExport struct {
	ExportHeader `yaml:",inline"`
	Items        []item.Item `yaml:"items"`
}

// Export writes the whole collection to a file, atomically.
func Export(ctx context.Context, st store.Store, cfg *config.Config, exportsDir string, input ExportInput) (*ExportOutput, error) {
	now := clock()
	exportedAt := item.FormatTime(now)

	exportPath := input.Path
	if exportPath == "" {
		format := input.Format
		if format == "" {
			format = FormatJSONL
		}
		if format != FormatJSONL && format != FormatYAML {
			return nil, errors.NewInvalidRequest("format must be one of: jsonl, yaml")
		}
		exportPath = filepath.Join(exportsDir, fmt.Sprintf("learning-items-%s.%s", now.UTC().Format("2006-01-02T150405"), format))
	}

	// Default paths are validated too
	if err := ValidatePath(exportPath, PathCheckWrite, cfg, exportsDir); err != nil {
		return nil, err
	}
	format, err := FormatForPath(exportPath)
	if err != nil {
		return nil, err
	}

	items, err := st.List(ctx)
	if err != nil {
		return nil, err
	}

	header := ExportHeader{
		TrackerExport: true,
		SchemaVersion: ExportSchemaVersion,
		ExportedAt:    exportedAt,
		Count:         len(items),
	}

	err = store.WriteFileAtomic(exportPath, func(w io.Writer) error {
		if format == FormatYAML {
			return writeYAML(w, header, items)
		}
		return writeJSONL(ctx, w, header, items)
	})
	if err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       exportPath,
		Format:     format,
		Count:      len(items),
		ExportedAt: exportedAt,
	}, nil
}

func writeJSONL(ctx context.Context, w io.Writer, header ExportHeader, items []item.Item) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header); err != nil {
		return err
	}
	for i := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(items[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeYAML(w io.Writer, header ExportHeader, items []item.Item) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlExport{ExportHeader: header, Items: items}); err != nil {
		return err
	}
	return enc.Close()
}
