package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"inventory_admin/internal/models"
)

// ErrUnsupportedFormat is returned by Export for formats other than csv, json and yaml.
var ErrUnsupportedFormat = errors.New("app: unsupported export format")

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Export refreshes the resource and writes its current rows to w in format.
func (app *App) Export(ctx context.Context, name, format string, w io.Writer) error {
	switch format {
	case FormatCSV, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	controller, _, err := app.controller(name, viewGate)
	if err != nil {
		return err
	}
	if !app.session.Capabilities().CanExport {
		return ErrForbidden
	}

	rows, err := controller.Refresh(ctx)
	if _, err = app.settle(ctx, controller, err); err != nil {
		return err
	}
	if rows == nil {
		rows = controller.Snapshot().Rows
	}

	return WriteRecords(w, format, rows)
}

// WriteRecords encodes rows as csv, json or yaml.
func WriteRecords(w io.Writer, format string, rows []models.Record) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, rows)
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(rows)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// writeCSV uses the sorted union of all record keys as the header row.
func writeCSV(w io.Writer, rows []models.Record) error {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}
	header := make([]string, 0, len(seen))
	for key := range seen {
		header = append(header, key)
	}
	sort.Strings(header)

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		line := make([]string, len(header))
		for i, key := range header {
			line[i] = cell(row[key])
		}
		if err := writer.Write(line); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func cell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
