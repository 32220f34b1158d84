package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"inventory_admin/internal/models"
	"inventory_admin/internal/resources"
)

// maxCellWidth truncates long values in table output.
const maxCellWidth = 40

// render writes value as json or yaml, or calls table for the human-readable form.
func render(w io.Writer, format string, value any, table func(w io.Writer) error) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(value)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(value)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		if err := table(tw); err != nil {
			return err
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// recordTable prints rows with the resource's identifier first and the remaining keys sorted.
func recordTable(w io.Writer, resource resources.Resource, rows []models.Record) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}

	seen := map[string]bool{"id": true, "_id": true}
	var columns []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)

	fmt.Fprintln(w, strings.ToUpper(strings.Join(append([]string{"id"}, columns...), "\t")))
	for _, row := range rows {
		id, _ := resource.ID(row)
		cells := []string{truncate(id)}
		for _, column := range columns {
			cells = append(cells, truncate(formatCell(row[column])))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return nil
}

// pager renders the page window with the current page in brackets.
func pager(meta *models.PaginationMeta) string {
	links := make([]string, 0, len(meta.Pages))
	for _, page := range meta.Pages {
		if page == meta.CurrentPage {
			links = append(links, fmt.Sprintf("[%d]", page))
			continue
		}
		links = append(links, strconv.Itoa(page))
	}
	return strings.Join(links, " ")
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		data, _ := json.Marshal(v)
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxCellWidth {
		return s
	}
	return string(runes[:maxCellWidth-3]) + "..."
}
