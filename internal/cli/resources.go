package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"inventory_admin/internal/app"
	"inventory_admin/internal/resources"
)

// errAborted is returned when the operator declines a confirmation prompt.
var errAborted = errors.New("aborted")

func newResourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List resources and what the signed-in operator may do with them",
		RunE: func(cmd *cobra.Command, args []string) error {
			access := admin.Resources()
			return render(cmd.OutOrStdout(), flagOutput, access, func(w io.Writer) error {
				fmt.Fprintln(w, "NAME\tPATH\tVIEW\tEDIT\tDELETE")
				for _, a := range access {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Name, a.Path, yesNo(a.CanView), yesNo(a.CanMutate), yesNo(a.CanDelete))
				}
				return nil
			})
		},
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count the records of every resource you may view",
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := admin.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), flagOutput, summaries, func(w io.Writer) error {
				fmt.Fprintln(w, "RESOURCE\tROWS\tTOTAL\tERROR")
				for _, s := range summaries {
					fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", s.Resource, s.Rows, s.Total, s.Error)
				}
				return nil
			})
		},
	}
}

func newListCmd() *cobra.Command {
	var page int
	var query string

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "List or search a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var view app.View
			var err error
			if cmd.Flags().Changed("query") {
				view, err = admin.Search(cmd.Context(), args[0], query)
			} else {
				view, err = admin.List(cmd.Context(), args[0], page)
			}
			if err != nil {
				return err
			}
			resource, err := resources.Lookup(args[0])
			if err != nil {
				return err
			}
			return renderView(cmd.OutOrStdout(), resource, view)
		},
	}

	cmd.Flags().IntVar(&page, "page", 0, "Page to fetch (paged resources)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Free-text search; blank lists everything")
	return cmd
}

func newCreateCmd() *cobra.Command {
	var file string
	var sets []string

	cmd := &cobra.Command{
		Use:   "create <resource>",
		Short: "Create a record from a YAML/JSON file and --set pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(file, sets)
			if err != nil {
				return err
			}
			view, err := admin.Create(cmd.Context(), args[0], payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Success)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON payload file")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment key=value (repeatable)")
	return cmd
}

func newUpdateCmd() *cobra.Command {
	var file string
	var sets []string

	cmd := &cobra.Command{
		Use:   "update <resource> <id>",
		Short: "Update a record from a YAML/JSON file and --set pairs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(file, sets)
			if err != nil {
				return err
			}
			view, err := admin.Update(cmd.Context(), args[0], args[1], payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Success)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON payload file")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment key=value (repeatable)")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <resource> <id>",
		Short: "Delete a record after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				answer, err := prompt(cmd, fmt.Sprintf("Delete %s/%s? [y/N]: ", args[0], args[1]))
				if err != nil {
					return err
				}
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					return errAborted
				}
			}

			view, err := admin.Remove(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.Success)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newExportCmd() *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Export a resource as csv, json or yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return admin.Export(cmd.Context(), args[0], format, w)
		},
	}

	cmd.Flags().StringVar(&format, "format", app.FormatCSV, "csv, json or yaml")
	cmd.Flags().StringVar(&out, "out", "", "Write to a file instead of stdout")
	return cmd
}

// renderView prints the rows of a view-state followed by its pager line.
func renderView(w io.Writer, resource resources.Resource, view app.View) error {
	if flagOutput != "table" && flagOutput != "" {
		return render(w, flagOutput, view, nil)
	}
	if err := render(w, flagOutput, view, func(tw io.Writer) error { return recordTable(tw, resource, view.Rows) }); err != nil {
		return err
	}
	if p := view.Pagination; p != nil {
		fmt.Fprintf(w, "\nPage %d of %d (%d total)  %s\n", p.CurrentPage, p.TotalPages, p.TotalCount, pager(p))
	}
	return nil
}

// readPayload merges a YAML/JSON file with key=value assignments; assignments win.
// Values are parsed as YAML scalars, so numbers and booleans keep their type.
func readPayload(file string, sets []string) (map[string]any, error) {
	payload := map[string]any{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
	}

	for _, set := range sets {
		key, raw, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", set)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		payload[key] = value
	}
	return payload, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
