package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/interntrack/tracker/internal/application"
	"github.com/interntrack/tracker/internal/application/view"
	"github.com/spf13/cobra"
)

func newListCmd(s *session) *cobra.Command {
	var status, typ, source, sortBy string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := view.ParseQuery(status, typ, source, sortBy)
			if err != nil {
				return err
			}
			items := s.tracker.View(q)
			if asJSON {
				return writeJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No applications found.")
				return nil
			}
			return writeTable(cmd, items)
		},
	}
	cmd.Flags().StringVar(&status, "status", view.All, "Filter by status")
	cmd.Flags().StringVar(&typ, "type", view.All, "Filter by application type")
	cmd.Flags().StringVar(&source, "source", view.All, "Filter by source")
	cmd.Flags().StringVar(&sortBy, "sort", string(view.Newest), "Sort by applied date: newest or oldest")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func writeTable(cmd *cobra.Command, items application.Collection) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAPPLIED\tCOMPANY\tPOSITION\tSTATUS\tTYPE\tSOURCE")
	for _, a := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, dash(a.AppliedOn), a.CompanyName, a.Position, a.Status, dash(string(a.ApplicationType)), dash(a.Source))
	}
	return tw.Flush()
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
