package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(s *session) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full collection to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var buf bytes.Buffer
			name, err := s.tracker.Export(cmd.Context(), &buf)
			if err != nil {
				return err
			}
			if out == "-" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if out == "" {
				out = name
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d applications to %s\n", len(s.tracker.Get()), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default internship-applications-<date>.json, - for stdout)")
	return cmd
}

func newImportCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Merge applications from an exported JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rep, err := s.tracker.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if rep.Added == 0 {
				fmt.Fprintf(w, "No new applications found (%d duplicates, %d rejected)\n", rep.Duplicates, rep.Rejected)
				return nil
			}
			fmt.Fprintf(w, "Imported %d new applications (%d duplicates, %d rejected), %d total\n",
				rep.Added, rep.Duplicates, rep.Rejected, rep.Total)
			return nil
		},
	}
}
