package main

import (
	"github.com/spf13/cobra"
)

func newShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.tracker.Find(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, a)
		},
	}
}

func newOptionsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the filter choices present in the collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd, s.tracker.Options())
		},
	}
}
