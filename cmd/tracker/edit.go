package main

import (
	"fmt"

	"github.com/interntrack/tracker/internal/application"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// formFlags mirrors the create/edit form.
type formFlags struct {
	company, position, appliedOn, contact, link, typ, source, status, notes string
}

func (f *formFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.company, "company", "", "Company name (required)")
	fs.StringVar(&f.position, "position", "", "Position (required)")
	fs.StringVar(&f.appliedOn, "applied-on", "", "Applied date YYYY-MM-DD (default today)")
	fs.StringVar(&f.contact, "contact", "", "Contact person")
	fs.StringVar(&f.link, "link", "", "Application link")
	fs.StringVar(&f.typ, "type", "", "Spontaneous or \"Job Posting\" (default Job Posting)")
	fs.StringVar(&f.source, "source", "", "Where the opening was found")
	fs.StringVar(&f.status, "status", "", "Status (default Draft)")
	fs.StringVar(&f.notes, "notes", "", "Free text notes")
}

// overlay copies the flags the user actually set onto in.
func (f *formFlags) overlay(fs *pflag.FlagSet, in application.Input) application.Input {
	set := func(name string, dst *string, v string) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("company", &in.CompanyName, f.company)
	set("position", &in.Position, f.position)
	set("applied-on", &in.AppliedOn, f.appliedOn)
	set("contact", &in.ContactPerson, f.contact)
	set("link", &in.ApplicationLink, f.link)
	set("source", &in.Source, f.source)
	set("notes", &in.Notes, f.notes)
	if fs.Changed("type") {
		in.ApplicationType = application.Type(f.typ)
	}
	if fs.Changed("status") {
		in.Status = application.Status(f.status)
	}
	return in
}

func newAddCmd(s *session) *cobra.Command {
	f := &formFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := s.tracker.Create(cmd.Context(), f.overlay(cmd.Flags(), application.Input{}))
			if a.ID != "" {
				fmt.Fprintln(cmd.OutOrStdout(), a.ID)
			}
			return err
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func newEditCmd(s *session) *cobra.Command {
	f := &formFlags{}
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an application; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := s.tracker.Find(args[0])
			if err != nil {
				return err
			}
			a, err := s.tracker.Update(cmd.Context(), cur.ID, f.overlay(cmd.Flags(), cur.Input()))
			if a.ID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s updated %s\n", a.ID, a.UpdatedAt)
			}
			return err
		},
	}
	f.register(cmd.Flags())
	return cmd
}
