package main

import (
	"errors"
	"fmt"
	"uxreview/internal/models"

	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	history := &cobra.Command{Use: "history", Short: "Browse stored review sessions"}

	history.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.close() }()
			return printSessionList(cmd.OutOrStdout(), app.services.Sessions.State().Sessions, opts.asJSON)
		},
	})

	history.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Print one session with its issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.close() }()

			sessions := app.services.Sessions
			if err := sessions.SelectSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printSession(cmd.OutOrStdout(), *sessions.State().CurrentSession, opts.asJSON)
		},
	})

	history.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.close() }()

			sessions := app.services.Sessions
			if !storedSession(sessions.State().Sessions, args[0]) {
				return fmt.Errorf("session %s not found", args[0])
			}
			if !sessions.DeleteSession(cmd.Context(), args[0]) {
				return errors.New(sessions.State().Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
			return nil
		},
	})
	return history
}

func storedSession(sessions []models.Session, id string) bool {
	for _, s := range sessions {
		if s.ID == id {
			return true
		}
	}
	return false
}
