package main

import (
	"fmt"
	"uxreview/internal/models"

	"github.com/spf13/cobra"
)

func newIssueCmd(opts *rootOptions) *cobra.Command {
	issue := &cobra.Command{Use: "issue", Short: "Triage issues of a stored session"}

	issue.AddCommand(&cobra.Command{
		Use:   "status <session-id> <issue-id> <open|planned|fixed|dismissed>",
		Short: "Set the triage status of an issue",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := models.IssueStatus(args[2])
			if !status.Valid() {
				return fmt.Errorf("invalid status %q", args[2])
			}
			app, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.close() }()

			sessions := app.services.Sessions
			if err := sessions.SelectSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := sessions.UpdateIssueStatus(cmd.Context(), args[1], status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Issue %s is now %s\n", args[1], status)
			return nil
		},
	})

	issue.AddCommand(&cobra.Command{
		Use:   "recheck <session-id> <issue-id>",
		Short: "Ask the model whether an issue is still present",
		Args:  cobra.ExactArgs(2),
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
			status, err := sessions.RecheckIssue(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Issue %s looks %s\n", args[1], status)
			return nil
		},
	})
	return issue
}
