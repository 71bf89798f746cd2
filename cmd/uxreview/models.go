package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "models", Short: "Inspect and toggle the vision model catalog"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog models grouped by provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.close() }()

			groups, err := app.services.ModelConfigs.ListModelGroups()
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), groups)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tENABLED")
			for _, group := range groups {
				for _, m := range group.Models {
					fmt.Fprintf(tw, "%s\t%s\t%t\n", m.Key, m.DisplayName, m.Enabled)
				}
			}
			return tw.Flush()
		},
	})

	for _, toggle := range []struct {
		use     string
		enabled bool
	}{{"enable", true}, {"disable", false}} {
		enabled := toggle.enabled
		cmd.AddCommand(&cobra.Command{
			Use:   toggle.use + " <model-key>",
			Short: fmt.Sprintf("Mark a model as %sd", toggle.use),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := opts.open(cmd.Context(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer func() { _ = app.close() }()

				m, err := app.services.ModelConfigs.SetModelEnabled(cmd.Context(), args[0], enabled)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s enabled=%t\n", m.Key, m.Enabled)
				return nil
			},
		})
	}
	return cmd
}
