package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"uxreview/internal/models"
	"uxreview/internal/services"

	"github.com/spf13/cobra"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var strictness string
	var sequential, noA11y bool

	cmd := &cobra.Command{
		Use:   "analyze <image-file-or-image-url>...",
		Short: "Review screenshots (local files or image URLs) and print the issues found",
		Long:  "Review screenshots given as local files or image URLs and print the issues found.\nURL arguments must point at image bytes;\nan HTML page is rejected and its screen is skipped.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options := models.AnalysisOptions{
				Sequential:         sequential,
				Strictness:         models.Strictness(strictness),
				AccessibilityFocus: !noA11y,
			}
			if !options.Strictness.Valid() {
				return fmt.Errorf("invalid strictness %q, want light, normal or strict", strictness)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			app, err := opts.open(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.close() }()

			sessions := app.services.Sessions
			sessions.CreateNewSession(ctx)
			if err := sessions.UpdateSession(ctx, services.SessionUpdate{Options: &options}); err != nil {
				return err
			}
			for _, arg := range args {
				typ, src, err := screenSource(arg)
				if err != nil {
					return err
				}
				if _, err := sessions.AddScreen(ctx, "", typ, src); err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
			}

			if err := sessions.StartAnalysis(ctx); err != nil {
				return err
			}
			current := sessions.State().CurrentSession
			if current == nil {
				return fmt.Errorf("analysis finished without a session")
			}
			return printSession(cmd.OutOrStdout(), *current, opts.asJSON)
		},
	}
	cmd.Flags().StringVar(&strictness, "strictness", string(models.StrictnessNormal), "light, normal or strict")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "treat the screens as one ordered flow")
	cmd.Flags().BoolVar(&noA11y, "no-a11y", false, "skip the accessibility focus")
	return cmd
}

// screenSource classifies an argument as an image URL or a local screenshot.
func screenSource(arg string) (models.ScreenType, string, error) {
	arg = strings.TrimSpace(arg)
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return models.ScreenURL, arg, nil
	}
	if strings.HasPrefix(lower, "data:") {
		return models.ScreenUpload, arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", "", fmt.Errorf("screenshot %s: %w", arg, err)
	}
	return models.ScreenUpload, abs, nil
}
