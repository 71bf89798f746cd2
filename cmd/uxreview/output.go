package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"uxreview/internal/models"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printSession(w io.Writer, session models.Session, asJSON bool) error {
	if asJSON {
		return printJSON(w, session)
	}

	fmt.Fprintf(w, "Session %s (%s, health %s)\n", session.ID, session.State, session.OverallHealth)
	for _, screen := range session.Screens {
		fmt.Fprintf(w, "  screen %d  %s  %s\n", screen.Order+1, screen.ID, screen.Name)
	}
	if len(session.ScreensExcluded) > 0 {
		fmt.Fprintf(w, "  skipped: %s\n", strings.Join(session.ScreensExcluded, ", "))
	}
	if len(session.Issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}

	fmt.Fprintf(w, "%d issue(s):\n", len(session.Issues))
	for _, issue := range session.Issues {
		screen := ""
		if s, ok := session.ScreenForIssue(issue); ok {
			screen = s.Name
		}
		fmt.Fprintf(w, "\n[%s] %s  (%s, %s)\n", issue.Severity, issue.Title, issue.Status, issue.ID)
		if screen != "" {
			fmt.Fprintf(w, "  screen:         %s\n", screen)
		}
		fmt.Fprintf(w, "  evidence:       %s\n", issue.Evidence)
		fmt.Fprintf(w, "  impact:         %s\n", issue.Impact)
		fmt.Fprintf(w, "  recommendation: %s\n", issue.Recommendation)
		if issue.EdgeCases != "" {
			fmt.Fprintf(w, "  edge cases:     %s\n", issue.EdgeCases)
		}
	}
	return nil
}

func printSessionList(w io.Writer, sessions []models.Session, asJSON bool) error {
	if asJSON {
		return printJSON(w, sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATE\tHEALTH\tSCREENS\tISSUES")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.State, s.OverallHealth, len(s.Screens), len(s.Issues))
	}
	return tw.Flush()
}
