package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/classwatch/internal/history"
	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		teacher, _ := cmd.Flags().GetString("teacher")
		asJSON, _ := cmd.Flags().GetBool("json")
		if limit < 1 {
			return fmt.Errorf("--limit must be positive")
		}

		rt, err := openRuntime(cmd.Context(), cmd, runtimeOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		var reports []*report.Report
		if teacher != "" {
			reports, err = rt.history.ByTeacher(cmd.Context(), history.TeacherID(teacher), limit)
		} else {
			reports, err = rt.history.Recent(cmd.Context(), limit)
		}
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(reports)
		}
		if len(reports) == 0 {
			fmt.Fprintln(out, "No sessions recorded yet.")
			return nil
		}
		printSessions(out, reports)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print the full report of one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd.Context(), cmd, runtimeOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		r, err := findReport(cmd.Context(), rt, args[0])
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), r)
		return nil
	},
}

// findReport looks id up in SQLite, then in the configured history
// backend when that is not SQLite.
func findReport(ctx context.Context, rt *runtime, id string) (*report.Report, error) {
	r, err := rt.store.SessionRepo().Get(ctx, id)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, store.ErrSessionNotFound) {
		return nil, fmt.Errorf("get session: %w", err)
	}
	recent, err := rt.history.Recent(ctx, history.DefaultKeep)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	for _, r := range recent {
		if r.SessionID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("session %s not found", id)
}

var rankingsCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Rank teachers by average grade",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		rt, err := openRuntime(cmd.Context(), cmd, runtimeOptions{})
		if err != nil {
			return err
		}
		defer rt.Close()

		reports, err := rt.history.Recent(cmd.Context(), history.DefaultKeep)
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		rankings := history.Rankings(history.BuildTeacherStats(reports))

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(rankings)
		}
		if len(rankings) == 0 {
			fmt.Fprintln(out, "No sessions recorded yet.")
			return nil
		}
		printRankings(out, rankings)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
	historyCmd.Flags().String("teacher", "", "Only sessions by this teacher")
	historyCmd.Flags().Bool("json", false, "Print reports as JSON")
	historyCmd.AddCommand(historyShowCmd)

	rankingsCmd.Flags().Bool("json", false, "Print rankings as JSON")
}
