package cmd

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhisek/classwatch/internal/llm"
	"github.com/abhisek/classwatch/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect calls made by the remote topic classifier",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent classifier calls",
	Example: `  classwatch llm list --failed
  classwatch llm list --session 3f2a9c1e-... --purpose topic-batch`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		purpose, _ := cmd.Flags().GetString("purpose")
		session, _ := cmd.Flags().GetString("session")
		failed, _ := cmd.Flags().GetBool("failed")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), store.QueryOpts{
			Limit:     limit,
			SessionID: session,
			Failed:    failed,
		})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if purpose != "" {
			events = slices.DeleteFunc(events, func(e store.LLMRequestEvent) bool {
				return e.Purpose != purpose
			})
		}

		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No classifier calls recorded.")
			return nil
		}
		printLLMEvents(w, events)
		return nil
	},
}

func printLLMEvents(w io.Writer, events []store.LLMRequestEvent) {
	fmt.Fprintf(w, "%-5s  %-19s  %-15s  %-10s  %-24s  %6s  %5s  %6s  %s\n",
		"ID", "Time", "Purpose", "Session", "Model", "In", "Out", "Ms", "OK")
	fmt.Fprintln(w, strings.Repeat("─", 108))

	red := color.New(color.FgRed)
	for _, e := range events {
		session := "-"
		if e.SessionID != "" {
			session = truncate(e.SessionID, 10)
		}
		fmt.Fprintf(w, "%-5d  %-19s  %-15s  %-10s  %-24s  %6d  %5d  %6d  ",
			e.ID, e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Purpose, session,
			truncate(e.Model, 24), e.InputTokens, e.OutputTokens, e.LatencyMs)
		if e.Success {
			fmt.Fprintln(w, "✓")
		} else {
			red.Fprintln(w, "✗")
		}
	}
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the prompt and reply of one classifier call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q", args[0])
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("event %d not found", id)
		}
		printLLMEvent(cmd.OutOrStdout(), e)
		return nil
	},
}

func printLLMEvent(w io.Writer, e *store.LLMRequestEvent) {
	cyan := color.New(color.FgCyan, color.Bold)

	fmt.Fprintf(w, "Call:      #%d at %s\n", e.ID, e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Model:     %s (%s)\n", e.Model, e.Provider)
	fmt.Fprintf(w, "Purpose:   %s\n", e.Purpose)
	if e.SessionID != "" {
		fmt.Fprintf(w, "Session:   %s\n", e.SessionID)
	}
	fmt.Fprintf(w, "Tokens:    %d in / %d out in %dms\n", e.InputTokens, e.OutputTokens, e.LatencyMs)
	if e.Success {
		fmt.Fprintln(w, "Outcome:   ok")
	} else {
		color.New(color.FgRed).Fprintf(w, "Outcome:   failed: %s\n", e.ErrorMessage)
	}

	for _, part := range []struct{ title, body string }{
		{"PROMPT", e.RequestBody},
		{"REPLY", e.ResponseBody},
	} {
		fmt.Fprintln(w)
		cyan.Fprintln(w, rule)
		cyan.Fprintln(w, part.title)
		cyan.Fprintln(w, rule)
		if part.body == "" {
			fmt.Fprintln(w, "(not captured)")
			continue
		}
		fmt.Fprintln(w, part.body)
	}
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show classifier token usage and estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byPurpose, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(w, "No classifier calls recorded.")
			return nil
		}
		byModel, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		printLLMUsage(w, byPurpose, byModel)
		return nil
	},
}

func printLLMUsage(w io.Writer, byPurpose, byModel []store.LLMUsage) {
	line := strings.Repeat("─", 72)

	fmt.Fprintln(w, "Usage by purpose")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "%-16s  %6s  %10s  %10s  %10s  %8s\n", "Purpose", "Calls", "Input", "Output", "Total", "Avg ms")
	fmt.Fprintln(w, line)
	var calls, in, out int
	for _, u := range byPurpose {
		fmt.Fprintf(w, "%-16s  %6d  %10d  %10d  %10d  %8d\n",
			u.Purpose, u.Calls, u.InputTokens, u.OutputTokens, u.InputTokens+u.OutputTokens, u.AvgLatencyMs)
		calls += u.Calls
		in += u.InputTokens
		out += u.OutputTokens
	}
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "%-16s  %6d  %10d  %10d  %10d\n", "TOTAL", calls, in, out, in+out)

	if len(byModel) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Estimated cost (USD)")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %10s\n", "Model", "Calls", "Input", "Output", "Cost")
	fmt.Fprintln(w, line)

	var total float64
	var unpriced []string
	for _, u := range byModel {
		cost := "?"
		if c := llm.LookupCost(u.Model); c != nil {
			usd := c.Cost(u.InputTokens, u.OutputTokens)
			total += usd
			cost = formatCost(usd)
		} else {
			unpriced = append(unpriced, u.Model)
		}
		fmt.Fprintf(w, "%-32s  %6d  %10d  %10d  %10s\n",
			truncate(u.Model, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
	}
	fmt.Fprintln(w, line)
	label := "TOTAL"
	if len(unpriced) > 0 {
		label = "TOTAL (partial)"
	}
	fmt.Fprintf(w, "%-32s  %6s  %10s  %10s  %10s\n", label, "", "", "", formatCost(total))
	if len(unpriced) > 0 {
		fmt.Fprintf(w, "\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
	}
}

// openStore opens the configured database without the rest of the runtime.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	f := llmListCmd.Flags()
	f.IntP("limit", "n", 20, "Number of calls to show")
	f.StringP("purpose", "p", "", "Only calls with this purpose (topic-relevance or topic-batch)")
	f.String("session", "", "Only calls made for this monitoring session")
	f.Bool("failed", false, "Only failed calls")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
