package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/abhisek/classwatch/internal/history"
	"github.com/abhisek/classwatch/internal/monitor"
	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/teaching"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

var gaugeLabels = map[teaching.Gauge]string{
	teaching.Clarity:        "Clarity",
	teaching.Engagement:     "Engagement",
	teaching.Pacing:         "Pacing",
	teaching.ExampleUsage:   "Examples",
	teaching.QuestionAsking: "Questions",
}

// scoreColor mirrors the dashboard gauge colors.
func scoreColor(v float64) *color.Color {
	switch {
	case v >= 80:
		return color.New(color.FgGreen, color.Bold)
	case v >= 60:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// printEvent writes one line per engine event for the plain monitor mode.
func printEvent(w io.Writer, ev monitor.Event) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	switch ev.Kind {
	case monitor.EventLiveStatus:
		ls := ev.Live
		mark := green.Sprint("✓")
		switch {
		case !ls.Decisive:
			mark = faint.Sprint("·")
		case !ls.OnTopic:
			mark = red.Sprint("✗")
		}
		fmt.Fprintf(w, "%s #%-3d %5.1f%% on-topic  score %5.1f  %s\n",
			mark, ls.Seq, ls.OnTopicPercentage, ls.CumulativeScore, truncate(ls.Text, 60))
		if ls.Reason != "" {
			faint.Fprintf(w, "        %s\n", ls.Reason)
		}
	case monitor.EventRevision:
		rv := ev.Revision
		yellow.Fprintf(w, "~ #%-3d revised off-topic (%s), now %.1f%% on-topic\n",
			rv.Seq, rv.Reason, rv.OnTopicPercentage)
	case monitor.EventNotice:
		yellow.Fprintf(w, "! %s\n", ev.Notice.Message)
	}
}

// printReport writes the final session report.
func printReport(w io.Writer, r *report.Report) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	fmt.Fprintln(w)
	cyan.Fprintln(w, rule)
	cyan.Fprintln(w, "SESSION REPORT")
	cyan.Fprintln(w, rule)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Topic:      %s (%s)\n", r.Topic, r.Subject)
	if r.TeacherID != "" {
		fmt.Fprintf(w, "Teacher:    %s\n", r.TeacherID)
	}
	fmt.Fprintf(w, "Mode:       %s\n", r.Mode)
	fmt.Fprintf(w, "Duration:   %s\n", r.Duration().Round(time.Second))
	fmt.Fprintf(w, "Segments:   %d (%d scored), %d words\n", r.SegmentCount, r.ScoredSegments, r.WordCount)
	fmt.Fprintln(w)

	cyan.Fprint(w, "Grade:      ")
	scoreColor(r.Score).Fprintf(w, "%s  %.1f  %s\n", r.Grade, r.Score, r.Status)
	fmt.Fprint(w, "On-topic:   ")
	scoreColor(r.OnTopicPercentage).Fprintf(w, "%.1f%%", r.OnTopicPercentage)
	fmt.Fprintf(w, "  (segments %.1f%%, time %.1f%%)\n", r.SegmentBasisPct, r.TimeBasisPct)
	fmt.Fprintln(w)

	for _, g := range teaching.Gauges {
		v := r.TeachingMetrics.Get(g)
		fmt.Fprintf(w, "  %-11s ", gaugeLabels[g])
		scoreColor(v).Fprintf(w, "%5.1f", v)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "  %-11s %d asked, %d examples, %.0f wpm\n", "Activity", r.QuestionsAsked, r.ExamplesGiven, r.WordsPerMinute)

	if len(r.Strengths) > 0 {
		fmt.Fprintln(w)
		green.Fprintln(w, "Strengths")
		for _, s := range r.Strengths {
			fmt.Fprintf(w, "  + %s\n", s)
		}
	}
	if len(r.Improvements) > 0 {
		fmt.Fprintln(w)
		yellow.Fprintln(w, "Areas to improve")
		for _, s := range r.Improvements {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if len(r.Suggestions) > 0 {
		fmt.Fprintln(w)
		cyan.Fprintln(w, "Suggestions")
		for _, s := range r.Suggestions {
			fmt.Fprintf(w, "  [%s] %s\n", s.Priority, s.Message)
			if s.Action != "" {
				fmt.Fprintf(w, "         → %s\n", s.Action)
			}
		}
	}
	if len(r.OffTopicSegments) > 0 {
		fmt.Fprintln(w)
		red.Fprintln(w, "Off-topic excerpts")
		for _, ex := range r.OffTopicSegments {
			fmt.Fprintf(w, "  %s  %s\n", ex.At.Local().Format("15:04:05"), truncate(ex.Text, 64))
		}
	}
	if r.Degraded {
		fmt.Fprintln(w)
		yellow.Fprintln(w, "Remote classification was unavailable for part of this session.")
	}

	fmt.Fprintln(w)
	cyan.Fprintln(w, rule)
	fmt.Fprintln(w)
}

// printSessions writes a table of past sessions, newest first.
func printSessions(w io.Writer, reports []*report.Report) {
	fmt.Fprintf(w, "%-19s  %-14s  %-24s  %-12s  %-5s  %7s  %8s\n",
		"Ended", "Teacher", "Topic", "Subject", "Grade", "OnTopic", "Duration")
	fmt.Fprintln(w, strings.Repeat("─", 100))
	for _, r := range reports {
		teacher := r.TeacherID
		if teacher == "" {
			teacher = history.UnassignedTeacher
		}
		fmt.Fprintf(w, "%-19s  %-14s  %-24s  %-12s  ",
			r.EndedAt.Local().Format("2006-01-02 15:04:05"),
			truncate(teacher, 14), truncate(r.Topic, 24), truncate(r.Subject, 12))
		scoreColor(r.Score).Fprintf(w, "%-5s", r.Grade)
		fmt.Fprintf(w, "  %6.1f%%  %8s\n", r.OnTopicPercentage, r.Duration().Round(time.Second))
	}
}

// printRankings writes the teacher leaderboard.
func printRankings(w io.Writer, rankings []history.Ranking) {
	fmt.Fprintf(w, "%4s  %-20s  %8s  %5s  %7s  %s\n",
		"Rank", "Teacher", "Sessions", "Grade", "OnTopic", "Status")
	fmt.Fprintln(w, strings.Repeat("─", 72))
	for _, rk := range rankings {
		fmt.Fprintf(w, "%4d  %-20s  %8d  ", rk.Rank, truncate(rk.TeacherID, 20), rk.TotalSessions)
		scoreColor(rk.AverageOnTopic).Fprintf(w, "%5s  %6.0f%%  %s", rk.AverageGradeLetter, rk.AverageOnTopic, rk.Status)
		fmt.Fprintln(w)
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
