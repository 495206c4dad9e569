package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/classwatch/internal/app"
	"github.com/abhisek/classwatch/internal/history"
	"github.com/abhisek/classwatch/internal/ingest"
	"github.com/abhisek/classwatch/internal/metrics"
	"github.com/abhisek/classwatch/internal/monitor"
	"github.com/abhisek/classwatch/internal/report"
	"github.com/abhisek/classwatch/internal/screen"
	histscreen "github.com/abhisek/classwatch/internal/screens/history"
	"github.com/abhisek/classwatch/internal/screens/live"
	"github.com/abhisek/classwatch/internal/screens/summary"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitor a lesson and grade it when it ends",
	Long: `Monitor starts a session for the given topic and shows a live dashboard.

Segments come from what you type into the dashboard, from an NDJSON
transcript (--input), or from the built-in simulator (--simulate). Each
NDJSON line is {"text": "...", "final": true, "confidence": 0.9}; plain text
lines are taken as final segments.

With --plain the dashboard is replaced by one line per segment and the
report is printed when the input ends, --duration elapses or the process
is interrupted.`,
	Example: `  classwatch monitor --topic fractions --subject math --teacher "Ms Rao"
  classwatch monitor --topic photosynthesis --simulate --plain --duration 1m
  transcriber | classwatch monitor --topic "world war 2" --input - --plain`,
	RunE: runMonitor,
}

func init() {
	f := monitorCmd.Flags()
	f.StringP("topic", "t", "", "Declared lesson topic (required)")
	f.StringP("subject", "s", "", "Subject the topic belongs to")
	f.String("teacher", "", "Teacher name; sessions are grouped by it in history and rankings")
	f.Bool("simulate", false, "Generate synthetic segments instead of reading real input")
	f.StringP("input", "i", "", "Read NDJSON transcript segments from FILE, or - for stdin")
	f.Bool("plain", false, "Print plain status lines instead of the dashboard")
	f.Duration("duration", 0, "Stop automatically after this long (plain mode)")
	f.Bool("remote", false, "Enable the remote semantic classifier using provider keys from the environment")
	f.Bool("metrics", false, "Serve Prometheus metrics on server.metrics_addr while monitoring")
	_ = monitorCmd.MarkFlagRequired("topic")
}

// monitorRun is one monitoring session with its ingestion goroutine.
type monitorRun struct {
	rt      *runtime
	session *monitor.Session

	cancelIngest context.CancelFunc
	ingestDone   chan error

	stopOnce sync.Once
	report   *report.Report
	stopErr  error
}

func runMonitor(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	subject, _ := cmd.Flags().GetString("subject")
	teacher, _ := cmd.Flags().GetString("teacher")
	simulate, _ := cmd.Flags().GetBool("simulate")
	input, _ := cmd.Flags().GetString("input")
	plain, _ := cmd.Flags().GetBool("plain")
	duration, _ := cmd.Flags().GetDuration("duration")
	forceRemote, _ := cmd.Flags().GetBool("remote")
	withMetrics, _ := cmd.Flags().GetBool("metrics")

	if simulate && input != "" {
		return errors.New("--simulate and --input are mutually exclusive")
	}
	if input == "-" && !plain {
		return errors.New("reading segments from stdin requires --plain")
	}
	if plain && !simulate && input == "" {
		return errors.New("--plain needs a segment source: --input or --simulate")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := openRuntime(ctx, cmd, runtimeOptions{
		forceRemote: forceRemote,
		watchTopics: true,
		quietLog:    !plain,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	if withMetrics {
		ms := metrics.NewServer(rt.cfg.Server.MetricsAddr, rt.logger)
		if err := ms.Start(); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer ms.Stop()
	}

	var src ingest.Source
	switch input {
	case "":
	case "-":
		src = ingest.NewNDJSONSource(os.Stdin)
	default:
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("open transcript: %w", err)
		}
		defer f.Close()
		src = ingest.NewNDJSONSource(f)
	}

	// Subscribe first so the dashboard sees the opening events.
	events := rt.engine.Subscribe(256)
	defer events.Close()

	mode := monitor.ModeLive
	if simulate {
		mode = monitor.ModeSimulation
	}
	sess, err := rt.engine.StartMonitoring(ctx, monitor.StartOptions{
		Topic:     topic,
		Subject:   subject,
		TeacherID: history.TeacherID(teacher),
		Mode:      mode,
	})
	if err != nil {
		return err
	}
	rt.logger.Info().Str("session", sess.ID()).Str("topic", sess.Topic()).Str("subject", sess.Subject()).Msg("Monitoring started")

	run := &monitorRun{rt: rt, session: sess}
	if simulate || src != nil {
		run.startIngest(ctx, src)
	}

	if plain {
		return run.plain(ctx, cmd.OutOrStdout(), events, duration)
	}
	return run.dashboard(ctx, cmd.OutOrStdout(), events, history.TeacherID(teacher))
}

func (m *monitorRun) startIngest(ctx context.Context, src ingest.Source) {
	ictx, cancel := context.WithCancel(ctx)
	m.cancelIngest = cancel
	m.ingestDone = make(chan error, 1)
	driver := ingest.NewDriver(m.session, m.rt.cfg.SimulatorConfig(), m.rt.logger)
	go func() {
		m.ingestDone <- driver.Run(ictx, src)
	}()
}

// stop ends ingestion, finalizes the session and records the report. It
// is safe to call more than once.
func (m *monitorRun) stop() (*report.Report, error) {
	m.stopOnce.Do(func() {
		if m.cancelIngest != nil {
			m.cancelIngest()
			if err := <-m.ingestDone; err != nil && !errors.Is(err, context.Canceled) {
				m.rt.logger.Warn().Err(err).Msg("Ingestion ended with error")
			}
		}
		m.report, m.stopErr = m.rt.engine.StopMonitoring()
		if m.stopErr != nil {
			return
		}
		m.rt.record(context.Background(), m.report)
		m.rt.logger.Info().Str("session", m.report.SessionID).Str("grade", m.report.Grade).Msg("Monitoring stopped")
	})
	return m.report, m.stopErr
}

func (m *monitorRun) dashboard(ctx context.Context, out io.Writer, events *monitor.Subscription, teacherID string) error {
	dash := live.New(live.Options{
		Session: m.session,
		Events:  events,
		Stop:    m.stop,
		Next: func(r *report.Report) screen.Screen {
			return summary.New(r, func() screen.Screen {
				return histscreen.New(m.rt.history, teacherID)
			})
		},
	})

	runErr := app.Run(ctx, dash)

	// Quitting the dashboard without stopping still grades the session.
	if !m.session.Terminated() {
		r, err := m.stop()
		if err != nil {
			return errors.Join(runErr, err)
		}
		printReport(out, r)
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func (m *monitorRun) plain(ctx context.Context, out io.Writer, events *monitor.Subscription, duration time.Duration) error {
	var deadline <-chan time.Time
	if duration > 0 {
		t := time.NewTimer(duration)
		defer t.Stop()
		deadline = t.C
	}

	fmt.Fprintf(out, "Monitoring %q (%s). Press Ctrl+C to stop.\n", m.session.Topic(), m.session.Subject())

loop:
	for {
		select {
		case ev, ok := <-events.C:
			if !ok {
				break loop
			}
			printEvent(out, ev)
		case err := <-m.ingestDone:
			// Put the result back for stop.
			m.ingestDone <- err
			m.drain(out, events)
			break loop
		case <-deadline:
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	r, err := m.stop()
	if err != nil {
		return err
	}
	printReport(out, r)
	return nil
}

// drain prints events already queued when the input ended.
func (m *monitorRun) drain(out io.Writer, events *monitor.Subscription) {
	for {
		select {
		case ev, ok := <-events.C:
			if !ok {
				return
			}
			printEvent(out, ev)
		default:
			return
		}
	}
}
