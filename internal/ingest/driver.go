package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/abhisek/classwatch/internal/metrics"
	"github.com/abhisek/classwatch/internal/monitor"
)

// Target receives segments and notices. *monitor.Session implements it.
type Target interface {
	Submit(text string, confidence float64) (*monitor.Segment, error)
	Interim(text string) error
	Notify(kind monitor.NoticeKind, msg string)
	SetMode(m monitor.Mode)
	Topic() string
	Keywords() []string
}

// Driver feeds a Source into a Target and falls back to simulation when
// the source fails permanently or disconnects.
type Driver struct {
	target Target
	sim    SimulatorConfig
	logger zerolog.Logger
}

// NewDriver creates a driver for target.
func NewDriver(target Target, sim SimulatorConfig, logger zerolog.Logger) *Driver {
	return &Driver{
		target: target,
		sim:    sim,
		logger: logger.With().Str("component", "ingest").Logger(),
	}
}

// Run drives src until ctx is done, the input ends, or the target stops
// accepting segments. A nil src goes straight to simulation.
func (d *Driver) Run(ctx context.Context, src Source) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if src == nil {
		d.target.Notify(monitor.NoticeSimulation, "No speech source available; using simulated segments")
		return d.simulate(ctx, cancel)
	}

	srcCtx, srcCancel := context.WithCancel(ctx)
	h := &forwarder{target: d.target, logger: d.logger, stop: cancel, failed: srcCancel}
	err := src.Run(srcCtx, h)
	srcCancel()

	switch {
	case ctx.Err() != nil:
		return nil
	case h.permanentFailure():
		// Notice already sent by the forwarder.
	case err == nil:
		d.logger.Info().Msg("Ingestion source ended")
		return nil
	default:
		d.logger.Warn().Err(err).Msg("Ingestion source disconnected")
		metrics.IngestErrors.WithLabelValues(string(ErrDisconnected)).Inc()
		d.target.Notify(monitor.NoticeIngestFailed, "Speech source disconnected; switching to simulated segments")
	}
	return d.simulate(ctx, cancel)
}

func (d *Driver) simulate(ctx context.Context, cancel context.CancelFunc) error {
	d.target.SetMode(monitor.ModeSimulation)
	sim := NewSimulator(d.target.Topic(), d.target.Keywords(), d.sim)
	d.logger.Info().Dur("interval", sim.interval).Msg("Simulation started")
	return sim.Run(ctx, &forwarder{target: d.target, logger: d.logger, stop: cancel, failed: func() {}})
}

// forwarder adapts Handler calls onto a Target.
type forwarder struct {
	target Target
	logger zerolog.Logger
	// stop ends the whole drive once the target terminates.
	stop context.CancelFunc
	// failed ends the current source after a permanent error.
	failed context.CancelFunc

	mu        sync.Mutex
	permanent bool
}

func (f *forwarder) OnFinalSegment(text string, confidence float64) {
	if _, err := f.target.Submit(text, confidence); err != nil {
		if errors.Is(err, monitor.ErrSessionTerminated) {
			f.stop()
			return
		}
		f.logger.Warn().Err(err).Msg("Segment rejected")
	}
}

func (f *forwarder) OnInterimSegment(text string) {
	if err := f.target.Interim(text); errors.Is(err, monitor.ErrSessionTerminated) {
		f.stop()
	}
}

func (f *forwarder) OnTranscriptionError(kind ErrorKind, err error) {
	metrics.IngestErrors.WithLabelValues(string(kind)).Inc()
	if !kind.Permanent() {
		f.logger.Debug().Err(err).Str("kind", string(kind)).Msg("Transient transcription error")
		return
	}

	f.mu.Lock()
	first := !f.permanent
	f.permanent = true
	f.mu.Unlock()
	if !first {
		return
	}

	f.logger.Warn().Err(err).Str("kind", string(kind)).Msg("Transcription failed, switching to simulation")
	f.target.Notify(monitor.NoticeIngestFailed, "Speech capture unavailable ("+string(kind)+"); switching to simulated segments")
	f.failed()
}

func (f *forwarder) permanentFailure() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permanent
}
