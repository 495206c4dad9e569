package remote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// batchSeparator joins buffered segment texts into one request.
const batchSeparator = " | "

// AdapterConfig controls queueing and batching.
type AdapterConfig struct {
	// BatchInterval > 0 buffers requests and sends them together on each
	// tick. Zero sends every request as soon as the worker is free.
	BatchInterval time.Duration
	MaxBatch      int
	QueueSize     int
	// Timeout bounds a single remote call.
	Timeout time.Duration
}

// DefaultAdapterConfig returns sensible defaults.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		BatchInterval: 3 * time.Second,
		MaxBatch:      5,
		QueueSize:     32,
		Timeout:       10 * time.Second,
	}
}

// Handlers receive adapter results. They are called from the adapter's
// worker goroutine.
type Handlers struct {
	OnResult   func(*Verdict)
	OnDegraded func(error)
}

// Adapter runs remote classification off the caller's path. Submit never
// blocks; requests are dropped when the queue is full or the adapter is
// degraded or closed.
type Adapter struct {
	classifier Classifier
	cfg        AdapterConfig
	handlers   Handlers
	logger     zerolog.Logger

	pending  chan Request
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	closed   atomic.Bool
	degraded atomic.Bool
	once     sync.Once
}

// NewAdapter starts the worker goroutine.
func NewAdapter(c Classifier, cfg AdapterConfig, h Handlers, logger zerolog.Logger) *Adapter {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultAdapterConfig().QueueSize
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		classifier: c,
		cfg:        cfg,
		handlers:   h,
		logger:     logger.With().Str("component", "remote").Logger(),
		pending:    make(chan Request, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go a.loop()
	return a
}

// Submit queues req. It reports whether the request was accepted.
func (a *Adapter) Submit(req Request) bool {
	if a.closed.Load() || a.degraded.Load() {
		return false
	}
	select {
	case a.pending <- req:
		return true
	default:
		a.logger.Debug().Ints("seqs", req.Seqs).Msg("Remote queue full, dropping request")
		return false
	}
}

// Degraded reports whether the classifier gave up for this session.
func (a *Adapter) Degraded() bool {
	return a.degraded.Load()
}

// Close abandons queued and in-flight work without waiting for it.
// Results that arrive afterwards are discarded.
func (a *Adapter) Close() {
	a.once.Do(func() {
		a.closed.Store(true)
		a.cancel()
	})
}

// Done is closed when the worker goroutine has exited.
func (a *Adapter) Done() <-chan struct{} {
	return a.done
}

func (a *Adapter) loop() {
	defer close(a.done)

	if a.cfg.BatchInterval <= 0 {
		for {
			select {
			case <-a.ctx.Done():
				return
			case req := <-a.pending:
				a.process([]Request{req})
			}
		}
	}

	ticker := time.NewTicker(a.cfg.BatchInterval)
	defer ticker.Stop()

	var buf []Request
	for {
		select {
		case <-a.ctx.Done():
			return
		case req := <-a.pending:
			buf = append(buf, req)
			if len(buf) >= a.cfg.MaxBatch {
				a.process(buf)
				buf = nil
			}
		case <-ticker.C:
			if len(buf) > 0 {
				a.process(buf)
				buf = nil
			}
		}
	}
}

func (a *Adapter) process(batch []Request) {
	if a.degraded.Load() {
		return
	}
	req := mergeBatch(batch)

	ctx := a.ctx
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	v, err := a.classifier.Classify(ctx, req)
	if a.closed.Load() {
		return
	}
	switch {
	case err == nil:
		if a.handlers.OnResult != nil {
			a.handlers.OnResult(v)
		}
	case errors.Is(err, ErrDegraded):
		if a.degraded.CompareAndSwap(false, true) && a.handlers.OnDegraded != nil {
			a.handlers.OnDegraded(err)
		}
	case errors.Is(err, ErrBackingOff):
		a.logger.Debug().Ints("seqs", req.Seqs).Msg("Skipped remote check while backing off")
	default:
		a.logger.Warn().Err(err).Ints("seqs", req.Seqs).Msg("Remote classification failed, local verdict stands")
	}
}

// mergeBatch joins the texts of batch into one request. Topic, subject and
// keywords come from the first entry; a session only ever has one topic.
func mergeBatch(batch []Request) Request {
	if len(batch) == 1 {
		return batch[0]
	}
	out := Request{
		SessionID: batch[0].SessionID,
		Topic:     batch[0].Topic,
		Subject:   batch[0].Subject,
		Keywords:  batch[0].Keywords,
	}
	texts := make([]string, 0, len(batch))
	for _, r := range batch {
		out.Seqs = append(out.Seqs, r.Seqs...)
		texts = append(texts, r.Text)
	}
	out.Text = strings.Join(texts, batchSeparator)
	return out
}
