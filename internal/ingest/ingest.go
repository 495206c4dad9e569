// Package ingest delivers transcribed speech to a monitoring session. A
// Source pushes final and interim segments into a Handler; the Driver
// wires a Source to a session and switches to simulated segments when the
// source fails for good.
package ingest

import (
	"context"
	"errors"
)

// ErrorKind classifies a transcription failure.
type ErrorKind string

const (
	// Transient: the source retries by itself.
	ErrNoSpeech ErrorKind = "no-speech"
	ErrAborted  ErrorKind = "aborted"
	ErrNetwork  ErrorKind = "network"

	// Permanent: nothing more will arrive from this source.
	ErrNotAllowed   ErrorKind = "not-allowed"
	ErrAudioCapture ErrorKind = "audio-capture"
	ErrDisconnected ErrorKind = "disconnected"
)

// Permanent reports whether the source cannot recover from k.
func (k ErrorKind) Permanent() bool {
	switch k {
	case ErrNotAllowed, ErrAudioCapture, ErrDisconnected:
		return true
	}
	return false
}

// ErrSourceClosed is returned by sources whose peer went away.
var ErrSourceClosed = errors.New("ingestion source closed")

// Handler consumes transcription output.
type Handler interface {
	// OnFinalSegment is called once per completed utterance.
	OnFinalSegment(text string, confidence float64)
	// OnInterimSegment may be called repeatedly with growing partial text.
	OnInterimSegment(text string)
	OnTranscriptionError(kind ErrorKind, err error)
}

// Source produces segments until ctx is done or the input ends. A nil
// return means the input ended normally.
type Source interface {
	Run(ctx context.Context, h Handler) error
}

// Message is the wire form used by the NDJSON and WebSocket sources.
type Message struct {
	// Type is "final", "interim" or "error".
	Type       string    `json:"type"`
	Text       string    `json:"text,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Kind       ErrorKind `json:"kind,omitempty"`
	Error      string    `json:"error,omitempty"`
}

const (
	MessageFinal   = "final"
	MessageInterim = "interim"
	MessageError   = "error"
)

// dispatch forwards one message to h.
func dispatch(m Message, h Handler) {
	switch m.Type {
	case MessageInterim:
		h.OnInterimSegment(m.Text)
	case MessageError:
		var err error
		if m.Error != "" {
			err = errors.New(m.Error)
		}
		kind := m.Kind
		if kind == "" {
			kind = ErrAborted
		}
		h.OnTranscriptionError(kind, err)
	default:
		conf := m.Confidence
		if conf <= 0 {
			conf = 1
		}
		h.OnFinalSegment(m.Text, conf)
	}
}
