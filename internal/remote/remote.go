// Package remote provides the optional semantic topic classifier that runs
// beside the local keyword classifier. Calls are asynchronous, cached,
// batched and guarded by a connectivity policy that gives up for the rest
// of a session after repeated failures.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrDegraded is returned once the connectivity policy has tripped.
	ErrDegraded = errors.New("remote classifier degraded")

	// ErrBackingOff is returned while the policy waits before the next attempt.
	ErrBackingOff = errors.New("remote classifier backing off")

	// ErrMalformedVerdict wraps responses that could not be decoded.
	ErrMalformedVerdict = errors.New("malformed remote verdict")
)

// Request asks whether Text belongs to Topic. Seqs are the sequence
// numbers of the segments the text was built from.
type Request struct {
	SessionID string
	Seqs      []int
	Text      string
	Topic     string
	Subject   string
	Keywords  []string
}

// Verdict is a remote judgment about the segments in Seqs.
type Verdict struct {
	Seqs            []int    `json:"seqs"`
	OnTopic         bool     `json:"isOnTopic"`
	Confidence      float64  `json:"confidence"`
	MatchedConcepts []string `json:"matchedConcepts"`
	Reason          string   `json:"reason"`
	Cached          bool     `json:"cached,omitempty"`
}

// Classifier is a semantic topic classifier.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Verdict, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, req Request) (*Verdict, error)

func (f ClassifierFunc) Classify(ctx context.Context, req Request) (*Verdict, error) {
	return f(ctx, req)
}
