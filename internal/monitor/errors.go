package monitor

import "errors"

var (
	// ErrSessionActive is returned when a session is started while another
	// one is still running.
	ErrSessionActive = errors.New("a monitoring session is already active")

	// ErrNoActiveSession is returned when stopping an idle engine.
	ErrNoActiveSession = errors.New("no monitoring session has been started")

	// ErrSessionTerminated is returned for any mutation after Stop.
	ErrSessionTerminated = errors.New("monitoring session has terminated")

	ErrEmptyTopic = errors.New("topic is required")
)
