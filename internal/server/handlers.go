package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abhisek/classwatch/internal/history"
	"github.com/abhisek/classwatch/internal/ingest"
	"github.com/abhisek/classwatch/internal/monitor"
	"github.com/abhisek/classwatch/internal/report"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// SessionSummary is one entry of the history listing.
type SessionSummary struct {
	history.SessionBrief
	TeacherID string  `json:"teacherId"`
	Score     float64 `json:"score"`
	Status    string  `json:"status"`
	Degraded  bool    `json:"degraded"`
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Internal Server Error","message":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok", "active": false}
	if sess := s.deps.Engine.Active(); sess != nil {
		resp["active"] = true
		resp["session"] = sess.ID()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleIngest starts a session and feeds it from the upgraded connection.
// The driver keeps running on simulated input after a disconnect until the
// session is stopped.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := monitor.StartOptions{
		Topic:     q.Get("topic"),
		Subject:   q.Get("subject"),
		TeacherID: history.TeacherID(q.Get("teacher")),
	}

	ctx, cancel := context.WithCancel(s.baseCtx)
	sess, err := s.deps.Engine.StartMonitoring(ctx, opts)
	if err != nil {
		cancel()
		switch {
		case errors.Is(err, monitor.ErrEmptyTopic):
			writeError(w, http.StatusBadRequest, "topic is required")
		case errors.Is(err, monitor.ErrSessionActive):
			writeError(w, http.StatusConflict, "a session is already being monitored")
		default:
			s.logger.Error().Err(err).Msg("Failed to start session")
			writeError(w, http.StatusInternalServerError, "Failed to start session")
		}
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		cancel()
		if _, serr := sess.Stop(); serr != nil {
			s.logger.Debug().Err(serr).Msg("Stop after failed upgrade")
		}
		s.logger.Warn().Err(err).Str("session", sess.ID()).Msg("WebSocket upgrade failed")
		return
	}

	run := &ingestRun{sessionID: sess.ID(), cancel: cancel, done: make(chan struct{})}
	s.setRun(run)

	go func() {
		defer close(run.done)
		driver := ingest.NewDriver(sess, s.deps.Simulator, s.logger)
		if err := driver.Run(ctx, ingest.NewWebSocketSource(conn)); err != nil {
			s.logger.Warn().Err(err).Str("session", sess.ID()).Msg("Ingestion ended with error")
		}
	}()
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Engine.StopMonitoring()
	switch {
	case errors.Is(err, monitor.ErrNoActiveSession):
		writeError(w, http.StatusNotFound, "no session has been started")
		return
	case errors.Is(err, monitor.ErrSessionTerminated):
		writeError(w, http.StatusConflict, "session already stopped")
		return
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to stop session")
		writeError(w, http.StatusInternalServerError, "Failed to stop session")
		return
	}

	stopCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	s.stopIngest(stopCtx)
	s.record(r.Context(), rep)

	writeJSON(w, http.StatusOK, rep)
}

// record saves rep to history and hands it to the sink. Failures are
// logged; the caller still gets the report.
func (s *Server) record(ctx context.Context, rep *report.Report) {
	if s.deps.History != nil {
		if err := s.deps.History.Append(ctx, rep); err != nil {
			s.logger.Error().Err(err).Str("session", rep.SessionID).Msg("Failed to save session history")
		}
	}
	if s.deps.Sink != nil {
		if err := s.deps.Sink.Publish(ctx, rep); err != nil {
			s.logger.Error().Err(err).Str("session", rep.SessionID).Msg("Failed to publish report")
		}
	}
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	sess := s.deps.Engine.Active()
	if sess == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// handleLive streams engine events until the client goes away or the
// server shuts down.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sub := s.deps.Engine.Subscribe(s.cfg.LiveBuffer)
	defer sub.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reading is required to process control frames and notice the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-s.baseCtx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(s.cfg.WriteWait))
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				s.logger.Debug().Err(err).Msg("Live stream write failed")
				return
			}
		}
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}

	limit := s.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var (
		reports []*report.Report
		err     error
	)
	if teacher := r.URL.Query().Get("teacher"); teacher != "" {
		reports, err = s.deps.History.ByTeacher(r.Context(), history.TeacherID(teacher), limit)
	} else {
		reports, err = s.deps.History.Recent(r.Context(), limit)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load history")
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	out := make([]SessionSummary, 0, len(reports))
	for _, rep := range reports {
		out = append(out, SessionSummary{
			SessionBrief: history.Brief(rep),
			TeacherID:    rep.TeacherID,
			Score:        rep.Score,
			Status:       rep.Status,
			Degraded:     rep.Degraded,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": out,
		"count":    len(out),
	})
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusServiceUnavailable, "history is not configured")
		return
	}

	reports, err := s.deps.History.Recent(r.Context(), history.DefaultKeep)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load history")
		writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	rankings := history.Rankings(history.BuildTeacherStats(reports))
	writeJSON(w, http.StatusOK, map[string]any{
		"rankings": rankings,
		"count":    len(rankings),
	})
}
