package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// NDJSONSource reads one Message per line. Lines that are not JSON
// objects are taken as final segments with full confidence, so a plain
// transcript file works as input too.
type NDJSONSource struct {
	r io.Reader
}

// NewNDJSONSource reads from r.
func NewNDJSONSource(r io.Reader) *NDJSONSource {
	return &NDJSONSource{r: r}
}

func (s *NDJSONSource) Run(ctx context.Context, h Handler) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-errc; err != nil {
					return fmt.Errorf("read transcript: %w", err)
				}
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !strings.HasPrefix(line, "{") {
				h.OnFinalSegment(line, 1)
				continue
			}
			var m Message
			if err := json.Unmarshal([]byte(line), &m); err != nil {
				h.OnTranscriptionError(ErrAborted, fmt.Errorf("decode line: %w", err))
				continue
			}
			dispatch(m, h)
		}
	}
}
