package corpus

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Reload loads the custom topics file and installs it as c's custom layer.
func Reload(path string, c *Corpus) error {
	topics, err := LoadCustom(path)
	if err != nil {
		return err
	}
	c.SetCustom(topics)
	return nil
}

// Watch reloads the custom topics file into c whenever it changes. The
// parent directory is watched so editors that replace the file by rename
// are picked up. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, c *Corpus, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "corpus").Logger()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if err := Reload(path, c); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("Custom topics reload failed")
				continue
			}
			logger.Info().Str("path", path).Msg("Custom topics reloaded")
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("Topics watcher error")
		}
	}
}
