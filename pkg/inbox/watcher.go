// Package inbox imports CSV files dropped into a directory.
//
// A file is imported once no write to it has been seen for the quiet period,
// then renamed to <name>.imported on success or <name>.failed on error so it
// is never picked up twice.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Suffixes appended to processed files.
const (
	ImportedSuffix = ".imported"
	FailedSuffix   = ".failed"
)

// DefaultQuietPeriod is how long a file must stay unchanged before import.
const DefaultQuietPeriod = 500 * time.Millisecond

// Importer loads one CSV file.
type Importer interface {
	ImportCSV(ctx context.Context, path string) error
}

// Result describes one processed file.
type Result struct {
	// Path is the file as it was dropped.
	Path string

	// MovedTo is where the file was renamed afterwards.
	MovedTo string

	// Err is the import error, if any.
	Err error
}

// Watcher watches a directory and imports the CSV files that appear in it.
type Watcher struct {
	dir      string
	importer Importer
	quiet    time.Duration
	logger   zerolog.Logger
	onResult func(Result)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithQuietPeriod overrides DefaultQuietPeriod.
func WithQuietPeriod(d time.Duration) Option {
	return func(w *Watcher) {
		w.quiet = d
	}
}

// WithLogger sets the watcher logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithResultHandler registers fn to be called after each processed file.
func WithResultHandler(fn func(Result)) Option {
	return func(w *Watcher) {
		w.onResult = fn
	}
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, importer Importer, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		importer: importer,
		quiet:    DefaultQuietPeriod,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run imports the CSV files already in the directory, then watches it until
// ctx is cancelled. It blocks in the calling goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("failed to stat inbox: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("inbox %s is not a directory", w.dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.logger.Info().Str("dir", w.dir).Dur("quiet", w.quiet).Msg("Watching inbox")

	existing, err := w.scan()
	if err != nil {
		return err
	}
	for _, path := range existing {
		w.process(ctx, path)
	}

	return w.loop(ctx, watcher)
}

// loop collects write events per file and imports each file once its
// deadline passes without further writes.
func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher) error {
	pending := map[string]time.Time{}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str("dir", w.dir).Msg("Inbox watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isCSV(event.Name) {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Inbox file changed")

			pending[event.Name] = time.Now().Add(w.quiet)
			resetTimer(timer, nextDeadline(pending))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")

		case <-timer.C:
			now := time.Now()
			for _, path := range duePaths(pending, now) {
				delete(pending, path)
				w.process(ctx, path)
			}
			if len(pending) > 0 {
				resetTimer(timer, nextDeadline(pending))
			}
		}
	}
}

// process imports path and moves it out of the way.
func (w *Watcher) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// Removed or renamed before the quiet period elapsed.
		return
	}

	logger := w.logger.With().Str("file", path).Logger()

	err := w.importer.ImportCSV(ctx, path)
	target := path + ImportedSuffix
	if err != nil {
		target = path + FailedSuffix
		logger.Error().Err(err).Msg("Import failed")
	} else {
		logger.Info().Msg("Imported")
	}

	if rerr := os.Rename(path, target); rerr != nil {
		logger.Error().Err(rerr).Str("target", target).Msg("Failed to move processed file")
		target = path
	}

	if w.onResult != nil {
		w.onResult(Result{Path: path, MovedTo: target, Err: err})
	}
}

// scan lists the CSV files currently in the directory, sorted by name.
func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && isCSV(entry.Name()) {
			paths = append(paths, filepath.Join(w.dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

func nextDeadline(pending map[string]time.Time) time.Time {
	var next time.Time
	for _, deadline := range pending {
		if next.IsZero() || deadline.Before(next) {
			next = deadline
		}
	}
	return next
}

// duePaths returns the pending paths whose deadline has passed, in name order.
func duePaths(pending map[string]time.Time, now time.Time) []string {
	var due []string
	for path, deadline := range pending {
		if !deadline.After(now) {
			due = append(due, path)
		}
	}
	sort.Strings(due)
	return due
}

func resetTimer(timer *time.Timer, deadline time.Time) {
	timer.Stop()
	timer.Reset(time.Until(deadline))
}
