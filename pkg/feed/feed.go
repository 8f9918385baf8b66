// Package feed picks up batches of state updates dropped as files into a
// directory. Producers should write a file elsewhere and rename it into the
// directory so a batch is never read half written.
package feed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Batch is the content of one update file.
type Batch struct {
	Path string
	// Format is "json" or "yaml", taken from the file extension.
	Format string
	Data   []byte
}

// Option configures a Feed.
type Option func(*Feed)

// WithLogger sets the feed logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Feed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Feed watches a directory and delivers every new or rewritten update file
// as a Batch. Batches are meant to be applied by a single consumer, the
// same goroutine that owns the hub.
type Feed struct {
	dir     string
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	batches chan Batch
	stop    chan struct{}
	done    chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
	last    map[string]string
}

// New prepares a feed for dir. Nothing is watched until Start.
func New(dir string, opts ...Option) (*Feed, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("feed: directory is required")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("feed: create watcher: %w", err)
	}
	f := &Feed{
		dir:     dir,
		logger:  zap.NewNop(),
		watcher: watcher,
		batches: make(chan Batch),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		last:    map[string]string{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Batches returns the channel batches are delivered on.
func (f *Feed) Batches() <-chan Batch {
	return f.batches
}

// Start watches the directory until ctx is done or Stop is called.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return fmt.Errorf("feed: already stopped")
	}
	if f.started {
		return nil
	}
	if err := f.watcher.Add(f.dir); err != nil {
		return fmt.Errorf("feed: watch %s: %w", f.dir, err)
	}
	f.started = true
	f.logger.Debug("feed: watching", zap.String("dir", f.dir))
	go f.run(ctx)
	return nil
}

// Stop ends the watch loop and releases the watcher. It is safe to call
// more than once.
func (f *Feed) Stop() error {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return nil
	}
	f.stopped = true
	started := f.started
	f.mu.Unlock()

	close(f.stop)
	if started {
		<-f.done
	}
	return f.watcher.Close()
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stop:
			return
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			batch, ok := f.read(event)
			if !ok {
				continue
			}
			select {
			case f.batches <- batch:
			case <-ctx.Done():
				return
			case <-f.stop:
				return
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("feed: watcher error", zap.Error(err))
		}
	}
}

// read loads the file behind event. Files with unknown extensions, empty
// files and content already delivered for the same path are skipped.
func (f *Feed) read(event fsnotify.Event) (Batch, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return Batch{}, false
	}
	format := FormatOf(event.Name)
	if format == "" {
		return Batch{}, false
	}
	data, err := os.ReadFile(event.Name)
	if err != nil {
		f.logger.Warn("feed: read failed", zap.String("path", event.Name), zap.Error(err))
		return Batch{}, false
	}
	if len(data) == 0 || f.last[event.Name] == string(data) {
		return Batch{}, false
	}
	f.last[event.Name] = string(data)
	f.logger.Debug("feed: batch", zap.String("path", event.Name), zap.Int("bytes", len(data)))
	return Batch{Path: event.Name, Format: format, Data: data}, true
}

// FormatOf maps a file name to the update format, or "" when unsupported.
func FormatOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return ""
}
