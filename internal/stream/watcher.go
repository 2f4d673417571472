package stream

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/technosupport/vapix-events/internal/metrics"
)

// MessageFunc handles one framed message from a capture file.
type MessageFunc func(ctx context.Context, msg []byte)

// Watcher feeds captured stream files (*.xml) from a directory to a
// MessageFunc. Files are followed like logs: when one grows, framing resumes
// after the last complete document, and a file that shrinks is read again
// from the start.
type Watcher struct {
	dir          string
	pollInterval time.Duration
	handle       MessageFunc
	log          *zap.Logger

	mu   sync.Mutex
	seen map[string]fileStamp
}

type fileStamp struct {
	size    int64
	modTime time.Time
	// offset is the end of the last complete document handed out.
	offset int64
}

func NewWatcher(dir string, pollInterval time.Duration, handle MessageFunc, log *zap.Logger) *Watcher {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		dir:          dir,
		pollInterval: pollInterval,
		handle:       handle,
		log:          log.With(zap.String("capture_dir", dir)),
		seen:         make(map[string]fileStamp),
	}
}

// Run processes existing files, then follows the directory until ctx is done.
// fsnotify drives processing; a polling loop runs alongside it and takes over
// alone when fsnotify is unavailable.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.ProcessDir(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("fsnotify unavailable, falling back to polling", zap.Error(err))
		watcher = nil
	} else if err := watcher.Add(w.dir); err != nil {
		w.log.Warn("failed to watch directory, falling back to polling", zap.Error(err))
		watcher.Close()
		watcher = nil
	}

	var events <-chan fsnotify.Event
	var errs <-chan error
	if watcher != nil {
		defer watcher.Close()
		events = watcher.Events
		errs = watcher.Errors
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isCapture(ev.Name) {
				continue
			}
			if err := w.ProcessFile(ctx, ev.Name); err != nil {
				w.log.Warn("capture file failed", zap.String("file", ev.Name), zap.Error(err))
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			w.log.Warn("watcher error", zap.Error(err))
		case <-ticker.C:
			if _, err := w.ProcessDir(ctx); err != nil {
				w.log.Warn("capture poll failed", zap.Error(err))
			}
		}
	}
}

// ProcessDir processes every new or changed capture file in name order and
// returns how many were processed.
func (w *Watcher) ProcessDir(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("read capture dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isCapture(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	n := 0
	for _, name := range names {
		if ctx.Err() != nil {
			return n, nil
		}
		path := filepath.Join(w.dir, name)
		if err := w.ProcessFile(ctx, path); err != nil {
			w.log.Warn("capture file failed", zap.String("file", path), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

// ProcessFile hands every complete document appended to path since the last
// call to the handler. A trailing partial document is held back until the
// file grows again.
func (w *Watcher) ProcessFile(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		metrics.CaptureFilesTotal.WithLabelValues("fail").Inc()
		return err
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}

	w.mu.Lock()
	defer w.mu.Unlock()
	prev, ok := w.seen[path]
	if ok && prev.size == stamp.size && prev.modTime.Equal(stamp.modTime) {
		return nil
	}
	if stamp.size >= prev.offset {
		stamp.offset = prev.offset
	} else {
		w.log.Info("capture file truncated, reading from start", zap.String("file", path))
	}

	f, err := os.Open(path)
	if err != nil {
		metrics.CaptureFilesTotal.WithLabelValues("fail").Inc()
		return err
	}
	defer f.Close()

	if _, err := f.Seek(stamp.offset, io.SeekStart); err != nil {
		metrics.CaptureFilesTotal.WithLabelValues("fail").Inc()
		return fmt.Errorf("%s: %w", path, err)
	}

	count := 0
	consumed, err := SplitComplete(f, func(msg []byte) error {
		count++
		w.handle(ctx, msg)
		return ctx.Err()
	})
	// Delivered documents are never replayed, even when framing failed later on.
	stamp.offset += consumed
	w.seen[path] = stamp
	if err != nil {
		metrics.CaptureFilesTotal.WithLabelValues("fail").Inc()
		return fmt.Errorf("%s: %w", path, err)
	}

	metrics.CaptureFilesTotal.WithLabelValues("success").Inc()
	w.log.Debug("capture file processed",
		zap.String("file", path),
		zap.Int("messages", count),
		zap.Int64("offset", stamp.offset))
	return nil
}

func isCapture(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xml")
}
