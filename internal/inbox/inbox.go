// Package inbox turns text files dropped into a directory into stored
// frictions. Files live under <dir>/<stage>/*.txt; the directory name
// is the flywheel stage and the file content is the description.
// Handled files move to <dir>/processed/<stage>/ or <dir>/failed/<stage>/.
//
// A file interrupted by shutdown stays where it is and is picked up by
// the next sweep. A file whose friction was stored but that cannot be
// moved to processed/ goes to failed/ with a note naming the stored ID.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/suykerbuyk/flywheel/internal/friction"
	"github.com/suykerbuyk/flywheel/internal/logging"
	"github.com/suykerbuyk/flywheel/internal/telemetry"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
	fileExt      = ".txt"

	// maxFileSize caps what is read from a single inbox file.
	maxFileSize = 64 * 1024

	defaultSettle = 250 * time.Millisecond
)

// Adder stores a friction. *service.Service satisfies it.
type Adder interface {
	AddFriction(ctx context.Context, stage friction.Stage, description string) (friction.Record, error)
}

// Watcher processes inbox files.
type Watcher struct {
	dir    string
	adder  Adder
	log    *slog.Logger
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// New returns a Watcher over dir. A nil logger discards output.
func New(dir string, adder Adder, log *slog.Logger) *Watcher {
	if log == nil {
		log = logging.Discard()
	}
	return &Watcher{
		dir:     dir,
		adder:   adder,
		log:     log,
		settle:  defaultSettle,
		pending: make(map[string]*time.Timer),
	}
}

// Dir returns the inbox root.
func (w *Watcher) Dir() string {
	return w.dir
}

// Prepare creates the stage directories and the processed and failed trees.
func (w *Watcher) Prepare() error {
	for _, st := range friction.Stages() {
		for _, dir := range []string{
			filepath.Join(w.dir, string(st)),
			filepath.Join(w.dir, processedDir, string(st)),
			filepath.Join(w.dir, failedDir, string(st)),
		} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create inbox dir: %w", err)
			}
		}
	}
	return nil
}

// Summary counts the files handled by a sweep.
type Summary struct {
	Processed int
	Failed    int
}

// Sweep handles every .txt file already waiting in the stage directories.
func (w *Watcher) Sweep(ctx context.Context) (Summary, error) {
	var sum Summary
	for _, st := range friction.Stages() {
		entries, err := os.ReadDir(filepath.Join(w.dir, string(st)))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("read inbox: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !isInboxFile(e.Name()) {
				continue
			}
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			if err := w.ProcessFile(ctx, filepath.Join(w.dir, string(st), e.Name())); err != nil {
				if ctx.Err() != nil {
					return sum, ctx.Err()
				}
				sum.Failed++
			} else {
				sum.Processed++
			}
		}
	}
	return sum, nil
}

// ProcessFile stores the friction described by path and moves the
// file out of the inbox. The returned error is the reason the file
// went to failed/, or the context error when processing was cut short.
func (w *Watcher) ProcessFile(ctx context.Context, path string) error {
	stage, err := friction.ParseStage(filepath.Base(filepath.Dir(path)))
	if err != nil {
		return err
	}

	r, err := w.store(ctx, stage, path)
	if err != nil {
		if ctx.Err() != nil {
			w.log.Info("inbox file left for next sweep", "path", path, "error", err)
			return ctx.Err()
		}
		w.fail(stage, path, err)
		return err
	}

	if err := w.moveTo(processedDir, stage, path); err != nil {
		err = fmt.Errorf("stored as %s but not moved to %s: %w", r.ID, processedDir, err)
		w.fail(stage, path, err)
		return err
	}
	telemetry.InboxFiles.WithLabelValues(telemetry.ResultProcessed).Inc()
	return nil
}

// fail moves path to failed/ next to a .err note holding reason.
func (w *Watcher) fail(stage friction.Stage, path string, reason error) {
	telemetry.InboxFiles.WithLabelValues(telemetry.ResultFailed).Inc()
	w.log.Warn("inbox file failed", "path", path, "error", reason)

	if err := w.moveTo(failedDir, stage, path); err != nil {
		w.log.Error("move failed inbox file", "path", path, "error", err)
	}
	note := filepath.Join(w.dir, failedDir, string(stage), filepath.Base(path)+".err")
	if err := os.WriteFile(note, []byte(reason.Error()+"\n"), 0o644); err != nil {
		w.log.Error("write inbox error note", "path", path, "error", err)
	}
}

func (w *Watcher) store(ctx context.Context, stage friction.Stage, path string) (friction.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return friction.Record{}, fmt.Errorf("stat inbox file: %w", err)
	}
	if info.Size() > maxFileSize {
		return friction.Record{}, fmt.Errorf("inbox file is %d bytes, limit is %d", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return friction.Record{}, fmt.Errorf("read inbox file: %w", err)
	}

	r, err := w.adder.AddFriction(ctx, stage, string(data))
	if err != nil {
		return friction.Record{}, err
	}
	w.log.Info("inbox file stored", "path", path, "id", r.ID, "type", r.Type)
	return r, nil
}

// moveTo moves path into <dir>/<sub>/<stage>/, keeping the name unless
// it is taken.
func (w *Watcher) moveTo(sub string, stage friction.Stage, path string) error {
	destDir := filepath.Join(w.dir, sub, string(stage))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", sub, err)
	}

	name := filepath.Base(path)
	dest := filepath.Join(destDir, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		dest = filepath.Join(destDir, fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), time.Now().UnixNano(), ext))
	}

	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("move inbox file: %w", err)
	}
	return nil
}

func isInboxFile(name string) bool {
	return strings.HasSuffix(name, fileExt) && !strings.HasPrefix(name, ".")
}

// Run sweeps the inbox and then watches the stage directories until
// ctx is done. Files are handled once writes to them have settled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Prepare(); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	for _, st := range friction.Stages() {
		if err := fw.Add(filepath.Join(w.dir, string(st))); err != nil {
			return fmt.Errorf("watch %s: %w", st, err)
		}
	}

	sum, err := w.Sweep(ctx)
	if err != nil {
		return err
	}
	w.log.Info("inbox ready", "dir", w.dir, "processed", sum.Processed, "failed", sum.Failed)

	defer w.drain()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isInboxFile(filepath.Base(ev.Name)) {
				continue
			}
			w.schedule(ctx, ev.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("inbox watcher error", "error", err)
		}
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		w.wg.Done()
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if _, err := os.Stat(path); err != nil {
			return
		}
		_ = w.ProcessFile(ctx, path)
	})
	w.pending[path] = t
}

// drain stops timers that have not fired and waits for running ones.
func (w *Watcher) drain() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
