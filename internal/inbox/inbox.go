// Package inbox classifies text files dropped into a directory and writes
// each outcome next to its source.
package inbox

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/shahar-caura/relay/internal/agent"
	"github.com/shahar-caura/relay/internal/intent"
)

const (
	inputExt  = ".txt"
	resultExt = ".result.json"
)

// Watcher classifies *.txt files in a directory once per distinct content.
type Watcher struct {
	dir    string
	agent  agent.Agent
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string][sha256.Size]byte
}

// New returns a Watcher for dir.
func New(dir string, a agent.Agent, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		dir:    dir,
		agent:  a,
		logger: logger,
		seen:   make(map[string][sha256.Size]byte),
	}
}

// ResultPath returns where the outcome for the input file at path is written.
func ResultPath(path string) string {
	return strings.TrimSuffix(path, inputExt) + resultExt
}

// Run processes existing files, then watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("inbox: create dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("inbox: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch before the initial scan so files written in between are not missed.
	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", w.dir, err)
	}

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("inbox: read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !isInput(e.Name()) {
			continue
		}
		w.handle(ctx, filepath.Join(w.dir, e.Name()))
	}

	w.logger.Info("watching inbox", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isInput(event.Name) {
				continue
			}
			w.handle(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("inbox: watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	processed, err := w.Process(ctx, path)
	if err != nil {
		w.logger.Error("inbox: processing file", "path", path, "error", err)
		return
	}
	if processed {
		w.logger.Info("inbox file classified", "path", path, "result", ResultPath(path))
	}
}

// Process classifies the file at path unless its content is empty or was
// already classified, and writes the outcome to ResultPath(path). It reports
// whether a result was written. Classification failures are written as
// results; only I/O failures are returned.
func (w *Watcher) Process(ctx context.Context, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil // removed or renamed before we got to it
		}
		return false, fmt.Errorf("inbox: reading %s: %w", path, err)
	}

	input := strings.TrimSpace(string(data))
	if input == "" {
		return false, nil
	}

	sum := sha256.Sum256([]byte(input))
	w.mu.Lock()
	if prev, ok := w.seen[path]; ok && prev == sum {
		w.mu.Unlock()
		return false, nil
	}
	w.seen[path] = sum
	w.mu.Unlock()

	var out any
	res, err := w.agent.Process(ctx, input)
	if err != nil {
		out = intent.Describe(err)
	} else {
		out = res
	}

	if err := writeJSON(ResultPath(path), out); err != nil {
		w.forget(path)
		return false, err
	}
	return true, nil
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.seen, path)
}

// writeJSON writes v to dest atomically.
func writeJSON(dest string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("inbox: encoding result: %w", err)
	}
	data = append(data, '\n')

	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("inbox: writing result: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("inbox: renaming result: %w", err)
	}
	return nil
}

func isInput(name string) bool {
	return strings.HasSuffix(name, inputExt)
}
