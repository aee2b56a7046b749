// Package keys loads verifying keys from disk and hot-reloads them when the
// key file changes, so an operator can rotate circuits without restarting
// the gateway.
package keys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/proofgate/proofgate/pkg/verifier"
)

// ErrKeyNotExist is returned when the verifying key file does not exist.
var ErrKeyNotExist = errors.New("keys: verifying key file does not exist")

// Load reads a Groth16 BN254 verifying key from path and wraps it in a
// verifier backend.
func Load(path string) (*verifier.Groth16, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotExist, path)
		}
		return nil, fmt.Errorf("stat verifying key: %w", err)
	}
	vk, err := verifier.LoadVerifyingKey(path)
	if err != nil {
		return nil, err
	}
	return verifier.NewGroth16(vk)
}

// SwapFunc installs a freshly loaded verifier. Gateway.SwapVerifier
// satisfies it.
type SwapFunc func(verifier.Verifier) error

// Watcher monitors a verifying key file and swaps in a new verifier each
// time the file is rewritten. It watches the parent directory so atomic
// rename-into-place rotations are picked up as well.
type Watcher struct {
	path   string
	swap   SwapFunc
	logger *slog.Logger
	fsw    *fsnotify.Watcher

	reloads atomic.Uint64
	done    chan struct{}
}

// NewWatcher creates a watcher for the key file at path. The file itself
// does not have to exist yet, but its directory does.
func NewWatcher(path string, swap SwapFunc, logger *slog.Logger) (*Watcher, error) {
	if swap == nil {
		return nil, errors.New("keys: swap function is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve key path: %w", err)
	}
	dir := filepath.Dir(abs)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot access key directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("key directory is not a directory: %s", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch key directory: %w", err)
	}

	return &Watcher{
		path:   abs,
		swap:   swap,
		logger: logger,
		fsw:    fsw,
		done:   make(chan struct{}),
	}, nil
}

// Reloads returns the number of successful verifier swaps.
func (w *Watcher) Reloads() uint64 {
	return w.reloads.Load()
}

// Start begins watching for key rotations (blocking). Returns when the
// context is cancelled or Close is called. Load failures are logged and the
// previously installed verifier stays active.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.isKeyEvent(event) {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("key watcher error", "error", err)
		}
	}
}

// isKeyEvent reports whether a directory event touches the key file with an
// operation that can change its contents.
func (w *Watcher) isKeyEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) reload() {
	oracle, err := Load(w.path)
	if err != nil {
		w.logger.Error("verifying key reload failed",
			"path", w.path,
			"error", err,
		)
		return
	}
	if err := w.swap(oracle); err != nil {
		w.logger.Error("verifier swap rejected",
			"path", w.path,
			"error", err,
		)
		return
	}
	w.reloads.Add(1)
	w.logger.Info("verifying key reloaded",
		"path", w.path,
		"public_inputs", oracle.Params().PublicInputLen,
	)
}

// Close stops the watcher and signals Start to return.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.fsw.Close()
}
