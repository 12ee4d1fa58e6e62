package fsio

import (
	"os"
	"path/filepath"
	"sync"
)

// Writer implements domain.FileWriter. In dry-run mode nothing touches the
// disk; the paths that would have been written are recorded instead.
type Writer struct {
	dryRun bool

	mu      sync.Mutex
	pending []string
	written []string
}

func New(dryRun bool) *Writer {
	return &Writer{dryRun: dryRun}
}

func (w *Writer) DryRun() bool { return w.dryRun }

func (w *Writer) WriteFile(path string, data []byte, perm os.FileMode) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.dryRun {
		w.pending = appendOnce(w.pending, path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	w.written = appendOnce(w.written, path)
	return nil
}

// Pending lists the files a dry run would have written, in first-write order.
func (w *Writer) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.pending...)
}

// Written lists the files actually written.
func (w *Writer) Written() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.written...)
}

func appendOnce(list []string, path string) []string {
	for _, p := range list {
		if p == path {
			return list
		}
	}
	return append(list, path)
}
