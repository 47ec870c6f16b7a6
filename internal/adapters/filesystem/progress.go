// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/encheres/internal/ports/secondary"
)

const (
	progressFile = "progress.json"
	cancelFile   = "cancel"
)

// progressDoc is the JSON document read by external monitors.
type progressDoc struct {
	JobID     string    `json:"job_id"`
	RunID     int64     `json:"run_id"`
	Type      string    `json:"scrape_type"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Unchanged int       `json:"unchanged"`
	Errors    int       `json:"errors"`
	Pages     int       `json:"pages_scraped"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Elapsed   float64   `json:"elapsed_seconds"`
	Message   string    `json:"message,omitempty"`
}

// ProgressAdapter implements secondary.ProgressReporter by rewriting a JSON
// file in the run directory. It also owns the cancel flag.
type ProgressAdapter struct {
	dir   string
	jobID string
	now   func() time.Time

	mu sync.Mutex
}

// NewProgressAdapter creates the run directory if needed. Each adapter gets
// a fresh job id so monitors can tell consecutive runs apart.
func NewProgressAdapter(dir string, now func() time.Time) (*ProgressAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &ProgressAdapter{
		dir:   dir,
		jobID: uuid.NewString(),
		now:   now,
	}, nil
}

// JobID identifies this process's batch in the progress file.
func (a *ProgressAdapter) JobID() string { return a.jobID }

// Path is the progress file location.
func (a *ProgressAdapter) Path() string { return filepath.Join(a.dir, progressFile) }

// Report replaces the progress file atomically. Safe for concurrent use.
func (a *ProgressAdapter) Report(p secondary.Progress) error {
	now := a.now()
	doc := progressDoc{
		JobID:     a.jobID,
		RunID:     p.RunID,
		Type:      string(p.Type),
		Status:    string(p.Status),
		Total:     p.Total,
		Processed: p.Counters.Processed(),
		Created:   p.Counters.ListingsNew,
		Updated:   p.Counters.ListingsUpdated,
		Unchanged: p.Counters.Unchanged,
		Errors:    p.Counters.Errors,
		Pages:     p.Counters.PagesScraped,
		StartedAt: p.StartedAt,
		UpdatedAt: now,
		Elapsed:   now.Sub(p.StartedAt).Seconds(),
		Message:   p.Message,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tmp := a.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write progress: %w", err)
	}
	if err := os.Rename(tmp, a.Path()); err != nil {
		return fmt.Errorf("failed to replace progress file: %w", err)
	}
	return nil
}

// ReadProgress loads the last published progress document.
func ReadProgress(dir string) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(dir, progressFile))
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse progress file: %w", err)
	}
	return doc, nil
}

// CancelFlag is the file other processes drop to stop a running batch.
type CancelFlag struct {
	path string
}

// NewCancelFlag returns the flag living in dir.
func NewCancelFlag(dir string) *CancelFlag {
	return &CancelFlag{path: filepath.Join(dir, cancelFile)}
}

// Request raises the flag.
func (f *CancelFlag) Request() error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(time.Now().UTC().Format(time.RFC3339)), 0o644); err != nil {
		return fmt.Errorf("failed to write cancel flag: %w", err)
	}
	return nil
}

// Requested reports whether the flag is raised.
func (f *CancelFlag) Requested() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Clear lowers the flag. A missing flag is not an error.
func (f *CancelFlag) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear cancel flag: %w", err)
	}
	return nil
}

// Watch returns a context cancelled when the flag is raised. The watcher
// stops when the returned stop function is called or ctx ends.
func (f *CancelFlag) Watch(ctx context.Context, interval time.Duration) (context.Context, context.CancelFunc) {
	wctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-wctx.Done():
				return
			case <-ticker.C:
				if f.Requested() {
					cancel()
					return
				}
			}
		}
	}()
	return wctx, cancel
}

// Ensure ProgressAdapter implements the interface
var _ secondary.ProgressReporter = (*ProgressAdapter)(nil)
