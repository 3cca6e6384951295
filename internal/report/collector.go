// Package report collects pattern results into a single run document and
// renders them for the terminal.
package report

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/apresai/promptpatterns/internal/scoring"
)

// Entry is one model output inside a pattern.
type Entry struct {
	Scenario       string  `json:"scenario"`
	Label          string  `json:"label"`
	Input          string  `json:"input"`
	Output         string  `json:"output"`
	ElapsedSeconds float64 `json:"elapsed_sec"`
	Metrics        any     `json:"metrics,omitempty"`
}

// PatternLog groups the entries of one pattern run.
type PatternLog struct {
	Pattern   string  `json:"pattern"`
	Advanced  bool    `json:"advanced"`
	Model     string  `json:"model,omitempty"`
	Scenarios []Entry `json:"scenarios"`
}

// Document is the serialized run log.
type Document struct {
	RunID     string       `json:"run_id"`
	ModelID   string       `json:"model_id"`
	Timestamp string       `json:"timestamp"`
	Patterns  []PatternLog `json:"patterns"`
}

// Collector accumulates results across the patterns of a run.
type Collector struct {
	mu       sync.Mutex
	runID    string
	patterns []PatternLog
	current  int
	now      func() time.Time
}

// NewCollector starts an empty run log.
func NewCollector() *Collector {
	return newCollector(time.Now)
}

func newCollector(now func() time.Time) *Collector {
	return &Collector{
		runID:   ulid.MustNew(ulid.Timestamp(now()), rand.Reader).String(),
		current: -1,
		now:     now,
	}
}

// RunID identifies this run in saved and uploaded logs.
func (c *Collector) RunID() string { return c.runID }

// StartPattern opens a new pattern section. model is recorded when runs
// for several models share one collector.
func (c *Collector) StartPattern(name string, advanced bool, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, PatternLog{
		Pattern:   name,
		Advanced:  advanced,
		Model:     model,
		Scenarios: []Entry{},
	})
	c.current = len(c.patterns) - 1
}

// AddResult appends to the open pattern. It is ignored before StartPattern.
func (c *Collector) AddResult(scenario, label, input, output string, elapsed float64, metrics any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current < 0 {
		return
	}
	c.patterns[c.current].Scenarios = append(c.patterns[c.current].Scenarios, Entry{
		Scenario:       scenario,
		Label:          label,
		Input:          input,
		Output:         output,
		ElapsedSeconds: scoring.Round(elapsed, 2),
		Metrics:        metrics,
	})
}

// Document snapshots the log for modelID.
func (c *Collector) Document(modelID string) Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	patterns := make([]PatternLog, len(c.patterns))
	copy(patterns, c.patterns)
	return Document{
		RunID:     c.runID,
		ModelID:   modelID,
		Timestamp: c.now().Format("2006-01-02T15:04:05.000000"),
		Patterns:  patterns,
	}
}

// WriteJSON writes the indented document to w. Non-ASCII text is kept as is.
func (c *Collector) WriteJSON(w io.Writer, modelID string) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.Document(modelID)); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

// Save writes the document to dir/run_YYYYMMDD_HHMMSS.json and returns the path.
func (c *Collector) Save(dir, modelID string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	path := filepath.Join(dir, "run_"+c.now().Format("20060102_150405")+".json")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create results file: %w", err)
	}
	if err := c.writeAndClose(f, modelID); err != nil {
		return "", err
	}
	return path, nil
}

// writeAndClose writes the document and reports a failed close, which is
// where a buffered write to disk surfaces its error.
func (c *Collector) writeAndClose(w io.WriteCloser, modelID string) error {
	if err := c.WriteJSON(w, modelID); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close results file: %w", err)
	}
	return nil
}
