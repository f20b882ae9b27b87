package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
)

// FileSink appends items to a newline-delimited flat file. Each batch is
// written under a section header:
//
//	--- <provenance label> [<timestamp>] ---
//	- <action text>
//
// The format is load-bearing: other tooling reads this file.
type FileSink struct {
	path string
	now  func() time.Time
}

var (
	_ ports.Sink             = (*FileSink)(nil)
	_ ports.DuplicateChecker = (*FileSink)(nil)
)

// NewFileSink wires the target path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path, now: time.Now}
}

// Name identifies the sink in logs and write results.
func (s *FileSink) Name() string {
	return "file"
}

// ExistingActions returns the action text of every `- ` line already in the
// file. A missing file means nothing recorded yet.
func (s *FileSink) ExistingActions(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open todo file: %w", err)
	}
	defer f.Close()

	var actions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "- ") {
			actions = append(actions, strings.TrimPrefix(line, "- "))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read todo file: %w", err)
	}

	return actions, nil
}

// Write appends one section for the batch.
func (s *FileSink) Write(ctx context.Context, items []domain.CanonicalItem, label string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create todo dir: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open todo file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "\n--- %s [%s] ---\n", label, s.now().Format("2006-01-02 15:04"))
	for _, item := range items {
		fmt.Fprintf(&b, "- %s\n", item.Action)
	}
	b.WriteString("\n")

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append todos: %w", err)
	}
	return nil
}
