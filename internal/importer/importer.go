// Package importer reads batches of business events from CSV files and
// posts them through the journal engine.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cleared-dev/books/internal/journal"
)

// Parser converts an events file into Events.
type Parser interface {
	Parse(r io.Reader) ([]Event, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&EventsParser{})
	return r
}

// Post posts events in order. Each event is its own transaction; posting
// stops at the first failure and returns what was committed before it.
func Post(ctx context.Context, engine *journal.Engine, tenantID, actorID uuid.UUID, events []Event) ([]*journal.Transaction, error) {
	var posted []*journal.Transaction
	for _, ev := range events {
		txn, err := ev.post(ctx, engine, tenantID, actorID)
		if err != nil {
			return posted, fmt.Errorf("row %d (%s): %w", ev.Row, ev.Kind, err)
		}
		posted = append(posted, txn)
	}
	return posted, nil
}

// ImportFile parses path with p and posts its events.
func ImportFile(ctx context.Context, p Parser, engine *journal.Engine, tenantID, actorID uuid.UUID, path string) ([]*journal.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	events, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return Post(ctx, engine, tenantID, actorID, events)
}

// processedDir is the subdirectory of an import directory for posted files.
const processedDir = "processed"

// Scan returns CSV files in dir. A missing directory is empty.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
