package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
	"github.com/searchlight-oss/indexer-core/internal/core/ports/driven"
)

// maxLineBytes bounds one record line; news articles with inline vectors can
// run long.
const maxLineBytes = 16 * 1024 * 1024

// Verify interface compliance
var _ driven.RecordSource = (*Source)(nil)

// Source streams records from newline-delimited JSON files, one record per
// line, in file and line order.
type Source struct{}

// NewSource creates a new JSONL record source.
func NewSource() *Source {
	return &Source{}
}

func (s *Source) Stream(ctx context.Context, sources []string, fn func(domain.RawRecord) error) error {
	for _, path := range sources {
		if err := s.streamFile(ctx, path, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) streamFile(ctx context.Context, path string, fn func(domain.RawRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open source %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var record domain.RawRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return fmt.Errorf("%s:%d: parse record: %w", path, line, err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read source %s: %w", path, err)
	}
	return nil
}
