package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/sentra-systems/sentra/internal/models"
)

// csvHeader is the column layout of the downstream decision feed.
// Enforcement points key on access_decision and automated_response.
var csvHeader = []string{
	"event_id",
	"timestamp",
	"source_ip",
	"dest_ip",
	"port",
	"protocol",
	"risk_score",
	"attack_type",
	"access_decision",
	"automated_response",
}

// CSVFeed appends decisions to a CSV file. Rows are flushed after every
// write so the file stays consumable by tail-style readers.
type CSVFeed struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVFeed opens (or creates) the feed file at path in append mode.
// The header row is written only when the file is empty.
func NewCSVFeed(path string) (*CSVFeed, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open feed file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat feed file: %w", err)
	}

	f := &CSVFeed{file: file, writer: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := f.writer.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write feed header: %w", err)
		}
		f.writer.Flush()
		if err := f.writer.Error(); err != nil {
			file.Close()
			return nil, fmt.Errorf("flush feed header: %w", err)
		}
	}
	return f, nil
}

// Publish appends one decision row.
func (f *CSVFeed) Publish(ctx context.Context, scored models.ScoredEvent, dec models.Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row := []string{
		dec.EventID,
		scored.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		scored.SourceIP,
		scored.DestIP,
		strconv.Itoa(scored.Port),
		scored.Protocol,
		strconv.FormatFloat(dec.RiskScore, 'f', 2, 64),
		string(dec.AttackType),
		string(dec.AccessDecision),
		dec.AutomatedResponse,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.writer.Write(row); err != nil {
		return fmt.Errorf("write feed row: %w", err)
	}
	f.writer.Flush()
	if err := f.writer.Error(); err != nil {
		return fmt.Errorf("flush feed row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (f *CSVFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writer.Flush()
	flushErr := f.writer.Error()
	closeErr := f.file.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
