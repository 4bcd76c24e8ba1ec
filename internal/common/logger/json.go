package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// JSONLogger writes audit entries as JSON Lines (one object per line).
// It mirrors CSVLogger's buffering behavior so either format can back the
// audit trail; the header columns become the field names of each object.
type JSONLogger struct {
	writer     *bufio.Writer
	file       *os.File
	toolName   string
	action     string
	columns    []string  // Field names set by WriteHeader
	rowCount   int       // Number of rows written since last flush
	lastFlush  time.Time // Time of last flush
	flushEvery int       // Flush every N rows
}

// NewJSONLogger creates a new JSON Lines audit logger for the specified
// tool and action. Filename pattern: %TEMP%\_{toolName}_{action}_{date}.jsonl
func NewJSONLogger(toolName, action string) (*JSONLogger, error) {
	tempDir := os.TempDir()

	dateStr := time.Now().Format("2006-01-02")
	fileName := fmt.Sprintf("_%s_%s_%s.jsonl", toolName, action, dateStr)
	filePath := filepath.Join(tempDir, fileName)

	// Open or create file (append mode)
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not create JSON log file: %w", err)
	}

	return &JSONLogger{
		writer:     bufio.NewWriter(file),
		file:       file,
		toolName:   toolName,
		action:     action,
		lastFlush:  time.Now(),
		flushEvery: 10, // Flush every 10 rows or on close
	}, nil
}

// WriteHeader records the field names used for subsequent rows.
// Unlike CSV, no header line is written; the names are embedded in every
// JSON object instead.
func (l *JSONLogger) WriteHeader(columns []string) error {
	l.columns = append([]string(nil), columns...)
	return nil
}

// WriteRow writes one JSON object mapping the header columns to the row
// values. A timestamp field is always included. Returns an error if called
// before WriteHeader or if the row length does not match the header.
func (l *JSONLogger) WriteRow(row []string) error {
	if l.writer == nil {
		return fmt.Errorf("JSON writer is not initialized")
	}
	if len(l.columns) == 0 {
		return fmt.Errorf("WriteHeader must be called before WriteRow")
	}
	if len(row) != len(l.columns) {
		return fmt.Errorf("row has %d values but header has %d columns", len(row), len(l.columns))
	}

	entry := make(map[string]string, len(row)+1)
	entry["timestamp"] = time.Now().Format("2006-01-02 15:04:05")
	for i, col := range l.columns {
		entry[col] = row[i]
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON row: %w", err)
	}

	if _, err := l.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write JSON row: %w", err)
	}

	l.rowCount++

	// Flush every N rows or every 5 seconds
	if l.rowCount%l.flushEvery == 0 || time.Since(l.lastFlush) > 5*time.Second {
		if err := l.writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush JSON log: %w", err)
		}
		l.lastFlush = time.Now()
	}

	return nil
}

// Close flushes any buffered rows and closes the underlying file.
func (l *JSONLogger) Close() error {
	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			return fmt.Errorf("error flushing JSON log on close: %w", err)
		}
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// ShouldWriteHeader reports whether WriteHeader still needs to be called.
// Unlike CSV, the field names must be registered every run regardless of
// whether the file already has content, so this is true until WriteHeader
// has been called on this logger.
func (l *JSONLogger) ShouldWriteHeader() (bool, error) {
	return len(l.columns) == 0, nil
}
