package logger

import "fmt"

// LogFormat selects the on-disk format of the audit log file.
type LogFormat string

const (
	LogFormatCSV  LogFormat = "csv"
	LogFormatJSON LogFormat = "json"
)

// ParseLogFormat converts a user-supplied format string into a LogFormat.
// An empty string defaults to CSV.
func ParseLogFormat(s string) (LogFormat, error) {
	switch s {
	case "", "csv":
		return LogFormatCSV, nil
	case "json", "jsonl":
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown log format: %s (valid: csv, json)", s)
	}
}

// Logger is the common surface of the CSV and JSON Lines audit loggers.
// Callers check ShouldWriteHeader before WriteHeader so a CSV file that
// already has a header is not given a second one, while a JSON logger
// gets its field names registered every run.
type Logger interface {
	WriteHeader(columns []string) error
	WriteRow(row []string) error
	ShouldWriteHeader() (bool, error)
	Close() error
}

// NewLogger creates an audit logger in the requested format for the
// given tool and action.
func NewLogger(format LogFormat, toolName, action string) (Logger, error) {
	switch format {
	case LogFormatJSON:
		l, err := NewJSONLogger(toolName, action)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		l, err := NewCSVLogger(toolName, action)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}
