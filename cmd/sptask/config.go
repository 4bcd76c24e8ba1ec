package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"sptool/internal/common/validation"
	"sptool/internal/task"
)

// Config holds all sptask configuration.
type Config struct {
	// Core configuration
	ShowVersion bool
	Action      string

	// Task definition inputs
	TaskID       int64
	Name         string
	TaskType     string
	ConnectionID string
	Sites        string // comma/semicolon separated site URLs
	ConfigJSON   string

	// Report display and export
	File       string // export destination or import source
	FilterSite string
	SearchTerm string

	// Authentication
	Secret  string
	PfxPath string
	PfxPass string

	// Storage
	DBPath string

	// Network configuration
	MaxRetries int
	RetryDelay time.Duration
	RateLimit  float64

	// Runtime configuration
	VerboseMode  bool
	LogLevel     string
	OutputFormat string
	LogFormat    string // Audit log file format: csv, json
}

// Action constants
const (
	ActionCreateTask    = "createtask"
	ActionListTasks     = "listtasks"
	ActionShowTask      = "showtask"
	ActionRunTask       = "runtask"
	ActionDeleteTask    = "deletetask"
	ActionShowReport    = "showreport"
	ActionExportReport  = "exportreport"
	ActionExportSummary = "exportsummary"
	ActionImportSites   = "importsites"
)

// Status constants for CSV audit logging
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		TaskType:     string(task.TypeGuestUsers),
		MaxRetries:   3,
		RetryDelay:   2000 * time.Millisecond,
		RateLimit:    0, // Unlimited by default
		VerboseMode:  false,
		LogLevel:     "INFO",
		OutputFormat: "text",
		LogFormat:    "csv",
	}
}

// parseAndConfigureFlags parses command-line flags and environment variables.
func parseAndConfigureFlags() *Config {
	config := NewConfig()

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "SharePoint Online Task Administration Tool - Part of sptool suite\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nEnvironment Variables:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  All flags can be set via environment variables with SPTASK prefix\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  Example: SPTASKACTION, SPTASKCONN, SPTASKDB\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Actions:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  createtask    - Create a report task (requires -name, -conn, -sites)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  listtasks     - List stored tasks\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  showtask      - Show one task's definition (requires -task)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  runtask       - Execute a task's report (requires -task)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  deletetask    - Delete a task and its results (requires -task)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  showreport    - Display the latest stored report (requires -task)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  exportreport  - Export the latest report to CSV (requires -task, -file)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  exportsummary - Export the per-site summary to CSV (requires -task, -file)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  importsites   - Import target site URLs from a file (requires -task, -file)\n")
	}

	// Core flags
	showVersion := flag.Bool("version", false, "Show version information")
	action := flag.String("action", "", "Action to perform (env: SPTASKACTION)")

	// Task definition
	taskID := flag.Int64("task", 0, "Task ID (env: SPTASKID)")
	name := flag.String("name", "", "Task name (env: SPTASKNAME)")
	taskType := flag.String("type", string(task.TypeGuestUsers), "Task type: adhocusers, documents (env: SPTASKTYPE)")
	conn := flag.String("conn", "", "Connection ID (env: SPTASKCONN)")
	sites := flag.String("sites", "", "Target site URLs, comma or semicolon separated (env: SPTASKSITES)")
	configJSON := flag.String("config", "", "Opaque task configuration JSON (env: SPTASKCONFIG)")

	// Report display and export
	file := flag.String("file", "", "File path for export/import actions (env: SPTASKFILE)")
	filterSite := flag.String("filtersite", "", "Restrict report rows to one site URL")
	search := flag.String("search", "", "Case-insensitive search over report columns")

	// Authentication
	secret := flag.String("secret", "", "Client Secret (env: SPTASKSECRET)")
	pfxPath := flag.String("pfxfile", "", "Path to PFX certificate file (env: SPTASKPFXFILE)")
	pfxPass := flag.String("pfxpass", "", "PFX file password (env: SPTASKPFXPASS)")

	// Storage
	dbPath := flag.String("db", "", "Path to the task database (env: SPTASKDB)")

	// Network configuration
	maxRetries := flag.Int("maxretries", 3, "Maximum retry attempts (env: SPTASKMAXRETRIES)")
	retryDelay := flag.Int("retrydelay", 2000, "Retry delay in milliseconds (env: SPTASKRETRYDELAY)")
	rateLimit := flag.Float64("ratelimit", 0, "Rate limit (requests/second, 0=unlimited) (env: SPTASKRATELIMIT)")

	// Runtime configuration
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	logLevel := flag.String("loglevel", "INFO", "Log level: DEBUG, INFO, WARN, ERROR")
	output := flag.String("output", "text", "Output format: text, json (env: SPTASKOUTPUT)")
	logFormat := flag.String("logformat", "csv", "Audit log file format: csv, json (env: SPTASKLOGFORMAT)")

	flag.Parse()

	// Apply flag values
	config.ShowVersion = *showVersion
	config.Action = *action
	config.TaskID = *taskID
	config.Name = *name
	config.TaskType = *taskType
	config.ConnectionID = *conn
	config.Sites = *sites
	config.ConfigJSON = *configJSON
	config.File = *file
	config.FilterSite = *filterSite
	config.SearchTerm = *search
	config.Secret = *secret
	config.PfxPath = *pfxPath
	config.PfxPass = *pfxPass
	config.DBPath = *dbPath
	config.MaxRetries = *maxRetries
	config.RetryDelay = time.Duration(*retryDelay) * time.Millisecond
	config.RateLimit = *rateLimit
	config.VerboseMode = *verbose
	config.LogLevel = *logLevel
	config.OutputFormat = *output
	config.LogFormat = *logFormat

	// Apply environment variables (override defaults if flags not set)
	applyEnvOverrides(config)

	return config
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("SPTASKACTION"); v != "" && config.Action == "" {
		config.Action = v
	}
	if v := os.Getenv("SPTASKID"); v != "" && config.TaskID == 0 {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			config.TaskID = id
		}
	}
	if v := os.Getenv("SPTASKNAME"); v != "" && config.Name == "" {
		config.Name = v
	}
	if v := os.Getenv("SPTASKTYPE"); v != "" && config.TaskType == string(task.TypeGuestUsers) {
		config.TaskType = v
	}
	if v := os.Getenv("SPTASKCONN"); v != "" && config.ConnectionID == "" {
		config.ConnectionID = v
	}
	if v := os.Getenv("SPTASKSITES"); v != "" && config.Sites == "" {
		config.Sites = v
	}
	if v := os.Getenv("SPTASKCONFIG"); v != "" && config.ConfigJSON == "" {
		config.ConfigJSON = v
	}
	if v := os.Getenv("SPTASKFILE"); v != "" && config.File == "" {
		config.File = v
	}
	if v := os.Getenv("SPTASKSECRET"); v != "" && config.Secret == "" {
		config.Secret = v
	}
	if v := os.Getenv("SPTASKPFXFILE"); v != "" && config.PfxPath == "" {
		config.PfxPath = v
	}
	if v := os.Getenv("SPTASKPFXPASS"); v != "" && config.PfxPass == "" {
		config.PfxPass = v
	}
	if v := os.Getenv("SPTASKDB"); v != "" && config.DBPath == "" {
		config.DBPath = v
	}
	if v := os.Getenv("SPTASKMAXRETRIES"); v != "" {
		if max, err := strconv.Atoi(v); err == nil {
			config.MaxRetries = max
		}
	}
	if v := os.Getenv("SPTASKRETRYDELAY"); v != "" {
		if delay, err := strconv.Atoi(v); err == nil {
			config.RetryDelay = time.Duration(delay) * time.Millisecond
		}
	}
	if v := os.Getenv("SPTASKRATELIMIT"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			config.RateLimit = rate
		}
	}
	if v := os.Getenv("SPTASKOUTPUT"); v != "" {
		config.OutputFormat = v
	}
	if v := os.Getenv("SPTASKLOGFORMAT"); v != "" {
		config.LogFormat = v
	}
	if v := os.Getenv("SPTASKLOGLEVEL"); v != "" {
		config.LogLevel = v
	}
	if parseBoolEnv("SPTASKVERBOSE") {
		config.VerboseMode = true
	}
}

// parseBoolEnv parses a boolean environment variable.
func parseBoolEnv(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

// validateConfiguration validates the configuration.
func validateConfiguration(config *Config) error {
	validActions := []string{
		ActionCreateTask, ActionListTasks, ActionShowTask, ActionRunTask,
		ActionDeleteTask, ActionShowReport, ActionExportReport,
		ActionExportSummary, ActionImportSites,
	}
	actionValid := false
	for _, a := range validActions {
		if config.Action == a {
			actionValid = true
			break
		}
	}
	if !actionValid {
		return fmt.Errorf("invalid action: %s (valid: %s)", config.Action, strings.Join(validActions, ", "))
	}

	if config.OutputFormat != "text" && config.OutputFormat != "json" {
		return fmt.Errorf("invalid output format: %s (valid: text, json)", config.OutputFormat)
	}
	if config.LogFormat != "csv" && config.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (valid: csv, json)", config.LogFormat)
	}

	// Action-specific validation
	switch config.Action {
	case ActionCreateTask:
		// All three inputs must be present before any service is touched;
		// report every missing one at once.
		var missing []string
		if config.ConnectionID == "" {
			missing = append(missing, "-conn")
		}
		if strings.TrimSpace(config.Name) == "" {
			missing = append(missing, "-name")
		}
		if splitSiteList(config.Sites) == nil {
			missing = append(missing, "-sites")
		}
		if len(missing) > 0 {
			return fmt.Errorf("createtask requires %s", strings.Join(missing, ", "))
		}
		if err := validation.ValidateTaskName(config.Name); err != nil {
			return err
		}
		if err := validation.ValidateConnectionID(config.ConnectionID); err != nil {
			return err
		}
		if _, err := task.ParseType(config.TaskType); err != nil {
			return err
		}
		if err := validation.ValidateSiteURLs(splitSiteList(config.Sites), "-sites"); err != nil {
			return err
		}
	case ActionShowTask, ActionRunTask, ActionDeleteTask, ActionShowReport:
		if config.TaskID <= 0 {
			return fmt.Errorf("%s requires -task", config.Action)
		}
	case ActionExportReport, ActionExportSummary, ActionImportSites:
		if config.TaskID <= 0 {
			return fmt.Errorf("%s requires -task", config.Action)
		}
		if config.File == "" {
			return fmt.Errorf("%s requires -file", config.Action)
		}
		if config.Action == ActionImportSites {
			if err := validation.ValidateFilePath(config.File, "-file"); err != nil {
				return fmt.Errorf("invalid import file: %w", err)
			}
		}
	}

	return nil
}

// splitSiteList splits the -sites flag value into trimmed URLs.
func splitSiteList(sites string) []string {
	fields := strings.FieldsFunc(sites, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var urls []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			urls = append(urls, f)
		}
	}
	return urls
}
