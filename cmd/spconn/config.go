package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"sptool/internal/common/validation"
)

// Config holds all spconn configuration.
type Config struct {
	// Core configuration
	ShowVersion bool
	Action      string

	// Connection inputs
	ConnectionID string
	Name         string
	TenantID     string
	ClientID     string
	PrimaryURL   string

	// Runtime configuration
	VerboseMode  bool
	LogLevel     string
	OutputFormat string
	LogFormat    string // Audit log file format: csv, json
}

// Action constants
const (
	ActionAddConn    = "addconn"
	ActionListConns  = "listconns"
	ActionRemoveConn = "removeconn"
	ActionSignIn     = "signin"
	ActionCheckAuth  = "checkauth"
)

// Status constants for CSV audit logging
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
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
		fmt.Fprintf(flag.CommandLine.Output(), "SharePoint Online Connection Tool - Part of sptool suite\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nEnvironment Variables:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  All flags can be set via environment variables with SPCONN prefix\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  Example: SPCONNACTION, SPCONNTENANTID, SPCONNCLIENTID\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Actions:\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  addconn       - Register a tenant connection (requires -conn, -name, -tenantid, -clientid, -url)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  listconns     - List registered connections\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  removeconn    - Remove a connection (requires -conn)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  signin        - Interactive device-code sign-in (requires -conn)\n")
		fmt.Fprintf(flag.CommandLine.Output(), "  checkauth     - Check stored credentials for a connection (requires -conn)\n")
	}

	// Core flags
	showVersion := flag.Bool("version", false, "Show version information")
	action := flag.String("action", "", "Action to perform (env: SPCONNACTION)")

	// Connection inputs
	conn := flag.String("conn", "", "Connection ID slug (env: SPCONNID)")
	name := flag.String("name", "", "Connection display name (env: SPCONNNAME)")
	tenantID := flag.String("tenantid", "", "Entra ID Tenant ID (env: SPCONNTENANTID)")
	clientID := flag.String("clientid", "", "App Registration Client ID (env: SPCONNCLIENTID)")
	primaryURL := flag.String("url", "", "Primary site URL for the tenant (env: SPCONNURL)")

	// Runtime configuration
	verbose := flag.Bool("verbose", false, "Enable verbose output")
	logLevel := flag.String("loglevel", "INFO", "Log level: DEBUG, INFO, WARN, ERROR")
	output := flag.String("output", "text", "Output format: text, json (env: SPCONNOUTPUT)")
	logFormat := flag.String("logformat", "csv", "Audit log file format: csv, json (env: SPCONNLOGFORMAT)")

	flag.Parse()

	// Apply flag values
	config.ShowVersion = *showVersion
	config.Action = *action
	config.ConnectionID = *conn
	config.Name = *name
	config.TenantID = *tenantID
	config.ClientID = *clientID
	config.PrimaryURL = *primaryURL
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
	if v := os.Getenv("SPCONNACTION"); v != "" && config.Action == "" {
		config.Action = v
	}
	if v := os.Getenv("SPCONNID"); v != "" && config.ConnectionID == "" {
		config.ConnectionID = v
	}
	if v := os.Getenv("SPCONNNAME"); v != "" && config.Name == "" {
		config.Name = v
	}
	if v := os.Getenv("SPCONNTENANTID"); v != "" && config.TenantID == "" {
		config.TenantID = v
	}
	if v := os.Getenv("SPCONNCLIENTID"); v != "" && config.ClientID == "" {
		config.ClientID = v
	}
	if v := os.Getenv("SPCONNURL"); v != "" && config.PrimaryURL == "" {
		config.PrimaryURL = v
	}
	if v := os.Getenv("SPCONNOUTPUT"); v != "" {
		config.OutputFormat = v
	}
	if v := os.Getenv("SPCONNLOGFORMAT"); v != "" {
		config.LogFormat = v
	}
	if v := os.Getenv("SPCONNLOGLEVEL"); v != "" {
		config.LogLevel = v
	}
	if parseBoolEnv("SPCONNVERBOSE") {
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
	validActions := []string{ActionAddConn, ActionListConns, ActionRemoveConn, ActionSignIn, ActionCheckAuth}
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
	case ActionAddConn:
		var missing []string
		if config.ConnectionID == "" {
			missing = append(missing, "-conn")
		}
		if strings.TrimSpace(config.Name) == "" {
			missing = append(missing, "-name")
		}
		if config.TenantID == "" {
			missing = append(missing, "-tenantid")
		}
		if config.ClientID == "" {
			missing = append(missing, "-clientid")
		}
		if config.PrimaryURL == "" {
			missing = append(missing, "-url")
		}
		if len(missing) > 0 {
			return fmt.Errorf("addconn requires %s", strings.Join(missing, ", "))
		}
		if err := validation.ValidateConnectionID(config.ConnectionID); err != nil {
			return err
		}
		if err := validation.ValidateGUID(config.TenantID, "-tenantid"); err != nil {
			return err
		}
		if err := validation.ValidateGUID(config.ClientID, "-clientid"); err != nil {
			return err
		}
		if err := validation.ValidateSiteURL(config.PrimaryURL); err != nil {
			return err
		}
	case ActionRemoveConn, ActionSignIn, ActionCheckAuth:
		if config.ConnectionID == "" {
			return fmt.Errorf("%s requires -conn", config.Action)
		}
	}

	return nil
}
