// Package main provides a portable CLI tool for administering SharePoint
// Online report tasks: ad hoc guest user reports and document reports
// across site collections.
//
// Task definitions and report results persist in a local sqlite database;
// tenant connections and cached sign-in tokens are managed by the
// companion spconn tool.
//
// Authentication methods supported:
//   - Client Secret: Standard App Registration secret
//   - PFX Certificate: Certificate file with private key
//   - Cached token: captured earlier by spconn's interactive sign-in
//
// All operations are automatically logged to action-specific CSV or JSON
// Lines files in the system temp directory for audit and troubleshooting
// purposes (see -logformat).
//
// Example usage:
//
//	sptask -action createtask -name "Quarterly guests" -conn contoso -sites "https://contoso.sharepoint.com/sites/hr"
//	sptask -action runtask -task 1 -secret "..."
//
// Version information is embedded from the VERSION file at compile time using go:embed.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"sptool/internal/auth"
	"sptool/internal/common/logger"
	"sptool/internal/common/version"
	"sptool/internal/connection"
	"sptool/internal/task"
)

func main() {
	// Handle -completion flag FIRST, before anything else runs
	// This ensures only completion script is output, all other flags are ignored
	for i, arg := range os.Args {
		if arg == "-completion" && i+1 < len(os.Args) {
			shellType := os.Args[i+1]
			if shellType == "bash" {
				fmt.Print(generateBashCompletion())
				os.Exit(0)
			} else if shellType == "powershell" {
				fmt.Print(generatePowerShellCompletion())
				os.Exit(0)
			} else {
				fmt.Fprintf(os.Stderr, "Error: Invalid completion shell type '%s'\n", shellType)
				fmt.Fprintf(os.Stderr, "Valid options: bash, powershell\n\n")
				fmt.Fprintf(os.Stderr, "Usage:\n")
				fmt.Fprintf(os.Stderr, "  %s -completion bash > sptask-completion.bash\n", os.Args[0])
				fmt.Fprintf(os.Stderr, "  %s -completion powershell > sptask-completion.ps1\n", os.Args[0])
				os.Exit(1)
			}
		}
	}

	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

// setupSignalHandling configures graceful shutdown on interrupt signals.
// The first signal cancels the returned context; a second one terminates
// the process immediately for runs that ignore cancellation.
func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal. Shutting down gracefully...")
		cancel()
		<-sigChan
		fmt.Println("Second interrupt received. Exiting now.")
		os.Exit(130)
	}()

	return ctx, cancel
}

// defaultDBPath returns the per-user location of the task database.
func defaultDBPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(dir, "sptool", "tasks.db"), nil
}

// services bundles the injected collaborators the action handlers use.
type services struct {
	store *task.Store
	conns *connection.Registry
	auth  *auth.Service
}

// initializeServices opens the task store, the connection registry, and
// the token cache behind the authentication service.
func initializeServices(config *Config) (*services, logger.Logger, error) {
	logFormat, err := logger.ParseLogFormat(config.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	auditLogger, err := logger.NewLogger(logFormat, "sptask", config.Action)
	if err != nil {
		log.Printf("Warning: Could not initialize audit logging: %v", err)
		auditLogger = nil // Continue without logging
	}
	if auditLogger != nil {
		if needHeader, err := auditLogger.ShouldWriteHeader(); err == nil && needHeader {
			if err := auditLogger.WriteHeader([]string{"Action", "Status", "Task", "Details", "Reference"}); err != nil {
				log.Printf("Warning: Could not write audit log header: %v", err)
			}
		}
	}

	dbPath := config.DBPath
	if dbPath == "" {
		dbPath, err = defaultDBPath()
		if err != nil {
			return nil, auditLogger, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, auditLogger, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := task.Open(dbPath)
	if err != nil {
		return nil, auditLogger, err
	}

	connPath, err := connection.DefaultPath()
	if err != nil {
		store.Close()
		return nil, auditLogger, err
	}
	cachePath, err := auth.DefaultCachePath()
	if err != nil {
		store.Close()
		return nil, auditLogger, err
	}

	slogger := logger.SetupLogger(config.VerboseMode, config.LogLevel)
	return &services{
		store: store,
		conns: connection.NewRegistry(connPath),
		auth:  auth.NewService(auth.NewTokenCache(cachePath), slogger),
	}, auditLogger, nil
}

// run is the main application entry point that orchestrates the tool's
// execution flow: signal handling, configuration, service wiring, and
// action dispatch.
func run() error {
	// 1. Setup signal handling for graceful shutdown
	ctx, cancel := setupSignalHandling()
	defer cancel()

	// 2. Parse command-line flags and apply environment variables
	config := parseAndConfigureFlags()

	// 3. Handle version flag early exit
	if config.ShowVersion {
		fmt.Printf("SharePoint Online Task Administration Tool - Version %s\n", version.Get())
		return nil
	}

	// 4. Validate configuration
	if err := validateConfiguration(config); err != nil {
		fmt.Printf("Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	// 5. Setup structured logger
	slogger := logger.SetupLogger(config.VerboseMode, config.LogLevel)
	logger.LogInfo(slogger, "Application starting", "version", version.Get(), "action", config.Action)

	// 6. Initialize services (audit logging, store, registry, auth)
	svc, auditLogger, err := initializeServices(config)
	if auditLogger != nil {
		defer auditLogger.Close()
	}
	if err != nil {
		return err
	}
	defer svc.store.Close()

	// 7. Execute the requested action
	return executeAction(ctx, config, svc, slogger, auditLogger)
}
