// Package main provides a CLI tool for managing SharePoint Online tenant
// connections and their cached sign-in tokens. Connections registered
// here are referenced by ID from the companion sptask tool.
//
// Example usage:
//
//	spconn -action addconn -conn contoso -name "Contoso Production" -tenantid "..." -clientid "..." -url "https://contoso.sharepoint.com"
//	spconn -action signin -conn contoso
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
	"syscall"

	"sptool/internal/auth"
	"sptool/internal/common/logger"
	"sptool/internal/common/version"
	"sptool/internal/connection"
)

func main() {
	// Handle -completion flag FIRST, before anything else runs
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
				fmt.Fprintf(os.Stderr, "  %s -completion bash > spconn-completion.bash\n", os.Args[0])
				fmt.Fprintf(os.Stderr, "  %s -completion powershell > spconn-completion.ps1\n", os.Args[0])
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
// A pending device-code sign-in aborts when the context is cancelled.
func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal. Shutting down gracefully...")
		cancel()
	}()

	return ctx, cancel
}

// run is the main application entry point.
func run() error {
	// 1. Setup signal handling for graceful shutdown
	ctx, cancel := setupSignalHandling()
	defer cancel()

	// 2. Parse command-line flags and apply environment variables
	config := parseAndConfigureFlags()

	// 3. Handle version flag early exit
	if config.ShowVersion {
		fmt.Printf("SharePoint Online Connection Tool - Version %s\n", version.Get())
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

	// 6. Initialize audit logging (CSV or JSON Lines)
	logFormat, err := logger.ParseLogFormat(config.LogFormat)
	if err != nil {
		return err
	}
	auditLogger, err := logger.NewLogger(logFormat, "spconn", config.Action)
	if err != nil {
		log.Printf("Warning: Could not initialize audit logging: %v", err)
		auditLogger = nil // Continue without logging
	}
	if auditLogger != nil {
		if needHeader, err := auditLogger.ShouldWriteHeader(); err == nil && needHeader {
			if err := auditLogger.WriteHeader([]string{"Action", "Status", "Connection", "Details"}); err != nil {
				log.Printf("Warning: Could not write audit log header: %v", err)
			}
		}
		defer auditLogger.Close()
	}

	// 7. Wire the registry and the authentication service
	connPath, err := connection.DefaultPath()
	if err != nil {
		return err
	}
	cachePath, err := auth.DefaultCachePath()
	if err != nil {
		return err
	}
	registry := connection.NewRegistry(connPath)
	authService := auth.NewService(auth.NewTokenCache(cachePath), slogger)

	// 8. Execute the requested action
	return executeAction(ctx, config, registry, authService, auditLogger)
}
