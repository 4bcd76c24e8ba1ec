package main

import (
	"encoding/json"
	"fmt"

	"sptool/internal/common/logger"
)

// printJSON prints a value as indented JSON on stdout.
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Error formatting JSON output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

// truncate truncates a string to maxLen characters, adding ellipsis if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// plural selects the singular or plural suffix for a count.
func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}

// writeAuditRow appends one row to the audit log if logging is enabled.
// Columns: action, status, task, details, reference.
func writeAuditRow(auditLogger logger.Logger, action, status, taskName, details, reference string) {
	if auditLogger == nil {
		return
	}
	if err := auditLogger.WriteRow([]string{action, status, taskName, details, reference}); err != nil {
		fmt.Printf("Warning: failed to write audit log entry: %v\n", err)
	}
}

// generateBashCompletion generates a bash completion script for the tool
func generateBashCompletion() string {
	return `# sptask bash completion script
# Installation:
#   Linux: Copy to /etc/bash_completion.d/sptask
#   macOS: Copy to /usr/local/etc/bash_completion.d/sptask
#   Manual: source this file in your ~/.bashrc

_sptask_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # All available flags
    opts="-action -task -name -type -conn -sites -config -file -filtersite -search
          -secret -pfxfile -pfxpass -db -maxretries -retrydelay -ratelimit
          -output -logformat -verbose -loglevel -version -help -completion"

    # Flag-specific completions
    case "${prev}" in
        -action)
            # Suggest valid actions
            COMPREPLY=( $(compgen -W "createtask listtasks showtask runtask deletetask showreport exportreport exportsummary importsites" -- ${cur}) )
            return 0
            ;;
        -type)
            COMPREPLY=( $(compgen -W "adhocusers documents" -- ${cur}) )
            return 0
            ;;
        -file|-pfxfile|-db)
            # File path completion
            COMPREPLY=( $(compgen -f -- ${cur}) )
            return 0
            ;;
        -loglevel)
            # Suggest log levels
            COMPREPLY=( $(compgen -W "DEBUG INFO WARN ERROR" -- ${cur}) )
            return 0
            ;;
        -output)
            COMPREPLY=( $(compgen -W "text json" -- ${cur}) )
            return 0
            ;;
        -logformat)
            COMPREPLY=( $(compgen -W "csv json" -- ${cur}) )
            return 0
            ;;
        -completion)
            # Suggest shell types
            COMPREPLY=( $(compgen -W "bash powershell" -- ${cur}) )
            return 0
            ;;
        -version|-verbose|-help)
            # No completion after boolean flags
            return 0
            ;;
        -task|-maxretries|-retrydelay|-ratelimit)
            # Numeric values - no completion
            return 0
            ;;
        -name|-conn|-sites|-config|-filtersite|-search|-secret|-pfxpass)
            # String values - no completion
            return 0
            ;;
    esac

    # Default: complete with flag names
    COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
    return 0
}

# Register the completion function for the tool
complete -F _sptask_completions sptask.exe
complete -F _sptask_completions sptask
complete -F _sptask_completions ./sptask.exe
complete -F _sptask_completions ./sptask
`
}

// generatePowerShellCompletion generates a PowerShell completion script for the tool
func generatePowerShellCompletion() string {
	return `# sptask PowerShell completion script
# Installation:
#   Add to your PowerShell profile: notepad $PROFILE
#   Or run manually: . .\sptask-completion.ps1

Register-ArgumentCompleter -CommandName sptask.exe,sptask,'.\sptask.exe','.\sptask' -ScriptBlock {
    param($commandName, $parameterName, $wordToComplete, $commandAst, $fakeBoundParameters)

    # Define valid actions
    $actions = @('createtask', 'listtasks', 'showtask', 'runtask', 'deletetask', 'showreport', 'exportreport', 'exportsummary', 'importsites')

    # Define task types
    $taskTypes = @('adhocusers', 'documents')

    # Define log levels
    $logLevels = @('DEBUG', 'INFO', 'WARN', 'ERROR')

    # Define shell types for completion flag
    $shellTypes = @('bash', 'powershell')

    # All flags that accept values
    $flags = @(
        '-action', '-task', '-name', '-type', '-conn', '-sites', '-config',
        '-file', '-filtersite', '-search', '-secret', '-pfxfile', '-pfxpass',
        '-db', '-maxretries', '-retrydelay', '-ratelimit', '-output',
        '-logformat', '-loglevel', '-completion', '-verbose', '-version', '-help'
    )

    # Get the last word from command line
    $lastWord = ''
    if ($commandAst.CommandElements.Count -gt 1) {
        $lastWord = $commandAst.CommandElements[-2].ToString()
    }

    # Provide context-specific completions based on the previous flag
    switch ($lastWord) {
        '-action' {
            $actions | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Action: $_")
            }
            return
        }
        '-type' {
            $taskTypes | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Task Type: $_")
            }
            return
        }
        '-loglevel' {
            $logLevels | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Log Level: $_")
            }
            return
        }
        '-logformat' {
            @('csv', 'json') | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Log Format: $_")
            }
            return
        }
        '-completion' {
            $shellTypes | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Shell: $_")
            }
            return
        }
        { $_ -in '-file', '-pfxfile', '-db' } {
            Get-ChildItem -Path "$wordToComplete*" -ErrorAction SilentlyContinue | ForEach-Object {
                [System.Management.Automation.CompletionResult]::new($_.Name, $_.Name, 'ProviderItem', $_.FullName)
            }
            return
        }
    }

    # Default: complete with flag names
    $flags | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
        [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Flag: $_")
    }
}
`
}
