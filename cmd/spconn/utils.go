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

// writeAuditRow appends one row to the audit log if logging is enabled.
// Columns: action, status, connection, details.
func writeAuditRow(auditLogger logger.Logger, action, status, connID, details string) {
	if auditLogger == nil {
		return
	}
	if err := auditLogger.WriteRow([]string{action, status, connID, details}); err != nil {
		fmt.Printf("Warning: failed to write audit log entry: %v\n", err)
	}
}

// generateBashCompletion generates a bash completion script for the tool
func generateBashCompletion() string {
	return `# spconn bash completion script
# Installation:
#   Linux: Copy to /etc/bash_completion.d/spconn
#   macOS: Copy to /usr/local/etc/bash_completion.d/spconn
#   Manual: source this file in your ~/.bashrc

_spconn_completions() {
    local cur prev opts
    COMPREPLY=()
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    # All available flags
    opts="-action -conn -name -tenantid -clientid -url
          -output -logformat -verbose -loglevel -version -help -completion"

    # Flag-specific completions
    case "${prev}" in
        -action)
            # Suggest valid actions
            COMPREPLY=( $(compgen -W "addconn listconns removeconn signin checkauth" -- ${cur}) )
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
        -conn|-name|-tenantid|-clientid|-url)
            # String values - no completion
            return 0
            ;;
    esac

    # Default: complete with flag names
    COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
    return 0
}

# Register the completion function for the tool
complete -F _spconn_completions spconn.exe
complete -F _spconn_completions spconn
complete -F _spconn_completions ./spconn.exe
complete -F _spconn_completions ./spconn
`
}

// generatePowerShellCompletion generates a PowerShell completion script for the tool
func generatePowerShellCompletion() string {
	return `# spconn PowerShell completion script
# Installation:
#   Add to your PowerShell profile: notepad $PROFILE
#   Or run manually: . .\spconn-completion.ps1

Register-ArgumentCompleter -CommandName spconn.exe,spconn,'.\spconn.exe','.\spconn' -ScriptBlock {
    param($commandName, $parameterName, $wordToComplete, $commandAst, $fakeBoundParameters)

    # Define valid actions
    $actions = @('addconn', 'listconns', 'removeconn', 'signin', 'checkauth')

    # Define log levels
    $logLevels = @('DEBUG', 'INFO', 'WARN', 'ERROR')

    # Define shell types for completion flag
    $shellTypes = @('bash', 'powershell')

    # All flags that accept values
    $flags = @(
        '-action', '-conn', '-name', '-tenantid', '-clientid', '-url',
        '-output', '-logformat', '-loglevel', '-completion', '-verbose', '-version', '-help'
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
    }

    # Default: complete with flag names
    $flags | Where-Object { $_ -like "$wordToComplete*" } | ForEach-Object {
        [System.Management.Automation.CompletionResult]::new($_, $_, 'ParameterValue', "Flag: $_")
    }
}
`
}
