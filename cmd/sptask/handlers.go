package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"sptool/internal/auth"
	"sptool/internal/common/logger"
	"sptool/internal/common/ratelimit"
	"sptool/internal/export"
	"sptool/internal/report"
	"sptool/internal/sharepoint"
	"sptool/internal/sitelist"
	"sptool/internal/task"
)

// executeAction dispatches the configured action to its handler.
func executeAction(ctx context.Context, config *Config, svc *services, slogger *slog.Logger, auditLogger logger.Logger) error {
	switch config.Action {
	case ActionCreateTask:
		return createTask(ctx, config, svc, slogger, auditLogger)
	case ActionListTasks:
		return listTasks(ctx, config, svc)
	case ActionShowTask:
		return showTask(ctx, config, svc)
	case ActionRunTask:
		return runTask(ctx, config, svc, slogger, auditLogger)
	case ActionDeleteTask:
		return deleteTask(ctx, config, svc, auditLogger)
	case ActionShowReport:
		return showReport(ctx, config, svc)
	case ActionExportReport:
		return exportReport(ctx, config, svc, auditLogger)
	case ActionExportSummary:
		return exportSummary(ctx, config, svc, auditLogger)
	case ActionImportSites:
		return importSites(ctx, config, svc, auditLogger)
	default:
		return fmt.Errorf("unknown action: %s", config.Action)
	}
}

func createTask(ctx context.Context, config *Config, svc *services, slogger *slog.Logger, auditLogger logger.Logger) error {
	conn, err := svc.conns.Get(config.ConnectionID)
	if err != nil {
		return fmt.Errorf("connection %q: %w", config.ConnectionID, err)
	}

	// Credential presence is part of the create gate: a task bound to a
	// tenant nobody signed in to would only ever fail at run time.
	if config.Secret == "" && config.PfxPath == "" && !svc.auth.HasStoredCredentials(conn.CookieDomain) {
		return fmt.Errorf("no stored credentials for %s (run: spconn -action signin -conn %s)",
			conn.CookieDomain, conn.ID)
	}

	taskType, err := task.ParseType(config.TaskType)
	if err != nil {
		return err
	}

	def := &task.Definition{
		Name:           strings.TrimSpace(config.Name),
		Type:           taskType,
		ConnectionID:   conn.ID,
		TargetSiteURLs: splitSiteList(config.Sites),
		ConfigJSON:     config.ConfigJSON,
	}
	if err := svc.store.SaveTask(ctx, def); err != nil {
		writeAuditRow(auditLogger, ActionCreateTask, StatusFailure, def.Name, err.Error(), "N/A")
		return fmt.Errorf("failed to save task: %w", err)
	}

	logger.LogInfo(slogger, "Task created", "id", def.ID, "name", def.Name, "type", def.Type, "sites", def.TotalSites())
	writeAuditRow(auditLogger, ActionCreateTask, StatusSuccess, def.Name, def.TypeDescription(), strconv.FormatInt(def.ID, 10))

	if config.OutputFormat == "json" {
		printJSON(def)
	} else {
		fmt.Printf("Created task %d: %s (%s, %d site(s))\n", def.ID, def.Name, def.TypeDescription(), def.TotalSites())
	}
	return nil
}

func listTasks(ctx context.Context, config *Config, svc *services) error {
	tasks, err := svc.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	if config.OutputFormat == "json" {
		printJSON(tasks)
		return nil
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found.")
		return nil
	}
	fmt.Printf("%-6s %-30s %-24s %-12s %s\n", "ID", "NAME", "TYPE", "STATUS", "SITES")
	for _, def := range tasks {
		fmt.Printf("%-6d %-30s %-24s %-12s %d\n",
			def.ID, truncate(def.Name, 30), def.TypeDescription(), def.Status, def.TotalSites())
	}
	fmt.Printf("\nTotal tasks: %d\n", len(tasks))
	return nil
}

func showTask(ctx context.Context, config *Config, svc *services) error {
	def, err := svc.store.GetTask(ctx, config.TaskID)
	if err != nil {
		return err
	}

	if config.OutputFormat == "json" {
		printJSON(def)
		return nil
	}

	fmt.Printf("Task %d\n", def.ID)
	fmt.Printf("  Name:       %s\n", def.Name)
	fmt.Printf("  Type:       %s\n", def.TypeDescription())
	fmt.Printf("  Status:     %s\n", def.StatusDescription())
	fmt.Printf("  Connection: %s\n", def.ConnectionID)
	fmt.Printf("  Created:    %s\n", def.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  Updated:    %s\n", def.UpdatedAt.Format("2006-01-02 15:04:05"))
	if def.LastRunAt != nil {
		fmt.Printf("  Last run:   %s\n", def.LastRunAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("  Target sites (%d):\n", def.TotalSites())
	for _, site := range def.TargetSiteURLs {
		fmt.Printf("    %s\n", site)
	}
	return nil
}

func deleteTask(ctx context.Context, config *Config, svc *services, auditLogger logger.Logger) error {
	def, err := svc.store.GetTask(ctx, config.TaskID)
	if err != nil {
		return err
	}
	if err := svc.store.DeleteTask(ctx, def.ID); err != nil {
		writeAuditRow(auditLogger, ActionDeleteTask, StatusFailure, def.Name, err.Error(), strconv.FormatInt(def.ID, 10))
		return fmt.Errorf("failed to delete task: %w", err)
	}
	writeAuditRow(auditLogger, ActionDeleteTask, StatusSuccess, def.Name, "Task and results removed", strconv.FormatInt(def.ID, 10))
	fmt.Printf("Deleted task %d: %s\n", def.ID, def.Name)
	return nil
}

func runTask(ctx context.Context, config *Config, svc *services, slogger *slog.Logger, auditLogger logger.Logger) error {
	def, err := svc.store.GetTask(ctx, config.TaskID)
	if err != nil {
		return err
	}
	conn, err := svc.conns.Get(def.ConnectionID)
	if err != nil {
		return fmt.Errorf("connection %q: %w", def.ConnectionID, err)
	}

	cred, err := svc.auth.Credential(conn, auth.Method{
		Secret:  config.Secret,
		PfxPath: config.PfxPath,
		PfxPass: config.PfxPass,
	})
	if err != nil {
		return err
	}
	graphClient, err := sharepoint.SetupGraphClient(cred, slogger)
	if err != nil {
		return err
	}

	limiter := ratelimit.New(config.RateLimit)
	logger.LogDebug(slogger, "Rate limiter configured", "limiter", limiter.String())
	client := sharepoint.NewGraphClient(graphClient, limiter, config.MaxRetries, config.RetryDelay, slogger)
	runner := sharepoint.NewRunner(client, slogger)

	// Mark the task running before the first Graph call
	def.Status = task.StatusRunning
	now := time.Now().UTC()
	def.LastRunAt = &now
	if err := svc.store.SaveTask(ctx, def); err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	progress := func(p task.Progress) {
		fmt.Printf("[%3d%%] %s\n", p.PercentComplete, p.Message)
	}

	session := report.NewSession()
	var resultJSON string
	var runErr error
	started, err := session.Toggle(ctx, func(runCtx context.Context) error {
		switch def.Type {
		case task.TypeGuestUsers:
			result, err := runner.RunGuestUsersReport(runCtx, def, progress)
			if err != nil {
				return err
			}
			data, marshalErr := json.Marshal(result)
			if marshalErr != nil {
				return fmt.Errorf("failed to encode result: %w", marshalErr)
			}
			resultJSON = string(data)
			return nil
		case task.TypeDocuments:
			result, err := runner.RunDocumentsReport(runCtx, def, progress)
			if err != nil {
				return err
			}
			data, marshalErr := json.Marshal(result)
			if marshalErr != nil {
				return fmt.Errorf("failed to encode result: %w", marshalErr)
			}
			resultJSON = string(data)
			return nil
		default:
			return fmt.Errorf("unknown task type: %s", def.Type)
		}
	})
	if err != nil {
		return err
	}
	if !started {
		return report.ErrAlreadyRunning
	}

	// An interrupt cancels ctx, which propagates to the run's child
	// context; the session returns to idle when the runner stops at the
	// next site or page boundary.
	runErr = session.Wait()

	// Persist the outcome; a cancelled run discards the partial result
	switch {
	case runErr == nil:
		success, resultSummary := summarizeResult(def.Type, resultJSON)
		if err := svc.store.SaveResult(ctx, def.ID, def.Type, success, resultJSON); err != nil {
			return fmt.Errorf("failed to save result: %w", err)
		}
		if success {
			def.Status = task.StatusCompleted
		} else {
			def.Status = task.StatusFailed
		}
		if err := svc.store.SaveTask(ctx, def); err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}
		writeAuditRow(auditLogger, ActionRunTask, StatusSuccess, def.Name, resultSummary, strconv.FormatInt(def.ID, 10))
		fmt.Printf("Run finished: %s\n", resultSummary)
		if def.Status == task.StatusFailed {
			return fmt.Errorf("run completed with site failures (see report for details)")
		}
		return nil
	case errors.Is(runErr, context.Canceled):
		def.Status = task.StatusCancelled
		if err := svc.store.SaveTask(context.Background(), def); err != nil {
			return fmt.Errorf("failed to update task status: %w", err)
		}
		writeAuditRow(auditLogger, ActionRunTask, StatusFailure, def.Name, "Cancelled", strconv.FormatInt(def.ID, 10))
		return fmt.Errorf("run cancelled")
	default:
		def.Status = task.StatusFailed
		if err := svc.store.SaveTask(context.Background(), def); err != nil {
			logger.LogError(slogger, "Failed to update task status", "error", err)
		}
		writeAuditRow(auditLogger, ActionRunTask, StatusFailure, def.Name, runErr.Error(), strconv.FormatInt(def.ID, 10))
		return fmt.Errorf("run failed: %w", runErr)
	}
}

// summarizeResult produces the one-line outcome for audit logging and
// reports whether the run succeeded on every site.
func summarizeResult(kind task.Type, resultJSON string) (bool, string) {
	switch kind {
	case task.TypeGuestUsers:
		var result report.GuestUsersResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return false, "unreadable result"
		}
		return result.Success, fmt.Sprintf("%d guest user(s), %d site(s) ok, %d failed",
			result.TotalGuestUsers, result.SuccessfulSites, result.FailedSites)
	case task.TypeDocuments:
		var result report.DocumentsResult
		if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
			return false, "unreadable result"
		}
		return result.Success, fmt.Sprintf("%d document(s) (%d bytes), %d site(s) ok, %d failed",
			result.TotalDocuments, result.TotalSizeBytes, result.SuccessfulSites, result.FailedSites)
	}
	return false, "unknown result kind"
}

// loadView fetches the latest stored result for a task and wraps it in
// a filterable view.
func loadView(ctx context.Context, svc *services, taskID int64) (*report.View, *task.Definition, error) {
	def, err := svc.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	stored, err := svc.store.LatestResult(ctx, def.ID, def.Type)
	if err != nil {
		return nil, nil, err
	}

	switch def.Type {
	case task.TypeGuestUsers:
		var result report.GuestUsersResult
		if err := json.Unmarshal([]byte(stored.ResultJSON), &result); err != nil {
			return nil, nil, fmt.Errorf("failed to decode stored result: %w", err)
		}
		return report.NewGuestUsersView(&result), def, nil
	case task.TypeDocuments:
		var result report.DocumentsResult
		if err := json.Unmarshal([]byte(stored.ResultJSON), &result); err != nil {
			return nil, nil, fmt.Errorf("failed to decode stored result: %w", err)
		}
		return report.NewDocumentsView(&result), def, nil
	}
	return nil, nil, fmt.Errorf("unknown task type: %s", def.Type)
}

func showReport(ctx context.Context, config *Config, svc *services) error {
	view, def, err := loadView(ctx, svc, config.TaskID)
	if err != nil {
		return err
	}
	view.FilterSite(config.FilterSite)
	view.Search(config.SearchTerm)

	rows := view.Rows()
	if config.OutputFormat == "json" {
		printJSON(map[string]any{
			"task":    def.ID,
			"columns": view.Columns(),
			"rows":    rows,
			"log":     view.Log(),
		})
		return nil
	}

	fmt.Printf("Report for task %d: %s\n\n", def.ID, def.Name)
	fmt.Println(strings.Join(view.Columns(), " | "))
	for _, row := range rows {
		fmt.Println(strings.Join(row.Columns, " | "))
	}
	fmt.Printf("\n%d row(s)", len(rows))
	if config.FilterSite != "" || config.SearchTerm != "" {
		fmt.Printf(" (of %d total)", view.TotalRows())
	}
	fmt.Println()

	if config.VerboseMode {
		fmt.Println("\nExecution log:")
		for _, line := range view.Log() {
			fmt.Printf("  %s\n", line)
		}
	}
	return nil
}

func exportReport(ctx context.Context, config *Config, svc *services, auditLogger logger.Logger) error {
	def, err := svc.store.GetTask(ctx, config.TaskID)
	if err != nil {
		return err
	}
	stored, err := svc.store.LatestResult(ctx, def.ID, def.Type)
	if err != nil {
		return err
	}

	switch def.Type {
	case task.TypeGuestUsers:
		var result report.GuestUsersResult
		if err := json.Unmarshal([]byte(stored.ResultJSON), &result); err != nil {
			return fmt.Errorf("failed to decode stored result: %w", err)
		}
		err = export.ExportGuestUsersReport(&result, config.File)
	case task.TypeDocuments:
		var result report.DocumentsResult
		if err := json.Unmarshal([]byte(stored.ResultJSON), &result); err != nil {
			return fmt.Errorf("failed to decode stored result: %w", err)
		}
		err = export.ExportDocumentsReport(&result, config.File)
	default:
		return fmt.Errorf("unknown task type: %s", def.Type)
	}
	if err != nil {
		writeAuditRow(auditLogger, ActionExportReport, StatusFailure, def.Name, err.Error(), config.File)
		return err
	}
	writeAuditRow(auditLogger, ActionExportReport, StatusSuccess, def.Name, "Report exported", config.File)
	fmt.Printf("Exported report for task %d to %s\n", def.ID, config.File)
	return nil
}

func exportSummary(ctx context.Context, config *Config, svc *services, auditLogger logger.Logger) error {
	def, err := svc.store.GetTask(ctx, config.TaskID)
	if err != nil {
		return err
	}
	stored, err := svc.store.LatestResult(ctx, def.ID, def.Type)
	if err != nil {
		return err
	}

	switch def.Type {
	case task.TypeGuestUsers:
		var result report.GuestUsersResult
		if err := json.Unmarshal([]byte(stored.ResultJSON), &result); err != nil {
			return fmt.Errorf("failed to decode stored result: %w", err)
		}
		err = export.ExportGuestUsersSummary(&result, config.File)
	case task.TypeDocuments:
		var result report.DocumentsResult
		if err := json.Unmarshal([]byte(stored.ResultJSON), &result); err != nil {
			return fmt.Errorf("failed to decode stored result: %w", err)
		}
		err = export.ExportDocumentsSummary(&result, config.File)
	default:
		return fmt.Errorf("unknown task type: %s", def.Type)
	}
	if err != nil {
		writeAuditRow(auditLogger, ActionExportSummary, StatusFailure, def.Name, err.Error(), config.File)
		return err
	}
	writeAuditRow(auditLogger, ActionExportSummary, StatusSuccess, def.Name, "Summary exported", config.File)
	fmt.Printf("Exported summary for task %d to %s\n", def.ID, config.File)
	return nil
}

func importSites(ctx context.Context, config *Config, svc *services, auditLogger logger.Logger) error {
	def, err := svc.store.GetTask(ctx, config.TaskID)
	if err != nil {
		return err
	}

	added, parseErrs, err := sitelist.ParseFile(config.File, def.TargetSiteURLs)
	if err != nil {
		return err
	}

	// Nothing usable at all is a hard failure; partial success imports
	// what parsed and reports the rest as warnings.
	if len(added) == 0 && len(parseErrs) > 0 {
		fmt.Printf("Import failed: no valid new site URLs in %s\n", config.File)
		for i, msg := range parseErrs {
			if i == 10 {
				fmt.Printf("  ... and %d more\n", len(parseErrs)-10)
				break
			}
			fmt.Printf("  %s\n", msg)
		}
		writeAuditRow(auditLogger, ActionImportSites, StatusFailure, def.Name,
			fmt.Sprintf("%d error(s), nothing imported", len(parseErrs)), config.File)
		return fmt.Errorf("import produced no valid site URLs (%d error(s))", len(parseErrs))
	}

	if len(added) > 0 {
		def.TargetSiteURLs = append(def.TargetSiteURLs, added...)
		if err := svc.store.SaveTask(ctx, def); err != nil {
			return fmt.Errorf("failed to save imported sites: %w", err)
		}
	}

	fmt.Printf("Imported %d site(s) into task %d (%d total)\n", len(added), def.ID, def.TotalSites())
	if len(parseErrs) > 0 {
		fmt.Printf("Skipped %d invalid entr%s:\n", len(parseErrs), plural(len(parseErrs), "y", "ies"))
		for i, msg := range parseErrs {
			if i == 5 {
				fmt.Printf("  ... and %d more\n", len(parseErrs)-5)
				break
			}
			fmt.Printf("  %s\n", msg)
		}
	}
	writeAuditRow(auditLogger, ActionImportSites, StatusSuccess, def.Name,
		fmt.Sprintf("Imported %d site(s), %d error(s)", len(added), len(parseErrs)), config.File)
	return nil
}
