package sharepoint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sptool/internal/common/logger"
	"sptool/internal/report"
	"sptool/internal/task"
)

// Runner executes report tasks site by site. Each target site either
// succeeds or records a failure; one broken site never aborts the rest
// of the run. Cancellation is checked between sites and between pages,
// so a cancelled run stops at the next boundary with a partial result.
type Runner struct {
	client Client
	log    *slog.Logger
}

// NewRunner creates a report runner over the given site client.
func NewRunner(client Client, log *slog.Logger) *Runner {
	return &Runner{client: client, log: log}
}

// RunGuestUsersReport executes an ad hoc guest users report for the
// task's target sites. On cancellation the partial result built so far
// is returned together with the context error.
func (r *Runner) RunGuestUsersReport(ctx context.Context, def *task.Definition, progress task.ProgressFunc) (*report.GuestUsersResult, error) {
	result := &report.GuestUsersResult{StartedAt: time.Now().UTC()}
	total := def.TotalSites()

	for i, siteURL := range def.TargetSiteURLs {
		if err := ctx.Err(); err != nil {
			result.CompletedAt = time.Now().UTC()
			result.Recompute()
			return result, err
		}

		reportProgress(progress, fmt.Sprintf("Processing site %d of %d: %s", i+1, total, siteURL), percent(i, total))
		logger.LogInfo(r.log, "Processing site", "site", siteURL, "position", i+1, "total", total)

		siteResult := report.SiteResult{SiteURL: siteURL}
		before := len(result.Users)

		site, err := r.client.ResolveSite(ctx, siteURL)
		if err == nil {
			siteResult.SiteTitle = site.Title
			err = r.client.CollectGuestUsers(ctx, site, func(u report.GuestUser) {
				result.Users = append(result.Users, u)
			})
		}

		switch {
		case err == nil:
			siteResult.Success = true
			siteResult.ItemCount = len(result.Users) - before
			result.ExecutionLog = append(result.ExecutionLog,
				fmt.Sprintf("%s: %d guest user(s)", siteURL, siteResult.ItemCount))
		case ctx.Err() != nil:
			// A cancelled site counts as failed in the partial result
			siteResult.ErrorMessage = "cancelled"
			result.SiteResults = append(result.SiteResults, siteResult)
			result.ExecutionLog = append(result.ExecutionLog, fmt.Sprintf("%s: cancelled", siteURL))
			result.CompletedAt = time.Now().UTC()
			result.Recompute()
			return result, ctx.Err()
		default:
			siteResult.ErrorMessage = err.Error()
			result.ExecutionLog = append(result.ExecutionLog, fmt.Sprintf("%s: FAILED: %v", siteURL, err))
			logger.LogWarn(r.log, "Site failed", "site", siteURL, "error", err)
		}
		result.SiteResults = append(result.SiteResults, siteResult)
	}

	result.CompletedAt = time.Now().UTC()
	result.Recompute()
	if err := report.CheckPartition(result.SiteResults, def.TargetSiteURLs); err != nil {
		return nil, fmt.Errorf("inconsistent site results: %w", err)
	}
	reportProgress(progress, fmt.Sprintf("Completed: %d guest user(s) across %d site(s)", result.TotalGuestUsers, total), 100)
	return result, nil
}

// RunDocumentsReport executes a document report for the task's target
// sites. Semantics match RunGuestUsersReport.
func (r *Runner) RunDocumentsReport(ctx context.Context, def *task.Definition, progress task.ProgressFunc) (*report.DocumentsResult, error) {
	result := &report.DocumentsResult{StartedAt: time.Now().UTC()}
	total := def.TotalSites()

	for i, siteURL := range def.TargetSiteURLs {
		if err := ctx.Err(); err != nil {
			result.CompletedAt = time.Now().UTC()
			result.Recompute()
			return result, err
		}

		reportProgress(progress, fmt.Sprintf("Processing site %d of %d: %s", i+1, total, siteURL), percent(i, total))
		logger.LogInfo(r.log, "Processing site", "site", siteURL, "position", i+1, "total", total)

		siteResult := report.SiteResult{SiteURL: siteURL}
		before := len(result.Documents)

		site, err := r.client.ResolveSite(ctx, siteURL)
		if err == nil {
			siteResult.SiteTitle = site.Title
			err = r.client.CollectDocuments(ctx, site, func(d report.Document) {
				result.Documents = append(result.Documents, d)
			})
		}

		switch {
		case err == nil:
			siteResult.Success = true
			siteResult.ItemCount = len(result.Documents) - before
			result.ExecutionLog = append(result.ExecutionLog,
				fmt.Sprintf("%s: %d document(s)", siteURL, siteResult.ItemCount))
		case ctx.Err() != nil:
			siteResult.ErrorMessage = "cancelled"
			result.SiteResults = append(result.SiteResults, siteResult)
			result.ExecutionLog = append(result.ExecutionLog, fmt.Sprintf("%s: cancelled", siteURL))
			result.CompletedAt = time.Now().UTC()
			result.Recompute()
			return result, ctx.Err()
		default:
			siteResult.ErrorMessage = err.Error()
			result.ExecutionLog = append(result.ExecutionLog, fmt.Sprintf("%s: FAILED: %v", siteURL, err))
			logger.LogWarn(r.log, "Site failed", "site", siteURL, "error", err)
		}
		result.SiteResults = append(result.SiteResults, siteResult)
	}

	result.CompletedAt = time.Now().UTC()
	result.Recompute()
	if err := report.CheckPartition(result.SiteResults, def.TargetSiteURLs); err != nil {
		return nil, fmt.Errorf("inconsistent site results: %w", err)
	}
	reportProgress(progress, fmt.Sprintf("Completed: %d document(s) across %d site(s)", result.TotalDocuments, total), 100)
	return result, nil
}

func reportProgress(progress task.ProgressFunc, message string, percent int) {
	if progress != nil {
		progress(task.Progress{Message: message, PercentComplete: percent})
	}
}

func percent(done, total int) int {
	if total == 0 {
		return 100
	}
	return done * 100 / total
}
