// Package export writes report results to CSV files. Detail exports
// reuse the grid columns; summary exports aggregate one row per site
// plus a totals row.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"sptool/internal/report"
)

// ExportGuestUsersReport writes the flattened guest user rows to path.
// The file is created or truncated; a failed export leaves task state
// untouched.
func ExportGuestUsersReport(result *report.GuestUsersResult, path string) error {
	view := report.NewGuestUsersView(result)
	return writeCSV(path, view.Columns(), rowsOf(view))
}

// ExportDocumentsReport writes the flattened document rows to path.
func ExportDocumentsReport(result *report.DocumentsResult, path string) error {
	view := report.NewDocumentsView(result)
	return writeCSV(path, view.Columns(), rowsOf(view))
}

// ExportGuestUsersSummary writes one aggregate row per site plus a
// totals row.
func ExportGuestUsersSummary(result *report.GuestUsersResult, path string) error {
	header := []string{"Site", "Title", "Status", "Guest Users", "Error"}
	rows := make([][]string, 0, len(result.SiteResults)+1)
	for _, site := range result.SiteResults {
		rows = append(rows, []string{
			site.SiteURL,
			site.SiteTitle,
			siteStatus(site),
			strconv.Itoa(site.ItemCount),
			site.ErrorMessage,
		})
	}
	rows = append(rows, []string{
		"TOTAL",
		"",
		fmt.Sprintf("%d succeeded, %d failed", result.SuccessfulSites, result.FailedSites),
		strconv.Itoa(result.TotalGuestUsers),
		"",
	})
	return writeCSV(path, header, rows)
}

// ExportDocumentsSummary writes one aggregate row per site plus a
// totals row carrying the combined size.
func ExportDocumentsSummary(result *report.DocumentsResult, path string) error {
	header := []string{"Site", "Title", "Status", "Documents", "Size (bytes)", "Error"}
	sizeBySite := make(map[string]int64)
	for _, doc := range result.Documents {
		sizeBySite[doc.SiteURL] += doc.SizeBytes
	}

	rows := make([][]string, 0, len(result.SiteResults)+1)
	for _, site := range result.SiteResults {
		rows = append(rows, []string{
			site.SiteURL,
			site.SiteTitle,
			siteStatus(site),
			strconv.Itoa(site.ItemCount),
			strconv.FormatInt(sizeBySite[site.SiteURL], 10),
			site.ErrorMessage,
		})
	}
	rows = append(rows, []string{
		"TOTAL",
		"",
		fmt.Sprintf("%d succeeded, %d failed", result.SuccessfulSites, result.FailedSites),
		strconv.Itoa(result.TotalDocuments),
		strconv.FormatInt(result.TotalSizeBytes, 10),
		"",
	})
	return writeCSV(path, header, rows)
}

func siteStatus(site report.SiteResult) string {
	if site.Success {
		return "Success"
	}
	return "Failed"
}

func rowsOf(view *report.View) [][]string {
	viewRows := view.Rows()
	rows := make([][]string, 0, len(viewRows))
	for _, r := range viewRows {
		rows = append(rows, r.Columns)
	}
	return rows
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV export: %w", err)
	}
	return file.Close()
}
