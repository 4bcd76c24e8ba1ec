// Package report holds report result types, the client-side filter/search
// view over cached results, and the run session state machine that
// coordinates execution, cancellation, and action availability.
package report

import (
	"fmt"
	"time"
)

// SiteResult is the per-site outcome within a report run: success or
// failure plus the counts extracted from that site collection.
type SiteResult struct {
	SiteURL      string `json:"siteUrl"`
	SiteTitle    string `json:"siteTitle"`
	ItemCount    int    `json:"itemCount"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// GuestUser is one guest/external user found on a site.
type GuestUser struct {
	SiteURL         string    `json:"siteUrl"`
	LoginName       string    `json:"loginName"`
	DisplayName     string    `json:"displayName"`
	Email           string    `json:"email"`
	InvitedBy       string    `json:"invitedBy,omitempty"`
	CreatedDateTime time.Time `json:"createdDateTime"`
}

// Document is one file found in a document library.
type Document struct {
	SiteURL           string    `json:"siteUrl"`
	Library           string    `json:"library"`
	Name              string    `json:"name"`
	ServerRelativeURL string    `json:"serverRelativeUrl"`
	Extension         string    `json:"extension"`
	SizeBytes         int64     `json:"sizeBytes"`
	LastModified      time.Time `json:"lastModified"`
	ModifiedBy        string    `json:"modifiedBy"`
}

// GuestUsersResult is the outcome of one ad hoc guest users report run.
// Site results partition the task's target URLs; the aggregate counters
// are always sums over the site results. Not mutated after creation.
type GuestUsersResult struct {
	Success         bool         `json:"success"`
	SiteResults     []SiteResult `json:"siteResults"`
	Users           []GuestUser  `json:"users"`
	ExecutionLog    []string     `json:"executionLog"`
	TotalGuestUsers int          `json:"totalGuestUsers"`
	SuccessfulSites int          `json:"successfulSites"`
	FailedSites     int          `json:"failedSites"`
	StartedAt       time.Time    `json:"startedAt"`
	CompletedAt     time.Time    `json:"completedAt"`
}

// DocumentsResult is the outcome of one document report run.
type DocumentsResult struct {
	Success         bool         `json:"success"`
	SiteResults     []SiteResult `json:"siteResults"`
	Documents       []Document   `json:"documents"`
	ExecutionLog    []string     `json:"executionLog"`
	TotalDocuments  int          `json:"totalDocuments"`
	TotalSizeBytes  int64        `json:"totalSizeBytes"`
	SuccessfulSites int          `json:"successfulSites"`
	FailedSites     int          `json:"failedSites"`
	StartedAt       time.Time    `json:"startedAt"`
	CompletedAt     time.Time    `json:"completedAt"`
}

// Recompute derives the aggregate counters from the site results and the
// flattened user collection, establishing the consistency invariant.
func (r *GuestUsersResult) Recompute() {
	r.TotalGuestUsers = len(r.Users)
	r.SuccessfulSites = 0
	r.FailedSites = 0
	for _, site := range r.SiteResults {
		if site.Success {
			r.SuccessfulSites++
		} else {
			r.FailedSites++
		}
	}
	r.Success = r.FailedSites == 0
}

// Recompute derives the aggregate counters from the site results and the
// flattened document collection.
func (r *DocumentsResult) Recompute() {
	r.TotalDocuments = len(r.Documents)
	r.TotalSizeBytes = 0
	for _, doc := range r.Documents {
		r.TotalSizeBytes += doc.SizeBytes
	}
	r.SuccessfulSites = 0
	r.FailedSites = 0
	for _, site := range r.SiteResults {
		if site.Success {
			r.SuccessfulSites++
		} else {
			r.FailedSites++
		}
	}
	r.Success = r.FailedSites == 0
}

// CheckPartition verifies that the site results cover exactly the given
// target URLs, in order. Used by tests and by the runner's self-check
// before a result is persisted.
func CheckPartition(siteResults []SiteResult, targetURLs []string) error {
	if len(siteResults) != len(targetURLs) {
		return fmt.Errorf("site results (%d) do not match target sites (%d)", len(siteResults), len(targetURLs))
	}
	for i, target := range targetURLs {
		if siteResults[i].SiteURL != target {
			return fmt.Errorf("site result %d is for %q, want %q", i, siteResults[i].SiteURL, target)
		}
	}
	return nil
}
