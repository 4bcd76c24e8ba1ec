// Package task defines report task definitions and their sqlite-backed
// persistence. A task is a persisted unit of configured report work,
// executable multiple times, each execution producing a stored result.
package task

import (
	"fmt"
	"strings"
	"time"
)

// Type identifies the kind of report a task executes.
type Type string

const (
	TypeGuestUsers Type = "adhocusers"
	TypeDocuments  Type = "documents"
)

// ParseType converts a user-supplied string to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(TypeGuestUsers), "guestusers", "users":
		return TypeGuestUsers, nil
	case string(TypeDocuments), "docs":
		return TypeDocuments, nil
	default:
		return "", fmt.Errorf("unknown report type: %s (use: adhocusers, documents)", s)
	}
}

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Definition is a persisted report task: which report to run, against
// which tenant connection, over which site collections.
type Definition struct {
	ID             int64
	Name           string
	Type           Type
	ConnectionID   string
	TargetSiteURLs []string // ordered; preserved across save/load
	ConfigJSON     string   // opaque report-specific configuration payload
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastRunAt      *time.Time
}

// TypeDescription returns a human-readable description of the task type.
func (d *Definition) TypeDescription() string {
	switch d.Type {
	case TypeGuestUsers:
		return "Ad Hoc Guest Users Report"
	case TypeDocuments:
		return "Document Report"
	default:
		return string(d.Type)
	}
}

// StatusDescription returns a human-readable description of the task status.
func (d *Definition) StatusDescription() string {
	switch d.Status {
	case StatusPending:
		return "Pending"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(d.Status)
	}
}

// TotalSites returns the number of target site collections.
func (d *Definition) TotalSites() int {
	return len(d.TargetSiteURLs)
}

// Progress is a transient execution progress snapshot delivered through a
// progress callback during a run. Never persisted.
type Progress struct {
	Message         string
	PercentComplete int
}

// ProgressFunc receives progress snapshots during task execution.
type ProgressFunc func(Progress)
