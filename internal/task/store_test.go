package task

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTask() *Definition {
	return &Definition{
		Name:         "Quarterly guest audit",
		Type:         TypeGuestUsers,
		ConnectionID: "contoso-prod",
		TargetSiteURLs: []string{
			"https://contoso.sharepoint.com/sites/marketing",
			"https://contoso.sharepoint.com/sites/finance",
		},
		ConfigJSON: `{"includeExternalOnly":true}`,
	}
}

func TestStore_SaveAndGetTask(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	def := sampleTask()
	if err := store.SaveTask(ctx, def); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	if def.ID == 0 {
		t.Fatal("SaveTask() did not populate ID on insert")
	}
	if def.Status != StatusPending {
		t.Errorf("new task status = %q, want %q", def.Status, StatusPending)
	}

	loaded, err := store.GetTask(ctx, def.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}

	if loaded.Name != def.Name {
		t.Errorf("Name = %q, want %q", loaded.Name, def.Name)
	}
	if loaded.Type != TypeGuestUsers {
		t.Errorf("Type = %q, want %q", loaded.Type, TypeGuestUsers)
	}
	if loaded.ConnectionID != "contoso-prod" {
		t.Errorf("ConnectionID = %q, want contoso-prod", loaded.ConnectionID)
	}
	if loaded.ConfigJSON != def.ConfigJSON {
		t.Errorf("ConfigJSON = %q, want %q", loaded.ConfigJSON, def.ConfigJSON)
	}

	// Site order must be preserved exactly
	if len(loaded.TargetSiteURLs) != 2 {
		t.Fatalf("TargetSiteURLs count = %d, want 2", len(loaded.TargetSiteURLs))
	}
	if loaded.TargetSiteURLs[0] != def.TargetSiteURLs[0] || loaded.TargetSiteURLs[1] != def.TargetSiteURLs[1] {
		t.Errorf("TargetSiteURLs order not preserved: %v", loaded.TargetSiteURLs)
	}
}

func TestStore_UpdateTask(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	def := sampleTask()
	if err := store.SaveTask(ctx, def); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}

	def.Status = StatusCompleted
	def.Name = "Quarterly guest audit (renamed)"
	if err := store.SaveTask(ctx, def); err != nil {
		t.Fatalf("SaveTask() update error = %v", err)
	}

	loaded, err := store.GetTask(ctx, def.ID)
	if err != nil {
		t.Fatalf("GetTask() error = %v", err)
	}
	if loaded.Status != StatusCompleted {
		t.Errorf("Status = %q, want %q", loaded.Status, StatusCompleted)
	}
	if loaded.Name != def.Name {
		t.Errorf("Name = %q, want %q", loaded.Name, def.Name)
	}

	// Updating a missing task reports ErrNotFound
	ghost := sampleTask()
	ghost.ID = 9999
	if err := store.SaveTask(ctx, ghost); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveTask() on missing task error = %v, want ErrNotFound", err)
	}
}

func TestStore_GetTask_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetTask(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTask() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListTasks(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := sampleTask()
	second := sampleTask()
	second.Name = "Document inventory"
	second.Type = TypeDocuments

	for _, def := range []*Definition{first, second} {
		if err := store.SaveTask(ctx, def); err != nil {
			t.Fatalf("SaveTask() error = %v", err)
		}
	}

	tasks, err := store.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("ListTasks() count = %d, want 2", len(tasks))
	}
}

func TestStore_ResultsRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	def := sampleTask()
	if err := store.SaveTask(ctx, def); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}

	// No result yet
	if _, err := store.LatestResult(ctx, def.ID, TypeGuestUsers); !errors.Is(err, ErrNoResult) {
		t.Errorf("LatestResult() error = %v, want ErrNoResult", err)
	}

	if err := store.SaveResult(ctx, def.ID, TypeGuestUsers, true, `{"totalGuestUsers":3}`); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}
	if err := store.SaveResult(ctx, def.ID, TypeGuestUsers, false, `{"totalGuestUsers":0}`); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	latest, err := store.LatestResult(ctx, def.ID, TypeGuestUsers)
	if err != nil {
		t.Fatalf("LatestResult() error = %v", err)
	}
	if latest.Success {
		t.Error("LatestResult() returned the older result (Success = true, want false)")
	}
	if latest.ResultJSON != `{"totalGuestUsers":0}` {
		t.Errorf("ResultJSON = %q, want newest payload", latest.ResultJSON)
	}

	// Results are keyed by kind
	if _, err := store.LatestResult(ctx, def.ID, TypeDocuments); !errors.Is(err, ErrNoResult) {
		t.Errorf("LatestResult() for other kind error = %v, want ErrNoResult", err)
	}
}

func TestStore_DeleteTaskRemovesResults(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	def := sampleTask()
	if err := store.SaveTask(ctx, def); err != nil {
		t.Fatalf("SaveTask() error = %v", err)
	}
	if err := store.SaveResult(ctx, def.ID, TypeGuestUsers, true, `{}`); err != nil {
		t.Fatalf("SaveResult() error = %v", err)
	}

	if err := store.DeleteTask(ctx, def.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}

	if _, err := store.GetTask(ctx, def.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTask() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := store.LatestResult(ctx, def.ID, TypeGuestUsers); !errors.Is(err, ErrNoResult) {
		t.Errorf("LatestResult() after delete error = %v, want ErrNoResult (no dangling result)", err)
	}

	// Deleting again reports ErrNotFound
	if err := store.DeleteTask(ctx, def.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteTask() on missing task error = %v, want ErrNotFound", err)
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input   string
		want    Type
		wantErr bool
	}{
		{"adhocusers", TypeGuestUsers, false},
		{"guestusers", TypeGuestUsers, false},
		{"ADHOCUSERS", TypeGuestUsers, false},
		{"documents", TypeDocuments, false},
		{"docs", TypeDocuments, false},
		{"calendar", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDefinition_Descriptions(t *testing.T) {
	def := sampleTask()
	def.Status = StatusRunning

	if got := def.TypeDescription(); got != "Ad Hoc Guest Users Report" {
		t.Errorf("TypeDescription() = %q", got)
	}
	if got := def.StatusDescription(); got != "Running" {
		t.Errorf("StatusDescription() = %q", got)
	}
	if got := def.TotalSites(); got != 2 {
		t.Errorf("TotalSites() = %d, want 2", got)
	}
}
