package sharepoint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"sptool/internal/report"
	"sptool/internal/task"
)

// fakeClient serves canned per-site data and can fail or cancel on
// selected sites.
type fakeClient struct {
	guests    map[string][]report.GuestUser
	documents map[string][]report.Document
	failSites map[string]error
	cancelOn  string
	cancel    context.CancelFunc
	resolved  []string
}

func (f *fakeClient) ResolveSite(ctx context.Context, siteURL string) (*SiteInfo, error) {
	f.resolved = append(f.resolved, siteURL)
	if f.cancelOn == siteURL && f.cancel != nil {
		f.cancel()
		return nil, ctx.Err()
	}
	if err, ok := f.failSites[siteURL]; ok {
		return nil, err
	}
	return &SiteInfo{ID: "site-" + siteURL, Title: "Title of " + siteURL, WebURL: siteURL}, nil
}

func (f *fakeClient) CollectGuestUsers(ctx context.Context, site *SiteInfo, emit func(report.GuestUser)) error {
	for _, u := range f.guests[site.WebURL] {
		emit(u)
	}
	return nil
}

func (f *fakeClient) CollectDocuments(ctx context.Context, site *SiteInfo, emit func(report.Document)) error {
	for _, d := range f.documents[site.WebURL] {
		emit(d)
	}
	return nil
}

func testRunner(client Client) *Runner {
	return NewRunner(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func guestTask(sites ...string) *task.Definition {
	return &task.Definition{Name: "guests", Type: task.TypeGuestUsers, TargetSiteURLs: sites}
}

func TestRunGuestUsersReportAllSitesSucceed(t *testing.T) {
	sites := []string{
		"https://contoso.sharepoint.com/sites/a",
		"https://contoso.sharepoint.com/sites/b",
	}
	client := &fakeClient{guests: map[string][]report.GuestUser{
		sites[0]: {{LoginName: "g1#ext#"}, {LoginName: "g2#ext#"}},
		sites[1]: {{LoginName: "g3#ext#"}},
	}}

	var updates []task.Progress
	result, err := testRunner(client).RunGuestUsersReport(context.Background(), guestTask(sites...), func(p task.Progress) {
		updates = append(updates, p)
	})
	if err != nil {
		t.Fatalf("RunGuestUsersReport failed: %v", err)
	}

	if !result.Success {
		t.Error("expected overall success")
	}
	if result.TotalGuestUsers != 3 {
		t.Errorf("TotalGuestUsers = %d, want 3", result.TotalGuestUsers)
	}
	if result.SuccessfulSites != 2 || result.FailedSites != 0 {
		t.Errorf("site counts = %d/%d, want 2/0", result.SuccessfulSites, result.FailedSites)
	}
	if err := report.CheckPartition(result.SiteResults, sites); err != nil {
		t.Errorf("site results do not partition targets: %v", err)
	}
	if result.SiteResults[0].ItemCount != 2 || result.SiteResults[1].ItemCount != 1 {
		t.Errorf("per-site counts = %d/%d, want 2/1",
			result.SiteResults[0].ItemCount, result.SiteResults[1].ItemCount)
	}
	if len(result.ExecutionLog) != 2 {
		t.Errorf("execution log has %d entries, want 2", len(result.ExecutionLog))
	}

	// Progress percentages never decrease and finish at 100
	last := -1
	for _, p := range updates {
		if p.PercentComplete < last {
			t.Errorf("progress went backwards: %d after %d", p.PercentComplete, last)
		}
		last = p.PercentComplete
	}
	if last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestRunGuestUsersReportSiteFailureDoesNotAbortRun(t *testing.T) {
	sites := []string{
		"https://contoso.sharepoint.com/sites/ok",
		"https://contoso.sharepoint.com/sites/broken",
		"https://contoso.sharepoint.com/sites/also-ok",
	}
	client := &fakeClient{
		guests: map[string][]report.GuestUser{
			sites[0]: {{LoginName: "g1#ext#"}},
			sites[2]: {{LoginName: "g2#ext#"}},
		},
		failSites: map[string]error{sites[1]: errors.New("403 Forbidden")},
	}

	result, err := testRunner(client).RunGuestUsersReport(context.Background(), guestTask(sites...), nil)
	if err != nil {
		t.Fatalf("RunGuestUsersReport failed: %v", err)
	}

	if result.Success {
		t.Error("expected overall failure with one broken site")
	}
	if result.SuccessfulSites != 2 || result.FailedSites != 1 {
		t.Errorf("site counts = %d/%d, want 2/1", result.SuccessfulSites, result.FailedSites)
	}
	if result.TotalGuestUsers != 2 {
		t.Errorf("TotalGuestUsers = %d, want 2", result.TotalGuestUsers)
	}
	if err := report.CheckPartition(result.SiteResults, sites); err != nil {
		t.Errorf("site results do not partition targets: %v", err)
	}
	if result.SiteResults[1].Success || result.SiteResults[1].ErrorMessage == "" {
		t.Errorf("broken site result = %+v, want captured failure", result.SiteResults[1])
	}
	if len(client.resolved) != 3 {
		t.Errorf("resolved %d sites, want all 3", len(client.resolved))
	}
}

func TestRunGuestUsersReportCancellation(t *testing.T) {
	sites := []string{
		"https://contoso.sharepoint.com/sites/a",
		"https://contoso.sharepoint.com/sites/b",
		"https://contoso.sharepoint.com/sites/c",
	}
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{
		guests:   map[string][]report.GuestUser{sites[0]: {{LoginName: "g1#ext#"}}},
		cancelOn: sites[1],
		cancel:   cancel,
	}

	result, err := testRunner(client).RunGuestUsersReport(ctx, guestTask(sites...), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("expected partial result on cancellation")
	}
	if result.TotalGuestUsers != 1 {
		t.Errorf("partial TotalGuestUsers = %d, want 1", result.TotalGuestUsers)
	}
	// The third site was never touched
	for _, resolved := range client.resolved {
		if resolved == sites[2] {
			t.Error("runner continued past cancellation")
		}
	}
}

func TestRunDocumentsReportTotals(t *testing.T) {
	sites := []string{"https://contoso.sharepoint.com/sites/docs"}
	client := &fakeClient{documents: map[string][]report.Document{
		sites[0]: {
			{Name: "a.docx", SizeBytes: 100, LastModified: time.Now()},
			{Name: "b.xlsx", SizeBytes: 250, LastModified: time.Now()},
		},
	}}

	def := &task.Definition{Name: "docs", Type: task.TypeDocuments, TargetSiteURLs: sites}
	result, err := testRunner(client).RunDocumentsReport(context.Background(), def, nil)
	if err != nil {
		t.Fatalf("RunDocumentsReport failed: %v", err)
	}
	if result.TotalDocuments != 2 {
		t.Errorf("TotalDocuments = %d, want 2", result.TotalDocuments)
	}
	if result.TotalSizeBytes != 350 {
		t.Errorf("TotalSizeBytes = %d, want 350", result.TotalSizeBytes)
	}
	if !result.Success || result.SuccessfulSites != 1 {
		t.Errorf("result = %+v, want one successful site", result)
	}
}

func TestGraphSiteID(t *testing.T) {
	tests := []struct {
		name    string
		siteURL string
		want    string
		wantErr bool
	}{
		{"site collection", "https://contoso.sharepoint.com/sites/Marketing", "contoso.sharepoint.com:/sites/Marketing", false},
		{"trailing slash", "https://contoso.sharepoint.com/sites/Marketing/", "contoso.sharepoint.com:/sites/Marketing", false},
		{"root site", "https://contoso.sharepoint.com", "contoso.sharepoint.com", false},
		{"root site with slash", "https://contoso.sharepoint.com/", "contoso.sharepoint.com", false},
		{"host case folded", "https://CONTOSO.sharepoint.com/sites/HR", "contoso.sharepoint.com:/sites/HR", false},
		{"missing host", "/sites/Marketing", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := graphSiteID(tt.siteURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("graphSiteID(%q) error = %v, wantErr %v", tt.siteURL, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("graphSiteID(%q) = %q, want %q", tt.siteURL, got, tt.want)
			}
		})
	}
}

func TestIsGuestLogin(t *testing.T) {
	tests := []struct {
		login string
		want  bool
	}{
		{"jane_fabrikam.com#EXT#@contoso.onmicrosoft.com", true},
		{"urn:spo:guest#someone@example.com", true},
		{"live.com#someone@outlook.com", true},
		{"jdoe@contoso.onmicrosoft.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isGuestLogin(tt.login); got != tt.want {
			t.Errorf("isGuestLogin(%q) = %v, want %v", tt.login, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total, want int
	}{
		{0, 4, 0},
		{1, 4, 25},
		{4, 4, 100},
		{0, 0, 100},
		{1, 3, 33},
	}
	for _, tt := range tests {
		if got := percent(tt.done, tt.total); got != tt.want {
			t.Errorf("percent(%d, %d) = %d, want %d", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestRunGuestUsersReportEmptyTargets(t *testing.T) {
	client := &fakeClient{}
	result, err := testRunner(client).RunGuestUsersReport(context.Background(), guestTask(), nil)
	if err != nil {
		t.Fatalf("RunGuestUsersReport failed: %v", err)
	}
	if !result.Success || result.TotalGuestUsers != 0 {
		t.Errorf("result = %+v, want empty success", result)
	}
}
