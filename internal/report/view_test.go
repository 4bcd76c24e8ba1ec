package report

import (
	"testing"
	"time"
)

func sampleGuestUsersResult() *GuestUsersResult {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	r := &GuestUsersResult{
		SiteResults: []SiteResult{
			{SiteURL: "https://contoso.sharepoint.com/sites/marketing", SiteTitle: "Marketing", ItemCount: 2, Success: true},
			{SiteURL: "https://contoso.sharepoint.com/sites/finance", SiteTitle: "Finance", ItemCount: 1, Success: true},
		},
		Users: []GuestUser{
			{SiteURL: "https://contoso.sharepoint.com/sites/marketing", LoginName: "i:0#.f|membership|alice_fabrikam.com#ext#@contoso.onmicrosoft.com", DisplayName: "Alice Harper", Email: "alice@fabrikam.com", CreatedDateTime: created},
			{SiteURL: "https://contoso.sharepoint.com/sites/marketing", LoginName: "i:0#.f|membership|bob_tailspin.com#ext#@contoso.onmicrosoft.com", DisplayName: "Bob Vance", Email: "bob@tailspin.com", CreatedDateTime: created},
			{SiteURL: "https://contoso.sharepoint.com/sites/finance", LoginName: "i:0#.f|membership|carol_fabrikam.com#ext#@contoso.onmicrosoft.com", DisplayName: "Carol Diaz", Email: "carol@fabrikam.com", CreatedDateTime: created},
		},
		ExecutionLog: []string{"run started", "2 sites processed"},
	}
	r.Recompute()
	return r
}

func TestView_NoFilters(t *testing.T) {
	view := NewGuestUsersView(sampleGuestUsersResult())

	if got := len(view.Rows()); got != 3 {
		t.Errorf("Rows() count = %d, want 3", got)
	}
	if got := view.TotalRows(); got != 3 {
		t.Errorf("TotalRows() = %d, want 3", got)
	}
	if got := len(view.Log()); got != 2 {
		t.Errorf("Log() count = %d, want 2", got)
	}
}

func TestView_Sites(t *testing.T) {
	view := NewGuestUsersView(sampleGuestUsersResult())

	sites := view.Sites()
	want := []string{
		"https://contoso.sharepoint.com/sites/marketing",
		"https://contoso.sharepoint.com/sites/finance",
	}
	if len(sites) != len(want) {
		t.Fatalf("Sites() count = %d, want %d", len(sites), len(want))
	}
	for i := range want {
		if sites[i] != want[i] {
			t.Errorf("Sites()[%d] = %q, want %q (first-appearance order)", i, sites[i], want[i])
		}
	}
}

func TestView_SiteFilter(t *testing.T) {
	view := NewGuestUsersView(sampleGuestUsersResult())

	view.FilterSite("https://contoso.sharepoint.com/sites/marketing")
	if got := len(view.Rows()); got != 2 {
		t.Errorf("Rows() with site filter = %d, want 2", got)
	}

	// Clearing the filter restores all rows (non-destructive)
	view.FilterSite("")
	if got := len(view.Rows()); got != 3 {
		t.Errorf("Rows() after clearing filter = %d, want 3", got)
	}
}

func TestView_Search(t *testing.T) {
	view := NewGuestUsersView(sampleGuestUsersResult())

	view.Search("FABRIKAM")
	if got := len(view.Rows()); got != 2 {
		t.Errorf("Rows() with search = %d, want 2 (case-insensitive)", got)
	}

	view.Search("no-such-guest")
	if got := len(view.Rows()); got != 0 {
		t.Errorf("Rows() with non-matching search = %d, want 0", got)
	}
}

// Site filter then search must equal search then site filter: both are
// independent predicates combined with AND.
func TestView_FilterCommutativity(t *testing.T) {
	result := sampleGuestUsersResult()

	sites := append([]string{""},
		"https://contoso.sharepoint.com/sites/marketing",
		"https://contoso.sharepoint.com/sites/finance",
	)
	terms := []string{"", "fabrikam", "alice", "vance", "sharepoint", "zzz"}

	for _, site := range sites {
		for _, term := range terms {
			a := NewGuestUsersView(result)
			a.FilterSite(site)
			a.Search(term)

			b := NewGuestUsersView(result)
			b.Search(term)
			b.FilterSite(site)

			rowsA, rowsB := a.Rows(), b.Rows()
			if len(rowsA) != len(rowsB) {
				t.Errorf("site=%q term=%q: order-dependent row counts %d vs %d", site, term, len(rowsA), len(rowsB))
				continue
			}

			// Row count must equal independent predicate intersection
			wantCount := 0
			for _, u := range result.Users {
				siteOK := site == "" || u.SiteURL == site
				probe := NewGuestUsersView(&GuestUsersResult{Users: []GuestUser{u}})
				probe.Search(term)
				termOK := len(probe.Rows()) == 1
				if siteOK && termOK {
					wantCount++
				}
			}
			if len(rowsA) != wantCount {
				t.Errorf("site=%q term=%q: rows = %d, want %d", site, term, len(rowsA), wantCount)
			}
		}
	}
}

func TestView_FilteringIsIdempotent(t *testing.T) {
	view := NewGuestUsersView(sampleGuestUsersResult())
	view.FilterSite("https://contoso.sharepoint.com/sites/finance")
	view.Search("carol")

	first := view.Rows()
	second := view.Rows()
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("repeated Rows() = %d then %d, want 1 both times", len(first), len(second))
	}

	// Re-applying the same predicates does not change the subset
	view.FilterSite("https://contoso.sharepoint.com/sites/finance")
	view.Search("carol")
	if got := len(view.Rows()); got != 1 {
		t.Errorf("Rows() after re-applying filters = %d, want 1", got)
	}
}

func TestDocumentsView(t *testing.T) {
	modified := time.Date(2026, 5, 2, 16, 0, 0, 0, time.UTC)
	result := &DocumentsResult{
		SiteResults: []SiteResult{
			{SiteURL: "https://contoso.sharepoint.com/sites/hr", SiteTitle: "HR", ItemCount: 2, Success: true},
		},
		Documents: []Document{
			{SiteURL: "https://contoso.sharepoint.com/sites/hr", Library: "Documents", Name: "handbook.pdf", ServerRelativeURL: "/sites/hr/Shared Documents/handbook.pdf", Extension: "pdf", SizeBytes: 1024, LastModified: modified, ModifiedBy: "Dana Li"},
			{SiteURL: "https://contoso.sharepoint.com/sites/hr", Library: "Policies", Name: "leave-policy.docx", ServerRelativeURL: "/sites/hr/Policies/leave-policy.docx", Extension: "docx", SizeBytes: 2048, LastModified: modified, ModifiedBy: "Dana Li"},
		},
		ExecutionLog: []string{"1 site processed"},
	}
	result.Recompute()

	view := NewDocumentsView(result)
	if got := len(view.Rows()); got != 2 {
		t.Fatalf("Rows() = %d, want 2", got)
	}

	view.Search("pdf")
	if got := len(view.Rows()); got != 1 {
		t.Errorf("Rows() with extension search = %d, want 1", got)
	}

	if len(view.Columns()) != len(DocumentColumns) {
		t.Errorf("Columns() = %d, want %d", len(view.Columns()), len(DocumentColumns))
	}
}
