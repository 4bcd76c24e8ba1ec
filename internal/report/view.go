package report

import (
	"fmt"
	"strings"
	"time"
)

// Row is one renderable line of a report grid: the site it belongs to
// plus its display columns.
type Row struct {
	SiteURL string
	Columns []string
}

// GuestUserColumns are the grid columns for the guest users report.
var GuestUserColumns = []string{"Site", "Login Name", "Display Name", "Email", "Invited By", "Created"}

// DocumentColumns are the grid columns for the document report.
var DocumentColumns = []string{"Site", "Library", "Name", "Path", "Extension", "Size (bytes)", "Modified", "Modified By"}

// View applies the flatten-filter-map pipeline over a cached result.
// Filtering never mutates the underlying rows; the site filter and the
// search term are independent predicates combined with AND, so applying
// them in either order yields the same subset.
type View struct {
	columns    []string
	rows       []Row
	log        []string
	siteFilter string
	search     string
}

// NewGuestUsersView builds a view over a guest users result.
func NewGuestUsersView(result *GuestUsersResult) *View {
	rows := make([]Row, 0, len(result.Users))
	for _, u := range result.Users {
		rows = append(rows, Row{
			SiteURL: u.SiteURL,
			Columns: []string{
				u.SiteURL,
				u.LoginName,
				u.DisplayName,
				u.Email,
				u.InvitedBy,
				formatTime(u.CreatedDateTime),
			},
		})
	}
	return &View{columns: GuestUserColumns, rows: rows, log: result.ExecutionLog}
}

// NewDocumentsView builds a view over a documents result.
func NewDocumentsView(result *DocumentsResult) *View {
	rows := make([]Row, 0, len(result.Documents))
	for _, d := range result.Documents {
		rows = append(rows, Row{
			SiteURL: d.SiteURL,
			Columns: []string{
				d.SiteURL,
				d.Library,
				d.Name,
				d.ServerRelativeURL,
				d.Extension,
				fmt.Sprintf("%d", d.SizeBytes),
				formatTime(d.LastModified),
				d.ModifiedBy,
			},
		})
	}
	return &View{columns: DocumentColumns, rows: rows, log: result.ExecutionLog}
}

// Columns returns the grid column headers.
func (v *View) Columns() []string {
	return v.columns
}

// Sites returns the distinct site URLs present in the result, in first
// appearance order, for populating the site filter control.
func (v *View) Sites() []string {
	seen := make(map[string]bool)
	var sites []string
	for _, row := range v.rows {
		if !seen[row.SiteURL] {
			seen[row.SiteURL] = true
			sites = append(sites, row.SiteURL)
		}
	}
	return sites
}

// FilterSite restricts rows to a single site. An empty site clears the
// filter (all sites).
func (v *View) FilterSite(siteURL string) {
	v.siteFilter = siteURL
}

// Search restricts rows to those whose columns contain the term,
// case-insensitively. An empty term clears the search.
func (v *View) Search(term string) {
	v.search = strings.ToLower(strings.TrimSpace(term))
}

// Rows returns the rows matching both the site filter and the search
// term. The underlying result is never modified.
func (v *View) Rows() []Row {
	var out []Row
	for _, row := range v.rows {
		if v.siteFilter != "" && !strings.EqualFold(row.SiteURL, v.siteFilter) {
			continue
		}
		if v.search != "" && !rowMatches(row, v.search) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// TotalRows returns the unfiltered row count.
func (v *View) TotalRows() int {
	return len(v.rows)
}

// Log returns the raw execution log lines.
func (v *View) Log() []string {
	return v.log
}

// formatTime renders a timestamp for the grid; unknown (zero) times
// render as an empty cell.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func rowMatches(row Row, loweredTerm string) bool {
	for _, col := range row.Columns {
		if strings.Contains(strings.ToLower(col), loweredTerm) {
			return true
		}
	}
	return false
}
