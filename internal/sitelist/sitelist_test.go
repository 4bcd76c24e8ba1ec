package sitelist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseBasicList(t *testing.T) {
	input := strings.Join([]string{
		"Site URL",
		"https://contoso.sharepoint.com/sites/a",
		"https://contoso.sharepoint.com/sites/b, https://contoso.sharepoint.com/sites/c",
		`"https://contoso.sharepoint.com/sites/d"`,
	}, "\n")

	added, errs := Parse(strings.NewReader(input), nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	want := []string{
		"https://contoso.sharepoint.com/sites/a",
		"https://contoso.sharepoint.com/sites/b",
		"https://contoso.sharepoint.com/sites/c",
		"https://contoso.sharepoint.com/sites/d",
	}
	if len(added) != len(want) {
		t.Fatalf("added = %v, want %v", added, want)
	}
	for i := range want {
		if added[i] != want[i] {
			t.Errorf("added[%d] = %q, want %q", i, added[i], want[i])
		}
	}
}

func TestParseDuplicatesAndInvalid(t *testing.T) {
	// Two duplicates of an existing site plus one invalid token:
	// one new site added, one error reported.
	existing := []string{"https://contoso.sharepoint.com/sites/a"}
	input := strings.Join([]string{
		"https://contoso.sharepoint.com/sites/A",
		"HTTPS://CONTOSO.SHAREPOINT.COM/SITES/A",
		"not-a-url",
		"https://contoso.sharepoint.com/sites/new",
	}, "\n")

	added, errs := Parse(strings.NewReader(input), existing)
	if len(added) != 1 || added[0] != "https://contoso.sharepoint.com/sites/new" {
		t.Errorf("added = %v, want just the new site", added)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly one", errs)
	}
	if !strings.Contains(errs[0], "line 3") {
		t.Errorf("error should carry the line number: %q", errs[0])
	}
}

func TestParseDeduplicatesWithinBatch(t *testing.T) {
	input := strings.Join([]string{
		"https://contoso.sharepoint.com/sites/x",
		"https://contoso.sharepoint.com/sites/X",
	}, "\n")

	added, errs := Parse(strings.NewReader(input), nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(added) != 1 {
		t.Errorf("added = %v, want single entry", added)
	}
}

func TestParseReimportAddsNothing(t *testing.T) {
	sites := []string{
		"https://contoso.sharepoint.com/sites/a",
		"https://contoso.sharepoint.com/sites/b",
	}
	input := strings.Join(sites, "\n")

	added, errs := Parse(strings.NewReader(input), sites)
	if len(added) != 0 {
		t.Errorf("re-import added %v, want nothing", added)
	}
	if len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestParseHeaderVariants(t *testing.T) {
	input := strings.Join([]string{
		"SiteUrl",
		"URL",
		"SITE",
		"https://contoso.sharepoint.com/sites/a",
	}, "\n")

	added, errs := Parse(strings.NewReader(input), nil)
	if len(errs) != 0 {
		t.Fatalf("header tokens reported as errors: %v", errs)
	}
	if len(added) != 1 {
		t.Errorf("added = %v, want single site", added)
	}
}

func TestParseSemicolonSeparated(t *testing.T) {
	input := "https://contoso.sharepoint.com/sites/a; https://contoso.sharepoint.com/sites/b"
	added, errs := Parse(strings.NewReader(input), nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(added) != 2 {
		t.Errorf("added = %v, want two sites", added)
	}
}

func TestParseRejectsNonHTTPSchemes(t *testing.T) {
	input := "ftp://contoso.sharepoint.com/sites/a"
	added, errs := Parse(strings.NewReader(input), nil)
	if len(added) != 0 {
		t.Errorf("added = %v, want nothing", added)
	}
	if len(errs) != 1 {
		t.Errorf("errs = %v, want one scheme error", errs)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.csv")
	content := "Site URL\nhttps://contoso.sharepoint.com/sites/a\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	added, errs, err := ParseFile(path, nil)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(errs) != 0 || len(added) != 1 {
		t.Errorf("added = %v, errs = %v", added, errs)
	}

	if _, _, err := ParseFile(filepath.Join(t.TempDir(), "missing.csv"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}
