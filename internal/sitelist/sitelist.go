// Package sitelist parses site URL import files. Input is a loose CSV:
// one or more URLs per line separated by commas or semicolons, optional
// quoting, optional header row. Parsing never fails outright; invalid
// tokens are collected so the caller can report them alongside the
// URLs that were accepted.
package sitelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"sptool/internal/common/validation"
)

// headerTokens are column headings commonly found in exported site
// lists. They are skipped, not reported as errors.
var headerTokens = map[string]bool{
	"site url": true,
	"siteurl":  true,
	"url":      true,
	"site":     true,
}

// ParseFile reads a site list file and returns the URLs to add.
// See Parse.
func ParseFile(path string, existing []string) ([]string, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open site list: %w", err)
	}
	defer file.Close()
	added, errs := Parse(file, existing)
	return added, errs, nil
}

// Parse reads site URLs from r and returns the ones that are valid and
// not already present, in input order, plus a description of every
// rejected token. Duplicates are matched case-insensitively against
// both the existing list and earlier tokens in the same batch; a
// duplicate is skipped silently, not reported as an error.
func Parse(r io.Reader, existing []string) (added []string, errs []string) {
	seen := make(map[string]bool, len(existing))
	for _, u := range existing {
		seen[strings.ToLower(strings.TrimSpace(u))] = true
	}

	lineNo := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		for _, token := range splitTokens(line) {
			token = strings.TrimSpace(strings.Trim(strings.TrimSpace(token), `"'`))
			if token == "" {
				continue
			}
			if headerTokens[strings.ToLower(token)] {
				continue
			}
			if err := validation.ValidateSiteURL(token); err != nil {
				errs = append(errs, fmt.Sprintf("line %d: %v", lineNo, err))
				continue
			}
			key := strings.ToLower(token)
			if seen[key] {
				continue
			}
			seen[key] = true
			added = append(added, token)
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Sprintf("read error: %v", err))
	}
	return added, errs
}

func splitTokens(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ';'
	})
}
