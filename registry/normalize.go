package registry

import (
	"regexp"
	"strings"
	"time"
)

var dateSeparators = regexp.MustCompile(`[.\-]`)

// dateLayouts are tried in order against the separator-normalized
// value. Two-digit years resolve to 20xx for 00-68 and 19xx above.
var dateLayouts = []struct {
	pattern *regexp.Regexp
	layout  string
}{
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2}$`), "2/1/06"},
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "2/1/2006"},
	{regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`), "2006/1/2"},
}

// ParseDate interprets a collection date in any accepted textual form
// and returns the ISO-8601 equivalent. The second return is false when
// no interpretable form matches.
func ParseDate(raw string) (string, bool) {
	clean := dateSeparators.ReplaceAllString(strings.TrimSpace(raw), "/")
	for _, dl := range dateLayouts {
		if !dl.pattern.MatchString(clean) {
			continue
		}
		t, err := time.Parse(dl.layout, clean)
		if err != nil {
			continue
		}
		return t.Format("2006-01-02"), true
	}
	return "", false
}

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// SnakeCase normalizes an organism name for catalog lookup:
// lower-cased, non-alphanumeric runs collapsed to single underscores.
func SnakeCase(name string) string {
	s := nonWord.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(s, "_")
}

var idCharset = regexp.MustCompile(`[^\w\-.]`)

// invalidIDChars reports whether a sample identifier contains
// characters outside the filesystem-safe set.
func invalidIDChars(id string) bool {
	return idCharset.MatchString(id)
}
