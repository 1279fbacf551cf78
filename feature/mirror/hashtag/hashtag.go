package hashtag

import (
	"sort"
	"strings"
	"unicode"
)

// Extract returns the distinct hashtags of title in order of appearance.
//
// A hashtag is a whitespace-delimited token starting with '#'. Trailing
// characters that are not letters, numbers or '_' are trimmed, so
// "#work," yields "#work". Tokens left empty after trimming are dropped.
func Extract(title string) []string {
	var (
		out  []string
		seen = make(map[string]struct{})
	)

	for _, token := range strings.FieldsFunc(title, unicode.IsSpace) {
		if !strings.HasPrefix(token, "#") {
			continue
		}
		tag := strings.TrimRightFunc(token, isNonWord)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	return out
}

// Collect returns the sorted distinct hashtags across titles.
func Collect(titles []string) []string {
	set := make(map[string]struct{})
	for _, title := range titles {
		for _, tag := range Extract(title) {
			set[tag] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func isNonWord(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_')
}
