package registry

import (
	"fmt"
	"strings"
	"unicode"
)

// slugify lowercases name and replaces every run of non-alphanumeric
// characters with a single hyphen, trimming leading/trailing hyphens.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "tournament"
	}
	return out
}

// uniqueSlug appends -2, -3, ... until exists reports the candidate is free.
func uniqueSlug(base string, exists func(candidate string) (bool, error)) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		taken, err := exists(candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
