package pathresolver

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	trimHyphens  = regexp.MustCompile(`^-+|-+$`)
)

const maxSlugBytes = 100

// Slugify produces a filesystem-safe, hyphenated folder name from an
// arbitrary story title. Diacritics are stripped via NFKD normalization
// (grounded on Jhoorodre-go-upload's golang.org/x/text dependency, the
// only pack repo depending on it) before ASCII-folding.
func Slugify(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, title)
	if err != nil {
		ascii = title
	}

	lower := strings.ToLower(ascii)
	slug := nonSlugChars.ReplaceAllString(lower, "-")
	slug = trimHyphens.ReplaceAllString(slug, "")

	if len(slug) > maxSlugBytes {
		slug = slug[:maxSlugBytes]
		slug = trimHyphens.ReplaceAllString(slug, "")
	}

	if slug == "" {
		slug = "untitled"
	}
	return slug
}
