package services

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PlaceholderPrefix marks codes generated locally before the source publishes a real one
const PlaceholderPrefix = "TEMP-"

var (
	nonSlugChars   = regexp.MustCompile(`[^a-z0-9]+`)
	repeatedHyphen = regexp.MustCompile(`-+`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	nonDigits      = regexp.MustCompile(`[^0-9]`)

	// Dotless and dotted i do not decompose under NFD
	turkishLetters = strings.NewReplacer("ı", "i", "İ", "i", "I", "i")

	legalSuffixes = []string{" a.ş.", " a.s.", " aş", " as", " t.a.ş.", " ltd. şti.", " ltd.şti."}
)

// GenerateSlug creates a URL-friendly identifier from a company name.
// Accents are stripped and common Turkish legal suffixes removed.
func GenerateSlug(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	slug := strings.ToLower(turkishLetters.Replace(strings.TrimSpace(text)))
	for _, suffix := range legalSuffixes {
		slug = strings.TrimSuffix(slug, suffix)
	}

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, slug); err == nil {
		slug = stripped
	}

	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = repeatedHyphen.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// PlaceholderCode returns the deterministic stand-in code for a company
func PlaceholderCode(companyName string) string {
	return PlaceholderCodeFor(companyName, "")
}

// PlaceholderCodeFor derives the stand-in code from the company name, or from the source
// URL path when the name has nothing to slug (symbols only, non-Latin scripts)
func PlaceholderCodeFor(companyName, sourceURL string) string {
	slug := GenerateSlug(companyName)
	if slug == "" && sourceURL != "" {
		if u, err := url.Parse(sourceURL); err == nil && strings.Trim(u.Path, "/") != "" {
			slug = GenerateSlug(u.Path)
		} else {
			slug = GenerateSlug(sourceURL)
		}
	}
	return PlaceholderPrefix + slug
}

func IsPlaceholderCode(code string) bool {
	return strings.HasPrefix(code, PlaceholderPrefix)
}

// IsGenuineCode reports whether code is a real, source-published code
func IsGenuineCode(code string) bool {
	code = strings.TrimSpace(code)
	return code != "" && !IsPlaceholderCode(code)
}

// NormalizeCompanyName case-folds and trims a company name for duplicate grouping
func NormalizeCompanyName(name string) string {
	collapsed := whitespaceRun.ReplaceAllString(strings.TrimSpace(name), " ")
	return cases.Fold().String(collapsed)
}

// NormalizeTextContent trims and collapses whitespace
func NormalizeTextContent(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// ParseCount extracts a whole number written with any thousands separators.
// Returns nil when the text holds no digits.
func ParseCount(text string) *int64 {
	digits := nonDigits.ReplaceAllString(text, "")
	if digits == "" {
		return nil
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// AssetName is the cached asset file name for a listing code
func AssetName(code, ext string) string {
	return code + ext
}

// AssetExtension returns the file extension of a logo URL, defaulting to .png
func AssetExtension(logoURL string) string {
	p := logoURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(path.Ext(p))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
		return ext
	}
	return ".png"
}
