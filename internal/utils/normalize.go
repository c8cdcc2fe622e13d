package utils

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9\-]+`)
var multiDash = regexp.MustCompile(`\-+`)
var slugRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

const (
	SlugMinLen = 3
	SlugMaxLen = 40
)

// reserved slugs collide with public-client routes.
var reserved = map[string]bool{
	"admin": true, "api": true, "login": true, "logout": true, "dashboard": true,
	"settings": true, "static": true, "public": true, "healthz": true, "metrics": true,
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Slugify folds accents (NFKD) and reduces a display name to [a-z0-9-].
func Slugify(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	t := norm.NFKD.String(name)
	b := make([]rune, 0, len(t))
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b = append(b, unicode.ToLower(r))
			continue
		}
		if unicode.IsSpace(r) || r == '-' || r == '_' || r == '.' {
			b = append(b, '-')
			continue
		}
	}
	out := string(b)
	out = nonSlug.ReplaceAllString(out, "-")
	out = multiDash.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-")
	if len(out) > SlugMaxLen {
		out = strings.TrimRight(out[:SlugMaxLen], "-")
	}
	return out
}

// ValidSlug reports whether s can be used as a public profile slug as-is.
func ValidSlug(s string) bool {
	if len(s) < SlugMinLen || len(s) > SlugMaxLen {
		return false
	}
	if reserved[s] {
		return false
	}
	return slugRe.MatchString(s) && !strings.Contains(s, "--")
}
