package photoblog

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"unicode"
)

var (
	reTrailingNumber = regexp.MustCompile(`(-[0-9]+)+$`)
	reSpaceRun       = regexp.MustCompile(`[\s_]+`)
	reInvalidChars   = regexp.MustCompile(`[^a-zA-Z0-9\-]`)
	reHyphenRun      = regexp.MustCompile(`-+`)
)

// Slugify converts a filename or title to the canonical image slug: path and
// extension dropped, whitespace/underscore runs become one hyphen, anything
// outside [A-Za-z0-9-] is removed, trailing -<digits> suffixes are stripped
// and the result is lowercased. It may return "".
func Slugify(name string) string {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	sep := false
	for _, r := range base {
		if unicode.IsSpace(r) || r == '_' {
			if !sep {
				b.WriteByte('-')
				sep = true
			}
			continue
		}
		sep = false
		if r == '-' || r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	s := reTrailingNumber.ReplaceAllString(b.String(), "")
	return strings.ToLower(s)
}

// SlugifyFilename normalizes a filename for renaming. Unlike Slugify it keeps
// the (lowercased) extension and any numeric suffix.
func SlugifyFilename(name string) string {
	name = strings.TrimSpace(name)
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		base, ext = name[:i], strings.ToLower(name[i+1:])
	}
	base = reSpaceRun.ReplaceAllString(strings.TrimSpace(base), "-")
	base = reInvalidChars.ReplaceAllString(base, "")
	base = reHyphenRun.ReplaceAllString(base, "-")
	base = strings.ToLower(strings.Trim(base, "-"))
	if ext != "" {
		return base + "." + ext
	}
	return base
}

// UniqueName returns name, or name with -1, -2, ... inserted before the
// extension, whichever is the first candidate taken reports as free. A
// candidate equal to self counts as free.
func UniqueName(name, self string, taken func(string) bool) string {
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	candidate := name
	for n := 1; candidate != self && taken(candidate); n++ {
		candidate = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
	return candidate
}

// TitleFromSlug turns "my-walk" into "My Walk".
func TitleFromSlug(slug string) string {
	parts := strings.Split(slug, "-")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// BuildURL joins a base URL with path segments. Directory-like results get a
// trailing slash; file paths (with an extension) do not.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if path.Ext(u.Path) == "" && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// siteRef turns a root-relative path into the "../dir/file" form posts use.
func siteRef(rel string) string {
	return "../" + strings.TrimPrefix(path.Clean(rel), "/")
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
