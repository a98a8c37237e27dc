// Package validate checks that post metadata references files that exist and
// that HTML pages have no broken local links. It never modifies anything.
package validate

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/eringen/photoblog/internal/sitefs"
)

// Status classifies a report.
type Status int

const (
	StatusClean Status = iota
	StatusWarnings
	StatusErrors
)

func (s Status) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusWarnings:
		return "warnings"
	case StatusErrors:
		return "errors"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Finding is one reported problem.
type Finding struct {
	Subject  string // post title or page path
	Ref      string // reference as written
	Resolved string // path checked, relative to the site root
	Message  string
}

func (f Finding) String() string { return f.Message }

// Report collects findings of one check.
type Report struct {
	Errors   []Finding
	Warnings []Finding
	Scanned  int // posts or pages looked at
	Checked  int // local references resolved
}

// Status returns StatusErrors, StatusWarnings or StatusClean.
func (r Report) Status() Status {
	switch {
	case len(r.Errors) > 0:
		return StatusErrors
	case len(r.Warnings) > 0:
		return StatusWarnings
	}
	return StatusClean
}

// ExitCode maps the report to a process exit code: 2 when errors are present
// (unless warnOnly) or when warnings are present and failOnWarn is set, else 0.
func (r Report) ExitCode(warnOnly, failOnWarn bool) int {
	switch r.Status() {
	case StatusErrors:
		if warnOnly {
			return 0
		}
		return 2
	case StatusWarnings:
		if failOnWarn {
			return 2
		}
	}
	return 0
}

func (r *Report) errorf(f Finding, format string, args ...any) {
	f.Message = fmt.Sprintf(format, args...)
	r.Errors = append(r.Errors, f)
}

func (r *Report) warnf(f Finding, format string, args ...any) {
	f.Message = fmt.Sprintf(format, args...)
	r.Warnings = append(r.Warnings, f)
}

// Options are the validator thresholds. Zero disables a threshold.
type Options struct {
	MaxKB     float64
	MaxWidth  int
	MaxHeight int
	SkipDirs  []string // directory names CheckLinks does not descend into
	SkipPages []string // pages CheckLinks ignores, relative to the root
}

// Record is the part of a post the validator looks at.
type Record struct {
	Title string
	Image string
	Thumb string
	Hero  string
}

// Checker runs checks against a site root.
type Checker struct {
	fs   billy.Filesystem
	opts Options
}

// New returns a Checker for the site rooted at fs.
func New(fs billy.Filesystem, opts Options) *Checker {
	return &Checker{fs: fs, opts: opts}
}

var postSchemes = []string{"http://", "https://", "//", "data:", "mailto:", "tel:"}

// IsExternal reports whether a post reference points outside the site.
func IsExternal(ref string) bool {
	return hasScheme(ref, postSchemes)
}

// IsExternalLink is IsExternal for HTML links, which also skips javascript:
// and empty values.
func IsExternalLink(link string) bool {
	return strings.TrimSpace(link) == "" || hasScheme(link, postSchemes) || hasScheme(link, []string{"javascript:"})
}

func hasScheme(ref string, schemes []string) bool {
	ref = strings.TrimSpace(ref)
	for _, s := range schemes {
		if strings.HasPrefix(ref, s) {
			return true
		}
	}
	return false
}

// ResolveRef maps a post reference to a path relative to the site root.
// Exactly one leading "./" or "../" segment is dropped and a leading "/" is
// root-relative, so "../../x" resolves to "../x" and is reported missing.
func ResolveRef(ref string) string {
	ref = strings.ReplaceAll(ref, `\`, "/")
	if strings.HasPrefix(ref, "../") || strings.HasPrefix(ref, "./") {
		ref = ref[strings.Index(ref, "/")+1:]
	}
	return strings.TrimLeft(ref, "/")
}

// CheckPosts validates every record.
func (c *Checker) CheckPosts(records []Record) Report {
	var r Report
	for _, rec := range records {
		r.Scanned++
		title := rec.Title
		if title == "" {
			title = "<no-title>"
		}
		if rec.Image == "" {
			r.errorf(Finding{Subject: title}, "Post '%s': missing 'image' field", title)
			continue
		}
		for _, ref := range []struct{ key, val string }{
			{"image", rec.Image}, {"thumb", rec.Thumb}, {"hero", rec.Hero},
		} {
			if ref.val == "" || IsExternal(ref.val) {
				continue
			}
			c.checkRef(&r, title, ref.key, ref.val)
		}
	}
	return r
}

func (c *Checker) checkRef(r *Report, title, key, ref string) {
	r.Checked++
	resolved := ResolveRef(ref)
	f := Finding{Subject: title, Ref: ref, Resolved: resolved}
	fi, err := c.fs.Stat(resolved)
	if err != nil || fi.IsDir() {
		r.errorf(f, "Post '%s': referenced file for '%s' not found -> %s (resolved: %s)", title, key, ref, resolved)
		return
	}

	name := fi.Name()
	if strings.Contains(name, " ") {
		r.warnf(f, "Post '%s': filename contains spaces -> %s", title, name)
	}
	if strings.ToLower(name) != name {
		r.warnf(f, "Post '%s': filename contains uppercase letters -> %s", title, name)
	}
	if c.opts.MaxKB > 0 {
		if kb := float64(fi.Size()) / 1024; kb > c.opts.MaxKB {
			r.warnf(f, "Post '%s': file %s is %.1fKB > max_kb %g", title, name, kb, c.opts.MaxKB)
		}
	}
	if c.opts.MaxWidth <= 0 && c.opts.MaxHeight <= 0 {
		return
	}
	w, h, err := c.dimensions(resolved)
	if err != nil {
		r.warnf(f, "Could not read dimensions of %s, skipping dimension check: %v", resolved, err)
		return
	}
	if c.opts.MaxWidth > 0 && w > c.opts.MaxWidth {
		r.warnf(f, "Post '%s': image %s width %dpx > max_width %d", title, name, w, c.opts.MaxWidth)
	}
	if c.opts.MaxHeight > 0 && h > c.opts.MaxHeight {
		r.warnf(f, "Post '%s': image %s height %dpx > max_height %d", title, name, h, c.opts.MaxHeight)
	}
}

func (c *Checker) dimensions(name string) (int, int, error) {
	data, err := util.ReadFile(c.fs, name)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// exists reports whether a resolved link target is acceptable: a file, or a
// directory holding an index.html.
func (c *Checker) exists(name string) bool {
	if name == ".." || strings.HasPrefix(name, "../") {
		return false
	}
	if sitefs.IsDir(c.fs, name) {
		return sitefs.Exists(c.fs, path.Join(name, "index.html"))
	}
	return sitefs.Exists(c.fs, name)
}
