package validate

import (
	"bytes"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/net/html"
)

// CheckLinks scans every .html page under the site root and reports local
// href/src targets that do not exist.
func (c *Checker) CheckLinks() (Report, error) {
	var r Report
	err := util.Walk(c.fs, ".", func(name string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name = filepath.ToSlash(name)
		if fi.IsDir() {
			if name != "." && slices.Contains(c.opts.SkipDirs, fi.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !fi.Mode().IsRegular() || !strings.EqualFold(path.Ext(name), ".html") || slices.Contains(c.opts.SkipPages, name) {
			return nil
		}
		data, err := util.ReadFile(c.fs, name)
		if err != nil {
			return err
		}
		r.Scanned++
		dir := path.Dir(name)
		for _, link := range ExtractLinks(data) {
			if IsExternalLink(link) {
				continue
			}
			r.Checked++
			resolved, ok := ResolveLink(link, dir)
			if !ok || c.exists(resolved) {
				continue
			}
			r.errorf(Finding{Subject: name, Ref: link, Resolved: resolved},
				"In %s -> %s (resolved: %s)", name, link, resolved)
		}
		return nil
	})
	return r, err
}

// ExtractLinks returns every href and src attribute value in document order.
func ExtractLinks(doc []byte) []string {
	var links []string
	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			_, more := z.TagName()
			for more {
				var key, val []byte
				key, val, more = z.TagAttr()
				if k := string(key); k == "href" || k == "src" {
					links = append(links, string(val))
				}
			}
		}
	}
}

// ResolveLink resolves a local link found in a page inside dir to a path
// relative to the site root. Fragments and query strings are dropped; ok is
// false when nothing is left to check.
func ResolveLink(link, dir string) (resolved string, ok bool) {
	if i := strings.IndexByte(link, '#'); i >= 0 {
		link = link[:i]
	}
	if i := strings.IndexByte(link, '?'); i >= 0 {
		link = link[:i]
	}
	if link == "" {
		return "", false
	}
	if u, err := url.PathUnescape(link); err == nil {
		link = u
	}
	if strings.HasPrefix(link, "/") {
		link = strings.TrimLeft(link, "/")
		if link == "" {
			return ".", true
		}
		return path.Clean(link), true
	}
	return path.Join(dir, link), true
}
