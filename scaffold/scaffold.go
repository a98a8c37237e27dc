// Package scaffold creates the directory layout and starter files of a new
// photoblog site from embedded templates.
package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/eringen/photoblog/internal/sitefs"
)

// Templates contains all scaffold template files. Files with a .tmpl suffix
// are Go text/templates using [[ ]] delimiters, so page placeholders such as
// {{TITLE}} pass through untouched.
//
//go:embed all:templates
var Templates embed.FS

const root = "templates"

// Data holds the template variables passed to every scaffold template.
type Data struct {
	SiteName      string
	URL           string
	WatermarkText string
}

// Create writes the site layout into fsys and returns the created paths.
// Existing files are never overwritten.
func Create(fsys billy.Filesystem, data Data) ([]string, error) {
	var created []string
	err := fs.WalkDir(Templates, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if rel == "" {
			return nil
		}
		out := outputPath(rel)
		if d.IsDir() {
			return fsys.MkdirAll(out, 0o755)
		}
		if sitefs.Exists(fsys, out) {
			return nil
		}

		content, err := Templates.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		if strings.HasSuffix(p, ".tmpl") {
			tmpl, err := template.New(path.Base(p)).Delims("[[", "]]").Parse(string(content))
			if err != nil {
				return fmt.Errorf("parse template %s: %w", p, err)
			}
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("execute template %s: %w", p, err)
			}
			content = buf.Bytes()
		}
		if err := fsys.MkdirAll(path.Dir(out), 0o755); err != nil {
			return err
		}
		if err := util.WriteFile(fsys, out, content, 0o644); err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		created = append(created, out)
		return nil
	})
	return created, err
}

// outputPath strips the .tmpl suffix and renames gitignore to .gitignore.
func outputPath(rel string) string {
	out := strings.TrimSuffix(rel, ".tmpl")
	if path.Base(out) == "gitignore" {
		out = path.Join(path.Dir(out), ".gitignore")
	}
	return out
}
