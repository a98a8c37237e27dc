package photoblog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-git/go-billy/v5/util"

	"github.com/eringen/photoblog/internal/sitefs"
)

// Placeholders replaced in the post page template.
const (
	TitlePlaceholder = "{{TITLE}}"
	ImagePlaceholder = "{{IMAGE}}"
)

// PostPage renders the built-in post page used when the site has no template.
func PostPage(title, image string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t := templ.EscapeString(title)
		_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>%s</title>
</head>
<body>
    <main class="post">
        <h1>%s</h1>
        <img src="%s" alt="%s">
    </main>
    <script src="/scripts/post-meta.js"></script>
    <script src="/scripts/highlight-footer.js"></script>
</body>
</html>
`, t, t, templ.EscapeString(image), t)
		return err
	})
}

// WritePostPage writes posts/<slug>.html from the site template, or from
// PostPage when there is none, and returns the page path.
func (s *Site) WritePostPage(slug, title, image string) (string, error) {
	page := path.Join(s.Config.PostsDir, slug+".html")

	var buf bytes.Buffer
	if sitefs.Exists(s.fs, s.Config.PostTemplate) {
		tpl, err := util.ReadFile(s.fs, s.Config.PostTemplate)
		if err != nil {
			return "", fmt.Errorf("read template: %w", err)
		}
		r := strings.NewReplacer(
			TitlePlaceholder, templ.EscapeString(title),
			ImagePlaceholder, image,
		)
		buf.WriteString(r.Replace(string(tpl)))
	} else {
		s.log.Debug().Str("template", s.Config.PostTemplate).Msg("no post template, using built-in page")
		if err := PostPage(title, image).Render(context.Background(), &buf); err != nil {
			return "", err
		}
	}

	if err := s.fs.MkdirAll(s.Config.PostsDir, 0o755); err != nil {
		return "", err
	}
	if err := util.WriteFile(s.fs, page, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", page, err)
	}
	return page, nil
}
