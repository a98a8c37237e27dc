package photoblog

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/go-git/go-billy/v5/util"
)

// Site scripts every post page must load exactly once before </body>.
const (
	PostMetaScript        = `<script src="/scripts/post-meta.js"></script>`
	HighlightFooterScript = `<script src="/scripts/highlight-footer.js"></script>`
)

var (
	reBodyCloseRun = regexp.MustCompile(`(?i)(</body>\s*){2,}`)
	reHTMLCloseRun = regexp.MustCompile(`(?i)(</html>\s*){2,}`)
	rePostMeta     = regexp.MustCompile(`[ \t]*<script\s+src="/scripts/post-meta\.js"></script>\s*`)
	reHighlight    = regexp.MustCompile(`[ \t]*<script\s+src="/scripts/highlight-footer\.js"></script>\s*`)
)

const scriptBlock = "    " + PostMetaScript + "\n    " + HighlightFooterScript + "\n"

// RepairPostHTML normalizes the tail of a post page. It only recognizes these
// exact forms and is not an HTML parser:
//   - anything after the first </html> is dropped, leaving one newline;
//   - runs of </body> or </html> collapse to one;
//   - the two site scripts are removed wherever they are and inserted once
//     before </body>, or appended when there is no </body>.
func RepairPostHTML(text string) (string, bool) {
	orig := text
	if i := strings.Index(text, "</html>"); i >= 0 {
		text = text[:i+len("</html>")] + "\n"
	}
	text = reBodyCloseRun.ReplaceAllString(text, "</body>\n")
	text = reHTMLCloseRun.ReplaceAllString(text, "</html>\n")

	text = rePostMeta.ReplaceAllString(text, "")
	text = reHighlight.ReplaceAllString(text, "")
	if strings.Contains(text, "</body>") {
		text = strings.Replace(text, "</body>", scriptBlock+"</body>", 1)
	} else {
		text = strings.TrimRight(text, " \t\r\n") + "\n" + scriptBlock
	}
	return text, text != orig
}

// RepairResult lists the pages RepairPosts rewrote.
type RepairResult struct {
	Scanned  int
	Repaired []string
}

// RepairPosts applies RepairPostHTML to every .html page directly inside the
// posts directory, except the page template.
func (s *Site) RepairPosts() (*RepairResult, error) {
	entries, err := s.fs.ReadDir(s.Config.PostsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, s.Config.PostsDir)
	}
	res := &RepairResult{}
	for _, fi := range entries {
		name := path.Join(s.Config.PostsDir, fi.Name())
		if !fi.Mode().IsRegular() || path.Ext(name) != ".html" || name == s.Config.PostTemplate {
			continue
		}
		res.Scanned++
		data, err := util.ReadFile(s.fs, name)
		if err != nil {
			return res, err
		}
		fixed, changed := RepairPostHTML(string(data))
		if !changed {
			continue
		}
		if err := util.WriteFile(s.fs, name, []byte(fixed), 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", name, err)
		}
		s.log.Info().Str("page", name).Msg("repaired page")
		res.Repaired = append(res.Repaired, name)
	}
	return res, nil
}
