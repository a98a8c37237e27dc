package photoblog

import (
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/eringen/photoblog/sitedb"
	"github.com/eringen/photoblog/validate"
)

// DatabaseFile returns the on-disk path of the site database.
func (s *Site) DatabaseFile() string {
	if filepath.IsAbs(s.Config.DatabasePath) {
		return s.Config.DatabasePath
	}
	return filepath.Join(s.Config.Root, filepath.FromSlash(s.Config.DatabasePath))
}

// DBPosts converts posts to database rows. Posts without a slug are dropped;
// for duplicate slugs the first (newest) post wins.
func DBPosts(posts []Post) []sitedb.Post {
	seen := make(map[string]bool, len(posts))
	var out []sitedb.Post
	for _, p := range posts {
		slug := Slugify(p.Image)
		if slug == "" {
			slug = Slugify(p.Title)
		}
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		created := p.Published
		if t, err := time.Parse(PublishedLayout, p.Published); err == nil {
			created = t.Format("2006-01-02")
		}
		out = append(out, sitedb.Post{
			Slug:      slug,
			Title:     p.Title,
			Body:      p.Link,
			Image:     p.Image,
			Thumb:     p.Thumb,
			Hero:      p.Hero,
			Published: true,
			CreatedAt: created,
		})
	}
	return out
}

// SyncDBResult summarizes a SyncDB run.
type SyncDBResult struct {
	sitedb.SyncResult
	NewImages int
}

// SyncDB mirrors the store into the site database.
func (s *Site) SyncDB() (*SyncDBResult, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	db, err := sitedb.Open(s.DatabaseFile())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	sr, err := db.SyncPosts(DBPosts(doc.Posts))
	if err != nil {
		return nil, err
	}
	res := &SyncDBResult{SyncResult: sr}
	for _, p := range doc.Posts {
		if p.Image == "" || validate.IsExternal(p.Image) {
			continue
		}
		rel := validate.ResolveRef(p.Image)
		added, err := db.RecordImage(path.Base(rel), "/"+rel)
		if err != nil {
			return nil, err
		}
		if added {
			res.NewImages++
		}
	}
	s.log.Info().Int("upserted", sr.Upserted).Int("removed", sr.Removed).Int("new_images", res.NewImages).Msg("synced database")
	return res, nil
}
