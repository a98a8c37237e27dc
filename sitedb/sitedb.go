// Package sitedb mirrors the post metadata store into the site's SQLite
// database. The JSON store stays the source of truth; the database is
// rebuilt from it on every sync.
package sitedb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Post is one mirrored post row.
type Post struct {
	Slug      string
	Title     string
	Excerpt   string
	Body      string // post page path
	Image     string
	Thumb     string
	Hero      string
	Published bool
	CreatedAt string // YYYY-MM-DD
}

type imagesJSON struct {
	Image string `json:"image,omitempty"`
	Thumb string `json:"thumb,omitempty"`
	Hero  string `json:"hero,omitempty"`
}

// SyncResult counts the rows touched by SyncPosts.
type SyncResult struct {
	Upserted int
	Removed  int
}

// DB wraps the site database.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the SQLite database at path, ensures the parent
// directory exists, and creates the posts and images tables.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	d := &DB{db: db, now: time.Now}
	if err := d.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sitedb: ensure schema: %w", err)
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) ensureSchema() error {
	_, err := d.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    slug TEXT UNIQUE NOT NULL,
    excerpt TEXT,
    body TEXT NOT NULL,
    images_json TEXT,
    published INTEGER DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT
);
CREATE TABLE IF NOT EXISTS images (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filename TEXT,
    url TEXT,
    created_at TEXT
);
`)
	return err
}

// SyncPosts upserts every post keyed by slug and removes rows whose slug is
// no longer present, all in one transaction.
func (d *DB) SyncPosts(posts []Post) (SyncResult, error) {
	var res SyncResult
	tx, err := d.db.Begin()
	if err != nil {
		return res, err
	}
	defer tx.Rollback()

	now := d.now().UTC().Format(time.RFC3339)
	keep := make(map[string]bool, len(posts))
	for _, p := range posts {
		images, err := json.Marshal(imagesJSON{Image: p.Image, Thumb: p.Thumb, Hero: p.Hero})
		if err != nil {
			return res, err
		}
		published := 0
		if p.Published {
			published = 1
		}
		if _, err := tx.Exec(`INSERT INTO posts (title, slug, excerpt, body, images_json, published, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET
    title = excluded.title,
    excerpt = excluded.excerpt,
    body = excluded.body,
    images_json = excluded.images_json,
    published = excluded.published,
    created_at = excluded.created_at,
    updated_at = excluded.updated_at`,
			p.Title, p.Slug, p.Excerpt, p.Body, string(images), published, p.CreatedAt, now); err != nil {
			return res, fmt.Errorf("sitedb: upsert %q: %w", p.Slug, err)
		}
		keep[p.Slug] = true
		res.Upserted++
	}

	slugs, err := listSlugs(tx)
	if err != nil {
		return res, err
	}
	for _, s := range slugs {
		if keep[s] {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM posts WHERE slug = ?`, s); err != nil {
			return res, err
		}
		res.Removed++
	}
	return res, tx.Commit()
}

// GetPost returns the mirrored post for slug.
func (d *DB) GetPost(slug string) (Post, error) {
	var p Post
	var excerpt, images sql.NullString
	var published int
	err := d.db.QueryRow(`SELECT slug, title, excerpt, body, images_json, published, created_at FROM posts WHERE slug = ?`, slug).
		Scan(&p.Slug, &p.Title, &excerpt, &p.Body, &images, &published, &p.CreatedAt)
	if err != nil {
		return Post{}, err
	}
	p.Excerpt = excerpt.String
	p.Published = published == 1
	if images.Valid && images.String != "" {
		var ij imagesJSON
		if err := json.Unmarshal([]byte(images.String), &ij); err != nil {
			return Post{}, fmt.Errorf("sitedb: images_json of %q: %w", slug, err)
		}
		p.Image, p.Thumb, p.Hero = ij.Image, ij.Thumb, ij.Hero
	}
	return p, nil
}

// ListSlugs returns every mirrored slug, newest first.
func (d *DB) ListSlugs() ([]string, error) {
	return listSlugs(d.db)
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func listSlugs(q querier) ([]string, error) {
	rows, err := q.Query(`SELECT slug FROM posts ORDER BY created_at DESC, slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

// RecordImage adds filename to the images table unless it is already there.
// It reports whether a row was inserted.
func (d *DB) RecordImage(filename, url string) (bool, error) {
	res, err := d.db.Exec(`INSERT INTO images (filename, url, created_at)
SELECT ?, ?, ? WHERE NOT EXISTS (SELECT 1 FROM images WHERE filename = ?)`,
		filename, url, d.now().UTC().Format(time.RFC3339), filename)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountImages returns the number of rows in the images table.
func (d *DB) CountImages() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&n)
	return n, err
}
