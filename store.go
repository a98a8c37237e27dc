package photoblog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/eringen/photoblog/internal/sitefs"
)

var (
	// ErrMalformedStore is returned when the store is not valid JSON or has
	// no top-level posts list.
	ErrMalformedStore = errors.New("malformed post store")

	// ErrSlugConflict is returned when a post for the slug already exists.
	ErrSlugConflict = errors.New("slug already in use")
)

// Store reads and writes the JSON post metadata file. Every Save first copies
// the current file to <path>.bak.
type Store struct {
	fs   billy.Filesystem
	path string
}

// NewStore returns a Store for the file at path inside fs.
func NewStore(fs billy.Filesystem, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Path returns the store file path relative to the site root.
func (s *Store) Path() string { return s.path }

// BackupPath returns the path of the single-generation backup.
func (s *Store) BackupPath() string { return s.path + ".bak" }

// Load reads and parses the store.
func (s *Store) Load() (*Document, error) {
	data, err := util.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedStore, s.path, err)
	}
	return &doc, nil
}

// Save writes doc as 2-space indented JSON. The current content is copied to
// the backup file before the store itself is replaced.
func (s *Store) Save(doc *Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	prev, err := util.ReadFile(s.fs, s.path)
	switch {
	case err == nil:
		if err := util.WriteFile(s.fs, s.BackupPath(), prev, 0o644); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
	case sitefs.IsNotExist(err):
		if err := s.fs.MkdirAll(path.Dir(s.path), 0o755); err != nil {
			return err
		}
	default:
		return fmt.Errorf("read %s: %w", s.path, err)
	}
	return s.replace(data)
}

// replace writes data to a temp file next to the store and renames it over.
func (s *Store) replace(data []byte) error {
	tmp, err := s.fs.TempFile(path.Dir(s.path), ".blog-posts-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(name)
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(name)
		return err
	}
	if err := s.fs.Rename(name, s.path); err != nil {
		s.fs.Remove(name)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// Insert adds p at the front of the store. If a post whose image already
// resolves to slug exists, Insert fails with ErrSlugConflict and leaves the
// file untouched, unless force is set, in which case the old post is replaced.
func (s *Store) Insert(p Post, slug string, force bool) (*Document, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	if i := doc.FindSlug(slug); i >= 0 {
		if !force {
			return nil, fmt.Errorf("%w: %q (post %q)", ErrSlugConflict, slug, doc.Posts[i].Title)
		}
		for ; i >= 0; i = doc.FindSlug(slug) {
			doc.Remove(i)
		}
	}
	doc.Insert(p)
	if err := s.Save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func encodeDocument(doc *Document) ([]byte, error) {
	raw, err := marshalNoEscape(doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
