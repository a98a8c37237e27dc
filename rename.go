package photoblog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-billy/v5/util"

	"github.com/eringen/photoblog/internal/sitefs"
	"github.com/eringen/photoblog/variants"
)

// Rename is one planned or applied file rename inside the image library.
type Rename struct {
	Old string
	New string
}

// RenameFailure records a rename that could not be applied.
type RenameFailure struct {
	Rename
	Err error
}

// RenameResult describes an applied rename plan.
type RenameResult struct {
	Applied      []Rename
	Failed       []RenameFailure
	UpdatedPosts int
	UpdatedFiles []string
	Map          string // rename map path
}

// PlanRenames lists the renames that would bring every filename in the image
// library to slug form. Collisions with other files, on disk or earlier in the
// plan, get a -1, -2, ... suffix.
func (s *Site) PlanRenames() ([]Rename, error) {
	dir := s.Config.ImagesDir
	if !sitefs.IsDir(s.fs, dir) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, dir)
	}
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	onDisk := make(map[string]bool, len(entries))
	for _, fi := range entries {
		onDisk[fi.Name()] = true
	}
	planned := make(map[string]bool)
	var plan []Rename
	for _, fi := range entries {
		if !fi.Mode().IsRegular() {
			continue
		}
		name := fi.Name()
		target := SlugifyFilename(name)
		if target == name {
			continue
		}
		if strings.TrimSuffix(target, path.Ext(target)) == "" {
			s.log.Warn().Str("file", name).Msg("no usable name after normalization, skipping")
			continue
		}
		// Names are compared exactly: on a case-sensitive filesystem
		// sunset.jpg and Sunset.jpg are two files.
		target = UniqueName(target, name, func(c string) bool {
			return planned[c] || (c != name && onDisk[c])
		})
		if target == name {
			continue
		}
		planned[target] = true
		plan = append(plan, Rename{Old: name, New: target})
	}
	return plan, nil
}

// ApplyRenames renames the files of plan, points post images at the new
// names, rewrites references in the site's text files and writes the rename
// map of applied renames.
func (s *Site) ApplyRenames(plan []Rename) (*RenameResult, error) {
	dir := s.Config.ImagesDir
	res := &RenameResult{Map: path.Join(s.Config.ToolsDir, "rename-map.json")}
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return res, err
	}
	present := make(map[string]bool, len(entries))
	for _, fi := range entries {
		present[fi.Name()] = true
	}
	for _, r := range plan {
		if err := s.renameImage(dir, r, present); err != nil {
			s.log.Warn().Err(err).Str("old", r.Old).Str("new", r.New).Msg("rename failed")
			res.Failed = append(res.Failed, RenameFailure{Rename: r, Err: err})
			continue
		}
		s.log.Info().Str("old", r.Old).Str("new", r.New).Msg("renamed")
		res.Applied = append(res.Applied, r)
	}

	if res.UpdatedPosts, err = s.renamePostImages(res.Applied); err != nil {
		return res, err
	}
	if res.UpdatedFiles, err = s.rewriteReferences(res.Applied); err != nil {
		return res, err
	}
	if err := s.writeRenameMap(res.Map, res.Applied); err != nil {
		return res, err
	}
	return res, nil
}

// renameImage moves one library file, refusing to replace any other entry
// of the directory. present tracks the directory listing across a plan.
func (s *Site) renameImage(dir string, r Rename, present map[string]bool) error {
	if !present[r.Old] {
		return fmt.Errorf("%w: %s", ErrSourceMissing, r.Old)
	}
	if r.New != r.Old && present[r.New] {
		return fmt.Errorf("%w: %s", ErrTargetExists, r.New)
	}
	if err := s.fs.Rename(path.Join(dir, r.Old), path.Join(dir, r.New)); err != nil {
		return err
	}
	delete(present, r.Old)
	present[r.New] = true
	return nil
}

// NormalizeFilenames plans renames and, when apply is set, applies them.
func (s *Site) NormalizeFilenames(apply bool) ([]Rename, *RenameResult, error) {
	plan, err := s.PlanRenames()
	if err != nil || !apply || len(plan) == 0 {
		return plan, nil, err
	}
	res, err := s.ApplyRenames(plan)
	return plan, res, err
}

func (s *Site) renamePostImages(applied []Rename) (int, error) {
	if len(applied) == 0 || !sitefs.Exists(s.fs, s.store.Path()) {
		return 0, nil
	}
	byOld := make(map[string]string, len(applied))
	for _, r := range applied {
		byOld[r.Old] = r.New
	}
	doc, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	marker := s.Config.ImagesDir + "/"
	n := 0
	for i := range doc.Posts {
		p := &doc.Posts[i]
		idx := strings.LastIndex(p.Image, marker)
		if idx < 0 {
			continue
		}
		if nw, ok := byOld[p.Image[idx+len(marker):]]; ok {
			p.Image = p.Image[:idx+len(marker)] + nw
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, s.store.Save(doc)
}

// rewriteReferences replaces old filenames with new ones in every UTF-8 text
// file of the site. Images, the store and its backup are left alone.
func (s *Site) rewriteReferences(applied []Rename) ([]string, error) {
	if len(applied) == 0 {
		return nil, nil
	}
	ordered := append([]Rename(nil), applied...)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i].Old) > len(ordered[j].Old) })
	pairs := make([]string, 0, 2*len(ordered))
	for _, r := range ordered {
		pairs = append(pairs, r.Old, r.New)
	}
	replacer := strings.NewReplacer(pairs...)

	var changed []string
	err := util.Walk(s.fs, ".", func(name string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		name = filepath.ToSlash(name)
		if fi.IsDir() {
			if name != "." && slices.Contains(s.Config.Validate.SkipDirs, fi.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !fi.Mode().IsRegular() || name == s.store.Path() || name == s.store.BackupPath() || isImageFile(name) {
			return nil
		}
		data, err := util.ReadFile(s.fs, name)
		if err != nil {
			return err
		}
		if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
			return nil
		}
		updated := replacer.Replace(string(data))
		if updated == string(data) {
			return nil
		}
		if err := util.WriteFile(s.fs, name, []byte(updated), fi.Mode().Perm()); err != nil {
			return fmt.Errorf("rewrite %s: %w", name, err)
		}
		s.log.Info().Str("file", name).Msg("updated references")
		changed = append(changed, name)
		return nil
	})
	return changed, err
}

func (s *Site) writeRenameMap(name string, applied []Rename) error {
	m := make(map[string]string, len(applied))
	for _, r := range applied {
		m[r.Old] = r.New
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return err
	}
	return util.WriteFile(s.fs, name, append(data, '\n'), 0o644)
}

func isImageFile(name string) bool {
	return variants.IsSupported(name) || strings.EqualFold(path.Ext(name), ".webp")
}
