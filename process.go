package photoblog

import (
	"fmt"
	"path"
	"strconv"

	"github.com/eringen/photoblog/internal/sitefs"
	"github.com/eringen/photoblog/variants"
)

// ProcessOptions configures ProcessImages. Zero values fall back to the site
// config.
type ProcessOptions struct {
	Source      string // default ImagesDir
	Dest        string // default ThumbsDir
	File        string // only this file inside Source
	Sizes       []int
	Quality     int
	Qualities   variants.QualityMap
	NoWebP      bool
	UpdatePosts bool   // rewrite thumb/hero of matching posts
	Manifest    string // default <tools>/process-map.json
}

// ProcessResult describes a ProcessImages run.
type ProcessResult struct {
	Batch        variants.Batch
	Manifest     string
	UpdatedPosts int
}

// ProcessImages generates variants for every image in the source directory
// (or the single File), writes the manifest and, with UpdatePosts, points the
// thumb and hero of posts whose image has the same filename at the new
// variants. The store is only saved when a post changed.
func (s *Site) ProcessImages(opts ProcessOptions) (*ProcessResult, error) {
	if opts.Source == "" {
		opts.Source = s.Config.ImagesDir
	}
	if opts.Dest == "" {
		opts.Dest = s.Config.ThumbsDir
	}
	if opts.Manifest == "" {
		opts.Manifest = path.Join(s.Config.ToolsDir, "process-map.json")
	}
	if !sitefs.IsDir(s.fs, opts.Source) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, opts.Source)
	}

	engine, err := s.engineFor(opts)
	if err != nil {
		return nil, err
	}
	var sources []string
	if opts.File != "" {
		src := path.Join(opts.Source, opts.File)
		if !sitefs.Exists(s.fs, src) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		sources = []string{src}
	} else if sources, err = engine.Sources(opts.Source); err != nil {
		return nil, err
	}
	s.log.Info().Int("images", len(sources)).Str("source", opts.Source).Msg("processing images")

	res := &ProcessResult{Batch: engine.Batch(sources, opts.Dest), Manifest: opts.Manifest}
	if err := res.Batch.Manifest.Write(engine, opts.Manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if opts.UpdatePosts {
		n, err := s.applyManifest(res.Batch.Manifest, engine.Options().Sizes)
		if err != nil {
			return nil, err
		}
		res.UpdatedPosts = n
	}
	return res, nil
}

func (s *Site) engineFor(opts ProcessOptions) (*variants.Engine, error) {
	img := s.Config.Images
	if len(opts.Sizes) > 0 {
		img.Sizes = opts.Sizes
	}
	if opts.Quality > 0 {
		img.Quality = opts.Quality
	}
	if opts.Qualities != nil {
		img.QualityMap = opts.Qualities
	}
	if opts.NoWebP {
		img.DisableWebP = true
	}
	return s.newEngine(img)
}

// applyManifest rewrites thumb/hero of posts found in m and saves the store if
// anything changed.
func (s *Site) applyManifest(m variants.Manifest, sizes []int) (int, error) {
	if !sitefs.Exists(s.fs, s.store.Path()) {
		s.log.Warn().Str("store", s.store.Path()).Msg("post store not found, skipping post update")
		return 0, nil
	}
	doc, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	thumb, hero := thumbHero(sizes)
	updated := 0
	for i := range doc.Posts {
		p := &doc.Posts[i]
		if p.Image == "" {
			continue
		}
		entry, ok := m[path.Base(p.Image)]
		if !ok {
			continue
		}
		changed := false
		if rel, ok := entry[strconv.Itoa(thumb)]; ok && p.Thumb != siteRef(rel) {
			p.Thumb = siteRef(rel)
			changed = true
		}
		if rel, ok := entry[strconv.Itoa(hero)]; ok && p.Hero != siteRef(rel) {
			p.Hero = siteRef(rel)
			changed = true
		}
		if changed {
			updated++
			s.log.Info().Str("post", p.Title).Str("thumb", p.Thumb).Str("hero", p.Hero).Msg("updated post variants")
		}
	}
	if updated == 0 {
		return 0, nil
	}
	if err := s.store.Save(doc); err != nil {
		return 0, err
	}
	return updated, nil
}
