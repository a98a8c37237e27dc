package photoblog

import (
	"path"

	"github.com/eringen/photoblog/internal/sitefs"
	"github.com/eringen/photoblog/validate"
)

// Skipped is a post Regenerate could not process.
type Skipped struct {
	Title  string
	Image  string
	Reason string
}

// RegenerateResult summarizes a Regenerate run.
type RegenerateResult struct {
	Processed []string // sources used
	Skipped   []Skipped
}

// sourceDirs lists where Regenerate looks for an unwatermarked original,
// most preferred first.
func (s *Site) sourceDirs() []string {
	return []string{
		path.Join(s.Config.ToolsDir, "_water_tmp"),
		s.Config.RawDir,
		s.Config.ImagesDir,
	}
}

// Regenerate rebuilds the variants of every post from the best available
// source. The store is not modified.
func (s *Site) Regenerate() (*RegenerateResult, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	engine, err := s.Engine()
	if err != nil {
		return nil, err
	}

	res := &RegenerateResult{}
	for _, p := range doc.Posts {
		if p.Image == "" || validate.IsExternal(p.Image) {
			res.Skipped = append(res.Skipped, Skipped{Title: p.Title, Image: p.Image, Reason: "no local image"})
			continue
		}
		name := path.Base(p.Image)
		src := ""
		for _, dir := range s.sourceDirs() {
			if c := path.Join(dir, name); sitefs.Exists(s.fs, c) {
				src = c
				break
			}
		}
		if src == "" {
			res.Skipped = append(res.Skipped, Skipped{Title: p.Title, Image: name, Reason: "no source found"})
			continue
		}
		s.log.Info().Str("source", src).Str("post", p.Title).Msg("regenerating variants")
		if _, err := engine.Generate(src, s.Config.ThumbsDir); err != nil {
			s.log.Warn().Err(err).Str("source", src).Msg("regeneration failed")
			res.Skipped = append(res.Skipped, Skipped{Title: p.Title, Image: name, Reason: "process failed: " + err.Error()})
			continue
		}
		res.Processed = append(res.Processed, src)
	}
	if len(res.Processed) > 0 {
		s.stageFiles(s.Config.ThumbsDir)
	}
	return res, nil
}
