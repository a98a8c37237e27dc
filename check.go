package photoblog

import (
	"fmt"

	"github.com/eringen/photoblog/internal/sitefs"
	"github.com/eringen/photoblog/validate"
	"github.com/eringen/photoblog/watermark"
)

func (s *Site) checker() *validate.Checker {
	v := s.Config.Validate
	return validate.New(s.fs, validate.Options{
		MaxKB:     v.MaxKB,
		MaxWidth:  v.MaxWidth,
		MaxHeight: v.MaxHeight,
		SkipDirs:  v.SkipDirs,
		SkipPages: []string{s.Config.PostTemplate},
	})
}

// Records converts posts to validator records.
func Records(posts []Post) []validate.Record {
	out := make([]validate.Record, len(posts))
	for i, p := range posts {
		out[i] = validate.Record{Title: p.Title, Image: p.Image, Thumb: p.Thumb, Hero: p.Hero}
	}
	return out
}

// Validate checks every post of the store against the filesystem.
func (s *Site) Validate() (validate.Report, error) {
	doc, err := s.store.Load()
	if err != nil {
		return validate.Report{}, err
	}
	return s.checker().CheckPosts(Records(doc.Posts)), nil
}

// CheckLinks checks the local links of every HTML page of the site.
func (s *Site) CheckLinks() (validate.Report, error) {
	return s.checker().CheckLinks()
}

// WatermarkOptions configures WatermarkDir. Zero values fall back to the site
// config: raw images are stamped into the image library.
type WatermarkOptions struct {
	Source string
	Dest   string
	Text   string
	Font   string
	Size   int
}

// WatermarkDir stamps every supported image of Source into Dest.
func (s *Site) WatermarkDir(opts WatermarkOptions) (watermark.Result, error) {
	if opts.Source == "" {
		opts.Source = s.Config.RawDir
	}
	if opts.Dest == "" {
		opts.Dest = s.Config.ImagesDir
	}
	if opts.Text == "" {
		opts.Text = s.Config.Watermark.Text
	}
	if opts.Font == "" {
		opts.Font = s.Config.Watermark.Font
	}
	if opts.Size == 0 {
		opts.Size = s.Config.Watermark.Size
	}
	if !sitefs.IsDir(s.fs, opts.Source) {
		return watermark.Result{}, fmt.Errorf("%w: %s", ErrSourceMissing, opts.Source)
	}
	face, err := watermark.LoadFace(opts.Font, float64(opts.Size), s.log)
	if err != nil {
		return watermark.Result{}, err
	}
	s.log.Debug().Str("font", face.Source).Msg("loaded watermark font")
	return watermark.NewStamper(s.fs, face, opts.Text, s.log).Dir(opts.Source, opts.Dest)
}
