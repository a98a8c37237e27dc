// Package photoblog maintains a static photo-blog checkout: it adds watermarked
// images and their posts, generates resized JPEG/WebP variants, normalizes
// filenames, repairs post pages, writes feeds and validates that the post
// metadata and HTML pages only reference files that exist.
//
// A Site is constructed from a SiteConfig and works on a billy filesystem
// rooted at the checkout, so every operation can run against an in-memory
// filesystem in tests.
package photoblog

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/rs/zerolog"

	"github.com/eringen/photoblog/variants"
)

var (
	// ErrInvalidName is returned when a filename yields an empty slug.
	ErrInvalidName = errors.New("no usable slug in name")

	// ErrSourceMissing is returned when a source file or directory does not exist.
	ErrSourceMissing = errors.New("source not found")

	// ErrTargetExists is returned when a rename would replace another file.
	ErrTargetExists = errors.New("rename target already exists")
)

// Stager stages changed paths in version control.
type Stager func(paths ...string) error

// Site is a photoblog checkout.
type Site struct {
	Config SiteConfig

	fs    billy.Filesystem
	log   zerolog.Logger
	now   func() time.Time
	stage Stager
	store *Store
}

// New creates a Site for cfg. Without WithFS the site root is cfg.Root on disk.
func New(cfg SiteConfig, opts ...Option) *Site {
	cfg.setDefaults()

	s := &Site{
		Config: cfg,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = osfs.New(cfg.Root)
	}
	s.store = NewStore(s.fs, cfg.PostsJSON)
	return s
}

// WithFS sets the filesystem the site is rooted at.
func WithFS(fs billy.Filesystem) Option {
	return func(s *Site) { s.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Site) { s.log = log }
}

// WithClock overrides time.Now, used for the published date of new posts.
func WithClock(now func() time.Time) Option {
	return func(s *Site) { s.now = now }
}

// WithStager stages the files written by AddImage and Regenerate.
func WithStager(st Stager) Option {
	return func(s *Site) { s.stage = st }
}

// GitStager returns a Stager running `git add` inside root.
func GitStager(root string) Stager {
	return func(paths ...string) error {
		if len(paths) == 0 {
			return nil
		}
		cmd := exec.Command("git", append([]string{"add", "--"}, paths...)...)
		cmd.Dir = root
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("git add: %w: %s", err, bytes.TrimSpace(out))
		}
		return nil
	}
}

// FS returns the site filesystem.
func (s *Site) FS() billy.Filesystem { return s.fs }

// Store returns the post metadata store.
func (s *Site) Store() *Store { return s.store }

// Engine returns a variants engine configured from the site's image settings.
func (s *Site) Engine() (*variants.Engine, error) {
	return s.newEngine(s.Config.Images)
}

func (s *Site) newEngine(img ImagesConfig) (*variants.Engine, error) {
	return variants.New(s.fs, variants.Options{
		Sizes:           img.Sizes,
		WebP:            !img.DisableWebP,
		Quality:         img.Quality,
		Qualities:       variants.QualityMap(img.QualityMap),
		SharpenUnscaled: img.SharpenUnscaled,
		AutoOrient:      img.AutoOrient,
	}, s.log)
}

func (s *Site) stageFiles(paths ...string) {
	if s.stage == nil {
		return
	}
	if err := s.stage(paths...); err != nil {
		s.log.Warn().Err(err).Msg("staging failed")
		return
	}
	s.log.Info().Strs("paths", paths).Msg("staged changes")
}

// thumbHero picks the thumb (second-largest) and hero (largest) sizes.
func thumbHero(sizes []int) (thumb, hero int) {
	sorted := append([]int(nil), sizes...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	hero = sorted[0]
	thumb = hero
	if len(sorted) > 1 {
		thumb = sorted[1]
	}
	return thumb, hero
}
