package photoblog

import (
	"fmt"
	"path"
	"strconv"

	"github.com/eringen/photoblog/internal/sitefs"
	"github.com/eringen/photoblog/variants"
	"github.com/eringen/photoblog/watermark"
)

// AddOptions configures AddImage. Zero values fall back to the site config.
type AddOptions struct {
	Title         string
	WatermarkText string
	WatermarkSize int
	Font          string
	Force         bool // replace an existing post with the same slug
}

// AddResult describes what AddImage wrote.
type AddResult struct {
	Slug     string
	Post     Post
	Image    string // canonical image, relative to the site root
	Page     string
	Variants variants.Batch
}

// AddImage adds a new photo: src (relative to the site root) is watermarked
// into the image library as <slug>.jpg, a post is inserted at the head of the
// store, its page is written and the size variants are generated.
//
// Nothing is written when src is missing, the slug is empty or the slug is
// already taken and opts.Force is not set.
func (s *Site) AddImage(src string, opts AddOptions) (*AddResult, error) {
	src = path.Clean(src)
	if !sitefs.Exists(s.fs, src) || sitefs.IsDir(s.fs, src) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, src)
	}
	slug := Slugify(src)
	if slug == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, path.Base(src))
	}
	engine, err := s.Engine()
	if err != nil {
		return nil, err
	}

	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	dest := path.Join(s.Config.ImagesDir, slug+".jpg")
	if !opts.Force {
		if i := doc.FindSlug(slug); i >= 0 {
			return nil, fmt.Errorf("%w: %q (post %q)", ErrSlugConflict, slug, doc.Posts[i].Title)
		}
		if dest != src && sitefs.Exists(s.fs, dest) {
			return nil, fmt.Errorf("%w: %q (%s exists)", ErrSlugConflict, slug, dest)
		}
	}

	text := opts.WatermarkText
	if text == "" {
		text = s.Config.Watermark.Text
	}
	size := opts.WatermarkSize
	if size == 0 {
		size = s.Config.Watermark.Size
	}
	font := opts.Font
	if font == "" {
		font = s.Config.Watermark.Font
	}
	face, err := watermark.LoadFace(font, float64(size), s.log)
	if err != nil {
		return nil, err
	}
	if err := watermark.NewStamper(s.fs, face, text, s.log).File(src, dest); err != nil {
		return nil, err
	}
	s.log.Info().Str("source", src).Str("dest", dest).Msg("watermarked image")

	title := opts.Title
	if title == "" {
		title = TitleFromSlug(slug)
	}
	thumb, hero := thumbHero(engine.Options().Sizes)
	post := Post{
		Title:     title,
		Published: s.now().Format(PublishedLayout),
		Image:     siteRef(dest),
		Link:      path.Join(s.Config.PostsDir, slug+".html"),
		Thumb:     siteRef(s.variantPath(slug, thumb)),
		Hero:      siteRef(s.variantPath(slug, hero)),
	}
	if _, err := s.store.Insert(post, slug, opts.Force); err != nil {
		return nil, err
	}
	s.log.Info().Str("slug", slug).Str("store", s.store.Path()).Msg("added post")

	page, err := s.WritePostPage(slug, title, post.Image)
	if err != nil {
		return nil, err
	}

	res, err := s.ProcessImages(ProcessOptions{File: path.Base(dest), UpdatePosts: true})
	if err != nil {
		return nil, err
	}
	if len(res.Batch.Failed) > 0 {
		return nil, fmt.Errorf("generate variants: %w", res.Batch.Failed[0])
	}

	s.stageFiles(dest, s.Config.ThumbsDir, s.store.Path(), page)
	return &AddResult{Slug: slug, Post: post, Image: dest, Page: page, Variants: res.Batch}, nil
}

func (s *Site) variantPath(stem string, size int) string {
	return path.Join(s.Config.ThumbsDir, stem+"-"+strconv.Itoa(size)+"."+variants.FormatJPEG)
}
