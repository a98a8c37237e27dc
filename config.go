package photoblog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up at the site root when no config path is given.
const DefaultConfigFile = "photoblog.yaml"

// SiteConfig holds all configuration for a photoblog checkout. Paths other
// than Root are relative to Root and use forward slashes.
type SiteConfig struct {
	Root string `yaml:"-"` // Site checkout on disk (default ".")

	Name        string `yaml:"name"`        // Site name for feeds (default "Photo Blog")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Feed description

	ImagesDir    string `yaml:"images_dir"`    // Canonical images (default "blog-images")
	ThumbsDir    string `yaml:"thumbs_dir"`    // Size variants (default "blog-images/thumbs")
	RawDir       string `yaml:"raw_dir"`       // Unwatermarked sources (default "raw-images")
	PostsDir     string `yaml:"posts_dir"`     // Rendered post pages (default "posts")
	PostsJSON    string `yaml:"posts_json"`    // Metadata store (default "posts/blog-posts.json")
	PostTemplate string `yaml:"post_template"` // Page template (default "posts/post-template.html")
	ToolsDir     string `yaml:"tools_dir"`     // Manifests and scratch space (default "tools")
	DatabasePath string `yaml:"database_path"` // SQLite mirror (default "data/blog.db")

	Images    ImagesConfig    `yaml:"images"`
	Watermark WatermarkConfig `yaml:"watermark"`
	Validate  ValidateConfig  `yaml:"validate"`
}

// ImagesConfig controls variant generation.
type ImagesConfig struct {
	Sizes           []int       `yaml:"sizes"`       // default [1600, 800, 400]
	Quality         int         `yaml:"quality"`     // default 92
	QualityMap      map[int]int `yaml:"quality_map"` // per-size JPEG quality
	DisableWebP     bool        `yaml:"disable_webp"`
	SharpenUnscaled bool        `yaml:"sharpen_unscaled"`
	AutoOrient      bool        `yaml:"auto_orient"`
}

// WatermarkConfig controls the text stamped onto new canonical images.
type WatermarkConfig struct {
	Text string `yaml:"text"` // default "monoismore.com"
	Font string `yaml:"font"` // optional TTF path
	Size int    `yaml:"size"` // default 32
}

// ValidateConfig holds the validator thresholds.
type ValidateConfig struct {
	MaxKB     float64  `yaml:"max_kb"`     // default 1024
	MaxWidth  int      `yaml:"max_width"`  // default 4000
	MaxHeight int      `yaml:"max_height"` // default 4000
	SkipDirs  []string `yaml:"skip_dirs"`  // default [.git .venv backups]
}

func (c *SiteConfig) setDefaults() {
	if c.Root == "" {
		c.Root = "."
	}
	if c.Name == "" {
		c.Name = "Photo Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.ImagesDir == "" {
		c.ImagesDir = "blog-images"
	}
	if c.ThumbsDir == "" {
		c.ThumbsDir = c.ImagesDir + "/thumbs"
	}
	if c.RawDir == "" {
		c.RawDir = "raw-images"
	}
	if c.PostsDir == "" {
		c.PostsDir = "posts"
	}
	if c.PostsJSON == "" {
		c.PostsJSON = c.PostsDir + "/blog-posts.json"
	}
	if c.PostTemplate == "" {
		c.PostTemplate = c.PostsDir + "/post-template.html"
	}
	if c.ToolsDir == "" {
		c.ToolsDir = "tools"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if len(c.Images.Sizes) == 0 {
		c.Images.Sizes = []int{1600, 800, 400}
	}
	if c.Images.Quality == 0 {
		c.Images.Quality = 92
	}
	if c.Watermark.Text == "" {
		c.Watermark.Text = "monoismore.com"
	}
	if c.Watermark.Size == 0 {
		c.Watermark.Size = 32
	}
	if c.Validate.MaxKB == 0 {
		c.Validate.MaxKB = 1024
	}
	if c.Validate.MaxWidth == 0 {
		c.Validate.MaxWidth = 4000
	}
	if c.Validate.MaxHeight == 0 {
		c.Validate.MaxHeight = 4000
	}
	if c.Validate.SkipDirs == nil {
		c.Validate.SkipDirs = []string{".git", ".venv", "backups"}
	}
}

// LoadConfig reads a YAML config for the site at root. An empty path means
// root/photoblog.yaml, which may be absent; an explicit path must exist.
func LoadConfig(root, path string) (SiteConfig, error) {
	var cfg SiteConfig
	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, DefaultConfigFile)
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return SiteConfig{}, fmt.Errorf("read config: %w", err)
	}
	cfg.Root = root
	cfg.setDefaults()
	return cfg, nil
}

// Option configures additional Site behavior.
type Option func(*Site)
