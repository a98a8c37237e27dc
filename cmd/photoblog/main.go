// Command photoblog maintains a static photo-blog checkout.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eringen/photoblog"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	rootDir    string
	configPath string
	logLevel   string
	pretty     bool
)

var rootCmd = &cobra.Command{
	Use:   "photoblog",
	Short: "Maintenance toolkit for a static photo blog",
	Long: `photoblog adds watermarked photos and their posts to a static blog checkout,
generates resized JPEG/WebP variants, normalizes filenames and checks that
posts and pages only reference files that exist.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", ".", "Site checkout directory")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default <root>/photoblog.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", photoblog.EnvOr("PHOTOBLOG_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "Human-readable log output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitError carries a specific process exit code. A nil err means the
// command already reported its findings.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// findings signals that a check completed and found problems.
func findings(code int) error {
	if code == 0 {
		return nil
	}
	return &exitError{code: code}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// loadSite builds the Site for --root and --config.
func loadSite(opts ...photoblog.Option) (*photoblog.Site, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	cfg, err := photoblog.LoadConfig(root, configPath)
	if err != nil {
		return nil, err
	}
	log := photoblog.NewLogger(os.Stderr, logLevel, pretty)
	opts = append([]photoblog.Option{photoblog.WithLogger(log)}, opts...)
	return photoblog.New(cfg, opts...), nil
}

// siteRelative turns a path given on the command line into a slash path
// relative to the site root.
func siteRelative(site *photoblog.Site, p string) (string, error) {
	if !filepath.IsAbs(p) {
		if _, err := os.Stat(p); err != nil {
			// Not relative to the working directory: take it as site-relative.
			return filepath.ToSlash(filepath.Clean(p)), nil
		}
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(site.Config.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the site root %s", photoblog.ErrSourceMissing, p, site.Config.Root)
	}
	return filepath.ToSlash(rel), nil
}
