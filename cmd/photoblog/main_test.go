package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/photoblog"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writePNG(t *testing.T, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 90, 255})
		}
	}
	f, err := os.Create(name)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 1, exitCode(photoblog.ErrSlugConflict))
	assert.Equal(t, 2, exitCode(findings(2)))
	assert.NoError(t, findings(0))

	wrapped := &exitError{code: 1, err: photoblog.ErrInvalidName}
	assert.ErrorIs(t, wrapped, photoblog.ErrInvalidName)
	assert.Equal(t, photoblog.ErrInvalidName.Error(), wrapped.Error())
}

func TestCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-photos")

	out, err := run(t, "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "created")
	cfg, err := os.ReadFile(filepath.Join(dir, "photoblog.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), `name: "My Photos"`)

	writePNG(t, filepath.Join(dir, "raw-images", "Harbor_3.png"), 240, 160)
	out, err = run(t, "--root", dir, "--log-level", "error", "add-image", "--no-stage", "--title", "Harbor", filepath.Join(dir, "raw-images", "Harbor_3.png"))
	require.NoError(t, err)
	assert.Contains(t, out, `Added post "Harbor" (slug harbor)`)
	_, err = os.Stat(filepath.Join(dir, "blog-images", "thumbs", "harbor-400.webp"))
	assert.NoError(t, err)

	_, err = run(t, "--root", dir, "--log-level", "error", "add-image", "--no-stage", "raw-images/Harbor_3.png")
	assert.ErrorIs(t, err, photoblog.ErrSlugConflict)
	assert.Equal(t, 1, exitCode(err))

	out, err = run(t, "--root", dir, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Checked 1 posts, 3 references: 0 errors, 0 warnings (clean)")

	out, err = run(t, "--root", dir, "feed")
	require.NoError(t, err)
	assert.Contains(t, out, "with 1 posts")

	out, err = run(t, "--root", dir, "links")
	require.NoError(t, err, out)

	require.NoError(t, os.Remove(filepath.Join(dir, "blog-images", "harbor.jpg")))
	out, err = run(t, "--root", dir, "validate")
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, out, "ERROR: Post 'Harbor': referenced file for 'image' not found")

	out, err = run(t, "--root", dir, "validate", "--warn-only")
	assert.NoError(t, err)
	assert.Contains(t, out, "1 errors")
}
