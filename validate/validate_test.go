package validate

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fs billy.Filesystem, name, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
}

func writePNG(t *testing.T, fs billy.Filesystem, name string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	require.NoError(t, util.WriteFile(fs, name, buf.Bytes(), 0o644))
}

func TestResolveRef(t *testing.T) {
	tests := map[string]string{
		"../blog-images/a.jpg":    "blog-images/a.jpg",
		"./blog-images/a.jpg":     "blog-images/a.jpg",
		"/blog-images/a.jpg":      "blog-images/a.jpg",
		"blog-images/a.jpg":       "blog-images/a.jpg",
		`..\blog-images\a.jpg`:    "blog-images/a.jpg",
		"../../blog-images/a.jpg": "../blog-images/a.jpg",
	}
	for in, want := range tests {
		assert.Equal(t, want, ResolveRef(in), in)
	}
}

func TestIsExternal(t *testing.T) {
	for _, ref := range []string{"http://x/a.jpg", "https://x", "//cdn/x.jpg", "data:image/png;base64,AA", "mailto:a@b", "tel:123", "  https://x"} {
		assert.True(t, IsExternal(ref), ref)
		assert.True(t, IsExternalLink(ref), ref)
	}
	assert.False(t, IsExternal("javascript:void(0)"))
	assert.True(t, IsExternalLink("javascript:void(0)"))
	assert.True(t, IsExternalLink(""))
	assert.False(t, IsExternal("../blog-images/a.jpg"))
	assert.False(t, IsExternalLink("/posts/"))
}

func TestCheckPostsClean(t *testing.T) {
	fs := memfs.New()
	writePNG(t, fs, "blog-images/sunset.jpg", 40, 30)
	writePNG(t, fs, "blog-images/thumbs/sunset-800.jpg", 40, 30)
	writePNG(t, fs, "blog-images/thumbs/sunset-1600.jpg", 40, 30)

	c := New(fs, Options{MaxKB: 1024, MaxWidth: 4000, MaxHeight: 4000})
	r := c.CheckPosts([]Record{{
		Title: "Sunset",
		Image: "../blog-images/sunset.jpg",
		Thumb: "../blog-images/thumbs/sunset-800.jpg",
		Hero:  "../blog-images/thumbs/sunset-1600.jpg",
	}, {
		Title: "Remote",
		Image: "https://example.com/remote.jpg",
	}})

	assert.Empty(t, r.Errors)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, StatusClean, r.Status())
	assert.Equal(t, 2, r.Scanned)
	assert.Equal(t, 3, r.Checked)
	assert.Equal(t, 0, r.ExitCode(false, true))
}

func TestCheckPostsMissingImageFile(t *testing.T) {
	fs := memfs.New()
	writePNG(t, fs, "blog-images/ok.jpg", 10, 10)

	c := New(fs, Options{})
	r := c.CheckPosts([]Record{
		{Title: "Fine", Image: "../blog-images/ok.jpg"},
		{Title: "Gone", Image: "../blog-images/gone.jpg"},
	})

	require.Len(t, r.Errors, 1)
	f := r.Errors[0]
	assert.Equal(t, "Gone", f.Subject)
	assert.Equal(t, "../blog-images/gone.jpg", f.Ref)
	assert.Equal(t, "blog-images/gone.jpg", f.Resolved)
	assert.Contains(t, f.Message, "Gone")
	assert.Contains(t, f.Message, "../blog-images/gone.jpg")
	assert.Equal(t, StatusErrors, r.Status())
	assert.Equal(t, 2, r.ExitCode(false, false))
	assert.Equal(t, 0, r.ExitCode(true, false))
}

func TestCheckPostsMissingImageField(t *testing.T) {
	c := New(memfs.New(), Options{})
	r := c.CheckPosts([]Record{{Title: "", Thumb: "../blog-images/x.jpg"}})

	require.Len(t, r.Errors, 1)
	assert.Equal(t, "Post '<no-title>': missing 'image' field", r.Errors[0].Message)
	assert.Equal(t, 0, r.Checked)
}

func TestCheckPostsWarnings(t *testing.T) {
	fs := memfs.New()
	writePNG(t, fs, "blog-images/My Photo.png", 300, 50)
	writeFile(t, fs, "blog-images/notes.jpg", strings.Repeat("x", 4096))

	c := New(fs, Options{MaxKB: 2, MaxWidth: 200, MaxHeight: 40})
	r := c.CheckPosts([]Record{
		{Title: "Big", Image: "../blog-images/My Photo.png"},
		{Title: "Broken", Image: "/blog-images/notes.jpg"},
	})

	assert.Empty(t, r.Errors)
	var msgs []string
	for _, w := range r.Warnings {
		msgs = append(msgs, w.Message)
	}
	assert.Equal(t, []string{
		"Post 'Big': filename contains spaces -> My Photo.png",
		"Post 'Big': filename contains uppercase letters -> My Photo.png",
		"Post 'Big': image My Photo.png width 300px > max_width 200",
		"Post 'Big': image My Photo.png height 50px > max_height 40",
		"Post 'Broken': file notes.jpg is 4.0KB > max_kb 2",
	}, msgs[:5])
	require.Len(t, r.Warnings, 6)
	assert.Contains(t, r.Warnings[5].Message, "Could not read dimensions of blog-images/notes.jpg")

	assert.Equal(t, StatusWarnings, r.Status())
	assert.Equal(t, 0, r.ExitCode(false, false))
	assert.Equal(t, 2, r.ExitCode(false, true))
}

func TestCheckPostsDirectoryIsNotAFile(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, fs.MkdirAll("blog-images/dir.jpg", 0o755))

	r := New(fs, Options{}).CheckPosts([]Record{{Title: "D", Image: "../blog-images/dir.jpg"}})
	assert.Len(t, r.Errors, 1)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "clean", StatusClean.String())
	assert.Equal(t, "warnings", StatusWarnings.String())
	assert.Equal(t, "errors", StatusErrors.String())
}
