package photoblog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"camera name", "IMG_2.JPG", "img"},
		{"trailing counter", "photo-2.jpg", "photo"},
		{"stacked counters", "photo-2-3.png", "photo"},
		{"spaces", "My Walk 1.jpg", "my-walk"},
		{"path and spaces", "../raw-images/Sunset Beach.png", "sunset-beach"},
		{"windows path", `C:\photos\Harbor_Night.jpeg`, "harbor-night"},
		{"hyphens kept", "a--b.jpg", "a--b"},
		{"inner digits kept", "route66-west.jpg", "route66-west"},
		{"punctuation dropped", "café (old).jpg", "caf-old"},
		{"nothing left", "@@@.jpg", ""},
		{"wrapped counter", "trip (2).jpg", "trip"},
		{"date stem", "2024-01-05.jpg", "2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugifyIsIdempotent(t *testing.T) {
	inputs := []string{
		"IMG_2.JPG", "a.b.c", "-5", "x-", "a- 1", "a_-_1", " -1",
		"abc.JPG.", "Sunset Beach 12.png", "é1", "a-1-", "DSC 0001 (2).jpg",
	}
	for _, in := range inputs {
		s := Slugify(in)
		assert.Equal(t, s, Slugify(s+".jpg"), "input %q", in)
	}
}

func TestSlugifyFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"My Photo 1.JPG", "my-photo-1.jpg"},
		{"__a__.png", "a.png"},
		{"a--b.JPEG", "a-b.jpeg"},
		{"noext", "noext"},
		{"  Spaced Out .Png ", "spaced-out.png"},
		{"(weird)!name.gif", "weirdname.gif"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SlugifyFilename(tt.in), tt.in)
	}
}

func TestUniqueName(t *testing.T) {
	taken := map[string]bool{"a.jpg": true, "a-1.jpg": true, "b": true}
	isTaken := func(n string) bool { return taken[n] }

	assert.Equal(t, "a-2.jpg", UniqueName("a.jpg", "", isTaken))
	assert.Equal(t, "a.jpg", UniqueName("a.jpg", "a.jpg", isTaken))
	assert.Equal(t, "b-1", UniqueName("b", "", isTaken))
	assert.Equal(t, "c.jpg", UniqueName("c.jpg", "", isTaken))
}

func TestTitleFromSlug(t *testing.T) {
	assert.Equal(t, "My Walk", TitleFromSlug("my-walk"))
	assert.Equal(t, "Img", TitleFromSlug("img"))
	assert.Equal(t, "", TitleFromSlug(""))
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "https://photos.example/posts/img.html", BuildURL("https://photos.example", "posts/img.html"))
	assert.Equal(t, "https://photos.example/", BuildURL("https://photos.example"))
	assert.Equal(t, "https://photos.example/blog/", BuildURL("https://photos.example/blog", "/"))
}

func TestSiteRef(t *testing.T) {
	assert.Equal(t, "../blog-images/img.jpg", siteRef("blog-images/img.jpg"))
	assert.Equal(t, "../blog-images/thumbs/img-800.jpg", siteRef("/blog-images/thumbs/./img-800.jpg"))
}

func TestEnvOr(t *testing.T) {
	t.Setenv("PHOTOBLOG_TEST_ENV", "debug")
	assert.Equal(t, "debug", EnvOr("PHOTOBLOG_TEST_ENV", "info"))
	assert.Equal(t, "info", EnvOr("PHOTOBLOG_TEST_UNSET", "info"))
}
