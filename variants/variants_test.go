package variants

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"path"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	return img
}

func writeJPEG(t *testing.T, fs billy.Filesystem, name string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 90}))
	require.NoError(t, util.WriteFile(fs, name, buf.Bytes(), 0o644))
}

func decodeSize(t *testing.T, fs billy.Filesystem, name string) (int, int) {
	t.Helper()
	data, err := util.ReadFile(fs, name)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func newEngine(t *testing.T, fs billy.Filesystem, opts Options) *Engine {
	t.Helper()
	e, err := New(fs, opts, zerolog.Nop())
	require.NoError(t, err)
	return e
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, size   int
		wantW, wantH int
		wantScaled   bool
	}{
		{3000, 2000, 1600, 1600, 1067, true},
		{2000, 3000, 1600, 1067, 1600, true},
		{400, 300, 800, 400, 300, false},
		{800, 800, 800, 800, 800, false},
		{1000, 1000, 400, 400, 400, true},
		{1000, 1, 10, 10, 1, true},
	}
	for _, tt := range tests {
		w, h, scaled := Fit(tt.w, tt.h, tt.size)
		assert.Equal(t, tt.wantW, w, "width of %dx%d in %d", tt.w, tt.h, tt.size)
		assert.Equal(t, tt.wantH, h, "height of %dx%d in %d", tt.w, tt.h, tt.size)
		assert.Equal(t, tt.wantScaled, scaled)
	}
}

func TestFitLargerSideMatchesBox(t *testing.T) {
	for _, dims := range [][2]int{{3000, 2000}, {1234, 987}, {640, 4000}, {901, 900}} {
		for _, size := range []int{1600, 800, 400} {
			w, h, scaled := Fit(dims[0], dims[1], size)
			if max(dims[0], dims[1]) <= size {
				assert.False(t, scaled)
				assert.Equal(t, dims[0], w)
				assert.Equal(t, dims[1], h)
				continue
			}
			assert.True(t, scaled)
			assert.Equal(t, size, max(w, h))
			ratio := float64(dims[0]) / float64(dims[1])
			assert.InDelta(t, ratio, float64(w)/float64(h), ratio*0.01)
		}
	}
}

func TestWebPQuality(t *testing.T) {
	assert.Equal(t, 90, WebPQuality(92))
	assert.Equal(t, 90, WebPQuality(90))
	assert.Equal(t, 85, WebPQuality(89))
	assert.Equal(t, 85, WebPQuality(60))
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	fs := memfs.New()
	_, err := New(fs, Options{}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(fs, Options{Sizes: []int{800, 0}}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(fs, Options{Sizes: []int{800}, Quality: 101}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidOptions)

	e, err := New(fs, Options{Sizes: []int{800}}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultQuality, e.Options().Quality)
}

func TestGenerateScenario(t *testing.T) {
	fs := memfs.New()
	writeJPEG(t, fs, "blog-images/img.jpg", 3000, 2000)
	e := newEngine(t, fs, Options{Sizes: []int{1600, 800, 400}, WebP: true})

	vs, err := e.Generate("blog-images/img.jpg", "blog-images/thumbs")
	require.NoError(t, err)
	require.Len(t, vs, 6)

	var names []string
	for _, v := range vs {
		names = append(names, path.Base(v.Path))
		assert.True(t, strings.HasPrefix(v.Path, "blog-images/thumbs/"))
	}
	assert.Equal(t, []string{
		"img-1600.jpg", "img-1600.webp",
		"img-800.jpg", "img-800.webp",
		"img-400.jpg", "img-400.webp",
	}, names)

	w, h := decodeSize(t, fs, "blog-images/thumbs/img-1600.jpg")
	assert.Equal(t, 1600, w)
	assert.Equal(t, 1067, h)
	w, h = decodeSize(t, fs, "blog-images/thumbs/img-400.webp")
	assert.Equal(t, 400, w)
	assert.Equal(t, 267, h)

	assert.Equal(t, "1600", vs[0].Key())
	assert.Equal(t, "1600_webp", vs[1].Key())
}

// frameMarker returns the start-of-frame marker byte of a JPEG stream, or 0.
func frameMarker(data []byte) byte {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0
	}
	for i := 2; i+3 < len(data); {
		if data[i] != 0xFF {
			return 0
		}
		m := data[i+1]
		switch {
		case m == 0xFF:
			i++
			continue
		case m >= 0xC0 && m <= 0xCF && m != 0xC4 && m != 0xC8 && m != 0xCC:
			return m
		case m == 0xDA || m == 0xD9:
			return 0
		}
		i += 2 + (int(data[i+2])<<8 | int(data[i+3]))
	}
	return 0
}

func TestGenerateWritesProgressiveJPEG(t *testing.T) {
	fs := memfs.New()
	writeJPEG(t, fs, "src/img.jpg", 900, 600)
	e := newEngine(t, fs, Options{Sizes: []int{400, 1600}})

	_, err := e.Generate("src/img.jpg", "out")
	require.NoError(t, err)

	for _, name := range []string{"out/img-400.jpg", "out/img-1600.jpg"} {
		data, err := util.ReadFile(fs, name)
		require.NoError(t, err)
		assert.Equal(t, byte(0xC2), frameMarker(data), "%s is not progressive", name)
	}

	var baseline bytes.Buffer
	require.NoError(t, jpeg.Encode(&baseline, gradient(8, 8), nil))
	assert.Equal(t, byte(0xC0), frameMarker(baseline.Bytes()))
}

func TestGenerateNeverUpscales(t *testing.T) {
	fs := memfs.New()
	writeJPEG(t, fs, "src/small.jpg", 500, 300)
	e := newEngine(t, fs, Options{Sizes: []int{1600, 400}})

	vs, err := e.Generate("src/small.jpg", "out")
	require.NoError(t, err)
	require.Len(t, vs, 2)

	w, h := decodeSize(t, fs, "out/small-1600.jpg")
	assert.Equal(t, 500, w)
	assert.Equal(t, 300, h)
	w, h = decodeSize(t, fs, "out/small-400.jpg")
	assert.Equal(t, 400, w)
	assert.Equal(t, 240, h)
}

func TestGenerateIsIdempotent(t *testing.T) {
	fs := memfs.New()
	writeJPEG(t, fs, "src/a.jpg", 1200, 900)
	e := newEngine(t, fs, Options{Sizes: []int{800, 400}, Qualities: QualityMap{400: 80}})

	_, err := e.Generate("src/a.jpg", "out")
	require.NoError(t, err)
	first, err := util.ReadFile(fs, "out/a-400.jpg")
	require.NoError(t, err)

	_, err = e.Generate("src/a.jpg", "out")
	require.NoError(t, err)
	second, err := util.ReadFile(fs, "out/a-400.jpg")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateMissingSource(t *testing.T) {
	e := newEngine(t, memfs.New(), Options{Sizes: []int{400}})
	_, err := e.Generate("nope.jpg", "out")
	assert.Error(t, err)
}

func TestResizeLeavesSmallImagesAlone(t *testing.T) {
	src := gradient(100, 80)
	e := &Engine{opts: Options{Sizes: []int{400}}}
	assert.Same(t, src, e.resize(src, 400))

	e.opts.SharpenUnscaled = true
	out := e.resize(src, 400)
	assert.NotSame(t, src, out)
	assert.Equal(t, src.Bounds(), out.Bounds())
}

func TestFlattenUsesWhiteBackground(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 12, 12))
	img.Set(10, 10, color.NRGBA{0, 0, 0, 0})
	img.Set(11, 10, color.NRGBA{255, 0, 0, 255})

	flat := Flatten(img)
	assert.Equal(t, image.Rect(0, 0, 2, 2), flat.Bounds())
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, flat.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, flat.RGBAAt(1, 0))
}

func TestBatchIsolatesFailures(t *testing.T) {
	fs := memfs.New()
	writeJPEG(t, fs, "blog-images/good.jpg", 900, 600)
	require.NoError(t, util.WriteFile(fs, "blog-images/broken.jpg", []byte("not an image"), 0o644))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, gradient(300, 200)))
	require.NoError(t, util.WriteFile(fs, "blog-images/tiny.png", buf.Bytes(), 0o644))
	require.NoError(t, util.WriteFile(fs, "blog-images/notes.txt", []byte("x"), 0o644))

	e := newEngine(t, fs, Options{Sizes: []int{800, 400}, WebP: true})
	sources, err := e.Sources("blog-images")
	require.NoError(t, err)
	assert.Equal(t, []string{"blog-images/broken.jpg", "blog-images/good.jpg", "blog-images/tiny.png"}, sources)

	res := e.Batch(sources, "blog-images/thumbs")
	assert.Equal(t, []string{"blog-images/good.jpg", "blog-images/tiny.png"}, res.Processed)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "blog-images/broken.jpg", res.Failed[0].Source)

	assert.Equal(t, map[string]string{
		"800":      "blog-images/thumbs/good-800.jpg",
		"800_webp": "blog-images/thumbs/good-800.webp",
		"400":      "blog-images/thumbs/good-400.jpg",
		"400_webp": "blog-images/thumbs/good-400.webp",
	}, res.Manifest["good.jpg"])
	assert.NotContains(t, res.Manifest, "broken.jpg")

	require.NoError(t, res.Manifest.Write(e, "tools/process-map.json"))
	data, err := util.ReadFile(fs, "tools/process-map.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"good.jpg": {`)
}

func TestParseQualityMap(t *testing.T) {
	q, err := ParseQualityMap(`{"1600":92,"800":90,"400":85}`)
	require.NoError(t, err)
	assert.Equal(t, QualityMap{1600: 92, 800: 90, 400: 85}, q)
	assert.Equal(t, 85, q.For(400, 92))
	assert.Equal(t, 92, q.For(200, 92))

	var empty QualityMap
	assert.Equal(t, 77, empty.For(400, 77))

	_, err = ParseQualityMap(`{"big":92}`)
	assert.Error(t, err)
	_, err = ParseQualityMap(`{"400":0}`)
	assert.Error(t, err)
	_, err = ParseQualityMap(`[1,2]`)
	assert.Error(t, err)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("a.JPG"))
	assert.True(t, IsSupported("dir/b.png"))
	assert.False(t, IsSupported("c.webp"))
	assert.False(t, IsSupported("README"))
}
