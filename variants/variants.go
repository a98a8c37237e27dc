// Package variants generates resized, sharpened JPEG and WebP copies of a
// canonical image at a list of bounding-box sizes.
package variants

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"path"
	"strconv"
	"strings"

	"github.com/disintegration/gift"
	"github.com/gen2brain/jpegli"
	"github.com/gen2brain/webp"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultQuality is the JPEG quality used when no per-size value is set.
	DefaultQuality = 92

	// WebPMethod is the slowest, best-compressing libwebp method.
	WebPMethod = 6

	// ProgressiveLevel is the jpegli scan script used for JPEG variants.
	ProgressiveLevel = 2

	FormatJPEG = "jpg"
	FormatWebP = "webp"
)

// Unsharp mask applied after downscaling: radius 0.5, 120%, threshold 3/255.
const (
	sharpenSigma     = 0.5
	sharpenAmount    = 1.2
	sharpenThreshold = 3.0 / 255
)

// SupportedExts lists the source extensions picked up by directory batches.
var SupportedExts = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

// ErrInvalidOptions is returned by New for empty or non-positive sizes or
// out-of-range qualities.
var ErrInvalidOptions = errors.New("variants: invalid options")

// Options configures an Engine.
type Options struct {
	Sizes           []int      // bounding boxes in pixels, in order
	WebP            bool       // also write a .webp per size
	Quality         int        // JPEG quality when Qualities has no entry (default 92)
	Qualities       QualityMap // per-size JPEG quality
	SharpenUnscaled bool       // sharpen outputs that were not downscaled
	AutoOrient      bool       // apply EXIF orientation before resizing
}

// Variant is one written output.
type Variant struct {
	Size   int
	Format string
	Path   string // relative to the filesystem root
	Width  int
	Height int
}

// Key returns the manifest key: "800" or "800_webp".
func (v Variant) Key() string {
	if v.Format == FormatWebP {
		return strconv.Itoa(v.Size) + "_webp"
	}
	return strconv.Itoa(v.Size)
}

// Engine writes variants into a billy filesystem.
type Engine struct {
	fs   billy.Filesystem
	opts Options
	log  zerolog.Logger
}

// New validates opts and returns an Engine.
func New(fs billy.Filesystem, opts Options, log zerolog.Logger) (*Engine, error) {
	if opts.Quality == 0 {
		opts.Quality = DefaultQuality
	}
	if len(opts.Sizes) == 0 {
		return nil, fmt.Errorf("%w: no sizes", ErrInvalidOptions)
	}
	for _, s := range opts.Sizes {
		if s <= 0 {
			return nil, fmt.Errorf("%w: size %d", ErrInvalidOptions, s)
		}
		if q := opts.Qualities.For(s, opts.Quality); q < 1 || q > 100 {
			return nil, fmt.Errorf("%w: quality %d for size %d", ErrInvalidOptions, q, s)
		}
	}
	return &Engine{fs: fs, opts: opts, log: log}, nil
}

// Options returns the engine configuration.
func (e *Engine) Options() Options { return e.opts }

// Generate writes every configured variant of src into destDir and returns
// them in size order, JPEG before WebP. Existing outputs are overwritten.
func (e *Engine) Generate(src, destDir string) ([]Variant, error) {
	img, err := e.load(src)
	if err != nil {
		return nil, err
	}
	if err := e.fs.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", destDir, err)
	}

	stem := strings.TrimSuffix(path.Base(src), path.Ext(src))
	var out []Variant
	for _, size := range e.opts.Sizes {
		resized := e.resize(img, size)
		b := resized.Bounds()
		q := e.opts.Qualities.For(size, e.opts.Quality)

		name := path.Join(destDir, fmt.Sprintf("%s-%d.%s", stem, size, FormatJPEG))
		if err := e.write(name, func(buf *bytes.Buffer) error {
			return EncodeJPEG(buf, resized, q)
		}); err != nil {
			return out, err
		}
		out = append(out, Variant{Size: size, Format: FormatJPEG, Path: name, Width: b.Dx(), Height: b.Dy()})

		if !e.opts.WebP {
			continue
		}
		name = path.Join(destDir, fmt.Sprintf("%s-%d.%s", stem, size, FormatWebP))
		if err := e.write(name, func(buf *bytes.Buffer) error {
			return webp.Encode(buf, resized, webp.Options{Quality: WebPQuality(q), Method: WebPMethod})
		}); err != nil {
			return out, err
		}
		out = append(out, Variant{Size: size, Format: FormatWebP, Path: name, Width: b.Dx(), Height: b.Dy()})
	}
	e.log.Debug().Str("source", src).Int("variants", len(out)).Msg("generated variants")
	return out, nil
}

func (e *Engine) load(src string) (*image.RGBA, error) {
	data, err := util.ReadFile(e.fs, src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	if e.opts.AutoOrient {
		img = orient(img, data)
	}
	return Flatten(img), nil
}

// resize fits img into a size×size box. Images that already fit are returned
// unscaled and only sharpened when SharpenUnscaled is set.
func (e *Engine) resize(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	w, h, scaled := Fit(b.Dx(), b.Dy(), size)
	g := gift.New()
	if scaled {
		g.Add(gift.Resize(w, h, gift.LanczosResampling))
	}
	if scaled || e.opts.SharpenUnscaled {
		g.Add(gift.UnsharpMask(sharpenSigma, sharpenAmount, sharpenThreshold))
	}
	if len(g.Filters) == 0 {
		return img
	}
	dst := image.NewRGBA(g.Bounds(b))
	g.Draw(dst, img)
	return dst
}

func (e *Engine) write(name string, encode func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := util.WriteFile(e.fs, name, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Fit returns the dimensions of a w×h image fitted into a size×size box with
// its aspect ratio kept. scaled is false when the image already fits; images
// are never enlarged.
func Fit(w, h, size int) (fw, fh int, scaled bool) {
	if w <= size && h <= size {
		return w, h, false
	}
	if w >= h {
		fh = int(math.Round(float64(h) * float64(size) / float64(w)))
		return size, max(fh, 1), true
	}
	fw = int(math.Round(float64(w) * float64(size) / float64(h)))
	return max(fw, 1), size, true
}

// EncodeJPEG writes img as an optimized progressive JPEG.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpegli.Encode(w, img, &jpegli.EncodingOptions{
		Quality:          quality,
		ProgressiveLevel: ProgressiveLevel,
		OptimizeCoding:   true,
	})
}

// WebPQuality returns the WebP quality paired with a JPEG quality.
func WebPQuality(jpegQuality int) int {
	if jpegQuality >= 90 {
		return 90
	}
	return 85
}

// Flatten returns an opaque RGBA copy of img composited over white, with its
// origin moved to (0, 0).
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// IsSupported reports whether name has a source image extension.
func IsSupported(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range SupportedExts {
		if ext == e {
			return true
		}
	}
	return false
}

// orient applies the EXIF orientation tag, if any.
func orient(img image.Image, data []byte) image.Image {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return img
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return img
	}
	o, err := tag.Int(0)
	if err != nil {
		return img
	}
	var f gift.Filter
	switch o {
	case 2:
		f = gift.FlipHorizontal()
	case 3:
		f = gift.Rotate180()
	case 4:
		f = gift.FlipVertical()
	case 5:
		f = gift.Transpose()
	case 6:
		f = gift.Rotate270()
	case 7:
		f = gift.Transverse()
	case 8:
		f = gift.Rotate90()
	default:
		return img
	}
	g := gift.New(f)
	dst := image.NewRGBA(g.Bounds(img.Bounds()))
	g.Draw(dst, img)
	return dst
}
