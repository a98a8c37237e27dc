// Package watermark stamps semi-transparent text onto images before they
// become canonical originals in the image library.
package watermark

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/eringen/photoblog/variants"
)

// ErrNoFont is returned when no font could be loaded at all.
var ErrNoFont = errors.New("watermark: no usable font")

var (
	outlineColor = color.NRGBA{0, 0, 0, 120}
	textColor    = color.NRGBA{255, 255, 255, 140}
)

// systemFonts are tried in order after an explicit font path.
var systemFonts = []string{"arial.ttf", "Arial.ttf", "DejaVuSans.ttf", "LiberationSans-Regular.ttf"}

// fontDirs are searched recursively for systemFonts.
var fontDirs = []string{
	"/usr/share/fonts",
	"/usr/local/share/fonts",
	"/Library/Fonts",
	"/System/Library/Fonts/Supplemental",
	`C:\Windows\Fonts`,
}

// Face is a loaded font face and where it came from.
type Face struct {
	font.Face
	Source string
}

// LoadFace resolves a font face at size points: the explicit path first, then
// a common system font, then the built-in Go Regular face.
func LoadFace(fontPath string, size float64, log zerolog.Logger) (*Face, error) {
	if fontPath != "" {
		f, err := loadFile(fontPath, size)
		if err == nil {
			return &Face{Face: f, Source: fontPath}, nil
		}
		log.Warn().Err(err).Str("font", fontPath).Msg("failed to load font, falling back")
	}
	for _, name := range systemFonts {
		for _, dir := range fontDirs {
			p, ok := findFont(dir, name)
			if !ok {
				continue
			}
			if f, err := loadFile(p, size); err == nil {
				return &Face{Face: f, Source: p}, nil
			}
		}
	}
	f, err := newFace(goregular.TTF, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFont, err)
	}
	log.Debug().Msg("using built-in Go Regular font")
	return &Face{Face: f, Source: "goregular"}, nil
}

func loadFile(p string, size float64) (font.Face, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return newFace(data, size)
}

func newFace(data []byte, size float64) (font.Face, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

func findFont(dir, name string) (string, bool) {
	var found string
	filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return filepath.SkipDir
		}
		if !d.IsDir() && d.Name() == name {
			found = p
			return filepath.SkipAll
		}
		return nil
	})
	return found, found != ""
}

// Padding is the margin between the text and the image edges.
func Padding(w, h int) int {
	return max(10, int(float64(min(w, h))*0.02))
}

// Apply draws text at the bottom-right of img with a 1px dark outline and
// returns the opaque result.
func Apply(img image.Image, text string, face font.Face) *image.RGBA {
	dst := variants.Flatten(img)
	b := dst.Bounds()
	overlay := image.NewNRGBA(b)

	tb, _ := font.BoundString(face, text)
	pad := fixed.I(Padding(b.Dx(), b.Dy()))
	dot := fixed.Point26_6{
		X: fixed.I(b.Dx()) - pad - tb.Max.X,
		Y: fixed.I(b.Dy()) - pad - tb.Max.Y,
	}

	d := &font.Drawer{Dst: overlay, Src: image.NewUniform(outlineColor), Face: face}
	for ox := -1; ox <= 1; ox++ {
		for oy := -1; oy <= 1; oy++ {
			if ox == 0 && oy == 0 {
				continue
			}
			d.Dot = dot.Add(fixed.P(ox, oy))
			d.DrawString(text)
		}
	}
	d.Src = image.NewUniform(textColor)
	d.Dot = dot
	d.DrawString(text)

	draw.Draw(dst, b, overlay, b.Min, draw.Over)
	return dst
}

// Failure records an image the stamper could not process.
type Failure struct {
	Source string
	Err    error
}

// Result summarizes a Dir run.
type Result struct {
	Written []string
	Failed  []Failure
}

// Stamper watermarks images inside a billy filesystem.
type Stamper struct {
	fs   billy.Filesystem
	face font.Face
	text string
	log  zerolog.Logger
}

// NewStamper returns a Stamper drawing text with face.
func NewStamper(fs billy.Filesystem, face font.Face, text string, log zerolog.Logger) *Stamper {
	return &Stamper{fs: fs, face: face, text: text, log: log}
}

// File watermarks src and writes it as JPEG to dest.
func (s *Stamper) File(src, dest string) error {
	data, err := util.ReadFile(s.fs, src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Apply(img, s.text, s.face), nil); err != nil {
		return fmt.Errorf("encode %s: %w", dest, err)
	}
	if err := s.fs.MkdirAll(path.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := util.WriteFile(s.fs, dest, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// Dir watermarks every supported image in srcDir into destDir under its
// original filename. Per-file failures are collected in the result.
func (s *Stamper) Dir(srcDir, destDir string) (Result, error) {
	var res Result
	entries, err := s.fs.ReadDir(srcDir)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", srcDir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, fi := range entries {
		if !fi.Mode().IsRegular() || !variants.IsSupported(fi.Name()) {
			continue
		}
		src := path.Join(srcDir, fi.Name())
		dest := path.Join(destDir, fi.Name())
		if err := s.File(src, dest); err != nil {
			s.log.Warn().Err(err).Str("source", src).Msg("watermark failed")
			res.Failed = append(res.Failed, Failure{Source: src, Err: err})
			continue
		}
		s.log.Info().Str("dest", dest).Msg("watermarked image")
		res.Written = append(res.Written, dest)
	}
	return res, nil
}
