// Package figure provides a raster chart implementation of botlog.Figure.
//
// A Raster is an already drawn chart (PNG, JPEG, GIF, BMP, TIFF or WebP)
// with a physical size derived from its native DPI. Rendering rescales it to
// the requested DPI, so a 960px image at 120 DPI (8 inches) exported at
// 106.5 DPI comes out about 852px wide before the tight crop.
package figure

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"loggingbot/pkg/botlog"
)

// DefaultDPI is assumed when an image carries no resolution of its own.
const DefaultDPI = 100

var ErrEmptyImage = errors.New("figure: empty image")

// Raster is a drawn chart with a physical size.
type Raster struct {
	img  image.Image
	dpi  float64
	face color.Color
	edge color.Color
}

var _ botlog.Figure = (*Raster)(nil)

// Option configures a Raster.
type Option func(*Raster)

// WithColors sets the face (background) and edge (border) colors.
func WithColors(face, edge color.Color) Option {
	return func(r *Raster) {
		if face != nil {
			r.face = face
		}
		if edge != nil {
			r.edge = edge
		}
	}
}

// New wraps img drawn at dpi dots per inch.
func New(img image.Image, dpi float64, opts ...Option) (*Raster, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	r := &Raster{img: img, dpi: dpi, face: color.White, edge: color.White}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Decode reads an image in any registered format.
func Decode(rd io.Reader, dpi float64, opts ...Option) (*Raster, error) {
	img, _, err := image.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("figure: decode: %w", err)
	}
	return New(img, dpi, opts...)
}

// Load opens and decodes the image at path.
func Load(path string, dpi float64, opts ...Option) (*Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f, dpi, opts...)
}

func (r *Raster) WidthInches() float64 {
	return float64(r.img.Bounds().Dx()) / r.dpi
}

func (r *Raster) Colors() (face, edge color.Color) { return r.face, r.edge }

// RenderPNG draws the figure at opts.DPI and encodes it as PNG.
func (r *Raster) RenderPNG(w io.Writer, opts botlog.RenderOptions) error {
	if opts.DPI <= 0 {
		return fmt.Errorf("figure: invalid dpi %v", opts.DPI)
	}
	face := opts.FaceColor
	if face == nil {
		face = r.face
	}
	edge := opts.EdgeColor
	if edge == nil {
		edge = r.edge
	}

	src := r.img.Bounds()
	if opts.Tight {
		src = contentBounds(r.img, face)
	}

	scale := opts.DPI / r.dpi
	dw := max(1, int(math.Round(float64(src.Dx())*scale)))
	dh := max(1, int(math.Round(float64(src.Dy())*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(face), image.Point{}, draw.Src)
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), r.img, src, xdraw.Over, nil)

	if !sameColor(face, edge) {
		drawBorder(dst, edge)
	}

	return png.Encode(w, dst)
}

// contentBounds returns the smallest rectangle holding every pixel that
// differs from the face color, or the full bounds if there is none.
func contentBounds(img image.Image, face color.Color) image.Rectangle {
	b := img.Bounds()
	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X, b.Min.Y
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if sameColor(img.At(x, y), face) {
				continue
			}
			minX = min(minX, x)
			minY = min(minY, y)
			maxX = max(maxX, x+1)
			maxY = max(maxY, y+1)
		}
	}
	if minX >= maxX || minY >= maxY {
		return b
	}
	return image.Rect(minX, minY, maxX, maxY)
}

func drawBorder(dst *image.RGBA, c color.Color) {
	b := dst.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		dst.Set(x, b.Min.Y, c)
		dst.Set(x, b.Max.Y-1, c)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		dst.Set(b.Min.X, y, c)
		dst.Set(b.Max.X-1, y, c)
	}
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}
