// Package watermark composites a visible brand signature and two logo marks
// onto raster images.
package watermark

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"

	"github.com/ukaseai/brandlab/internal/provenance"
)

// Asset names reported in DecodeError.
const (
	AssetSource = "source"
	AssetLogoA  = "logo_a"
	AssetLogoB  = "logo_b"
)

const (
	logoScale = 0.08
	logoGap   = 10
	// 0.8 opacity
	logoAlpha = 204
)

//go:embed assets/brandlab.png
var appLogo []byte

//go:embed assets/ukaseai.png
var companyLogo []byte

// DecodeError reports an image that could not be decoded. No output is
// produced when it is returned.
type DecodeError struct {
	Asset string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("watermark: decode %s: %v", e.Asset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Spec configures one watermark operation.
type Spec struct {
	Text    string
	Font    string
	Color   string
	Padding int
	LogoA   []byte
	LogoB   []byte
}

// DefaultSpec returns the stock watermark with the bundled logos.
func DefaultSpec() Spec {
	return Spec{
		Text:    provenance.DefaultSignature,
		Font:    "bold 20px sans-serif",
		Color:   "rgba(255,255,255,0.25)",
		Padding: 20,
		LogoA:   appLogo,
		LogoB:   companyLogo,
	}
}

// DefaultLogos returns the bundled application and company marks.
func DefaultLogos() (a, b []byte) {
	return appLogo, companyLogo
}

// Layout is where the overlays land on a w×h image.
type Layout struct {
	LogoSize   int
	LogoA      image.Rectangle
	LogoB      image.Rectangle
	TextAnchor image.Point // bottom-right corner of the text box
}

// ComputeLayout places two square logos side by side in the bottom-left
// corner, sized at 8% of the width, and anchors the text bottom-right.
func ComputeLayout(w, h, padding int) Layout {
	size := int(math.Floor(float64(w) * logoScale))
	y := h - size - padding
	bx := padding + size + logoGap
	return Layout{
		LogoSize:   size,
		LogoA:      image.Rect(padding, y, padding+size, y+size),
		LogoB:      image.Rect(bx, y, bx+size, y+size),
		TextAnchor: image.Pt(w-padding, h-padding),
	}
}

// Watermark decodes src (PNG, JPEG, GIF or WebP), composites the overlays
// and returns the result as PNG.
func Watermark(src []byte, spec Spec) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, &DecodeError{Asset: AssetSource, Err: err}
	}

	out, err := Composite(img, spec)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("watermark: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Composite draws the overlays onto a copy of img. The result has img's
// dimensions with its origin at (0,0).
func Composite(img image.Image, spec Spec) (*image.RGBA, error) {
	logoA, err := decodeAsset(AssetLogoA, spec.LogoA)
	if err != nil {
		return nil, err
	}
	logoB, err := decodeAsset(AssetLogoB, spec.LogoB)
	if err != nil {
		return nil, err
	}

	var face font.Face
	var fill color.NRGBA
	if spec.Text != "" {
		fs, err := ParseFont(spec.Font)
		if err != nil {
			return nil, err
		}
		if fill, err = ParseColor(spec.Color); err != nil {
			return nil, err
		}
		if face, err = fs.Face(); err != nil {
			return nil, err
		}
		defer face.Close()
	}

	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	layout := ComputeLayout(b.Dx(), b.Dy(), spec.Padding)
	if layout.LogoSize > 0 {
		drawLogo(dst, layout.LogoA, logoA)
		drawLogo(dst, layout.LogoB, logoB)
	}

	if face != nil {
		drawText(dst, face, fill, spec.Text, layout.TextAnchor)
	}
	return dst, nil
}

func decodeAsset(name string, data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Asset: name, Err: errors.New("empty image data")}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Asset: name, Err: err}
	}
	return img, nil
}

func drawLogo(dst *image.RGBA, r image.Rectangle, logo image.Image) {
	scaled := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), logo, logo.Bounds(), draw.Src, nil)
	draw.DrawMask(dst, r, scaled, image.Point{}, image.NewUniform(color.Alpha{A: logoAlpha}), image.Point{}, draw.Over)
}

// drawText right-aligns text on anchor.X with its descent line on anchor.Y.
func drawText(dst *image.RGBA, face font.Face, fill color.NRGBA, text string, anchor image.Point) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fill),
		Face: face,
	}
	width := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.I(anchor.X) - width,
		Y: fixed.I(anchor.Y) - face.Metrics().Descent,
	}
	d.DrawString(text)
}
