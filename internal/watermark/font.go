package watermark

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Font families the compositor can render. Anything that is not monospace
// renders with the proportional Go face.
const (
	FamilySans = "sans"
	FamilyMono = "mono"
)

// FontSpec is a parsed CSS-style font shorthand.
type FontSpec struct {
	Family string
	Bold   bool
	Italic bool
	SizePx float64
}

// ParseFont reads a CSS font shorthand such as "bold 20px sans-serif" or
// "italic 600 14pt 'Courier New', monospace". A size is required.
func ParseFont(s string) (FontSpec, error) {
	spec := FontSpec{Family: FamilySans}
	fields := strings.Fields(s)

	sizeAt := -1
	for i, f := range fields {
		tok := strings.ToLower(f)
		switch {
		case tok == "bold" || tok == "bolder":
			spec.Bold = true
		case tok == "italic" || tok == "oblique":
			spec.Italic = true
		case tok == "normal" || tok == "small-caps" || tok == "lighter":
		case isWeight(tok):
			w, _ := strconv.Atoi(tok)
			spec.Bold = w >= 600
		default:
			size, ok := parseSize(tok)
			if !ok {
				return FontSpec{}, fmt.Errorf("watermark: unexpected %q in font %q", f, s)
			}
			spec.SizePx = size
			sizeAt = i
		}
		if sizeAt >= 0 {
			break
		}
	}
	if sizeAt < 0 || spec.SizePx <= 0 {
		return FontSpec{}, fmt.Errorf("watermark: font %q has no size", s)
	}

	family := strings.ToLower(strings.Join(fields[sizeAt+1:], " "))
	if strings.Contains(family, "mono") || strings.Contains(family, "courier") {
		spec.Family = FamilyMono
	}
	return spec, nil
}

func isWeight(tok string) bool {
	if len(tok) != 3 || !strings.HasSuffix(tok, "00") {
		return false
	}
	_, err := strconv.Atoi(tok)
	return err == nil
}

// parseSize accepts "20px", "15pt" and "20px/1.2" (line height ignored).
func parseSize(tok string) (float64, bool) {
	tok, _, _ = strings.Cut(tok, "/")
	unit := tok[max(len(tok)-2, 0):]
	if unit != "px" && unit != "pt" {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok[:len(tok)-2], 64)
	if err != nil {
		return 0, false
	}
	if unit == "pt" {
		// 1pt = 4/3 px at 96 DPI
		v = v * 4 / 3
	}
	return v, true
}

func (f FontSpec) ttf() (string, []byte) {
	switch {
	case f.Family == FamilyMono && f.Bold && f.Italic:
		return "gomonobolditalic", gomonobolditalic.TTF
	case f.Family == FamilyMono && f.Bold:
		return "gomonobold", gomonobold.TTF
	case f.Family == FamilyMono && f.Italic:
		return "gomonoitalic", gomonoitalic.TTF
	case f.Family == FamilyMono:
		return "gomono", gomono.TTF
	case f.Bold && f.Italic:
		return "gobolditalic", gobolditalic.TTF
	case f.Bold:
		return "gobold", gobold.TTF
	case f.Italic:
		return "goitalic", goitalic.TTF
	default:
		return "goregular", goregular.TTF
	}
}

var parsedFonts sync.Map // name -> *opentype.Font

// Face returns a drawable face at the requested pixel size. Callers close it.
func (f FontSpec) Face() (font.Face, error) {
	name, data := f.ttf()
	var parsed *opentype.Font
	if cached, ok := parsedFonts.Load(name); ok {
		parsed = cached.(*opentype.Font)
	} else {
		var err error
		parsed, err = opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("watermark: parse %s: %w", name, err)
		}
		parsedFonts.Store(name, parsed)
	}

	// 72 DPI makes points equal pixels
	return opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    f.SizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
