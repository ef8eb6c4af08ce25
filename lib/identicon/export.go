package identicon

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/ether/lastupdated-go/lib/host"
)

// DefaultPalette maps cell values to fill colors. Empty means transparent.
var DefaultPalette = []string{"", "#ffffff", "#000000"}

const DefaultPixelSize = 10

// Shapes lays out one square shape per non-background cell.
func (i Icon) Shapes(pixelSize int, palette []string) []host.Shape {
	if pixelSize <= 0 {
		pixelSize = DefaultPixelSize
	}
	if len(palette) == 0 {
		palette = DefaultPalette
	}

	shapes := make([]host.Shape, 0, len(i.Data))
	for idx, cell := range i.Data {
		if cell == 0 || cell >= len(palette) || palette[cell] == "" {
			continue
		}
		row := idx / i.Size
		col := idx % i.Size
		shapes = append(shapes, host.Shape{
			Name:   "Pixel " + strconv.Itoa(idx),
			X:      pixelSize * col,
			Y:      pixelSize * row,
			Width:  pixelSize,
			Height: pixelSize,
			Color:  palette[cell],
		})
	}
	return shapes
}

// PNGExporter is the default BitmapExporter: it rasterises the shapes onto a
// transparent canvas of Width x Height pixels.
type PNGExporter struct {
	Width  int
	Height int
}

func NewPNGExporter(size, pixelSize int) *PNGExporter {
	if size <= 0 {
		size = DefaultSize
	}
	if pixelSize <= 0 {
		pixelSize = DefaultPixelSize
	}
	return &PNGExporter{Width: size * pixelSize, Height: size * pixelSize}
}

func (p *PNGExporter) ExportBase64(ctx context.Context, shapes []host.Shape) (string, error) {
	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for _, s := range shapes {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		c, err := ParseHexColor(s.Color)
		if err != nil {
			return "", fmt.Errorf("shape %q: %w", s.Name, err)
		}
		for y := s.Y; y < s.Y+s.Height && y < p.Height; y++ {
			for x := s.X; x < s.X+s.Width && x < p.Width; x++ {
				img.SetNRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ParseHexColor accepts #rgb and #rrggbb.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

var _ host.BitmapExporter = (*PNGExporter)(nil)
