// Package identicon generates small symmetric pixel icons from a string seed.
//
// The generator is a xorshift PRNG seeded by folding the UTF-16 code units of
// the seed into four accumulator words. Outputs are a pure function of the seed
// and must stay bit-identical across implementations, so the integer arithmetic
// follows 32-bit two's complement semantics exactly.
package identicon

import (
	"fmt"
	"math"
	"unicode/utf16"
)

const (
	DefaultSize  = 8
	DefaultScale = 4
)

// HSL is a generated color.
type HSL struct {
	H int
	S float64
	L float64
}

func (c HSL) String() string {
	return fmt.Sprintf("hsl(%d,%v%%,%v%%)", c.H, c.S, c.L)
}

// Generator holds the four-word xorshift state. Words are kept wider than 32
// bits because seeding accumulates without truncation; every shift and xor
// truncates to 32 bits first.
type Generator struct {
	state [4]int64
}

func NewGenerator(seed string) *Generator {
	g := &Generator{}
	g.Seed(seed)
	return g
}

func (g *Generator) Seed(seed string) {
	g.state = [4]int64{}
	for i, code := range utf16.Encode([]rune(seed)) {
		w := g.state[i%4]
		g.state[i%4] = int64(int32(w)<<5) - w + int64(code)
	}
}

// Rand advances the state and returns a value in [0,1).
func (g *Generator) Rand() float64 {
	x := int32(g.state[0])
	t := x ^ (x << 11)

	g.state[0] = g.state[1]
	g.state[1] = g.state[2]
	g.state[2] = g.state[3]

	w := int32(g.state[3])
	g.state[3] = int64(w ^ (w >> 19) ^ t ^ (t >> 8))

	return float64(uint32(g.state[3])) / (1 << 32)
}

// CreateColor draws hue in [0,360), saturation in [40,100) and a lightness that
// averages four draws.
func (g *Generator) CreateColor() HSL {
	h := int(math.Floor(g.Rand() * 360))
	s := g.Rand()*60 + 40
	l := (g.Rand() + g.Rand() + g.Rand() + g.Rand()) * 25
	return HSL{H: h, S: s, L: l}
}

// CreateImageData samples the left half plus the center column of a size x size
// grid and mirrors it onto the right half. Cells are 0 (background),
// 1 (foreground) or 2 (spot).
func (g *Generator) CreateImageData(size int) []int {
	dataWidth := (size + 1) / 2
	mirrorWidth := size - dataWidth

	data := make([]int, 0, size*size)
	row := make([]int, size)
	for y := 0; y < size; y++ {
		for x := 0; x < dataWidth; x++ {
			row[x] = int(math.Floor(g.Rand() * 2.3))
		}
		for x := 0; x < mirrorWidth; x++ {
			row[dataWidth+x] = row[mirrorWidth-1-x]
		}
		data = append(data, row...)
	}
	return data
}

// Options mirror the blockies options. A nil color is generated from the PRNG.
type Options struct {
	Seed      string
	Size      int
	Scale     int
	Color     *HSL
	BgColor   *HSL
	SpotColor *HSL
}

type Icon struct {
	Seed      string
	Size      int
	Scale     int
	Color     HSL
	BgColor   HSL
	SpotColor HSL
	Data      []int
}

// RenderIcon builds the icon for opts. Generated colors are drawn before the
// pixel grid, in the order color, background, spot.
func RenderIcon(opts Options) Icon {
	g := NewGenerator(opts.Seed)

	icon := Icon{Seed: opts.Seed, Size: opts.Size, Scale: opts.Scale}
	if icon.Size <= 0 {
		icon.Size = DefaultSize
	}
	if icon.Scale <= 0 {
		icon.Scale = DefaultScale
	}

	icon.Color = pick(opts.Color, g)
	icon.BgColor = pick(opts.BgColor, g)
	icon.SpotColor = pick(opts.SpotColor, g)
	icon.Data = g.CreateImageData(icon.Size)
	return icon
}

func pick(c *HSL, g *Generator) HSL {
	if c != nil {
		return *c
	}
	return g.CreateColor()
}

// At returns the cell value at row, col.
func (i Icon) At(row, col int) int {
	return i.Data[row*i.Size+col]
}
