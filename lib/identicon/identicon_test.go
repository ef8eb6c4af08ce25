package identicon

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRandFirstDrawForSingleChar(t *testing.T) {
	g := NewGenerator("a")
	// state = [97,0,0,0]; t = 97 ^ 97<<11; w' = t ^ t>>8
	require.Equal(t, 199529.0/4294967296.0, g.Rand())
}

func TestEmptySeedYieldsBlankIcon(t *testing.T) {
	icon := RenderIcon(Options{Seed: ""})
	for i, cell := range icon.Data {
		if cell != 0 {
			t.Fatalf("cell %d = %d, want 0", i, cell)
		}
	}
}

func TestRenderIconIsDeterministic(t *testing.T) {
	first := RenderIcon(Options{Seed: "abc"})
	second := RenderIcon(Options{Seed: "abc"})
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("RenderIcon(\"abc\") not deterministic (-first +second):\n%s", diff)
	}
	require.Len(t, first.Data, DefaultSize*DefaultSize)
}

func TestDifferentSeedsDiffer(t *testing.T) {
	a := RenderIcon(Options{Seed: "1-3-2024 10:15"})
	b := RenderIcon(Options{Seed: "1-3-2024 10:16"})
	require.NotEqual(t, a.Data, b.Data)
}

func TestIconsAreMirrored(t *testing.T) {
	faker := gofakeit.New(42)
	for n := 0; n < 50; n++ {
		seed := faker.Name() + faker.Date().String()
		size := 5 + n%6
		icon := RenderIcon(Options{Seed: seed, Size: size})
		for row := 0; row < size; row++ {
			for col := 0; col < size; col++ {
				if icon.At(row, col) != icon.At(row, size-1-col) {
					t.Fatalf("seed %q size %d: row %d not symmetric", seed, size, row)
				}
			}
		}
	}
}

func TestCellsAndDrawsStayInRange(t *testing.T) {
	faker := gofakeit.New(7)
	for n := 0; n < 50; n++ {
		g := NewGenerator(faker.UUID() + faker.HexColor())
		for i := 0; i < 100; i++ {
			r := g.Rand()
			if r < 0 || r >= 1 {
				t.Fatalf("Rand() = %v out of [0,1)", r)
			}
		}
		for _, cell := range g.CreateImageData(8) {
			if cell < 0 || cell > 2 {
				t.Fatalf("cell value %d out of {0,1,2}", cell)
			}
		}
	}
}

func TestCreateColorRanges(t *testing.T) {
	g := NewGenerator("colors")
	for i := 0; i < 100; i++ {
		c := g.CreateColor()
		require.GreaterOrEqual(t, c.H, 0)
		require.Less(t, c.H, 360)
		require.GreaterOrEqual(t, c.S, 40.0)
		require.Less(t, c.S, 100.0)
		require.GreaterOrEqual(t, c.L, 0.0)
		require.Less(t, c.L, 100.0)
	}
}

func TestSuppliedColorsSkipDraws(t *testing.T) {
	c := HSL{H: 10, S: 50, L: 50}
	generated := RenderIcon(Options{Seed: "abc"})
	supplied := RenderIcon(Options{Seed: "abc", Color: &c, BgColor: &c, SpotColor: &c})

	g := NewGenerator("abc")
	require.Equal(t, g.CreateImageData(DefaultSize), supplied.Data)
	require.Equal(t, c, supplied.Color)
	require.NotEqual(t, c, generated.Color)
}

func TestShapesSkipBackground(t *testing.T) {
	icon := Icon{Size: 2, Data: []int{0, 1, 2, 0}}
	shapes := icon.Shapes(10, nil)
	require.Len(t, shapes, 2)
	require.Equal(t, "#ffffff", shapes[0].Color)
	require.Equal(t, 10, shapes[0].X)
	require.Equal(t, 0, shapes[0].Y)
	require.Equal(t, "#000000", shapes[1].Color)
	require.Equal(t, 0, shapes[1].X)
	require.Equal(t, 10, shapes[1].Y)
}

func TestPNGExporterProducesDecodablePNG(t *testing.T) {
	icon := RenderIcon(Options{Seed: "abc"})
	exporter := NewPNGExporter(icon.Size, 10)

	encoded, err := exporter.ExportBase64(context.Background(), icon.Shapes(10, nil))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	require.Equal(t, []byte("\x89PNG"), raw[:4])

	again, err := exporter.ExportBase64(context.Background(), icon.Shapes(10, nil))
	require.NoError(t, err)
	require.Equal(t, encoded, again)
}

func TestParseHexColor(t *testing.T) {
	testCases := []struct {
		input   string
		want    [3]uint8
		wantErr bool
	}{
		{"#ffffff", [3]uint8{255, 255, 255}, false},
		{"#000", [3]uint8{0, 0, 0}, false},
		{"12ab34", [3]uint8{0x12, 0xab, 0x34}, false},
		{"#12", [3]uint8{}, true},
		{"#zzzzzz", [3]uint8{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			c, err := ParseHexColor(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, [3]uint8{c.R, c.G, c.B})
		})
	}
}
