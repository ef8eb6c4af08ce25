package apply

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ether/lastupdated-go/lib/host"
	"github.com/ether/lastupdated-go/lib/identicon"
	lru "github.com/hashicorp/golang-lru/v2"
)

type RendererOptions struct {
	Size      int
	PixelSize int
	Palette   []string
	CacheSize int
}

// ImageRenderer turns an identicon seed into bitmap bytes. Rendered bitmaps are
// kept in a bounded in-memory cache keyed by seed and never persisted.
type ImageRenderer struct {
	exporter host.BitmapExporter
	options  RendererOptions
	cache    *lru.Cache[string, []byte]
}

func NewImageRenderer(exporter host.BitmapExporter, options RendererOptions) (*ImageRenderer, error) {
	if options.Size <= 0 {
		options.Size = identicon.DefaultSize
	}
	if options.PixelSize <= 0 {
		options.PixelSize = identicon.DefaultPixelSize
	}
	if len(options.Palette) == 0 {
		options.Palette = identicon.DefaultPalette
	}
	if options.CacheSize <= 0 {
		options.CacheSize = 64
	}
	if exporter == nil {
		exporter = identicon.NewPNGExporter(options.Size, options.PixelSize)
	}
	cache, err := lru.New[string, []byte](options.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}
	return &ImageRenderer{exporter: exporter, options: options, cache: cache}, nil
}

func (r *ImageRenderer) Render(ctx context.Context, seed string) ([]byte, error) {
	if cached, ok := r.cache.Get(seed); ok {
		return cached, nil
	}

	icon := identicon.RenderIcon(identicon.Options{Seed: seed, Size: r.options.Size})
	encoded, err := r.exporter.ExportBase64(ctx, icon.Shapes(r.options.PixelSize, r.options.Palette))
	if err != nil {
		return nil, fmt.Errorf("export identicon: %w", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode exported bitmap: %w", err)
	}
	r.cache.Add(seed, raw)
	return raw, nil
}

func (r *ImageRenderer) Cached() int {
	return r.cache.Len()
}
