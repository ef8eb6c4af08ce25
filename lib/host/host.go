// Package host describes the narrow capability surface the placeholder engine
// needs from the design tool. The document graph itself lives in the host; the
// engine only walks and mutates it through these interfaces.
package host

import (
	"context"
	"time"
)

// Kind tags a layer once, when the host hands it to the engine.
type Kind int

const (
	KindUnknown Kind = iota
	KindPage
	KindArtboard
	KindGroup
	KindText
	KindShape
	KindSymbolInstance
	// KindOverrideValue is an override value record. It has no parent link and its
	// Name is the name of the override point it belongs to.
	KindOverrideValue
	// KindImmutableLeaf covers style and image records without a parent link.
	KindImmutableLeaf
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindArtboard:
		return "artboard"
	case KindGroup:
		return "group"
	case KindText:
		return "text"
	case KindShape:
		return "shape"
	case KindSymbolInstance:
		return "symbolInstance"
	case KindOverrideValue:
		return "overrideValue"
	case KindImmutableLeaf:
		return "immutableLeaf"
	default:
		return "unknown"
	}
}

// HasParentLink reports whether layers of this kind can be walked upwards.
func (k Kind) HasParentLink() bool {
	return k != KindOverrideValue && k != KindImmutableLeaf && k != KindUnknown
}

type OverrideKind int

const (
	OverrideText OverrideKind = iota
	OverrideImage
)

// OverridePoint is an addressable slot on a symbol instance.
type OverridePoint struct {
	// Name is the stable identifier of the point, e.g. "7A1C_stringValue".
	Name string
	// LayerName is the display name of the layer the point overrides.
	LayerName string
	Kind      OverrideKind
	Value     string
}

type Layer interface {
	ID() string
	Kind() Kind
	Name() string
	// Parent returns nil for pages and for kinds without a parent link.
	Parent() Layer
	Children() []Layer
	StringValue() string
	// FillCount is the number of fill slots in the layer style.
	FillCount() int
	OverridePoints() []OverridePoint
}

// PathSegment is one `field[index]` component of a structural path.
type PathSegment struct {
	Field string
	Index int
}

// Tree resolves reconstructed structural paths against the live document.
type Tree interface {
	Resolve(segments []PathSegment) (Layer, bool)
}

type Mutator interface {
	SetStringValue(ctx context.Context, layerID, value string) error
	SetOverrideValue(ctx context.Context, instanceID, pointName, value string) error
	SetFillImage(ctx context.Context, layerID string, image []byte) error
	SetOverrideImage(ctx context.Context, instanceID, pointName string, image []byte) error
}

type Document interface {
	Tree
	Mutator
	ID() string
	CurrentPage() Layer
	// Artboards returns the artboards of page in document order.
	Artboards(page Layer) []Layer
	LayerByID(id string) (Layer, bool)
}

type ChangeType int

const (
	ChangeModified ChangeType = iota
	ChangeRemoved
	ChangeAdded
)

func (c ChangeType) String() string {
	switch c {
	case ChangeRemoved:
		return "removed"
	case ChangeAdded:
		return "added"
	default:
		return "modified"
	}
}

// Change is one raw mutation record delivered by the host.
type Change struct {
	Object   Layer
	FullPath string
	Type     ChangeType
	// IsMove is set on additions that are the second half of a move.
	IsMove bool
}

type SaveEvent struct {
	SizeBytes int64
	Autosaved bool
}

type Timer interface {
	Stop() bool
}

// Scheduler runs a callback after a delay. Callbacks must be delivered on the
// same logical thread as the event handlers.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Shape is one filled rectangle of a vector group handed to the exporter.
type Shape struct {
	Name   string
	X, Y   int
	Width  int
	Height int
	Color  string
}

// BitmapExporter renders a group of shapes and returns the bitmap base64 encoded.
type BitmapExporter interface {
	ExportBase64(ctx context.Context, shapes []Shape) (string, error)
}

// ArtboardOf walks parent links until it finds an artboard.
func ArtboardOf(layer Layer) Layer {
	for layer != nil {
		if layer.Kind() == KindArtboard {
			return layer
		}
		layer = layer.Parent()
	}
	return nil
}
