package memdoc

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ether/lastupdated-go/lib/host"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a document fixture.
type File struct {
	ID    string      `yaml:"id"`
	Pages []LayerFile `yaml:"pages"`
}

type LayerFile struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind,omitempty"`
	Value     string         `yaml:"value,omitempty"`
	Fills     int            `yaml:"fills,omitempty"`
	Overrides []OverrideFile `yaml:"overrides,omitempty"`
	Layers    []LayerFile    `yaml:"layers,omitempty"`
}

type OverrideFile struct {
	Name      string `yaml:"name"`
	LayerName string `yaml:"layerName"`
	Kind      string `yaml:"kind,omitempty"`
	Value     string `yaml:"value,omitempty"`
}

var kindNames = map[string]host.Kind{
	"page":           host.KindPage,
	"artboard":       host.KindArtboard,
	"group":          host.KindGroup,
	"text":           host.KindText,
	"shape":          host.KindShape,
	"symbolinstance": host.KindSymbolInstance,
	"instance":       host.KindSymbolInstance,
}

func ParseKind(s string) (host.Kind, error) {
	if s == "" {
		return host.KindText, nil
	}
	k, ok := kindNames[strings.ToLower(s)]
	if !ok {
		return host.KindUnknown, fmt.Errorf("unknown layer kind %q", s)
	}
	return k, nil
}

func parseOverrideKind(s string) (host.OverrideKind, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return host.OverrideText, nil
	case "image":
		return host.OverrideImage, nil
	default:
		return 0, fmt.Errorf("unknown override kind %q", s)
	}
}

func Load(r io.Reader) (*Document, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return FromFile(f)
}

func LoadFile(path string) (*Document, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Load(fh)
}

func FromFile(f File) (*Document, error) {
	if f.ID == "" {
		f.ID = "document"
	}
	d := New(f.ID)
	for _, p := range f.Pages {
		page := d.AddPage(p.ID, p.Name)
		for _, l := range p.Layers {
			if l.Kind == "" {
				l.Kind = "artboard"
			}
			if err := d.load(page.id, l); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

func (d *Document) load(parentID string, l LayerFile) error {
	_, err := d.InsertFile(parentID, -1, l)
	return err
}

// InsertFile adds l with its subtree under parentID. Only the addition of l
// itself is reported, the way hosts report a pasted group.
func (d *Document) InsertFile(parentID string, index int, l LayerFile) (host.Change, error) {
	kind, err := ParseKind(l.Kind)
	if err != nil {
		return host.Change{}, fmt.Errorf("layer %s: %w", l.ID, err)
	}
	spec := LayerSpec{ID: l.ID, Kind: kind, Name: l.Name, Value: l.Value, Fills: l.Fills}
	for _, o := range l.Overrides {
		ok, err := parseOverrideKind(o.Kind)
		if err != nil {
			return host.Change{}, fmt.Errorf("layer %s: %w", l.ID, err)
		}
		spec.Overrides = append(spec.Overrides, host.OverridePoint{Name: o.Name, LayerName: o.LayerName, Kind: ok, Value: o.Value})
	}
	n, change, err := d.Insert(parentID, index, spec)
	if err != nil {
		return host.Change{}, err
	}
	for _, c := range l.Layers {
		if err := d.load(n.id, c); err != nil {
			return host.Change{}, err
		}
	}
	return change, nil
}

// Snapshot converts the current document back into its YAML layout.
func (d *Document) Snapshot() File {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f := File{ID: d.id}
	for _, p := range d.pages {
		f.Pages = append(f.Pages, snapshot(p))
	}
	return f
}

func snapshot(n *Node) LayerFile {
	l := LayerFile{ID: n.id, Name: n.name, Value: n.value, Fills: n.fills}
	if n.kind != host.KindPage {
		l.Kind = n.kind.String()
	}
	for _, o := range n.overrides {
		kind := "text"
		if o.Kind == host.OverrideImage {
			kind = "image"
		}
		l.Overrides = append(l.Overrides, OverrideFile{Name: o.Name, LayerName: o.LayerName, Kind: kind, Value: o.Value})
	}
	for _, c := range n.children {
		l.Layers = append(l.Layers, snapshot(c))
	}
	return l
}

func (d *Document) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d.Snapshot()); err != nil {
		return err
	}
	return enc.Close()
}
