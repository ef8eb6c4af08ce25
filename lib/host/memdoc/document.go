// Package memdoc is an in-memory host document. It backs the replay command and
// the tests of every engine package, and reports its own mutations as change
// records the same way a design tool would.
package memdoc

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ether/lastupdated-go/lib/host"
)

type WriteKind int

const (
	WriteString WriteKind = iota
	WriteOverride
	WriteFillImage
	WriteOverrideImage
)

// Write is one mutation performed through the host.Mutator surface.
type Write struct {
	Kind    WriteKind
	LayerID string
	Point   string
	Value   string
}

type Document struct {
	mu      sync.RWMutex
	id      string
	pages   []*Node
	current int
	byID    map[string]*Node
	writes  []Write
	changes []host.Change
	// EmitChanges makes every mutation append a change record, see TakeChanges.
	EmitChanges bool
	seq         int
}

type Node struct {
	doc       *Document
	id        string
	kind      host.Kind
	name      string
	value     string
	fills     int
	image     []byte
	parent    *Node
	children  []*Node
	overrides []host.OverridePoint
	images    map[string][]byte
}

func New(id string) *Document {
	return &Document{id: id, byID: map[string]*Node{}, EmitChanges: true}
}

func (d *Document) ID() string { return d.id }

func (d *Document) nextID(prefix string) string {
	d.seq++
	return prefix + "-" + strconv.Itoa(d.seq)
}

// AddPage appends a page and makes it current when it is the first one.
func (d *Document) AddPage(id, name string) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == "" {
		id = d.nextID("page")
	}
	page := &Node{doc: d, id: id, kind: host.KindPage, name: name}
	d.pages = append(d.pages, page)
	d.byID[id] = page
	return page
}

// LayerSpec describes a layer to insert.
type LayerSpec struct {
	ID        string
	Kind      host.Kind
	Name      string
	Value     string
	Fills     int
	Overrides []host.OverridePoint
}

// Insert adds a layer under parentID at position index (-1 appends) and
// returns the addition record.
func (d *Document) Insert(parentID string, index int, spec LayerSpec) (*Node, host.Change, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	parent, ok := d.byID[parentID]
	if !ok {
		return nil, host.Change{}, fmt.Errorf("parent %s not found", parentID)
	}
	if spec.ID == "" {
		spec.ID = d.nextID("layer")
	}
	if _, exists := d.byID[spec.ID]; exists {
		return nil, host.Change{}, fmt.Errorf("layer %s already exists", spec.ID)
	}
	n := &Node{
		doc:       d,
		id:        spec.ID,
		kind:      spec.Kind,
		name:      spec.Name,
		value:     spec.Value,
		fills:     spec.Fills,
		overrides: append([]host.OverridePoint(nil), spec.Overrides...),
	}
	d.attach(parent, index, n)
	return n, host.Change{Object: n, FullPath: d.pathLocked(n), Type: host.ChangeAdded}, nil
}

func (d *Document) attach(parent *Node, index int, n *Node) {
	n.parent = parent
	if index < 0 || index >= len(parent.children) {
		parent.children = append(parent.children, n)
	} else {
		parent.children = append(parent.children[:index], append([]*Node{n}, parent.children[index:]...)...)
	}
	d.index(n)
}

func (d *Document) index(n *Node) {
	d.byID[n.id] = n
	for _, c := range n.children {
		d.index(c)
	}
}

func (d *Document) unindex(n *Node) {
	delete(d.byID, n.id)
	for _, c := range n.children {
		d.unindex(c)
	}
}

func (d *Document) detach(n *Node) int {
	parent := n.parent
	for i, c := range parent.children {
		if c == n {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			return i
		}
	}
	return -1
}

// Remove deletes a layer and its subtree and returns the removal record.
func (d *Document) Remove(id string) (host.Change, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.byID[id]
	if !ok || n.parent == nil {
		return host.Change{}, fmt.Errorf("layer %s not found", id)
	}
	path := d.pathLocked(n)
	d.detach(n)
	d.unindex(n)
	return host.Change{Object: n, FullPath: path, Type: host.ChangeRemoved}, nil
}

// Move repositions a layer among its siblings. Hosts report a move as a
// removal followed by an addition flagged IsMove.
func (d *Document) Move(id string, index int) ([]host.Change, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.byID[id]
	if !ok || n.parent == nil {
		return nil, fmt.Errorf("layer %s not found", id)
	}
	removed := host.Change{Object: n, FullPath: d.pathLocked(n), Type: host.ChangeRemoved}
	parent := n.parent
	d.detach(n)
	d.attach(parent, index, n)
	added := host.Change{Object: n, FullPath: d.pathLocked(n), Type: host.ChangeAdded, IsMove: true}
	return []host.Change{removed, added}, nil
}

// Rename changes a layer name and returns the modification record.
func (d *Document) Rename(id, name string) (host.Change, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.byID[id]
	if !ok {
		return host.Change{}, fmt.Errorf("layer %s not found", id)
	}
	n.name = name
	return host.Change{Object: n, FullPath: d.pathLocked(n) + ".name", Type: host.ChangeModified}, nil
}

// Touch simulates a user edit of a layer, e.g. moving it on the canvas.
func (d *Document) Touch(id string) (host.Change, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.byID[id]
	if !ok {
		return host.Change{}, fmt.Errorf("layer %s not found", id)
	}
	return host.Change{Object: n, FullPath: d.pathLocked(n) + ".frame", Type: host.ChangeModified}, nil
}

// pathLocked renders the structural path of n, e.g. pages[0].layers[1].layers[3].
func (d *Document) pathLocked(n *Node) string {
	if n.kind == host.KindPage || n.parent == nil {
		for i, p := range d.pages {
			if p == n {
				return "pages[" + strconv.Itoa(i) + "]"
			}
		}
		return ""
	}
	idx := -1
	for i, c := range n.parent.children {
		if c == n {
			idx = i
			break
		}
	}
	return d.pathLocked(n.parent) + ".layers[" + strconv.Itoa(idx) + "]"
}

func (d *Document) Path(id string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.byID[id]
	if !ok {
		return ""
	}
	return d.pathLocked(n)
}

func (d *Document) CurrentPage() host.Layer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current >= len(d.pages) {
		return nil
	}
	return d.pages[d.current]
}

func (d *Document) SetCurrentPage(index int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = index
}

func (d *Document) Artboards(page host.Layer) []host.Layer {
	if page == nil {
		return nil
	}
	var out []host.Layer
	for _, c := range page.Children() {
		if c.Kind() == host.KindArtboard {
			out = append(out, c)
		}
	}
	return out
}

func (d *Document) LayerByID(id string) (host.Layer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.byID[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// Resolve follows pages[i] and then layers[j] segments.
func (d *Document) Resolve(segments []host.PathSegment) (host.Layer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(segments) == 0 || segments[0].Field != "pages" {
		return nil, false
	}
	if segments[0].Index < 0 || segments[0].Index >= len(d.pages) {
		return nil, false
	}
	n := d.pages[segments[0].Index]
	for _, seg := range segments[1:] {
		if seg.Field != "layers" || seg.Index < 0 || seg.Index >= len(n.children) {
			return nil, false
		}
		n = n.children[seg.Index]
	}
	return n, true
}

func (d *Document) record(w Write, change host.Change) {
	d.writes = append(d.writes, w)
	if d.EmitChanges {
		d.changes = append(d.changes, change)
	}
}

func (d *Document) SetStringValue(ctx context.Context, layerID, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.byID[layerID]
	if !ok {
		return fmt.Errorf("layer %s not found", layerID)
	}
	n.value = value
	d.record(Write{Kind: WriteString, LayerID: layerID, Value: value},
		host.Change{Object: n, FullPath: d.pathLocked(n) + ".attributedString", Type: host.ChangeModified})
	return nil
}

func (d *Document) overrideLocked(instanceID, pointName string) (*Node, int, error) {
	n, ok := d.byID[instanceID]
	if !ok {
		return nil, 0, fmt.Errorf("layer %s not found", instanceID)
	}
	for i, p := range n.overrides {
		if p.Name == pointName {
			return n, i, nil
		}
	}
	return nil, 0, fmt.Errorf("override point %s not found on %s", pointName, instanceID)
}

// overrideValueChange builds the record a host emits for an override value:
// the object is a parentless leaf named after the override point.
func (d *Document) overrideValueChange(n *Node, idx int) host.Change {
	leaf := &Node{doc: d, id: n.id + "/" + n.overrides[idx].Name, kind: host.KindOverrideValue, name: n.overrides[idx].Name}
	return host.Change{
		Object:   leaf,
		FullPath: d.pathLocked(n) + ".overrideValues[" + strconv.Itoa(idx) + "].value",
		Type:     host.ChangeModified,
	}
}

func (d *Document) SetOverrideValue(ctx context.Context, instanceID, pointName, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, idx, err := d.overrideLocked(instanceID, pointName)
	if err != nil {
		return err
	}
	n.overrides[idx].Value = value
	d.record(Write{Kind: WriteOverride, LayerID: instanceID, Point: pointName, Value: value}, d.overrideValueChange(n, idx))
	return nil
}

func (d *Document) SetFillImage(ctx context.Context, layerID string, image []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.byID[layerID]
	if !ok {
		return fmt.Errorf("layer %s not found", layerID)
	}
	if n.fills == 0 {
		return fmt.Errorf("layer %s has no fill", layerID)
	}
	n.image = append([]byte(nil), image...)
	leaf := &Node{doc: d, id: layerID + "/image", kind: host.KindImmutableLeaf, name: "image"}
	d.record(Write{Kind: WriteFillImage, LayerID: layerID, Value: strconv.Itoa(len(image))},
		host.Change{Object: leaf, FullPath: d.pathLocked(n) + ".style.fills[0].image", Type: host.ChangeModified})
	return nil
}

func (d *Document) SetOverrideImage(ctx context.Context, instanceID, pointName string, image []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, idx, err := d.overrideLocked(instanceID, pointName)
	if err != nil {
		return err
	}
	if n.images == nil {
		n.images = map[string][]byte{}
	}
	n.images[pointName] = append([]byte(nil), image...)
	d.record(Write{Kind: WriteOverrideImage, LayerID: instanceID, Point: pointName, Value: strconv.Itoa(len(image))},
		d.overrideValueChange(n, idx))
	return nil
}

// Writes returns every mutation performed so far.
func (d *Document) Writes() []Write {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Write(nil), d.writes...)
}

func (d *Document) ResetWrites() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = nil
}

// TakeChanges drains the change records produced by mutations.
func (d *Document) TakeChanges() []host.Change {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.changes
	d.changes = nil
	return out
}

// Image returns the fill image of a layer, or of an override point when point
// is set.
func (d *Document) Image(layerID, point string) []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.byID[layerID]
	if !ok {
		return nil
	}
	if point != "" {
		return n.images[point]
	}
	return n.image
}

func (n *Node) ID() string      { return n.id }
func (n *Node) Kind() host.Kind { return n.kind }

func (n *Node) Name() string {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.name
}

func (n *Node) Parent() host.Layer {
	if !n.kind.HasParentLink() {
		return nil
	}
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *Node) Children() []host.Layer {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	out := make([]host.Layer, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *Node) StringValue() string {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return n.value
}

func (n *Node) FillCount() int {
	return n.fills
}

func (n *Node) OverridePoints() []host.OverridePoint {
	n.doc.mu.RLock()
	defer n.doc.mu.RUnlock()
	return append([]host.OverridePoint(nil), n.overrides...)
}

var (
	_ host.Document = (*Document)(nil)
	_ host.Layer    = (*Node)(nil)
)
