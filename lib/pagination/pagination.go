// Package pagination keeps the index of pagination placeholders of the current
// page and writes their page numbers.
package pagination

import (
	"context"
	"fmt"

	"github.com/ether/lastupdated-go/lib/host"
	"github.com/ether/lastupdated-go/lib/placeholder"
	"github.com/ether/lastupdated-go/lib/state"
	"go.uber.org/zap"
)

type Indexer struct {
	registry     *placeholder.Registry
	hiddenPrefix string
	logger       *zap.SugaredLogger
}

func NewIndexer(registry *placeholder.Registry, hiddenPrefix string, logger *zap.SugaredLogger) *Indexer {
	if hiddenPrefix == "" {
		hiddenPrefix = placeholder.DefaultHiddenPrefix
	}
	return &Indexer{registry: registry, hiddenPrefix: hiddenPrefix, logger: logger}
}

// Result summarises one UpdatePagination call.
type Result struct {
	Rebuilt bool
	// Stale is set when a refresh hit a missing or renamed object and flagged the index.
	Stale   bool
	Entries int
	Writes  int
	Failed  int
}

// Invalidate drops the index so the next update performs a full rebuild.
func (i *Indexer) Invalidate(st *state.DocumentEngineState) {
	if st.Pagination.IsIndexed {
		i.logger.Debugw("pagination index invalidated", "document", st.DocumentID)
	}
	st.InvalidatePagination()
}

// Register adds entry to an existing index. Entries already present and
// registrations against an unbuilt index are ignored.
func (i *Indexer) Register(st *state.DocumentEngineState, entry state.PaginationEntry) bool {
	if !st.Pagination.IsIndexed {
		return false
	}
	for _, e := range st.Pagination.Placeholders {
		if e.ObjectID == entry.ObjectID && e.Point == entry.Point {
			return false
		}
	}
	st.Pagination.Placeholders = append(st.Pagination.Placeholders, entry)
	return true
}

// UpdatePagination rebuilds the index from the current page when it is not
// indexed, and otherwise refreshes the values of the recorded entries. A
// refresh that cannot find an object or its artboard, or finds it no longer
// named after its token, flags the index stale and stops without writing.
func (i *Indexer) UpdatePagination(ctx context.Context, doc host.Document, st *state.DocumentEngineState) (Result, error) {
	page := doc.CurrentPage()
	if page == nil {
		return Result{}, fmt.Errorf("document %s has no current page", doc.ID())
	}
	artboards := doc.Artboards(page)
	names := make([]string, len(artboards))
	position := make(map[string]int, len(artboards))
	for idx, ab := range artboards {
		names[idx] = ab.Name()
		position[ab.ID()] = idx
	}

	if !st.Pagination.IsIndexed {
		return i.rebuild(ctx, doc, st, artboards, names)
	}
	return i.refresh(ctx, doc, st, names, position)
}

type slot struct {
	entry   state.PaginationEntry
	token   placeholder.Token
	current string
	index   int
}

func (i *Indexer) rebuild(ctx context.Context, doc host.Mutator, st *state.DocumentEngineState, artboards []host.Layer, names []string) (Result, error) {
	var slots []slot
	for idx, ab := range artboards {
		for _, child := range ab.Children() {
			if token, ok := i.registry.Lookup(child.Name(), placeholder.FilterPagination); ok {
				slots = append(slots, slot{
					entry:   state.PaginationEntry{Token: token.Name, ObjectID: child.ID(), ArtboardID: ab.ID()},
					token:   token,
					current: child.StringValue(),
					index:   idx,
				})
			}
			for _, p := range child.OverridePoints() {
				token, ok := i.registry.Lookup(p.LayerName, placeholder.FilterPagination)
				if !ok {
					continue
				}
				slots = append(slots, slot{
					entry:   state.PaginationEntry{Token: token.Name, ObjectID: child.ID(), Point: p.Name, ArtboardID: ab.ID()},
					token:   token,
					current: p.Value,
					index:   idx,
				})
			}
		}
	}

	res := Result{Rebuilt: true}
	entries := make([]state.PaginationEntry, 0, len(slots))
	for _, s := range slots {
		i.write(ctx, doc, s, names, &res)
		entries = append(entries, s.entry)
	}
	st.Pagination = state.PaginationIndex{IsIndexed: true, Placeholders: entries}
	res.Entries = len(entries)
	i.logger.Infow("pagination index rebuilt", "document", st.DocumentID, "artboards", len(artboards), "entries", res.Entries, "writes", res.Writes)
	return res, nil
}

func (i *Indexer) refresh(ctx context.Context, doc host.Document, st *state.DocumentEngineState, names []string, position map[string]int) (Result, error) {
	slots := make([]slot, 0, len(st.Pagination.Placeholders))
	for _, entry := range st.Pagination.Placeholders {
		s, ok := i.locate(doc, entry, position)
		if !ok {
			i.logger.Warnw("stale pagination entry, index flagged for rebuild",
				"document", st.DocumentID, "object", entry.ObjectID, "artboard", entry.ArtboardID)
			st.Pagination.IsIndexed = false
			return Result{Stale: true}, nil
		}
		slots = append(slots, s)
	}

	res := Result{Entries: len(slots)}
	for _, s := range slots {
		i.write(ctx, doc, s, names, &res)
	}
	return res, nil
}

func (i *Indexer) locate(doc host.Document, entry state.PaginationEntry, position map[string]int) (slot, bool) {
	idx, ok := position[entry.ArtboardID]
	if !ok {
		return slot{}, false
	}
	obj, ok := doc.LayerByID(entry.ObjectID)
	if !ok {
		return slot{}, false
	}
	owner := host.ArtboardOf(obj)
	if owner == nil || owner.ID() != entry.ArtboardID {
		return slot{}, false
	}
	token, ok := i.registry.Lookup(entry.Token, placeholder.FilterPagination)
	if !ok {
		return slot{}, false
	}

	s := slot{entry: entry, token: token, index: idx}
	if entry.Point == "" {
		if !i.names(obj.Name(), token) {
			return slot{}, false
		}
		s.current = obj.StringValue()
		return s, true
	}
	for _, p := range obj.OverridePoints() {
		if p.Name == entry.Point {
			if !i.names(p.LayerName, token) {
				return slot{}, false
			}
			s.current = p.Value
			return s, true
		}
	}
	return slot{}, false
}

// names reports whether a layer name still denotes token.
func (i *Indexer) names(name string, token placeholder.Token) bool {
	current, ok := i.registry.Lookup(name, placeholder.FilterPagination)
	return ok && current.Name == token.Name
}

func (i *Indexer) write(ctx context.Context, doc host.Mutator, s slot, names []string, res *Result) {
	value := s.token.Resolve(&placeholder.Context{
		CurrentValue: s.current,
		ArtboardName: names[s.index],
		Pages:        placeholder.PageInfo{Names: names, Index: s.index, HiddenPrefix: i.hiddenPrefix},
	})
	if value == s.current {
		return
	}

	var err error
	if s.entry.Point != "" {
		err = doc.SetOverrideValue(ctx, s.entry.ObjectID, s.entry.Point, value)
	} else {
		err = doc.SetStringValue(ctx, s.entry.ObjectID, value)
	}
	if err != nil {
		res.Failed++
		i.logger.Warnw("pagination write failed", "object", s.entry.ObjectID, "token", s.token.Name, "error", err)
		return
	}
	res.Writes++
}
