// Package state holds the per-document engine state and persists it through a
// db.DataStore, one JSON blob per state key.
package state

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// PendingUpdate is one artboard waiting for its debounced resolution pass.
type PendingUpdate struct {
	ArtboardID    string    `json:"artboardId"`
	LastModified  time.Time `json:"lastModified"`
	WillBeUpdated bool      `json:"willBeUpdated"`
}

// PaginationEntry locates one pagination placeholder. Point is empty for a
// layer and holds the override point name for an override.
type PaginationEntry struct {
	Token      string `json:"token"`
	ObjectID   string `json:"objectId"`
	Point      string `json:"point,omitempty"`
	ArtboardID string `json:"artboardId"`
}

type PaginationIndex struct {
	IsIndexed    bool              `json:"isIndexed"`
	Placeholders []PaginationEntry `json:"placeholders"`
}

// IDSet is a set of object ids, serialized as a sorted array.
type IDSet map[string]struct{}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id string) {
	s[id] = struct{}{}
}

func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = make(IDSet, len(ids))
	for _, id := range ids {
		(*s)[id] = struct{}{}
	}
	return nil
}

type Meta struct {
	// SaveDiscovered is set once SaveDeferred has been populated by a change
	// pass or by a page scan on save.
	SaveDiscovered bool `json:"saveDiscovered"`
}

// DocumentEngineState is everything the engine remembers about one document.
type DocumentEngineState struct {
	DocumentID string                    `json:"documentId"`
	Pending    map[string]*PendingUpdate `json:"pending"`
	// ImageSeeds maps a layer id (or instance/point) to the seed of its image.
	ImageSeeds     map[string]string `json:"imageSeeds"`
	IncrementGuard IDSet             `json:"incrementGuard"`
	SaveDeferred   IDSet             `json:"saveDeferred"`
	Pagination     PaginationIndex   `json:"pagination"`
	Meta           Meta              `json:"meta"`
}

func NewDocumentEngineState(documentID string) *DocumentEngineState {
	return &DocumentEngineState{
		DocumentID:     documentID,
		Pending:        map[string]*PendingUpdate{},
		ImageSeeds:     map[string]string{},
		IncrementGuard: IDSet{},
		SaveDeferred:   IDSet{},
	}
}

func (s *DocumentEngineState) normalize() {
	if s.Pending == nil {
		s.Pending = map[string]*PendingUpdate{}
	}
	if s.ImageSeeds == nil {
		s.ImageSeeds = map[string]string{}
	}
	if s.IncrementGuard == nil {
		s.IncrementGuard = IDSet{}
	}
	if s.SaveDeferred == nil {
		s.SaveDeferred = IDSet{}
	}
}

// PruneImageSeeds drops the seeds of layers exists no longer finds and returns
// how many were dropped.
func (s *DocumentEngineState) PruneImageSeeds(exists func(layerID string) bool) int {
	pruned := 0
	for key := range s.ImageSeeds {
		layerID, _, _ := strings.Cut(key, "/")
		if !exists(layerID) {
			delete(s.ImageSeeds, key)
			pruned++
		}
	}
	return pruned
}

// InvalidatePagination drops the index so the next update rebuilds it.
func (s *DocumentEngineState) InvalidatePagination() {
	s.Pagination = PaginationIndex{}
}
