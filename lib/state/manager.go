package state

import (
	"encoding/json"
	"fmt"

	"github.com/ether/lastupdated-go/lib/db"
	"github.com/ether/lastupdated-go/lib/exception"
	"go.uber.org/zap"
)

const (
	KeyPending        = "pending"
	KeyImageSeeds     = "imageSeeds"
	KeyIncrementGuard = "incrementGuard"
	KeySaveDeferred   = "saveDeferred"
	KeyPagination     = "pagination"
	KeyMeta           = "meta"
)

// Manager loads document states lazily and writes them through on Flush. A
// loaded state stays the single in-process copy until Reset or Evict.
type Manager struct {
	store  db.DataStore
	logger *zap.SugaredLogger
	loaded map[string]*DocumentEngineState
}

func NewManager(store db.DataStore, logger *zap.SugaredLogger) *Manager {
	return &Manager{store: store, logger: logger, loaded: map[string]*DocumentEngineState{}}
}

func (m *Manager) fields(s *DocumentEngineState) map[string]any {
	return map[string]any{
		KeyPending:        &s.Pending,
		KeyImageSeeds:     &s.ImageSeeds,
		KeyIncrementGuard: &s.IncrementGuard,
		KeySaveDeferred:   &s.SaveDeferred,
		KeyPagination:     &s.Pagination,
		KeyMeta:           &s.Meta,
	}
}

// Load returns the state of documentID, reading it from the store on first
// access. Missing keys start empty.
func (m *Manager) Load(documentID string) (*DocumentEngineState, error) {
	if s, ok := m.loaded[documentID]; ok {
		return s, nil
	}
	s := NewDocumentEngineState(documentID)
	for key, target := range m.fields(s) {
		raw, err := m.store.GetState(documentID, key)
		if err != nil {
			if err.Error() == db.StateNotFoundError {
				continue
			}
			return nil, exception.NewDatabaseError(fmt.Sprintf("loading %s of %s", key, documentID), err)
		}
		if err := json.Unmarshal(raw, target); err != nil {
			m.logger.Warnw("discarding unreadable engine state", "document", documentID, "key", key, "error", err)
			continue
		}
	}
	s.normalize()
	m.loaded[documentID] = s
	return s, nil
}

// Flush writes every key of s to the store. An unbuilt pagination index is
// removed rather than written.
func (m *Manager) Flush(s *DocumentEngineState) error {
	for key, value := range m.fields(s) {
		if key == KeyPagination && !s.Pagination.IsIndexed {
			if err := m.store.RemoveState(s.DocumentID, key); err != nil {
				return exception.NewDatabaseError(fmt.Sprintf("removing %s of %s", key, s.DocumentID), err)
			}
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if err := m.store.SaveState(s.DocumentID, key, raw); err != nil {
			return exception.NewDatabaseError(fmt.Sprintf("saving %s of %s", key, s.DocumentID), err)
		}
	}
	return nil
}

// Evict forgets the in-process copy so the next Load re-reads the store.
func (m *Manager) Evict(documentID string) {
	delete(m.loaded, documentID)
}

// Reset drops the state of documentID in memory and in the store.
func (m *Manager) Reset(documentID string) error {
	delete(m.loaded, documentID)
	err := m.store.RemoveDocumentState(documentID)
	if err != nil && err.Error() != db.DocumentNotFoundError {
		return exception.NewDatabaseError("resetting "+documentID, err)
	}
	return nil
}

func (m *Manager) DocumentIds() ([]string, error) {
	ids, err := m.store.GetDocumentIds()
	if err != nil {
		return nil, exception.NewDatabaseError("listing documents", err)
	}
	return ids, nil
}
