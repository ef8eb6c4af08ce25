package db

import (
	"errors"
	"sort"
	"sync"
)

type MemoryDataStore struct {
	mu    sync.RWMutex
	state map[string]map[string][]byte
}

func NewMemoryDataStore() *MemoryDataStore {
	return &MemoryDataStore{
		state: make(map[string]map[string][]byte),
	}
}

func (m *MemoryDataStore) GetState(documentId string, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values, ok := m.state[documentId]
	if !ok {
		return nil, errors.New(StateNotFoundError)
	}
	value, ok := values[key]
	if !ok {
		return nil, errors.New(StateNotFoundError)
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryDataStore) SaveState(documentId string, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, ok := m.state[documentId]
	if !ok {
		values = make(map[string][]byte)
		m.state[documentId] = values
	}
	values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryDataStore) RemoveState(documentId string, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	values, ok := m.state[documentId]
	if !ok {
		return nil
	}
	delete(values, key)
	if len(values) == 0 {
		delete(m.state, documentId)
	}
	return nil
}

func (m *MemoryDataStore) RemoveDocumentState(documentId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state[documentId]; !ok {
		return errors.New(DocumentNotFoundError)
	}
	delete(m.state, documentId)
	return nil
}

func (m *MemoryDataStore) GetDocumentIds() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.state))
	for id := range m.state {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryDataStore) Close() error {
	return nil
}

var _ DataStore = (*MemoryDataStore)(nil)
