package db

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func exerciseStateStore(t *testing.T, store DataStore) {
	t.Helper()

	if _, err := store.GetState("doc-1", "pending"); err == nil || err.Error() != StateNotFoundError {
		t.Fatalf("GetState on empty store = %v, want %q", err, StateNotFoundError)
	}

	if err := store.SaveState("doc-1", "pending", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if err := store.SaveState("doc-1", "pending", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("SaveState overwrite: %v", err)
	}
	if err := store.SaveState("doc-1", "seeds", []byte(`{}`)); err != nil {
		t.Fatalf("SaveState seeds: %v", err)
	}
	if err := store.SaveState("doc-2", "pending", []byte(`{}`)); err != nil {
		t.Fatalf("SaveState doc-2: %v", err)
	}

	got, err := store.GetState("doc-1", "pending")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if string(got) != `{"a":2}` {
		t.Fatalf("GetState = %s, want overwritten value", got)
	}

	ids, err := store.GetDocumentIds()
	if err != nil {
		t.Fatalf("GetDocumentIds: %v", err)
	}
	if diff := cmp.Diff([]string{"doc-1", "doc-2"}, ids); diff != "" {
		t.Fatalf("document ids mismatch (-want +got):\n%s", diff)
	}

	if err := store.RemoveState("doc-1", "pending"); err != nil {
		t.Fatalf("RemoveState: %v", err)
	}
	if _, err := store.GetState("doc-1", "pending"); err == nil {
		t.Fatalf("state still present after RemoveState")
	}
	if _, err := store.GetState("doc-1", "seeds"); err != nil {
		t.Fatalf("RemoveState removed a sibling key: %v", err)
	}

	if err := store.RemoveDocumentState("doc-1"); err != nil {
		t.Fatalf("RemoveDocumentState: %v", err)
	}
	if err := store.RemoveDocumentState("doc-1"); err == nil || err.Error() != DocumentNotFoundError {
		t.Fatalf("second RemoveDocumentState = %v, want %q", err, DocumentNotFoundError)
	}
	ids, err = store.GetDocumentIds()
	if err != nil {
		t.Fatalf("GetDocumentIds: %v", err)
	}
	if diff := cmp.Diff([]string{"doc-2"}, ids); diff != "" {
		t.Fatalf("document ids after removal mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryDataStore(t *testing.T) {
	store := NewMemoryDataStore()
	defer store.Close()
	exerciseStateStore(t, store)
}

func TestMemoryDataStoreCopiesValues(t *testing.T) {
	store := NewMemoryDataStore()
	value := []byte("abc")
	if err := store.SaveState("doc", "k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'x'
	got, _ := store.GetState("doc", "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %s", got)
	}
}

func TestSQLiteDB(t *testing.T) {
	store, err := NewSQLiteDB(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	defer store.Close()
	exerciseStateStore(t, store)
}

func TestConnectionStrings(t *testing.T) {
	pg := PostgresOptions{Username: "u", Password: "p", Host: "localhost", Port: 5432, Database: "lastupdated"}
	if got := pg.DSN(); got != "postgres://u:p@localhost:5432/lastupdated?sslmode=disable" {
		t.Fatalf("postgres DSN = %s", got)
	}
	my := MySQLOptions{Username: "u", Password: "p", Host: "localhost", Port: 3306, Database: "lastupdated"}
	got := my.DSN()
	if !strings.HasPrefix(got, "u:p@tcp(localhost:3306)/lastupdated?") || !strings.Contains(got, "parseTime=true") {
		t.Fatalf("mysql DSN = %s", got)
	}
}
