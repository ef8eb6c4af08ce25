package db

// StateMethods persist the engine state of a document as independent JSON
// blobs, one per state key.
type StateMethods interface {
	GetState(documentId string, key string) ([]byte, error)
	SaveState(documentId string, key string, value []byte) error
	RemoveState(documentId string, key string) error
	RemoveDocumentState(documentId string) error
	GetDocumentIds() ([]string, error)
}

type DataStore interface {
	StateMethods
	Close() error
}
