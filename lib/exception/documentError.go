package exception

import "fmt"

type DocumentNotFoundError struct {
	*AppError
	DocumentId string
}

func NewDocumentNotFoundError(documentId string) *DocumentNotFoundError {
	return &DocumentNotFoundError{
		AppError: &AppError{
			Code:    "DOCUMENT_NOT_FOUND",
			Message: fmt.Sprintf("document with id '%s' not found", documentId),
		},
		DocumentId: documentId,
	}
}

// InvalidPathError is returned when a structural path cannot be mapped onto
// the live document tree.
type InvalidPathError struct {
	*AppError
	Path string
}

func NewInvalidPathError(path string, cause error) *InvalidPathError {
	return &InvalidPathError{
		AppError: &AppError{
			Code:    "INVALID_PATH",
			Message: fmt.Sprintf("cannot resolve path '%s'", path),
			Cause:   cause,
		},
		Path: path,
	}
}
