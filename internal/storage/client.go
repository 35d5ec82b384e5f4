package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
)

// TokenSource provides the bearer token for each remote call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AppDocument is the raw content of the app-private state document and the
// remote id needed to replace it.
type AppDocument struct {
	ID      string
	Content []byte
}

// RemoteStore is the remote document store as seen by the sync engine.
//
// Implementations classify failures with the failure package: transport
// errors as NetworkFailure, rejected credentials as AuthRejected and any
// other unsuccessful response as RemoteStoreError.
type RemoteStore interface {
	// ListBooks returns the EPUB files visible to the account, optionally
	// restricted to one folder.
	ListBooks(ctx context.Context, folderID string) ([]entities.RemoteFile, error)

	// Download streams the content of a file.
	Download(ctx context.Context, fileID string) (io.ReadCloser, error)

	// ReadAppDocument returns nil, nil when the document does not exist yet.
	ReadAppDocument(ctx context.Context) (*AppDocument, error)

	// WriteAppDocument replaces the document identified by documentID, or
	// creates it when documentID is empty. It returns the document id.
	WriteAppDocument(ctx context.Context, content []byte, documentID string) (string, error)
}

// ReadAllLimited downloads fileID fully into memory. Payloads larger than
// maxBytes are rejected; maxBytes <= 0 disables the limit.
func ReadAllLimited(ctx context.Context, store RemoteStore, fileID string, maxBytes int64) ([]byte, error) {
	body, err := store.Download(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	reader := io.Reader(body)
	if maxBytes > 0 {
		reader = io.LimitReader(body, maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, failure.New(failure.KindNetwork, "storage.download", fmt.Errorf("failed to read file %s: %w", fileID, err))
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, failure.Newf(failure.KindRemoteStore, "storage.download", "file %s exceeds %d bytes", fileID, maxBytes)
	}
	return data, nil
}

// FilterFiles filters file list by a predicate function
func FilterFiles(files []entities.RemoteFile, predicate func(entities.RemoteFile) bool) []entities.RemoteFile {
	var filtered []entities.RemoteFile
	for _, f := range files {
		if predicate(f) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
