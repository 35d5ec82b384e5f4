package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/lumina/internal/entities"
	"github.com/mrlokans/lumina/internal/failure"
)

type bytesStore struct {
	data []byte
	err  error
}

func (s bytesStore) ListBooks(context.Context, string) ([]entities.RemoteFile, error) {
	return nil, nil
}

func (s bytesStore) Download(context.Context, string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s bytesStore) ReadAppDocument(context.Context) (*AppDocument, error) {
	return nil, nil
}

func (s bytesStore) WriteAppDocument(context.Context, []byte, string) (string, error) {
	return "", nil
}

func TestReadAllLimited(t *testing.T) {
	data, err := ReadAllLimited(context.Background(), bytesStore{data: []byte("12345")}, "f", 5)
	require.NoError(t, err)
	assert.Equal(t, "12345", string(data))

	_, err = ReadAllLimited(context.Background(), bytesStore{data: []byte("123456")}, "f", 5)
	assert.Equal(t, failure.KindRemoteStore, failure.KindOf(err))

	data, err = ReadAllLimited(context.Background(), bytesStore{data: []byte("123456")}, "f", 0)
	require.NoError(t, err)
	assert.Len(t, data, 6)

	_, err = ReadAllLimited(context.Background(), bytesStore{err: failure.New(failure.KindNetwork, "x", nil)}, "f", 0)
	assert.Equal(t, failure.KindNetwork, failure.KindOf(err))
}

func TestFilterFiles(t *testing.T) {
	files := []entities.RemoteFile{{ID: "a"}, {ID: ""}, {ID: "b"}}
	got := FilterFiles(files, func(f entities.RemoteFile) bool { return f.ID != "" })
	assert.Len(t, got, 2)
}
