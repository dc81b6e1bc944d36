package filestoresvc

import (
	"context"
	"io"
	"io/ioutil"
	"sync"

	"github.com/trezcool/darasa/core"
)

// DummyStore keeps uploads in memory for tests.
type DummyStore struct {
	mu    sync.Mutex
	Files map[string][]byte
}

var _ core.FileStore = (*DummyStore)(nil)

func NewDummyStore() *DummyStore {
	return &DummyStore{Files: make(map[string][]byte)}
}

func (s *DummyStore) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	data, err := ioutil.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.Files[path] = data
	s.mu.Unlock()
	return "https://files.local/" + path, nil
}
