// Package filestoresvc stores uploaded files on Supabase Storage.
package filestoresvc

import (
	"context"
	"fmt"
	"io"
	"strings"

	storage "github.com/supabase-community/storage-go"

	"github.com/trezcool/darasa/core"
)

type supabaseStore struct {
	client  *storage.Client
	baseURL string
	bucket  string
}

var _ core.FileStore = (*supabaseStore)(nil)

func NewSupabaseStore() core.FileStore {
	baseURL := strings.TrimRight(core.Conf.Storage.SupabaseURL, "/")
	return &supabaseStore{
		client:  storage.NewClient(baseURL+"/storage/v1", core.Conf.Storage.SupabaseKey, nil),
		baseURL: baseURL,
		bucket:  core.Conf.Storage.Bucket,
	}
}

func (s *supabaseStore) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	opts := storage.FileOptions{ContentType: &contentType}
	if _, err := s.client.UploadFile(s.bucket, path, r, opts); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path), nil
}
