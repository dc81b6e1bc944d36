package core

import (
	"context"
	"io"
)

// FileStore is any service that can store uploaded files and serve them
// back over a public URL.
type FileStore interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (url string, err error)
}
