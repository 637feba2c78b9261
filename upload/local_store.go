package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects on disk under Dir/<bucket>/<name> and serves them
// from BaseURL/uploads/<bucket>/<name>.
type LocalStore struct {
	Dir     string
	BaseURL string
}

func NewLocalStore(dir, baseURL string) *LocalStore {
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStore) Put(ctx context.Context, bucket, name, _ string, r io.Reader) error {
	if strings.ContainsAny(bucket, `/\`) || bucket == "" || bucket == "." || bucket == ".." {
		return fmt.Errorf("invalid bucket %q", bucket)
	}
	dir := filepath.Join(s.Dir, bucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	path := filepath.Join(dir, filepath.Base(name))
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *LocalStore) PublicURL(bucket, name string) string {
	return fmt.Sprintf("%s/uploads/%s/%s", s.BaseURL, bucket, name)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
