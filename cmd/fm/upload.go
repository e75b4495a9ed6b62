package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	u "github.com/gofrs/uuid/v5"
)

var imageExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// fileUploader stores listing images in a local directory and hands out
// file:// URLs. The remote service has no upload endpoint of its own.
type fileUploader struct {
	dir string
}

func newFileUploader(dir string) *fileUploader { return &fileUploader{dir: dir} }

// Upload copies the image at path under a fresh name.
func (f *fileUploader) Upload(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !imageExt[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return "", err
	}
	id, err := u.NewV4()
	if err != nil {
		return "", err
	}
	dst := filepath.Join(f.dir, id.String()+ext)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, readerCtx{ctx, src}); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}).String(), nil
}

// readerCtx stops a copy once ctx is done.
type readerCtx struct {
	ctx context.Context
	r   io.Reader
}

func (r readerCtx) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
