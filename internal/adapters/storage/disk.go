// Package storage publishes uploaded images from a local directory that the
// API serves as static files.
package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

type DiskUploader struct {
	root    string
	baseURL string
}

func NewDiskUploader(root, baseURL string) *DiskUploader {
	return &DiskUploader{root: root, baseURL: strings.TrimRight(baseURL, "/")}
}

func (u *DiskUploader) Root() string {
	return u.root
}

// Upload copies localPath under folder with a fresh name and returns its public URL.
func (u *DiskUploader) Upload(ctx context.Context, localPath, folder string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(localPath))
	if !allowedExt[ext] {
		return "", errors.Newf("unsupported image type %q", ext)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", errors.Wrap(err, "open upload")
	}
	defer src.Close()

	dir := filepath.Join(u.root, filepath.FromSlash(folder))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create upload dir")
	}
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", errors.Wrap(err, "create upload")
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", errors.Wrap(err, "copy upload")
	}
	if err := dst.Close(); err != nil {
		return "", errors.Wrap(err, "close upload")
	}

	return u.baseURL + "/" + path.Join(folder, name), nil
}
