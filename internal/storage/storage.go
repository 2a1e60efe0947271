// Package storage keeps proof-of-payment images on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("object not found")
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// MaxProofSize bounds an uploaded proof image.
const MaxProofSize = 5 << 20

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ProofStore stores proof images under generated keys.
type ProofStore interface {
	Put(ctx context.Context, contentType string, body io.Reader) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewKey builds "proofs/YYYY/MM/<uuid><ext>" for contentType.
func NewKey(prefix, contentType string, now time.Time) (string, error) {
	ext, ok := extensions[normalizeContentType(contentType)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}
	if prefix == "" {
		prefix = "proofs"
	}
	return path.Join(prefix, now.UTC().Format("2006/01"), uuid.NewString()+ext), nil
}

// ValidKey rejects keys that could escape the store root.
func ValidKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}

func normalizeContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
