// Package archive stores raw page HTML in blob storage so the original
// capture survives later re-normalization.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
)

// BlobStore writes one object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, objectPath string, contentType string, r io.Reader) (string, error)
}

// Store archives page HTML under a stable per-URL object name.
type Store struct {
	blobs  BlobStore
	prefix string
}

// New builds a Store writing under the given object name prefix.
func New(blobs BlobStore, prefix string) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Store{blobs: blobs, prefix: strings.Trim(prefix, "/")}, nil
}

// SavePage writes the page HTML and returns the object URI. The object name
// is derived from the page URL so re-crawls overwrite the prior capture.
func (s *Store) SavePage(ctx context.Context, siteID, pageURL string, html []byte) (string, error) {
	if siteID == "" {
		return "", fmt.Errorf("site id is required")
	}
	if pageURL == "" {
		return "", fmt.Errorf("page url is required")
	}
	sum := sha256.Sum256([]byte(pageURL))
	name := path.Join(s.prefix, siteID, hex.EncodeToString(sum[:])+".html")
	uri, err := s.blobs.PutObject(ctx, name, "text/html", bytes.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("archive page %s: %w", pageURL, err)
	}
	return uri, nil
}
