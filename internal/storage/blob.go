package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// BlobStore is the external storage collaborator. Attachments are
// opaque references; the core never inspects file bytes.
type BlobStore interface {
	// GenerateUploadHandle returns a fresh reference a client can
	// upload against.
	GenerateUploadHandle() (string, error)

	// ResolveURL turns a stored reference into a fetchable URL.
	ResolveURL(ref string) string

	// Delete removes the blob behind a reference.
	Delete(ref string) error
}

// LocalBlobStore resolves references against a static base URL. It
// stands in for the managed storage service in development and tests.
type LocalBlobStore struct {
	baseURL string
}

// NewLocalBlobStore creates a LocalBlobStore.
func NewLocalBlobStore(baseURL string) *LocalBlobStore {
	return &LocalBlobStore{baseURL: strings.TrimRight(baseURL, "/")}
}

// GenerateUploadHandle returns a random blob reference.
func (s *LocalBlobStore) GenerateUploadHandle() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate upload handle: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// ResolveURL turns a reference into a fetchable URL.
func (s *LocalBlobStore) ResolveURL(ref string) string {
	return s.baseURL + "/" + ref
}

// Delete removes the blob behind a reference. The local store keeps no
// bytes, so there is nothing to remove.
func (s *LocalBlobStore) Delete(ref string) error {
	return nil
}
