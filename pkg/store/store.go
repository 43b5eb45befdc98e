// Package store persists rendered fragments under content-addressed paths.
//
// Every fragment is hashed with SHA-256; the hash is both the dedup key and
// (by default) the path segment the artifact is served under. Two requests
// producing byte-identical output land on the same path, which is safe:
// identical digest means identical bytes, so last-writer-wins cannot
// corrupt anything, and a failed generation can be retried without cleanup.
package store

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/gunho/artifact/pkg/cache"
	"github.com/gunho/artifact/pkg/errors"
)

// Fragment is one rendered output unit handed over by a renderer.
// Immutable after creation.
type Fragment struct {
	FileName    string
	ContentType string
	Bytes       []byte
}

// Artifact is the persisted-fragment metadata returned to callers. The URL
// is derived deterministically from the address segment and file name.
type Artifact struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Digest      string `json:"digest"`
	URL         string `json:"url"`
}

// Store is the persistence interface the pipeline depends on.
type Store interface {
	// Persist writes a fragment and returns its metadata. A returned
	// Artifact always points at fully written bytes; persistence failures
	// surface as STORAGE_ERROR without a partial file left at the address.
	Persist(ctx context.Context, prefix string, frag Fragment) (Artifact, error)
}

// addressSegmentLen is how much of the hex digest names the directory.
// 64 bits of the digest is plenty for path uniqueness; the full digest is
// still returned in the metadata.
const addressSegmentLen = 16

// FileStore persists fragments on the local filesystem and serves them
// through a stable URL prefix.
type FileStore struct {
	root    string
	baseURL string

	// randomSegments switches the address segment from the content digest
	// to a fresh UUID per fragment. Digest addressing is the default; UUID
	// mode exists for callers that need unique directories per request.
	randomSegments bool
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithRandomSegments makes the store address fragments by UUID instead of
// content digest.
func WithRandomSegments() Option {
	return func(s *FileStore) { s.randomSegments = true }
}

// NewFileStore creates a file store rooted at dir. Served URLs are
// baseURL + "/<prefix>/<segment>/<fileName>"; baseURL may be a path prefix
// or an absolute URL. The directory is created if missing.
func NewFileStore(dir, baseURL string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "create store root %s", dir)
	}
	s := &FileStore{
		root:    dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Persist hashes, writes, and atomically publishes one fragment. The bytes
// are written to a temporary file in the destination directory and renamed
// into place, so a crash mid-write can never leave a truncated file at the
// published address.
func (s *FileStore) Persist(ctx context.Context, prefix string, frag Fragment) (Artifact, error) {
	if err := validateName(prefix); err != nil {
		return Artifact{}, err
	}
	if err := validateName(frag.FileName); err != nil {
		return Artifact{}, err
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeStorage, err, "persist %s", frag.FileName)
	}

	digest := cache.Hash(frag.Bytes)
	segment := digest[:addressSegmentLen]
	if s.randomSegments {
		segment = uuid.NewString()
	}

	dir := filepath.Join(s.root, prefix, segment)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, errors.Wrap(errors.ErrCodeStorage, err, "create %s", dir)
	}

	if err := writeAtomic(dir, frag.FileName, frag.Bytes); err != nil {
		return Artifact{}, err
	}

	return Artifact{
		FileName:    frag.FileName,
		ContentType: frag.ContentType,
		Size:        int64(len(frag.Bytes)),
		Digest:      digest,
		URL:         s.baseURL + "/" + path.Join(prefix, segment, frag.FileName),
	}, nil
}

// writeAtomic writes data next to its destination and renames it into
// place. The temp file lives in the same directory so the rename never
// crosses filesystems.
func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create temp file for %s", name)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeStorage, err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeStorage, err, "close %s", name)
	}
	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeStorage, err, "publish %s", name)
	}
	return nil
}

// validateName keeps prefixes and file names to simple path components.
func validateName(name string) error {
	if name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "empty path component")
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return errors.New(errors.ErrCodeInvalidInput, "invalid path component %q", name)
	}
	return nil
}

// PersistAll persists fragments in order and returns one artifact per
// fragment. The first failure aborts; earlier writes remain in place, which
// is harmless because they are content-addressed and a retry republishes
// identical bytes.
func PersistAll(ctx context.Context, s Store, prefix string, frags []Fragment) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(frags))
	for _, frag := range frags {
		a, err := s.Persist(ctx, prefix, frag)
		if err != nil {
			return nil, fmt.Errorf("persist %s: %w", frag.FileName, err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}
