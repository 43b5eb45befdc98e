package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gunho/artifact/pkg/errors"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

func TestPersistWritesContent(t *testing.T) {
	s := newTestStore(t)
	data := []byte("<html>doc</html>")

	art, err := s.Persist(context.Background(), "docs", Fragment{
		FileName:    "index.html",
		ContentType: "text/html",
		Bytes:       data,
	})
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	sum := sha256.Sum256(data)
	wantDigest := hex.EncodeToString(sum[:])
	if art.Digest != wantDigest {
		t.Errorf("Digest = %s, want %s", art.Digest, wantDigest)
	}
	if art.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", art.Size, len(data))
	}

	wantURL := "/files/docs/" + wantDigest[:addressSegmentLen] + "/index.html"
	if art.URL != wantURL {
		t.Errorf("URL = %s, want %s", art.URL, wantURL)
	}

	onDisk, err := os.ReadFile(filepath.Join(s.root, "docs", wantDigest[:addressSegmentLen], "index.html"))
	if err != nil {
		t.Fatalf("reading persisted file: %v", err)
	}
	if string(onDisk) != string(data) {
		t.Error("persisted bytes differ from input")
	}
}

func TestPersistIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	frag := Fragment{FileName: "chart.mmd", ContentType: "text/plain", Bytes: []byte("flowchart TB")}

	first, err := s.Persist(context.Background(), "flow", frag)
	if err != nil {
		t.Fatalf("first Persist() error = %v", err)
	}
	second, err := s.Persist(context.Background(), "flow", frag)
	if err != nil {
		t.Fatalf("second Persist() error = %v", err)
	}
	if first.URL != second.URL {
		t.Errorf("same bytes produced different URLs: %s vs %s", first.URL, second.URL)
	}
	if first.Digest != second.Digest {
		t.Errorf("same bytes produced different digests")
	}
}

func TestPersistRandomSegments(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "/files", WithRandomSegments())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	frag := Fragment{FileName: "a.txt", ContentType: "text/plain", Bytes: []byte("x")}

	first, err := s.Persist(context.Background(), "misc", frag)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	second, err := s.Persist(context.Background(), "misc", frag)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if first.URL == second.URL {
		t.Error("random segments should give distinct URLs for repeated persists")
	}
	if !strings.HasPrefix(first.URL, "/files/misc/") {
		t.Errorf("URL = %s, want /files/misc/ prefix", first.URL)
	}
}

func TestPersistAbsoluteBaseURL(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), "http://assets.example.com/files/")
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	data := []byte("flowchart LR")

	art, err := s.Persist(context.Background(), "flow", Fragment{
		FileName:    "chart.mmd",
		ContentType: "text/plain",
		Bytes:       data,
	})
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	sum := sha256.Sum256(data)
	segment := hex.EncodeToString(sum[:])[:addressSegmentLen]
	want := "http://assets.example.com/files/flow/" + segment + "/chart.mmd"
	if art.URL != want {
		t.Errorf("URL = %s, want %s", art.URL, want)
	}
}

func TestPersistRejectsBadNames(t *testing.T) {
	s := newTestStore(t)
	cases := []struct {
		name     string
		prefix   string
		fileName string
	}{
		{"empty file name", "docs", ""},
		{"path separator", "docs", "a/b.html"},
		{"parent traversal", "docs", "..html.."},
		{"empty prefix", "", "a.html"},
		{"traversal prefix", "../etc", "a.html"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Persist(context.Background(), tc.prefix, Fragment{FileName: tc.fileName, Bytes: []byte("x")})
			if errors.GetCode(err) != errors.ErrCodeInvalidInput {
				t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestPersistCanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Persist(ctx, "docs", Fragment{FileName: "a.html", Bytes: []byte("x")})
	if errors.GetCode(err) != errors.ErrCodeStorage {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeStorage)
	}
}

func TestPersistAllStopsOnError(t *testing.T) {
	s := newTestStore(t)
	frags := []Fragment{
		{FileName: "ok.txt", Bytes: []byte("one")},
		{FileName: "bad/name", Bytes: []byte("two")},
		{FileName: "never.txt", Bytes: []byte("three")},
	}

	arts, err := PersistAll(context.Background(), s, "batch", frags)
	if err == nil {
		t.Fatal("PersistAll() expected error")
	}
	if arts != nil {
		t.Errorf("artifacts = %v, want nil on failure", arts)
	}
}

func TestPersistAllOrder(t *testing.T) {
	s := newTestStore(t)
	frags := []Fragment{
		{FileName: "first.txt", Bytes: []byte("one")},
		{FileName: "second.txt", Bytes: []byte("two")},
	}

	arts, err := PersistAll(context.Background(), s, "batch", frags)
	if err != nil {
		t.Fatalf("PersistAll() error = %v", err)
	}
	if len(arts) != 2 || arts[0].FileName != "first.txt" || arts[1].FileName != "second.txt" {
		t.Errorf("artifact order not preserved: %+v", arts)
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Persist(context.Background(), "docs", Fragment{FileName: "a.html", Bytes: []byte("x")}); err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	err := filepath.WalkDir(s.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.Contains(d.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walking store root: %v", err)
	}
}
