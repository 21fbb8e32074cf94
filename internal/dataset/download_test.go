package dataset

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func digest(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func newArchiveServer(t *testing.T, files map[string][]byte, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		data, ok := files[filepath.Base(r.URL.Path)]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloaderFetchesAndCaches(t *testing.T) {
	files := map[string][]byte{}
	sums := map[string]string{}
	for _, name := range Files {
		files[name] = []byte("payload-" + name)
		sums[name] = digest(files[name])
	}
	var hits int32
	srv := newArchiveServer(t, files, &hits)
	dir := filepath.Join(t.TempDir(), "data")

	d := Downloader{BaseURL: srv.URL + "/", Client: srv.Client(), Checksums: sums}
	if err := d.Fetch(context.Background(), dir); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if atomic.LoadInt32(&hits) != int32(len(Files)) {
		t.Fatalf("expected %d requests, got %d", len(Files), hits)
	}
	for _, name := range Files {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != string(files[name]) {
			t.Fatalf("unexpected content for %s", name)
		}
	}

	if err := d.Fetch(context.Background(), dir); err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if atomic.LoadInt32(&hits) != int32(len(Files)) {
		t.Fatalf("cached files fetched again: %d requests", hits)
	}
}

func TestDownloaderRefetchesCorruptCache(t *testing.T) {
	files := map[string][]byte{}
	sums := map[string]string{}
	for _, name := range Files {
		files[name] = []byte(name)
		sums[name] = digest(files[name])
	}
	var hits int32
	srv := newArchiveServer(t, files, &hits)
	dir := t.TempDir()
	for _, name := range Files {
		mustWrite(t, filepath.Join(dir, name), files[name])
	}
	mustWrite(t, filepath.Join(dir, TestLabelsFile), []byte("corrupt"))

	d := Downloader{BaseURL: srv.URL, Client: srv.Client(), Checksums: sums}
	if err := d.Fetch(context.Background(), dir); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected a single refetch, got %d", hits)
	}
}

func TestDownloaderChecksumMismatch(t *testing.T) {
	files := map[string][]byte{}
	sums := map[string]string{}
	for _, name := range Files {
		files[name] = []byte(name)
		sums[name] = digest([]byte("something else"))
	}
	var hits int32
	srv := newArchiveServer(t, files, &hits)
	dir := t.TempDir()

	d := Downloader{BaseURL: srv.URL, Client: srv.Client(), Checksums: sums}
	err := d.Fetch(context.Background(), dir)
	if !errors.Is(err, ErrChecksum) {
		t.Fatalf("expected ErrChecksum, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("partial files left behind: %v", entries)
	}
}

func TestDownloaderHTTPError(t *testing.T) {
	var hits int32
	srv := newArchiveServer(t, map[string][]byte{}, &hits)
	d := Downloader{BaseURL: srv.URL, Client: srv.Client()}
	if err := d.Fetch(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error for 404")
	}
}
