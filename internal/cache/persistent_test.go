package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	scanerr "github.com/scanforge/scanforge/pkg/errors"
)

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fileA := writeTestFile(t, dir, "a.go", "package a\n")
	fileB := writeTestFile(t, dir, "b.go", "package b\n")
	snapPath := filepath.Join(dir, "results.json")

	src := NewResultCache(nil)
	if err := src.Put(fileA, testFindings(2), "cfg", 100); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := src.Put(fileB, testFindings(1), "cfg", 200); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := src.SaveSnapshot(snapPath); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	dst := NewResultCache(nil)
	if err := dst.LoadSnapshot(snapPath); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	if dst.Len() != 2 {
		t.Fatalf("Len() = %d after load, want 2", dst.Len())
	}
	results, ok := dst.Get(fileA, "cfg")
	if !ok {
		t.Fatal("Get() miss after load, want hit")
	}
	if len(results) != 2 {
		t.Errorf("Get() returned %d findings, want 2", len(results))
	}
	if dst.MemoryBytes() == 0 {
		t.Error("MemoryBytes() = 0 after load; size estimates not recomputed")
	}
	// Loaded entries do not count as newly added work.
	if dst.Stats().EntriesAdded != 0 {
		t.Errorf("EntriesAdded = %d after load, want 0", dst.Stats().EntriesAdded)
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	t.Parallel()

	cache := NewResultCache(nil)
	if err := cache.LoadSnapshot(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Errorf("LoadSnapshot() on missing file = %v, want nil", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}

func TestLoadSnapshotCorrupted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeTestFile(t, dir, "a.go", "package a\n")
	snapPath := writeTestFile(t, dir, "results.json", "{not json at all")

	cache := NewResultCache(nil)
	if err := cache.Put(file, testFindings(1), "cfg", 10); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	err := cache.LoadSnapshot(snapPath)
	if err == nil {
		t.Fatal("LoadSnapshot() succeeded on corrupted data")
	}
	if !scanerr.IsParse(err) {
		t.Errorf("LoadSnapshot() error = %v, want parse error", err)
	}

	// The failed load must leave the store untouched.
	if cache.Len() != 1 {
		t.Errorf("Len() = %d after failed load, want 1", cache.Len())
	}
	if _, ok := cache.Get(file, "cfg"); !ok {
		t.Error("existing entry lost after failed load")
	}
}

func TestLoadSnapshotVersionMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	snapPath := writeTestFile(t, dir, "results.json", `{"version":99,"entries":{}}`)

	cache := NewResultCache(nil)
	err := cache.LoadSnapshot(snapPath)
	if err == nil {
		t.Fatal("LoadSnapshot() accepted an incompatible version")
	}
	if !scanerr.IsParse(err) {
		t.Errorf("LoadSnapshot() error = %v, want parse error", err)
	}
}

func TestLoadSnapshotFiltersDeadEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fileKept := writeTestFile(t, dir, "kept.go", "package kept\n")
	fileGone := writeTestFile(t, dir, "gone.go", "package gone\n")
	snapPath := filepath.Join(dir, "results.json")

	src := NewResultCache(nil)
	if err := src.Put(fileKept, testFindings(1), "cfg", 10); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := src.Put(fileGone, testFindings(1), "cfg", 10); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := src.SaveSnapshot(snapPath); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	// The file disappears between save and load.
	if err := os.Remove(fileGone); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}

	dst := NewResultCache(nil)
	if err := dst.LoadSnapshot(snapPath); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	if dst.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (entry for deleted file filtered)", dst.Len())
	}
	if _, ok := dst.Get(fileKept, "cfg"); !ok {
		t.Error("surviving file's entry missing after load")
	}
}

func TestLoadSnapshotFiltersEmptyConfigHash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeTestFile(t, dir, "a.go", "package a\n")
	snapPath := writeTestFile(t, dir, "results.json",
		`{"version":1,"entries":{"`+file+`":{"results":[],"content_hash":"x","config_hash":"","modified_time":1,"file_size_bytes":10,"access_count":1,"last_accessed":1,"analysis_duration_ms":5}}}`)

	cache := NewResultCache(nil)
	if err := cache.LoadSnapshot(snapPath); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0 (empty config hash filtered)", cache.Len())
	}
}

func TestSnapshotCompression(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeTestFile(t, dir, "a.go", "package a\n")
	snapPath := filepath.Join(dir, "results.json")

	src := NewResultCache(&Config{MaxEntries: 100, MaxMemoryMB: 10, Compression: true})
	if err := src.Put(file, testFindings(3), "cfg", 10); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := src.SaveSnapshot(snapPath); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	raw, err := os.ReadFile(snapPath)
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if !bytes.HasPrefix(raw, zstdMagic) {
		t.Fatal("compressed snapshot does not start with the zstd magic")
	}

	// Loading auto-detects compression regardless of the reader's config.
	dst := NewResultCache(nil)
	if err := dst.LoadSnapshot(snapPath); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if dst.Len() != 1 {
		t.Errorf("Len() = %d after compressed load, want 1", dst.Len())
	}
	if _, ok := dst.Get(file, "cfg"); !ok {
		t.Error("Get() miss after compressed round trip")
	}
}

func TestLoadSnapshotEnforcesCeilings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	snapPath := filepath.Join(dir, "results.json")

	src := NewResultCache(nil)
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		file := writeTestFile(t, dir, name, "package p\n")
		if err := src.Put(file, testFindings(1), "cfg", 10); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if err := src.SaveSnapshot(snapPath); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	dst := NewResultCache(&Config{MaxEntries: 2, MaxMemoryMB: 10})
	if err := dst.LoadSnapshot(snapPath); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if dst.Len() != 2 {
		t.Errorf("Len() = %d after load into smaller cache, want 2", dst.Len())
	}
}

func TestSaveSnapshotConcurrentWithGets(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	snapPath := filepath.Join(dir, "results.json")
	cache := NewResultCache(nil)

	paths := make([]string, 4)
	for i := range paths {
		paths[i] = writeTestFile(t, dir, fmt.Sprintf("f%d.go", i), "package f\n")
		if err := cache.Put(paths[i], testFindings(2), "cfg", 10); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	// Hammer the access-stat fields while snapshots marshal the entries.
	// Run under -race to verify saving never reads live entries unlocked.
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for _, path := range paths {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					cache.Get(p, "cfg")
				}
			}
		}(path)
	}

	for i := 0; i < 50; i++ {
		if err := cache.SaveSnapshot(snapPath); err != nil {
			t.Errorf("SaveSnapshot() error = %v", err)
			break
		}
	}
	close(stop)
	wg.Wait()

	restored := NewResultCache(nil)
	if err := restored.LoadSnapshot(snapPath); err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if restored.Len() != len(paths) {
		t.Errorf("Len() = %d after load, want %d", restored.Len(), len(paths))
	}
}

func TestSaveSnapshotCreatesDirectories(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := writeTestFile(t, dir, "a.go", "package a\n")
	snapPath := filepath.Join(dir, "nested", "cache", "results.json")

	cache := NewResultCache(nil)
	if err := cache.Put(file, testFindings(1), "cfg", 10); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := cache.SaveSnapshot(snapPath); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if _, err := os.Stat(snapPath); err != nil {
		t.Errorf("snapshot file not created: %v", err)
	}
	// No temp file debris after a successful save.
	if _, err := os.Stat(snapPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}
