package cache

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	scanerr "github.com/scanforge/scanforge/pkg/errors"
	"github.com/scanforge/scanforge/pkg/utils"
)

// snapshotVersion guards against loading snapshots written by an
// incompatible entry layout.
const snapshotVersion = 1

// zstd frame magic, used to auto-detect compressed snapshots on load.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// snapshot is the on-disk form of the entry store.
type snapshot struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"`
}

// SaveSnapshot serializes the entire entry map to a single file. The write
// goes through a temp file and an atomic rename so an interrupted save never
// leaves a truncated snapshot behind. When the store was configured with
// compression the payload is zstd-framed.
func (c *ResultCache) SaveSnapshot(path string) error {
	c.mu.RLock()
	snap := snapshot{
		Version: snapshotVersion,
		Entries: make(map[string]*Entry, len(c.entries)),
	}
	// Copy entries by value while holding the lock: a concurrent Get
	// mutates AccessCount and LastAccessed, and marshaling must not read
	// live entries unlocked. Results slices are shared safely because they
	// are never modified after insertion.
	for entryPath, entry := range c.entries {
		copied := *entry
		snap.Entries[entryPath] = &copied
	}
	c.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return scanerr.NewError(scanerr.ErrCodeSnapshotWrite, "failed to encode snapshot").
			WithComponent("cache").
			WithOperation("save").
			WithCause(err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return scanerr.NewError(scanerr.ErrCodeSnapshotWrite, "failed to create snapshot directory").
			WithComponent("cache").
			WithOperation("save").
			WithContext("path", path).
			WithCause(err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return scanerr.NewError(scanerr.ErrCodeSnapshotWrite, "failed to create snapshot file").
			WithComponent("cache").
			WithOperation("save").
			WithContext("path", tmpPath).
			WithCause(err)
	}

	writeErr := c.writeSnapshot(file, data)
	closeErr := file.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpPath) // Ignore cleanup error
		return scanerr.NewError(scanerr.ErrCodeSnapshotWrite, "failed to write snapshot").
			WithComponent("cache").
			WithOperation("save").
			WithContext("path", tmpPath).
			WithCause(writeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Ignore cleanup error
		return scanerr.NewError(scanerr.ErrCodeSnapshotWrite, "failed to replace snapshot").
			WithComponent("cache").
			WithOperation("save").
			WithContext("path", path).
			WithCause(err)
	}

	if c.logger != nil {
		c.logger.Debug("saved cache snapshot",
			utils.F("path", path), utils.F("entries", len(snap.Entries)))
	}
	return nil
}

func (c *ResultCache) writeSnapshot(w io.Writer, data []byte) error {
	if !c.compress {
		_, err := w.Write(data)
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// LoadSnapshot restores entries from a snapshot file. A missing file is a
// cold cache, not an error. A malformed snapshot returns a parse error and
// leaves the store exactly as it was. Each entry is re-inserted only if its
// file still exists on disk and its config hash is non-empty; that is a
// cheap sanity filter, not a revalidation; stale entries are caught by the
// normal Get path on first use. Loaded entries are sized with the same
// estimator Put uses and the capacity ceilings are enforced afterwards.
func (c *ResultCache) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return scanerr.NewError(scanerr.ErrCodeSnapshotRead, "failed to read snapshot").
			WithComponent("cache").
			WithOperation("load").
			WithContext("path", path).
			WithCause(err)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return scanerr.NewError(scanerr.ErrCodeSnapshotParse, "failed to open compressed snapshot").
				WithComponent("cache").
				WithOperation("load").
				WithContext("path", path).
				WithCause(err)
		}
		decompressed, err := io.ReadAll(dec)
		dec.Close()
		if err != nil {
			return scanerr.NewError(scanerr.ErrCodeSnapshotParse, "failed to decompress snapshot").
				WithComponent("cache").
				WithOperation("load").
				WithContext("path", path).
				WithCause(err)
		}
		data = decompressed
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return scanerr.NewError(scanerr.ErrCodeSnapshotParse, "malformed snapshot").
			WithComponent("cache").
			WithOperation("load").
			WithContext("path", path).
			WithCause(err)
	}
	if snap.Version != snapshotVersion {
		return scanerr.NewError(scanerr.ErrCodeSnapshotParse, "incompatible snapshot version").
			WithComponent("cache").
			WithOperation("load").
			WithContext("path", path).
			WithDetail("version", snap.Version)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	loaded := 0
	for entryPath, entry := range snap.Entries {
		if entry == nil || entry.ConfigHash == "" {
			continue
		}
		// Entries for files that no longer exist are dead weight.
		if _, err := os.Stat(entryPath); err != nil {
			continue
		}
		if entry.AccessCount == 0 {
			entry.AccessCount = 1
		}
		entry.estimatedSize = estimateEntrySize(entryPath, entry)

		if _, exists := c.entries[entryPath]; exists {
			c.deleteLocked(entryPath)
		}
		c.entries[entryPath] = entry
		c.currentMemory += entry.estimatedSize
		loaded++
	}

	c.evictToFitLocked(0, 0)
	c.updateSizeMetrics()

	if c.logger != nil {
		c.logger.Info("loaded cache snapshot",
			utils.F("path", path),
			utils.F("loaded", loaded),
			utils.F("skipped", len(snap.Entries)-loaded))
	}
	return nil
}
