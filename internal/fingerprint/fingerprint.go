// Package fingerprint computes file content identities used to validate
// cache freshness. A fingerprint is the (mtime, size, content-hash) triple:
// two fingerprints are equal iff all three fields match, and the content
// hash is cryptographic so collisions are treated as impossible.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/sourcegraph/conc/pool"

	scanerr "github.com/scanforge/scanforge/pkg/errors"
)

// Fingerprint identifies a specific version of a file's bytes.
type Fingerprint struct {
	ModifiedTime int64  `json:"modified_time"`
	SizeBytes    uint64 `json:"size_bytes"`
	ContentHash  string `json:"content_hash"`
}

// Equal reports whether two fingerprints identify the same file version.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.ModifiedTime == other.ModifiedTime &&
		f.SizeBytes == other.SizeBytes &&
		f.ContentHash == other.ContentHash
}

// Compute stats and fully reads the file at path, returning its fingerprint.
// The modification time is truncated to whole seconds. Any stat or read
// failure, including a missing file, is returned as an I/O-category error.
func Compute(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Fingerprint{}, scanerr.NewError(scanerr.ErrCodeFileNotFound, "file does not exist").
				WithComponent("fingerprint").
				WithContext("path", path).
				WithCause(err)
		}
		return Fingerprint{}, scanerr.NewError(scanerr.ErrCodeFileStat, "failed to stat file").
			WithComponent("fingerprint").
			WithContext("path", path).
			WithCause(err)
	}

	file, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, scanerr.NewError(scanerr.ErrCodeFileRead, "failed to open file").
			WithComponent("fingerprint").
			WithContext("path", path).
			WithCause(err)
	}
	defer func() { _ = file.Close() }()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Fingerprint{}, scanerr.NewError(scanerr.ErrCodeFileRead, "failed to read file").
			WithComponent("fingerprint").
			WithContext("path", path).
			WithCause(err)
	}

	return Fingerprint{
		ModifiedTime: info.ModTime().Unix(),
		SizeBytes:    uint64(info.Size()),
		ContentHash:  hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Result carries the outcome of one fingerprint computation in a batch.
type Result struct {
	Fingerprint Fingerprint
	Err         error
}

// ComputeBatch fingerprints all paths concurrently with at most maxParallel
// workers (GOMAXPROCS when maxParallel <= 0). Semantics per path are
// identical to Compute; a failed path carries its error in the result map
// and does not affect the others.
func ComputeBatch(paths []string, maxParallel int) map[string]Result {
	if maxParallel <= 0 {
		maxParallel = runtime.GOMAXPROCS(0)
	}

	var mu sync.Mutex
	results := make(map[string]Result, len(paths))

	p := pool.New().WithMaxGoroutines(maxParallel)
	for _, path := range paths {
		path := path
		p.Go(func() {
			fp, err := Compute(path)
			mu.Lock()
			results[path] = Result{Fingerprint: fp, Err: err}
			mu.Unlock()
		})
	}
	p.Wait()

	return results
}

// HashConfig derives an opaque config-hash string from a serialized ruleset.
// The hash is fast and non-cryptographic: config hashes only need to differ
// when the configuration differs, not resist adversarial collisions.
func HashConfig(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
