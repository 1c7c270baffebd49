// Package buster keeps the cache-busting manifest: a JSON object mapping each
// emitted asset path to a content fingerprint.
package buster

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// FileName is the manifest written by Write.
const FileName = "busters.json"

// Buster accumulates fingerprints for the lifetime of the process; each Write
// emits the full set.
type Buster struct {
	// Base is stripped from added paths so keys are relative to the web root.
	Base string

	mu     sync.Mutex
	hashes map[string]string
	wmu    sync.Mutex // serializes Write
}

// New creates a Buster rooted at base.
func New(base string) *Buster {
	return &Buster{Base: base, hashes: map[string]string{}}
}

// Fingerprint returns the hex xxhash of content.
func Fingerprint(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}

// Add records the fingerprint of the asset written at path.
func (b *Buster) Add(path string, content []byte) {
	key := filepath.ToSlash(path)
	if b.Base != "" {
		if rel, err := filepath.Rel(b.Base, path); err == nil {
			key = filepath.ToSlash(rel)
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hashes == nil {
		b.hashes = map[string]string{}
	}
	b.hashes[key] = Fingerprint(content)
}

// Snapshot returns a copy of the recorded fingerprints.
func (b *Buster) Snapshot() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.hashes))
	for k, v := range b.hashes {
		out[k] = v
	}
	return out
}

// Write replaces the manifest in dir. Readers never see a partial file.
func (b *Buster) Write(dir string) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	raw, err := json.MarshalIndent(b.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp := filepath.Join(dir, FileName+".tmp")
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(dir, FileName))
}
