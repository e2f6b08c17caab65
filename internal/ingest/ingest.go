// Package ingest discovers challan PDFs on disk: one-shot directory scans for batch runs
// and a debounced fsnotify watcher for the inbox daemon.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/rotisserie/eris"
)

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// HashFile returns the hex sha256 of the file's content.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", eris.Wrapf(err, "hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Deduper remembers file contents already handed out, so that a file reported by several
// watcher events is processed once.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]string)}
}

// First hashes path and reports whether its content is new. The returned hash is set either way.
func (d *Deduper) First(path string) (bool, string, error) {
	sum, err := HashFile(path)
	if err != nil {
		return false, "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[sum]; ok {
		return false, sum, nil
	}
	d.seen[sum] = path
	return true, sum, nil
}

// Forget drops a hash so the same content can be processed again.
func (d *Deduper) Forget(sum string) {
	d.mu.Lock()
	delete(d.seen, sum)
	d.mu.Unlock()
}
