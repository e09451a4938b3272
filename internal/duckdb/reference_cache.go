package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/inodb/vibe-hap/internal/genome"
)

// ReferenceCache manages a gob-serialized copy of a parsed reference:
//
//	{dir}/reference.gob       (chromosome names and sequences, in order)
//	{dir}/reference.gob.meta  (source file fingerprint)
type ReferenceCache struct {
	dir string
}

// NewReferenceCache creates a reference cache for the given directory.
func NewReferenceCache(dir string) *ReferenceCache {
	return &ReferenceCache{dir: dir}
}

type cachedRecord struct {
	Name string
	Seq  []byte
}

func (rc *ReferenceCache) gobPath() string {
	return filepath.Join(rc.dir, "reference.gob")
}

func (rc *ReferenceCache) metaPath() string {
	return filepath.Join(rc.dir, "reference.gob.meta")
}

// Valid checks whether the cached reference matches the current source file.
func (rc *ReferenceCache) Valid(ref FileFingerprint) bool {
	meta, err := rc.readMeta()
	if err != nil {
		return false
	}

	if !ref.matches(meta, "reference") {
		return false
	}

	if _, err := os.Stat(rc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads the cached reference.
func (rc *ReferenceCache) Load() (*genome.Haplotype, error) {
	f, err := os.Open(rc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open reference cache: %w", err)
	}
	defer f.Close()

	var records []cachedRecord
	if err := gob.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode reference cache: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reference cache is empty")
	}

	h := genome.NewHaplotype()
	for _, r := range records {
		h.Add(r.Name, r.Seq)
	}
	return h, nil
}

// Write serializes h to disk along with the fingerprint of its source.
func (rc *ReferenceCache) Write(h *genome.Haplotype, ref FileFingerprint) error {
	if err := os.MkdirAll(rc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	records := make([]cachedRecord, 0, h.Len())
	for _, name := range h.Names() {
		b, _ := h.Buffer(name)
		records = append(records, cachedRecord{Name: name, Seq: b.Bytes()})
	}

	f, err := os.Create(rc.gobPath())
	if err != nil {
		return fmt.Errorf("create reference cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(records); err != nil {
		f.Close()
		os.Remove(rc.gobPath())
		return fmt.Errorf("encode reference cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close reference cache: %w", err)
	}

	return rc.writeMeta(ref)
}

// Clear removes the cached reference files.
func (rc *ReferenceCache) Clear() {
	os.Remove(rc.gobPath())
	os.Remove(rc.metaPath())
}

func (rc *ReferenceCache) writeMeta(ref FileFingerprint) error {
	var lines []string
	for _, kv := range ref.fields("reference") {
		lines = append(lines, kv[0]+"="+kv[1])
	}
	lines = append(lines, "created_at="+time.Now().UTC().Format(time.RFC3339), "")
	return os.WriteFile(rc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (rc *ReferenceCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(rc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
