package duckdb

import (
	"os"
	"strconv"
	"time"
)

// FileFingerprint identifies a source file by path, size and modification
// time. A cache built from the file is reused only while all three match.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile fingerprints the file at path.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// fields renders the fingerprint as meta-file key/value pairs under prefix.
func (fp FileFingerprint) fields(prefix string) [][2]string {
	return [][2]string{
		{prefix + "_source", fp.Path},
		{prefix + "_size", strconv.FormatInt(fp.Size, 10)},
		{prefix + "_modtime", fp.ModTime.UTC().Format(time.RFC3339Nano)},
	}
}

// matches reports whether meta was written for this fingerprint.
func (fp FileFingerprint) matches(meta map[string]string, prefix string) bool {
	for _, kv := range fp.fields(prefix) {
		if meta[kv[0]] != kv[1] {
			return false
		}
	}
	return true
}
