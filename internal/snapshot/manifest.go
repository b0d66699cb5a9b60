package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Manifest records what a snapshot run wrote.
type Manifest struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Rows        map[string]int `json:"rows"`
}

// ReadManifest loads the manifest.json of a snapshot directory.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Age returns how long ago the snapshot was generated.
func (m *Manifest) Age(now time.Time) time.Duration {
	return now.Sub(m.GeneratedAt)
}

// IsStaleOrMissing reports whether dir lacks a readable manifest or holds
// one older than maxAge.
func IsStaleOrMissing(dir string, maxAge time.Duration, now time.Time) bool {
	m, err := ReadManifest(dir)
	if err != nil || m.GeneratedAt.IsZero() {
		return true
	}
	return m.Age(now) > maxAge
}
