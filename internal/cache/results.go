// Package cache keeps the findings of the most recent scan per root so the
// `view` command can reopen them without rescanning.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/repowatch/repowatch/internal/types"
)

// ScanResults stores the findings and metadata from a scan.
type ScanResults struct {
	Findings     []types.Finding `json:"findings"`
	Timestamp    time.Time       `json:"timestamp"`
	Root         string          `json:"root"`
	Count        int             `json:"count"`
	FilesScanned int             `json:"files_scanned"`
}

// Dir is where results are written. Results live outside the scanned tree so
// a later scan never picks them up.
func Dir() string {
	if base := os.Getenv("XDG_CACHE_HOME"); base != "" {
		return filepath.Join(base, "repowatch")
	}
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "repowatch")
	}
	return filepath.Join(os.TempDir(), "repowatch")
}

func resultsPath(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.Join(Dir(), fmt.Sprintf("last_scan_%016x.json", xxhash.Sum64String(root)))
}

// SaveResults records findings as the last scan of root.
func SaveResults(root string, findings []types.Finding, filesScanned int) error {
	if findings == nil {
		findings = []types.Finding{}
	}
	results := ScanResults{
		Findings:     findings,
		Timestamp:    time.Now().UTC(),
		Root:         root,
		Count:        len(findings),
		FilesScanned: filesScanned,
	}
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	p := resultsPath(root)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, b, 0644)
}

// LoadResults loads the last scan results for root.
func LoadResults(root string) (ScanResults, error) {
	var results ScanResults
	f, err := os.ReadFile(resultsPath(root))
	if err != nil {
		return results, err
	}
	if err := json.Unmarshal(f, &results); err != nil {
		return results, err
	}
	return results, nil
}
