package report

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/repowatch/repowatch/internal/types"
)

// DefaultBaselineFile is where `scan --update-baseline` writes by default.
const DefaultBaselineFile = "repowatch.baseline.json"

// Baseline is a set of accepted finding fingerprints.
type Baseline struct {
	Items map[string]bool `json:"items"`
}

// LoadBaseline reads a baseline file. On error the returned baseline is empty
// but usable.
func LoadBaseline(path string) (Baseline, error) {
	b := Baseline{Items: map[string]bool{}}
	f, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	if err := json.Unmarshal(f, &b); err != nil {
		return Baseline{Items: map[string]bool{}}, err
	}
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	return b, nil
}

// SaveBaseline replaces the baseline at path with the given findings.
func SaveBaseline(path string, findings []types.Finding) error {
	b := Baseline{Items: map[string]bool{}}
	for _, f := range findings {
		b.Items[f.Fingerprint()] = true
	}
	return b.Save(path)
}

// Save writes the baseline as indented JSON.
func (b Baseline) Save(path string) error {
	if b.Items == nil {
		b.Items = map[string]bool{}
	}
	buf, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// Contains reports whether f is accepted by the baseline.
func (b Baseline) Contains(f types.Finding) bool {
	return b.Items[f.Fingerprint()]
}

// FilterNewFindings drops findings already present in the baseline, keeping
// the order of the rest.
func FilterNewFindings(findings []types.Finding, base Baseline) []types.Finding {
	var out []types.Finding
	for _, f := range findings {
		if !base.Contains(f) {
			out = append(out, f)
		}
	}
	return out
}

// Fingerprints returns the baseline entries sorted, for stable diffs.
func (b Baseline) Fingerprints() []string {
	out := make([]string, 0, len(b.Items))
	for k := range b.Items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ShouldFail reports whether any finding is at or above the failOn level
// (low|medium|high|critical). An empty or unknown level means medium.
func ShouldFail(findings []types.Finding, failOn string) bool {
	th, ok := types.ParseSeverity(failOn)
	if !ok {
		th = types.SevMed
	}
	for _, f := range findings {
		if f.Severity.Rank() >= th.Rank() {
			return true
		}
	}
	return false
}
