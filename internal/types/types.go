package types

import (
	"strconv"
	"strings"

	xxhash "github.com/cespare/xxhash/v2"
)

// Severity is a coarse-grained risk level for a finding.
type Severity string

const (
	SevLow      Severity = "low"
	SevMed      Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// Rank orders severities: critical > high > medium > low. Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SevCritical:
		return 4
	case SevHigh:
		return 3
	case SevMed:
		return 2
	case SevLow:
		return 1
	}
	return 0
}

// Title returns the display form ("Critical", "High", ...).
func (s Severity) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ParseSeverity accepts any casing and the short form "med".
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SevCritical, true
	case "high":
		return SevHigh, true
	case "medium", "med":
		return SevMed, true
	case "low":
		return SevLow, true
	}
	return "", false
}

// Severities lists all levels from most to least severe.
func Severities() []Severity {
	return []Severity{SevCritical, SevHigh, SevMed, SevLow}
}

// Category groups findings by the kind of weakness they point at.
type Category string

const (
	CatSecrets      Category = "Secrets"
	CatCrypto       Category = "Crypto"
	CatCookies      Category = "Cookies"
	CatCredentials  Category = "Credentials"
	CatLogging      Category = "Logging"
	CatCloud        Category = "Cloud"
	CatErrors       Category = "Errors"
	CatDependencies Category = "Dependencies"
	CatCode         Category = "Code"
	CatDatabase     Category = "Database"
)

// Finding is one reported issue, attributable to exactly one rule and one file.
type Finding struct {
	Rule     string   `json:"rule"`
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"` // 0 for filename rules
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Hint     string   `json:"hint"`
}

// Fingerprint is a stable 16-hex-digit hash of the finding's identifying fields.
func (f Finding) Fingerprint() string {
	sum := xxhash.Sum64String(f.Rule + "|" + f.Path + "|" + strconv.Itoa(f.Line) + "|" + f.Message)
	s := strconv.FormatUint(sum, 16)
	if len(s) < 16 {
		s = strings.Repeat("0", 16-len(s)) + s
	}
	return s
}

// SourceKind tells the report archive where a scanned tree came from.
type SourceKind string

const (
	SourceLocal  SourceKind = "local"
	SourceGitHub SourceKind = "github"
	SourceImage  SourceKind = "image"
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceLocal, SourceGitHub, SourceImage:
		return true
	}
	return false
}
