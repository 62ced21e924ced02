// Package archive stores submitted scan reports and serves them back for the
// report-archive service. Several backends implement Store; Open picks one by
// name.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/repowatch/repowatch/internal/types"
)

// ErrNotFound is returned by Get and Delete for unknown record IDs.
var ErrNotFound = errors.New("scan record not found")

// Record is one archived scan.
type Record struct {
	ID             string                 `json:"id"`
	Repo           string                 `json:"repo"`
	Source         types.SourceKind       `json:"source"`
	Locator        string                 `json:"locator,omitempty"`
	Commit         string                 `json:"commit,omitempty"`
	Branch         string                 `json:"branch,omitempty"`
	FilesScanned   int                    `json:"files_scanned,omitempty"`
	Findings       []types.Finding        `json:"findings"`
	SeverityCounts map[types.Severity]int `json:"severity_counts"`
	Timestamp      time.Time              `json:"timestamp"`
}

// Totals aggregates every stored record.
type Totals struct {
	Scans      int                    `json:"scans"`
	Findings   int                    `json:"findings"`
	BySeverity map[types.Severity]int `json:"by_severity"`
}

// Store is implemented by every archive backend. List returns records newest
// first.
type Store interface {
	Save(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, id string) (Record, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Totals(ctx context.Context) (Totals, error)
	Close() error
}

// prepare fills the fields a store owns: ID, timestamp and severity counts.
func prepare(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Findings == nil {
		rec.Findings = []types.Finding{}
	}
	rec.SeverityCounts = countSeverities(rec.Findings)
	return rec
}

func countSeverities(fs []types.Finding) map[types.Severity]int {
	out := map[types.Severity]int{}
	for _, f := range fs {
		out[f.Severity]++
	}
	return out
}

func sortNewestFirst(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})
}

func emptyTotals() Totals {
	return Totals{BySeverity: map[types.Severity]int{}}
}

func computeTotals(recs []Record) Totals {
	t := emptyTotals()
	for _, r := range recs {
		t.Scans++
		t.Findings += len(r.Findings)
		for sev, n := range r.SeverityCounts {
			t.BySeverity[sev] += n
		}
	}
	return t
}

// Kinds lists the backend names accepted by Open.
func Kinds() []string {
	return []string{"memory", "jsonl", "bolt", "redis", "postgres"}
}

// Open connects to the backend named kind. dsn is a file path for jsonl and
// bolt, a redis:// URL for redis and a connection string for postgres; it is
// ignored for memory.
func Open(ctx context.Context, kind, dsn string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "jsonl":
		if dsn == "" {
			return nil, errors.New("jsonl store needs a file path")
		}
		return NewJSONLStore(dsn), nil
	case "bolt":
		if dsn == "" {
			return nil, errors.New("bolt store needs a file path")
		}
		return OpenBoltStore(dsn)
	case "redis":
		return OpenRedisStore(ctx, dsn)
	case "postgres":
		return OpenPostgresStore(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown store %q (want one of %v)", kind, Kinds())
}
