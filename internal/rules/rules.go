package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/repowatch/repowatch/internal/types"
)

// Kind says what a rule's predicate looks at.
type Kind int

const (
	// KindFilename rules test the lower-cased base name of a path.
	KindFilename Kind = iota
	// KindContent rules test the decoded text of a file.
	KindContent
)

func (k Kind) String() string {
	if k == KindFilename {
		return "filename"
	}
	return "content"
}

// matcher reports whether subject matches and, when it does, the byte offset
// of the match (used to derive a line number for content rules).
type matcher func(subject string) (int, bool)

// Rule is a named predicate plus the template of the finding it produces.
type Rule struct {
	ID       string
	Kind     Kind
	Category types.Category
	Severity types.Severity
	// Message is a format string with a single %s verb for the path.
	Message string
	Hint    string

	match matcher
}

// Match applies the rule's predicate. For filename rules subject must already
// be the lower-cased base name.
func (r Rule) Match(subject string) (int, bool) {
	return r.match(subject)
}

func (r Rule) finding(path string, line int) types.Finding {
	return types.Finding{
		Rule:     r.ID,
		Path:     path,
		Line:     line,
		Category: r.Category,
		Severity: r.Severity,
		Message:  fmt.Sprintf(r.Message, path),
		Hint:     r.Hint,
	}
}

// All returns the full catalog: filename rules first, then content rules,
// each group in evaluation order. The returned slice is a copy.
func All() []Rule {
	out := make([]Rule, 0, len(filenameRules)+len(contentRules))
	out = append(out, filenameRules...)
	return append(out, contentRules...)
}

// Filename returns a copy of the filename rules in evaluation order.
func Filename() []Rule { return append([]Rule(nil), filenameRules...) }

// Content returns a copy of the content rules in evaluation order.
func Content() []Rule { return append([]Rule(nil), contentRules...) }

// IDs lists rule IDs in catalog order.
func IDs() []string {
	all := All()
	ids := make([]string, len(all))
	for i, r := range all {
		ids[i] = r.ID
	}
	return ids
}

// ByID looks up a rule.
func ByID(id string) (Rule, bool) {
	for _, r := range All() {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// EvaluateName runs every filename rule against path's base name.
func EvaluateName(path string) []types.Finding {
	base := strings.ToLower(filepath.Base(path))
	var out []types.Finding
	for _, r := range filenameRules {
		if _, ok := r.match(base); ok {
			out = append(out, r.finding(path, 0))
		}
	}
	return out
}

// EvaluateContent runs every content rule against text. Each rule fires at
// most once per call.
func EvaluateContent(path, text string) []types.Finding {
	var out []types.Finding
	for _, r := range contentRules {
		if off, ok := r.match(text); ok {
			out = append(out, r.finding(path, lineAt(text, off)))
		}
	}
	return out
}

// Evaluate runs a single rule the way the scanner would.
func (r Rule) Evaluate(path, text string) []types.Finding {
	if r.Kind == KindFilename {
		if _, ok := r.match(strings.ToLower(filepath.Base(path))); ok {
			return []types.Finding{r.finding(path, 0)}
		}
		return nil
	}
	if off, ok := r.match(text); ok {
		return []types.Finding{r.finding(path, lineAt(text, off))}
	}
	return nil
}

func lineAt(text string, off int) int {
	if off < 0 || off > len(text) {
		return 0
	}
	return strings.Count(text[:off], "\n") + 1
}

// predicate builders

func contains(subs ...string) matcher {
	return func(s string) (int, bool) {
		for _, sub := range subs {
			if i := strings.Index(s, sub); i >= 0 {
				return i, true
			}
		}
		return -1, false
	}
}

func hasSuffix(suffix string) matcher {
	return func(s string) (int, bool) {
		if strings.HasSuffix(s, suffix) {
			return len(s) - len(suffix), true
		}
		return -1, false
	}
}

func equals(names ...string) matcher {
	return func(s string) (int, bool) {
		for _, n := range names {
			if s == n {
				return 0, true
			}
		}
		return -1, false
	}
}

func pattern(expr string) matcher {
	re := regexp.MustCompile(expr)
	return func(s string) (int, bool) {
		if loc := re.FindStringIndex(s); loc != nil {
			return loc[0], true
		}
		return -1, false
	}
}

func either(ms ...matcher) matcher {
	return func(s string) (int, bool) {
		for _, m := range ms {
			if off, ok := m(s); ok {
				return off, true
			}
		}
		return -1, false
	}
}

// both matches when m and also match; the offset is m's.
func both(m, also matcher) matcher {
	return func(s string) (int, bool) {
		off, ok := m(s)
		if !ok {
			return -1, false
		}
		if _, ok := also(s); !ok {
			return -1, false
		}
		return off, true
	}
}

// without matches when m matches and the literal is absent from the subject.
func without(m matcher, literal string) matcher {
	return func(s string) (int, bool) {
		if strings.Contains(s, literal) {
			return -1, false
		}
		return m(s)
	}
}
