package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/repowatch/repowatch/internal/types"
)

func sample() []types.Finding {
	return []types.Finding{
		{Rule: "env_file", Path: "app/.env", Category: types.CatSecrets, Severity: types.SevCritical, Message: "Environment file app/.env", Hint: "remove it"},
		{Rule: "weak_hash", Path: "src/h.js", Line: 3, Category: types.CatCrypto, Severity: types.SevHigh, Message: "Weak hash in src/h.js"},
		{Rule: "jwt", Path: "src/t.js", Line: 7, Category: types.CatSecrets, Severity: types.SevHigh, Message: "JWT in src/t.js"},
	}
}

func TestPrintText_NoFindings_ShowsFooter(t *testing.T) {
	var buf bytes.Buffer
	PrintText(&buf, nil, PrintOptions{Duration: 1200 * time.Millisecond, FilesScanned: 10})
	out := buf.String()
	if !strings.Contains(out, "No issues found") {
		t.Fatalf("expected friendly no-findings message; got: %q", out)
	}
	if !strings.Contains(out, "Files scanned: 10") {
		t.Fatalf("expected footer with files scanned; got: %q", out)
	}
}

func TestPrintText_GroupsByCategoryWithoutReordering(t *testing.T) {
	fs := sample()
	var buf bytes.Buffer
	PrintText(&buf, fs, PrintOptions{NoColor: true})
	out := buf.String()

	secrets := strings.Index(out, "Secrets (2)")
	crypto := strings.Index(out, "Crypto (1)")
	if secrets < 0 || crypto < 0 || secrets > crypto {
		t.Fatalf("expected Secrets group before Crypto; got:\n%s", out)
	}
	if strings.Index(out, "app/.env") > strings.Index(out, "src/t.js:7") {
		t.Fatalf("scan order inside group lost:\n%s", out)
	}
	if !strings.Contains(out, "→ remove it") {
		t.Fatalf("expected hint line; got:\n%s", out)
	}
	if fs[1].Rule != "weak_hash" {
		t.Fatalf("caller slice was reordered")
	}
}

func TestPrintTable_WithFindings(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, sample(), PrintOptions{NoColor: true})
	out := buf.String()
	if !strings.Contains(out, "SEVERITY") {
		t.Fatalf("expected table header with SEVERITY; got: %q", out)
	}
	if !strings.Contains(out, "weak_hash") || !strings.Contains(out, "src/h.js:3") {
		t.Fatalf("expected rule and location in table; got: %q", out)
	}
	if !strings.Contains(out, "│") {
		t.Fatalf("expected table borders; got: %q", out)
	}
}

func TestPrintTable_FooterCounts(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, sample(), PrintOptions{NoColor: true, FilesScanned: 3, FilesSkipped: 1})
	out := buf.String()
	if !strings.Contains(out, "critical: 1, high: 2, medium: 0, low: 0") {
		t.Fatalf("unexpected footer: %q", out)
	}
	if !strings.Contains(out, "Files skipped: 1") {
		t.Fatalf("expected skipped count: %q", out)
	}
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("got %q", buf.String())
	}
	buf.Reset()
	if err := WriteJSON(&buf, sample()); err != nil {
		t.Fatal(err)
	}
	var back []types.Finding
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 3 || back[2].Line != 7 {
		t.Fatalf("unexpected decode: %+v", back)
	}
}
