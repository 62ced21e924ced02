package types

import "testing"

func TestSeverityOrder(t *testing.T) {
	if !(SevCritical.Rank() > SevHigh.Rank() && SevHigh.Rank() > SevMed.Rank() && SevMed.Rank() > SevLow.Rank()) {
		t.Fatalf("severity ranks out of order")
	}
	if Severity("bogus").Rank() != 0 {
		t.Fatalf("unknown severity should rank 0")
	}
	if SevCritical.Title() != "Critical" {
		t.Fatalf("unexpected title %q", SevCritical.Title())
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]Severity{"HIGH": SevHigh, " med ": SevMed, "critical": SevCritical, "low": SevLow}
	for in, want := range cases {
		got, ok := ParseSeverity(in)
		if !ok || got != want {
			t.Fatalf("ParseSeverity(%q)=%q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseSeverity("urgent"); ok {
		t.Fatalf("expected unknown severity to fail")
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Finding{Rule: "env_file", Path: "a/.env", Message: "m"}
	b := a
	if a.Fingerprint() != b.Fingerprint() || len(a.Fingerprint()) != 16 {
		t.Fatalf("fingerprint not stable: %q", a.Fingerprint())
	}
	b.Path = "b/.env"
	if a.Fingerprint() == b.Fingerprint() {
		t.Fatalf("fingerprints should differ across files")
	}
}

func TestSourceKindValid(t *testing.T) {
	for _, k := range []SourceKind{SourceLocal, SourceGitHub, SourceImage} {
		if !k.Valid() {
			t.Fatalf("%q should be valid", k)
		}
	}
	if SourceKind("ftp").Valid() {
		t.Fatalf("ftp should be invalid")
	}
}
