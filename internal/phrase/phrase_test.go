package phrase

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateRejectsNonASCII(t *testing.T) {
	if err := Validate("hello world"); err != nil {
		t.Fatalf("expected ascii phrase to pass: %v", err)
	}
	for _, text := range []string{"", "résumé", "naïve", "don’t", "tab\tsep"} {
		if err := Validate(text); err == nil {
			t.Fatalf("expected %q to be rejected", text)
		}
	}
}

func TestLoadJoinsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrase.txt")
	if err := os.WriteFile(path, []byte("  the quick\n\nbrown fox  \n"), 0o644); err != nil {
		t.Fatalf("write phrase: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != "the quick brown fox" {
		t.Fatalf("unexpected phrase: %q", got)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("\n \n"), 0o644); err != nil {
		t.Fatalf("write phrase: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for empty phrase file")
	}
}

func TestResolvePrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phrase.txt")
	if err := os.WriteFile(path, []byte("from file\n"), 0o644); err != nil {
		t.Fatalf("write phrase: %v", err)
	}
	cases := []struct {
		text, file, want string
	}{
		{"explicit", path, "explicit"},
		{"", path, "from file"},
		{"", "", Default},
	}
	for _, tc := range cases {
		got, err := Resolve(tc.text, tc.file)
		if err != nil {
			t.Fatalf("Resolve(%q, %q) failed: %v", tc.text, tc.file, err)
		}
		if got != tc.want {
			t.Fatalf("Resolve(%q, %q) = %q, want %q", tc.text, tc.file, got, tc.want)
		}
	}
	if _, err := Resolve("", filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatalf("expected error for missing phrase file")
	}
}
