package credfile

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadDirParsesValidFilesAndSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"provider":"geminicli","refresh_token":"rt-a","model_list":["gemini-2.5-pro"]}`)
	writeFile(t, dir, "b.json", `{"provider":"codex","refreshToken":"rt-b"}`)
	writeFile(t, dir, "c.json", `not json`)
	writeFile(t, dir, "d.json", `{"refresh_token":"rt-d"}`)
	writeFile(t, dir, "e.json", `{"provider":"antigravity"}`)
	writeFile(t, dir, "ignored.txt", `{"provider":"geminicli","refresh_token":"rt-ignored"}`)

	entries, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 valid entries, got %d: %+v", len(entries), entries)
	}

	byProvider := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byProvider[e.Provider] = e
	}

	a, ok := byProvider["geminicli"]
	if !ok || a.RefreshToken != "rt-a" {
		t.Fatalf("expected geminicli entry with rt-a, got %+v", byProvider)
	}
	if len(a.ModelList) != 1 || a.ModelList[0] != "gemini-2.5-pro" {
		t.Fatalf("expected model_list [gemini-2.5-pro], got %v", a.ModelList)
	}

	b, ok := byProvider["codex"]
	if !ok || b.RefreshToken != "rt-b" {
		t.Fatalf("expected codex entry with rt-b via refreshToken alias, got %+v", byProvider)
	}
}

func TestLoadDirMissingDirectoryIsNotAnError(t *testing.T) {
	entries, err := LoadDir(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestLoadDirEmptyPathReturnsNothing(t *testing.T) {
	entries, err := LoadDir("")
	if err != nil || entries != nil {
		t.Fatalf("LoadDir(\"\") = %+v, %v", entries, err)
	}
}

func TestLoadDirOrdersEntriesByFileName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "z.json", `{"provider":"geminicli","refresh_token":"rt-z"}`)
	writeFile(t, dir, "a.json", `{"provider":"geminicli","refresh_token":"rt-a"}`)

	entries, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = filepath.Base(e.Path)
	}
	if !sort.StringsAreSorted(names) {
		t.Fatalf("expected entries ordered by file name, got %v", names)
	}
}
