package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleScraper = `export async function scrape(page): Promise<ExtractedSession[]> {
  const sessions = [];
  sessions.push({ name: "Forest Camp", startDate: "2026-06-15" });
  return sessions;
}`

func TestExtractCodePrefersOutputFile(t *testing.T) {
	dir := t.TempDir()
	outputFile := filepath.Join(dir, "scraper.ts")
	if err := os.WriteFile(outputFile, []byte(sampleScraper), 0o644); err != nil {
		t.Fatal(err)
	}

	code, ok := ExtractCode(outputFile, []byte("```typescript\nconst ignored = 1;\n```"))
	if !ok {
		t.Fatalf("expected code from output file")
	}
	if code != sampleScraper {
		t.Fatalf("got stdout code instead of file contents")
	}
}

func TestExtractCodeIgnoresTinyOutputFile(t *testing.T) {
	dir := t.TempDir()
	outputFile := filepath.Join(dir, "scraper.ts")
	if err := os.WriteFile(outputFile, []byte("// todo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout := []byte("```typescript\n" + sampleScraper + "\n```")
	code, ok := ExtractCode(outputFile, stdout)
	if !ok {
		t.Fatalf("expected fallback to stdout fence")
	}
	if !strings.Contains(code, "Forest Camp") {
		t.Fatalf("fence content not extracted: %q", code)
	}
}

func TestExtractCodeEscapedFence(t *testing.T) {
	stdout := []byte(`{"type":"result","result":"Here is the scraper:\n` +
		"```typescript\\nconst sessions = [];\\nsessions.push({ name: \\\"Camp\\\" });\\n```" + `"}`)

	code, ok := ExtractCode(filepath.Join(t.TempDir(), "missing.ts"), stdout)
	if !ok {
		t.Fatalf("expected code from escaped fence")
	}
	if !strings.Contains(code, "sessions.push({ name: \"Camp\" });") {
		t.Fatalf("escapes not reversed: %q", code)
	}
	if strings.Contains(code, `\n`) {
		t.Fatalf("literal backslash-n left in code: %q", code)
	}
}

func TestExtractCodeNothingFound(t *testing.T) {
	if _, ok := ExtractCode(filepath.Join(t.TempDir(), "missing.ts"), []byte("no code here")); ok {
		t.Fatalf("expected no code")
	}
}

func TestUnescapeJSONString(t *testing.T) {
	in := `line1\nline2\t"quoted"\\end`
	want := "line1\nline2\t\"quoted\"\\end"
	if got := unescapeJSONString(in); got != want {
		t.Fatalf("unescape = %q, want %q", got, want)
	}
}
