package agent

import (
	"os"
	"regexp"
	"strings"
	"unicode"
)

// minCodeBytes is the smallest non-whitespace byte count an output file
// must carry before it is trusted as the agent's finished code.
const minCodeBytes = 50

var (
	// escapedFenceRe finds a typescript fence embedded inside a JSON
	// string, where newlines appear as the two characters backslash-n.
	escapedFenceRe = regexp.MustCompile("(?s)```(?:typescript|ts)\\\\n(.*?)```")
	// rawFenceRe finds a plain fenced typescript block.
	rawFenceRe = regexp.MustCompile("(?s)```(?:typescript|ts)\n(.*?)```")
)

// ExtractCode recovers the generated scraper, preferring the designated
// output file, then a JSON-escaped fenced block in stdout, then a raw
// fenced block. The bool reports whether any code was found.
func ExtractCode(outputFile string, stdout []byte) (string, bool) {
	if data, err := os.ReadFile(outputFile); err == nil {
		if nonWhitespaceLen(string(data)) > minCodeBytes {
			return string(data), true
		}
	}

	out := string(stdout)

	if m := escapedFenceRe.FindStringSubmatch(out); m != nil {
		code := unescapeJSONString(m[1])
		if nonWhitespaceLen(code) > 0 {
			return code, true
		}
	}

	if m := rawFenceRe.FindStringSubmatch(out); m != nil {
		code := m[1]
		if nonWhitespaceLen(code) > 0 {
			return code, true
		}
	}

	return "", false
}

// unescapeJSONString reverses the escapes the stream-json encoding
// applies inside string values.
func unescapeJSONString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
			i++
		case 't':
			b.WriteByte('\t')
			i++
		case '"':
			b.WriteByte('"')
			i++
		case '\\':
			b.WriteByte('\\')
			i++
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func nonWhitespaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
