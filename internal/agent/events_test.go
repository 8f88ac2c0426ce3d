package agent

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestParserEventSequence(t *testing.T) {
	stream := strings.Join([]string{
		`{"type":"system","subtype":"init","model":"sonnet"}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Looking at the page"}]}}`,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","name":"WebFetch","input":{"url":"https://example.com"}}]}}`,
		`this line is not json`,
		`{"type":"result","duration_ms":45000,"total_cost_usd":0.42}`,
	}, "\n") + "\n"

	p := NewParser(strings.NewReader(stream))

	ev, _, err := p.Next()
	if err != nil || ev.Type != "system" || ev.Model != "sonnet" {
		t.Fatalf("init event = %+v, err %v", ev, err)
	}

	ev, _, _ = p.Next()
	if ev.Type != "assistant" || ev.Message == nil || ev.Message.Content[0].Text != "Looking at the page" {
		t.Fatalf("assistant text event = %+v", ev)
	}

	ev, _, _ = p.Next()
	if ev.Message.Content[0].Type != "tool_use" || ev.Message.Content[0].Name != "WebFetch" {
		t.Fatalf("tool_use event = %+v", ev)
	}

	ev, raw, err := p.Next()
	if err != nil {
		t.Fatalf("unparseable line should not error: %v", err)
	}
	if ev.Type != "" || raw != "this line is not json" {
		t.Fatalf("unparseable line: ev=%+v raw=%q", ev, raw)
	}

	ev, _, _ = p.Next()
	if ev.Type != "result" || ev.DurationMs != 45000 || ev.TotalCostUSD != 0.42 {
		t.Fatalf("result event = %+v", ev)
	}

	if _, _, err := p.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestParserLongLine(t *testing.T) {
	// Assistant turns embedding whole scrapers overflow the default
	// scanner buffer; the parser must accept megabyte lines.
	big := `{"type":"assistant","message":{"content":[{"type":"text","text":"` +
		strings.Repeat("a", 200_000) + `"}]}}`
	p := NewParser(strings.NewReader(big + "\n"))

	ev, _, err := p.Next()
	if err != nil {
		t.Fatalf("long line: %v", err)
	}
	if len(ev.Message.Content[0].Text) != 200_000 {
		t.Fatalf("text truncated to %d", len(ev.Message.Content[0].Text))
	}
}
