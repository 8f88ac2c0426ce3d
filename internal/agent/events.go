package agent

import (
	"bufio"
	"encoding/json"
	"io"
)

// Event is one newline-delimited JSON record emitted by the agent CLI.
// Unparseable lines surface with an empty Type; callers append those to
// the log verbatim and never treat them as code.
type Event struct {
	Type         string   `json:"type"`
	Subtype      string   `json:"subtype"`
	Model        string   `json:"model"`
	Message      *Message `json:"message"`
	DurationMs   int64    `json:"duration_ms"`
	TotalCostUSD float64  `json:"total_cost_usd"`
	Result       string   `json:"result"`
}

// Message carries the content blocks of an assistant or tool event.
type Message struct {
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one element of a message: streamed text, a tool
// invocation, or a tool result.
type ContentBlock struct {
	Type    string          `json:"type"`
	Text    string          `json:"text"`
	Name    string          `json:"name"`
	Input   json.RawMessage `json:"input"`
	Content json.RawMessage `json:"content"`
}

// Parser is a pull-style reader over the agent's stdout stream. Callers
// fold whatever state they need (last assistant text, tool trace, final
// result) from the sequence of events.
type Parser struct {
	scanner *bufio.Scanner
}

// maxEventLine bounds a single stream-json line; assistant turns with
// large embedded code can run to megabytes.
const maxEventLine = 16 * 1024 * 1024

func NewParser(r io.Reader) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventLine)
	return &Parser{scanner: scanner}
}

// Next returns the next event along with the raw line it was parsed
// from. It returns io.EOF when the stream ends.
func (p *Parser) Next() (Event, string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return Event{}, "", err
		}
		return Event{}, "", io.EOF
	}

	line := p.scanner.Text()
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return Event{}, line, nil
	}
	return ev, line, nil
}
