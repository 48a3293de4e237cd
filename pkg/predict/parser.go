// Package predict recovers a device action from a model reply and runs the
// full screenshot-to-action pipeline.
//
// Parsing is structured first: the reply is searched for a JSON object that
// names a known action and carries that action's parameters. When no such
// object exists the parser falls back to an ordered list of keyword rules and
// returns loose hints instead of a command. Parsing never fails; the worst
// outcome is an empty Prediction.
package predict

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/screenpilot/pkg/actions"
)

// Source tells which stage produced a Prediction.
type Source string

const (
	SourceStructured Source = "structured"
	SourceHeuristic  Source = "heuristic"
	SourceNone       Source = "none"
)

var defaultRules = DefaultRules()

// maxCandidates bounds the balanced-span scan on very noisy replies.
const maxCandidates = 64

// Prediction is the parse outcome. Action is set only by the structured
// stage; Hints only by the heuristic stage.
type Prediction struct {
	Action *actions.Command `json:"action"`
	Hints  []Hint           `json:"hints,omitempty"`
	Source Source           `json:"source"`
	Note   string           `json:"note,omitempty"`
}

// Parser turns model replies into predictions. It holds no mutable state and
// is safe for concurrent use.
type Parser struct {
	rules []Rule
}

// NewParser returns a parser using DefaultRules.
func NewParser() *Parser {
	return &Parser{rules: defaultRules}
}

// NewParserWithRules returns a parser with a custom heuristic rule list,
// evaluated in order. An empty list disables the heuristic stage; the zero
// Parser uses DefaultRules.
func NewParserWithRules(rules []Rule) *Parser {
	return &Parser{rules: append(make([]Rule, 0, len(rules)), rules...)}
}

// Parse interprets text. It never panics and returns the same result for the
// same input.
func (p *Parser) Parse(text string) Prediction {
	cmd, why := ExtractCommand(text)
	if cmd != nil {
		return Prediction{Action: cmd, Source: SourceStructured}
	}

	rules := p.rules
	if rules == nil {
		rules = defaultRules
	}
	if hints := applyRules(rules, text); len(hints) > 0 {
		return Prediction{Hints: hints, Source: SourceHeuristic, Note: why}
	}
	return Prediction{Source: SourceNone, Note: why + "; no recognizable instruction"}
}

// ExtractCommand runs only the structured stage. On failure it returns nil and
// a short reason.
//
// The widest span, first '{' to last '}', is tried first so that a reply made
// of one object with nested braces decodes whole. If that fails, every
// balanced span is tried left to right and the first valid command wins.
func ExtractCommand(text string) (*actions.Command, string) {
	first := strings.IndexByte(text, '{')
	if first < 0 {
		return nil, "no JSON object in reply"
	}
	last := strings.LastIndexByte(text, '}')
	if last <= first {
		return nil, "unbalanced braces in reply"
	}

	cmd, err := decodeCommand(text[first : last+1])
	if err == nil {
		return cmd, ""
	}
	reason := err.Error()

	tried := 0
	for i := first; i < len(text) && tried < maxCandidates; i++ {
		if text[i] != '{' {
			continue
		}
		end := matchBrace(text, i)
		if end < 0 {
			continue
		}
		tried++
		if end == last && i == first {
			continue
		}
		if cmd, err := decodeCommand(text[i : end+1]); err == nil {
			return cmd, ""
		}
	}
	return nil, reason
}

func decodeCommand(span string) (*actions.Command, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	cmd, err := actions.FromObject(obj)
	if err != nil {
		return nil, err
	}
	return &cmd, nil
}

// matchBrace returns the index of the '}' closing the '{' at open, skipping
// braces inside JSON strings, or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
