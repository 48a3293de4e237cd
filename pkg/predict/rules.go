package predict

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// Hint is a best-effort action descriptor recovered from prose.
type Hint struct {
	Type      string `json:"type"`
	Target    string `json:"target,omitempty"`
	Value     string `json:"value,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Hint types.
const (
	HintClick  = "click"
	HintInput  = "input"
	HintScroll = "scroll"
)

// Rule is one keyword family of the heuristic stage. Pattern is matched
// against the reply with quoted spans blanked out; Extract builds the hint
// from the folded reply and the keyword position.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Extract func(text string, kwStart, kwEnd int) Hint
}

const (
	clauseBreaks = "\n.。,，;；"
	quoteChars   = `"'“”‘’「」`
)

var (
	quotedAfter = regexp.MustCompile(`^[^` + clauseBreaks + `]*?[` + quoteChars + `]+([^` + quoteChars + `]+)[` + quoteChars + `]`)
	valueMarker = regexp.MustCompile(`内容为|值为`)
	downToken   = regexp.MustCompile(`向下|(?i:\bdown(?:wards?)?\b)`)
	upToken     = regexp.MustCompile(`向上|(?i:\bup(?:wards?)?\b)`)
)

// DefaultRules returns the click, input and scroll families in evaluation
// order. Other vocabulary kinds have no prose fallback.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    HintClick,
			Pattern: regexp.MustCompile(`点击|单击|轻触|(?i:\b(?:clicks?|clicked|clicking|taps?|tapped|tapping)\b)`),
			Extract: func(text string, _, end int) Hint {
				return Hint{Type: HintClick, Target: extractTarget(text[end:])}
			},
		},
		{
			Name:    HintInput,
			Pattern: regexp.MustCompile(`输入|(?i:\b(?:types?|typed|typing|inputs?)\b)`),
			Extract: func(text string, _, end int) Hint {
				return Hint{Type: HintInput, Target: extractTarget(text[end:]), Value: extractValue(text, text[end:])}
			},
		},
		{
			Name:    HintScroll,
			Pattern: regexp.MustCompile(`滚动|滑动|(?i:\bscroll(?:s|ed|ing)?\b)`),
			Extract: func(text string, _, _ int) Hint {
				return Hint{Type: HintScroll, Direction: scrollDirection(text)}
			},
		},
	}
}

func applyRules(rules []Rule, reply string) []Hint {
	if strings.TrimSpace(reply) == "" {
		return nil
	}
	text := width.Fold.String(reply)
	masked := maskQuoted(text)

	var hints []Hint
	for _, r := range rules {
		if r.Pattern == nil || r.Extract == nil {
			continue
		}
		loc := r.Pattern.FindStringIndex(masked)
		if loc == nil {
			continue
		}
		hints = append(hints, r.Extract(text, loc[0], loc[1]))
	}
	return hints
}

// maskQuoted replaces every double-quoted span, quotes included, with spaces
// of the same byte length so keyword positions still index into s. An
// unterminated quote masks to the end.
func maskQuoted(s string) string {
	b := []byte(s)
	var closing rune
	for i, n := 0, 0; i < len(s); i += n {
		var r rune
		r, n = utf8.DecodeRuneInString(s[i:])
		if closing != 0 {
			if r == closing {
				closing = 0
			}
			blank(b[i : i+n])
			continue
		}
		switch r {
		case '"':
			closing = '"'
		case '“':
			closing = '”'
		case '「':
			closing = '」'
		default:
			continue
		}
		blank(b[i : i+n])
	}
	return string(b)
}

func blank(b []byte) {
	for i := range b {
		b[i] = ' '
	}
}

// extractTarget takes the quoted phrase in the clause after the keyword, or
// failing that the whole first clause.
func extractTarget(rest string) string {
	if m := quotedAfter.FindStringSubmatch(rest); m != nil {
		return strings.TrimSpace(m[1])
	}
	return firstClause(rest)
}

func extractValue(text, rest string) string {
	if m := quotedAfter.FindStringSubmatch(rest); m != nil {
		return strings.TrimSpace(m[1])
	}
	loc := valueMarker.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return strings.Trim(firstClause(text[loc[1]:]), quoteChars+" ")
}

func firstClause(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, clauseBreaks); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// scrollDirection prefers down when both directions are mentioned.
func scrollDirection(text string) string {
	switch {
	case downToken.MatchString(text):
		return "down"
	case upToken.MatchString(text):
		return "up"
	default:
		return "down"
	}
}
