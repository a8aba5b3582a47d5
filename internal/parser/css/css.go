// Package css checks and normalizes the small stylesheets injected while
// capturing.
package css

import (
	"io"
	"strings"

	"github.com/gompdf/rasterpdf/pkg/errors"
)

// Rule is a selector list with its declarations. At-rules keep their
// prelude in Selectors[0] and their body verbatim in Block.
type Rule struct {
	Selectors    []string
	Declarations []*Declaration
	Block        string
}

// Declaration is a property-value pair.
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Stylesheet is a parsed stylesheet.
type Stylesheet struct {
	Rules []*Rule
}

// ParseString parses CSS from a string.
func ParseString(content string) (*Stylesheet, error) {
	return parse(content)
}

// Parse parses CSS from r.
func Parse(r io.Reader) (*Stylesheet, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read stylesheet")
	}
	return parse(string(content))
}

// Validate reports whether content parses.
func Validate(content string) error {
	_, err := parse(content)
	return err
}

func parse(content string) (*Stylesheet, error) {
	content, err := removeComments(content)
	if err != nil {
		return nil, err
	}
	blocks, err := splitRules(content)
	if err != nil {
		return nil, err
	}
	sheet := &Stylesheet{Rules: make([]*Rule, 0, len(blocks))}
	for _, b := range blocks {
		rule, err := parseRule(b)
		if err != nil {
			return nil, err
		}
		sheet.Rules = append(sheet.Rules, rule)
	}
	return sheet, nil
}

func parseRule(s string) (*Rule, error) {
	open := strings.IndexByte(s, '{')
	prelude := strings.TrimSpace(s[:open])
	body := strings.TrimSpace(s[open+1 : len(s)-1])

	if strings.HasPrefix(prelude, "@") {
		return &Rule{Selectors: []string{prelude}, Block: body}, nil
	}
	selectors := parseSelectors(prelude)
	if len(selectors) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "css rule without selector: %q", abbreviate(s))
	}
	decls, err := parseDeclarations(body)
	if err != nil {
		return nil, err
	}
	return &Rule{Selectors: selectors, Declarations: decls}, nil
}

func parseSelectors(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDeclarations(s string) ([]*Declaration, error) {
	var out []*Declaration
	for _, d := range splitDeclarations(s) {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		prop, value, ok := strings.Cut(d, ":")
		prop, value = strings.TrimSpace(prop), strings.TrimSpace(value)
		if !ok || prop == "" || value == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "malformed css declaration %q", d)
		}
		important := false
		if v, found := strings.CutSuffix(value, "!important"); found {
			important = true
			value = strings.TrimSpace(v)
		}
		out = append(out, &Declaration{Property: strings.ToLower(prop), Value: value, Important: important})
	}
	return out, nil
}

// splitDeclarations splits on ';' outside quotes and parentheses.
func splitDeclarations(s string) []string {
	var out []string
	var quote byte
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case c == ';' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	return append(out, s[start:])
}

func removeComments(content string) (string, error) {
	var b strings.Builder
	for {
		start := strings.Index(content, "/*")
		if start < 0 {
			b.WriteString(content)
			return b.String(), nil
		}
		end := strings.Index(content[start+2:], "*/")
		if end < 0 {
			return "", errors.New(errors.ErrCodeInvalidInput, "unterminated css comment")
		}
		b.WriteString(content[:start])
		content = content[start+2+end+2:]
	}
}

// splitRules cuts content into top-level "prelude { ... }" blocks.
func splitRules(content string) ([]string, error) {
	var rules []string
	depth, start := 0, 0
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth < 0 {
				return nil, errors.New(errors.ErrCodeInvalidInput, "unbalanced '}' in css")
			}
			if depth == 0 {
				rules = append(rules, content[start:i+1])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unbalanced '{' in css")
	}
	if rest := strings.TrimSpace(content[start:]); rest != "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "css text outside a rule: %q", abbreviate(rest))
	}
	return rules, nil
}

// String renders the stylesheet one rule per line.
func (s *Stylesheet) String() string {
	var b strings.Builder
	for _, r := range s.Rules {
		b.WriteString(strings.Join(r.Selectors, ", "))
		b.WriteString(" {")
		if r.Block != "" {
			b.WriteString(" ")
			b.WriteString(r.Block)
		}
		for _, d := range r.Declarations {
			b.WriteString(" ")
			b.WriteString(d.Property)
			b.WriteString(": ")
			b.WriteString(d.Value)
			if d.Important {
				b.WriteString(" !important")
			}
			b.WriteString(";")
		}
		b.WriteString(" }\n")
	}
	return b.String()
}

func abbreviate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
