package css

import (
	"fmt"
	"io"
	"strings"
	"unicode"
)

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
func cssEscapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MediaQuery represents a parsed @media query condition.
type MediaQuery struct {
	Raw      string         // Original media query string
	Type     string         // Media type (e.g., "screen", "print")
	Negated  bool           // true if "not" modifier was used on main type
	Features []MediaFeature // Additional conditions (e.g., "and (color)")
}

// MediaFeature represents a single media feature condition in a media query.
type MediaFeature struct {
	Name    string
	Negated bool
}

// Evaluate returns true if this media query matches given media type. Media
// features are assumed to be satisfied except vendor specific ones (Kindle
// "amzn-*" and "-prefixed-" features) which never are.
func (mq MediaQuery) Evaluate(media string) bool {
	var typeMatches bool
	switch t := strings.ToLower(mq.Type); t {
	case "", "all":
		typeMatches = true
	default:
		typeMatches = t == media
	}
	if mq.Negated {
		typeMatches = !typeMatches
	}
	if !typeMatches {
		return false
	}

	for _, f := range mq.Features {
		name := strings.ToLower(f.Name)
		featureMatches := !strings.HasPrefix(name, "amzn-") && !strings.HasPrefix(name, "-")
		if f.Negated {
			featureMatches = !featureMatches
		}
		if !featureMatches {
			return false
		}
	}
	return true
}

// Value represents a parsed CSS property value.
type Value struct {
	Raw     string  // Original CSS value string (e.g., "1.2em", "bold", "#ff0000")
	Value   float64 // Numeric value if applicable
	Unit    string  // Unit if applicable: "em", "px", "%", "pt", etc.
	Keyword string  // Keyword if applicable: "bold", "italic", "center", etc.
	Parts   []Value // Space separated components of multi-token values
}

// IsNumeric returns true if the value has a numeric component.
// This includes explicit zero values like "0" or "0px".
func (v Value) IsNumeric() bool {
	if v.Unit != "" {
		return true
	}
	if v.Value != 0 && v.Keyword == "" {
		return true
	}
	if v.Raw != "" && v.Keyword == "" {
		firstChar := rune(v.Raw[0])
		if unicode.IsDigit(firstChar) || firstChar == '.' || firstChar == '-' || firstChar == '+' {
			return true
		}
	}
	return false
}

// IsKeyword returns true if the value is a keyword (no numeric component).
func (v Value) IsKeyword() bool {
	return v.Keyword != "" && v.Unit == ""
}

// Components returns value split into space separated parts, single token
// values are returned as one element slice.
func (v Value) Components() []Value {
	if len(v.Parts) > 0 {
		return v.Parts
	}
	return []Value{v}
}

// Declaration is a single property assignment inside a rule.
type Declaration struct {
	Property  string
	Value     Value
	Important bool
}

// Rule represents a single CSS rule (selector + declarations in source order).
type Rule struct {
	Selector     Selector
	Declarations []Declaration
}

// GetProperty returns the effective (last declared) value for a property.
func (r Rule) GetProperty(name string) (Value, bool) {
	for i := len(r.Declarations) - 1; i >= 0; i-- {
		if r.Declarations[i].Property == name {
			return r.Declarations[i].Value, true
		}
	}
	return Value{}, false
}

// FontFace represents an @font-face declaration.
type FontFace struct {
	Family string
	Src    string
	Style  string
	Weight string
}

// StylesheetItem is a single top-level item in a stylesheet.
// Exactly one of Rule, MediaBlock, FontFace or Import is non-nil.
type StylesheetItem struct {
	Rule       *Rule
	MediaBlock *MediaBlock
	FontFace   *FontFace
	Import     *string
}

// MediaBlock represents a @media block with its query and nested rules.
type MediaBlock struct {
	Query MediaQuery
	Rules []Rule
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Source   string           // Where stylesheet came from, for diagnostics
	Items    []StylesheetItem // All top-level items in source order
	Warnings []string         // Warnings for unsupported features
}

// MediaScreen is the media type reading system renders for.
const MediaScreen = "screen"

// Rules returns rules effective for the media type in source order, rules of
// matching @media blocks are spliced in place.
func (s *Stylesheet) Rules(media string) []Rule {
	if s == nil {
		return nil
	}
	var rules []Rule
	for _, item := range s.Items {
		switch {
		case item.Rule != nil:
			rules = append(rules, *item.Rule)
		case item.MediaBlock != nil && item.MediaBlock.Query.Evaluate(media):
			rules = append(rules, item.MediaBlock.Rules...)
		}
	}
	return rules
}

// Imports returns all @import URLs from the stylesheet in source order.
func (s *Stylesheet) Imports() []string {
	var urls []string
	for _, item := range s.Items {
		if item.Import != nil {
			urls = append(urls, *item.Import)
		}
	}
	return urls
}

// FontFaces returns all @font-face declarations with non-empty family.
func (s *Stylesheet) FontFaces() []FontFace {
	var faces []FontFace
	for _, item := range s.Items {
		if item.FontFace != nil && item.FontFace.Family != "" {
			faces = append(faces, *item.FontFace)
		}
	}
	return faces
}

// RulesBySelector returns all top-level rules with the given selector text.
func (s *Stylesheet) RulesBySelector(selector string) []Rule {
	var matches []Rule
	for _, item := range s.Items {
		if item.Rule != nil && item.Rule.Selector.Raw == selector {
			matches = append(matches, *item.Rule)
		}
	}
	return matches
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for i, item := range s.Items {
		if i > 0 {
			cw.printf("\n")
		}
		switch {
		case item.Import != nil:
			cw.printf("@import url(\"%s\");\n", cssEscapeDoubleQuoted(*item.Import))
		case item.FontFace != nil:
			ff := item.FontFace
			cw.printf("@font-face {\n")
			if ff.Family != "" {
				cw.printf("  font-family: \"%s\";\n", cssEscapeDoubleQuoted(ff.Family))
			}
			for _, p := range [][2]string{{"src", ff.Src}, {"font-style", ff.Style}, {"font-weight", ff.Weight}} {
				if p[1] != "" {
					cw.printf("  %s: %s;\n", p[0], p[1])
				}
			}
			cw.printf("}\n")
		case item.MediaBlock != nil:
			cw.printf("@media %s {\n", item.MediaBlock.Query.Raw)
			for j, rule := range item.MediaBlock.Rules {
				if j > 0 {
					cw.printf("\n")
				}
				writeRule(cw, &rule, "  ")
			}
			cw.printf("}\n")
		case item.Rule != nil:
			writeRule(cw, item.Rule, "")
		}
		if cw.err != nil {
			break
		}
	}
	return cw.n, cw.err
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(cw *countingWriter, rule *Rule, indent string) {
	cw.printf("%s%s {\n", indent, rule.Selector.Raw)
	for _, d := range rule.Declarations {
		important := ""
		if d.Important {
			important = " !important"
		}
		cw.printf("%s  %s: %s%s;\n", indent, d.Property, d.Value.Raw, important)
	}
	cw.printf("%s}\n", indent)
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (cw *countingWriter) printf(format string, args ...any) {
	if cw.err != nil {
		return
	}
	n, err := fmt.Fprintf(cw.w, format, args...)
	cw.n += int64(n)
	cw.err = err
}
