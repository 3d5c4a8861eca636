package css

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnsupportedSelector is returned for syntactically valid selectors which
// can never match in this implementation.
var ErrUnsupportedSelector = errors.New("unsupported selector")

// Combinator describes relation of a compound to the compound on its left.
type Combinator uint8

const (
	CombinatorNone Combinator = iota
	CombinatorDescendant
	CombinatorChild
	CombinatorAdjacent
	CombinatorSibling
)

// PseudoElement represents CSS pseudo-elements.
type PseudoElement uint8

const (
	PseudoNone PseudoElement = iota
	PseudoBefore
	PseudoAfter
	PseudoOther
)

// AttrOp is attribute selector operator.
type AttrOp uint8

const (
	AttrExists    AttrOp = iota // [a]
	AttrEquals                  // [a=v]
	AttrIncludes                // [a~=v]
	AttrDashMatch               // [a|=v]
	AttrPrefix                  // [a^=v]
	AttrSuffix                  // [a$=v]
	AttrSubstring               // [a*=v]
)

// AttrMatch is a single attribute condition.
type AttrMatch struct {
	Name  string
	Op    AttrOp
	Value string
}

func (a AttrMatch) matches(val string) bool {
	switch a.Op {
	case AttrExists:
		return true
	case AttrEquals:
		return val == a.Value
	case AttrIncludes:
		return slices.Contains(strings.Fields(val), a.Value)
	case AttrDashMatch:
		return val == a.Value || strings.HasPrefix(val, a.Value+"-")
	case AttrPrefix:
		return a.Value != "" && strings.HasPrefix(val, a.Value)
	case AttrSuffix:
		return a.Value != "" && strings.HasSuffix(val, a.Value)
	case AttrSubstring:
		return a.Value != "" && strings.Contains(val, a.Value)
	}
	return false
}

// Compound is a sequence of simple selectors not separated by combinators,
// e.g. "p.note#first[lang]".
type Compound struct {
	Element       string // lowercase tag name, "" for universal
	ID            string
	Classes       []string
	Attrs         []AttrMatch
	PseudoClasses []string
	Pseudo        PseudoElement
	Combinator    Combinator // relation to previous compound, None for the first
}

// Selector is a complex selector: compounds joined by combinators, left to right.
type Selector struct {
	Raw   string
	Parts []Compound
}

// Rightmost returns rightmost compound, the one describing matched element.
func (s Selector) Rightmost() Compound {
	if len(s.Parts) == 0 {
		return Compound{}
	}
	return s.Parts[len(s.Parts)-1]
}

// Specificity is packed (ids, classes, elements) triple, bigger wins.
type Specificity uint32

// Specificity computes selector specificity, every component is capped at 255.
func (s Selector) Specificity() Specificity {
	var a, b, c uint32
	for _, p := range s.Parts {
		if p.ID != "" {
			a++
		}
		b += uint32(len(p.Classes) + len(p.Attrs) + len(p.PseudoClasses))
		if p.Element != "" {
			c++
		}
		if p.Pseudo != PseudoNone {
			c++
		}
	}
	return Specificity(min(a, 255)<<16 | min(b, 255)<<8 | min(c, 255))
}

// Components returns unpacked specificity.
func (sp Specificity) Components() (ids, classes, elements int) {
	return int(sp >> 16 & 0xff), int(sp >> 8 & 0xff), int(sp & 0xff)
}

// Element is a document node selectors are matched against.
type Element interface {
	Tag() string
	Attr(name string) (string, bool)
}

// Matches reports whether selector matches el, ancestors are ordered from
// root to immediate parent.
func (s Selector) Matches(el Element, ancestors []Element) bool {
	if len(s.Parts) == 0 {
		return false
	}
	last := len(s.Parts) - 1
	if !s.Parts[last].matches(el) {
		return false
	}
	return s.matchLeft(last, ancestors)
}

// matchLeft checks compounds left of index i against ancestors, backtracking
// on descendant combinators.
func (s Selector) matchLeft(i int, ancestors []Element) bool {
	if i == 0 {
		return true
	}
	prev := s.Parts[i-1]
	switch s.Parts[i].Combinator {
	case CombinatorChild:
		if len(ancestors) == 0 {
			return false
		}
		parent := ancestors[len(ancestors)-1]
		return prev.matches(parent) && s.matchLeft(i-1, ancestors[:len(ancestors)-1])
	case CombinatorDescendant:
		for j := len(ancestors) - 1; j >= 0; j-- {
			if prev.matches(ancestors[j]) && s.matchLeft(i-1, ancestors[:j]) {
				return true
			}
		}
	}
	return false
}

func (c Compound) matches(el Element) bool {
	if len(c.PseudoClasses) > 0 || c.Pseudo != PseudoNone {
		return false
	}
	if c.Element != "" && !strings.EqualFold(c.Element, el.Tag()) {
		return false
	}
	if c.ID != "" {
		if id, ok := el.Attr("id"); !ok || id != c.ID {
			return false
		}
	}
	if len(c.Classes) > 0 {
		val, _ := el.Attr("class")
		have := strings.Fields(val)
		for _, cl := range c.Classes {
			if !slices.Contains(have, cl) {
				return false
			}
		}
	}
	for _, a := range c.Attrs {
		val, ok := el.Attr(a.Name)
		if !ok || !a.matches(val) {
			return false
		}
	}
	return true
}

// ParseSelector parses a single (not grouped) selector. Selectors which can be
// parsed but never match (sibling combinators, pseudo-classes and
// pseudo-elements) are reported with ErrUnsupportedSelector.
func ParseSelector(text string) (Selector, error) {
	sp := selectorParser{src: strings.TrimSpace(text)}
	sel := Selector{Raw: sp.src}
	if sp.src == "" {
		return sel, fmt.Errorf("empty selector")
	}

	comb := CombinatorNone
	for {
		c, err := sp.compound()
		if err != nil {
			return sel, fmt.Errorf("selector %q: %w", sel.Raw, err)
		}
		c.Combinator = comb
		sel.Parts = append(sel.Parts, c)

		hadSpace := sp.skipSpace()
		if sp.eof() {
			break
		}
		switch sp.peek() {
		case '>':
			comb = CombinatorChild
			sp.pos++
		case '+':
			comb = CombinatorAdjacent
			sp.pos++
		case '~':
			comb = CombinatorSibling
			sp.pos++
		default:
			if !hadSpace {
				return sel, fmt.Errorf("selector %q: unexpected %q at %d", sel.Raw, sp.peek(), sp.pos)
			}
			comb = CombinatorDescendant
		}
		sp.skipSpace()
		if sp.eof() {
			return sel, fmt.Errorf("selector %q: dangling combinator", sel.Raw)
		}
	}

	for _, p := range sel.Parts {
		switch {
		case p.Combinator == CombinatorAdjacent || p.Combinator == CombinatorSibling:
			return sel, fmt.Errorf("%w: sibling combinator in %q", ErrUnsupportedSelector, sel.Raw)
		case len(p.PseudoClasses) > 0:
			return sel, fmt.Errorf("%w: pseudo-class :%s in %q", ErrUnsupportedSelector, p.PseudoClasses[0], sel.Raw)
		case p.Pseudo != PseudoNone:
			return sel, fmt.Errorf("%w: pseudo-element in %q", ErrUnsupportedSelector, sel.Raw)
		}
	}
	return sel, nil
}

type selectorParser struct {
	src string
	pos int
}

func (sp *selectorParser) eof() bool  { return sp.pos >= len(sp.src) }
func (sp *selectorParser) peek() byte { return sp.src[sp.pos] }

func (sp *selectorParser) skipSpace() bool {
	start := sp.pos
	for !sp.eof() && isSpace(sp.peek()) {
		sp.pos++
	}
	return sp.pos > start
}

func (sp *selectorParser) ident() string {
	start := sp.pos
	for !sp.eof() {
		ch := sp.peek()
		if ch == '\\' && sp.pos+1 < len(sp.src) {
			sp.pos += 2
			continue
		}
		if !isIdentChar(ch) {
			break
		}
		sp.pos++
	}
	return strings.ReplaceAll(sp.src[start:sp.pos], "\\", "")
}

func (sp *selectorParser) compound() (Compound, error) {
	var c Compound
	empty := true
	if !sp.eof() && sp.peek() == '*' {
		sp.pos++
		empty = false
	} else if name := sp.ident(); name != "" {
		c.Element = strings.ToLower(name)
		empty = false
	}

	for !sp.eof() {
		switch sp.peek() {
		case '#':
			sp.pos++
			if c.ID = sp.ident(); c.ID == "" {
				return c, errors.New("empty id")
			}
		case '.':
			sp.pos++
			cl := sp.ident()
			if cl == "" {
				return c, errors.New("empty class")
			}
			c.Classes = append(c.Classes, cl)
		case '[':
			sp.pos++
			a, err := sp.attr()
			if err != nil {
				return c, err
			}
			c.Attrs = append(c.Attrs, a)
		case ':':
			sp.pos++
			double := !sp.eof() && sp.peek() == ':'
			if double {
				sp.pos++
			}
			name := strings.ToLower(sp.ident())
			if name == "" {
				return c, errors.New("empty pseudo selector")
			}
			if !sp.eof() && sp.peek() == '(' {
				if err := sp.skipParens(); err != nil {
					return c, err
				}
			}
			switch {
			case name == "before" || name == "after":
				c.Pseudo = PseudoBefore
				if name == "after" {
					c.Pseudo = PseudoAfter
				}
			case double || name == "first-line" || name == "first-letter":
				c.Pseudo = PseudoOther
			default:
				c.PseudoClasses = append(c.PseudoClasses, name)
			}
		default:
			if empty {
				return c, fmt.Errorf("unexpected %q at %d", sp.peek(), sp.pos)
			}
			return c, nil
		}
		empty = false
	}
	if empty {
		return c, errors.New("empty compound")
	}
	return c, nil
}

func (sp *selectorParser) attr() (AttrMatch, error) {
	sp.skipSpace()
	a := AttrMatch{Name: strings.ToLower(sp.ident())}
	if a.Name == "" {
		return a, errors.New("empty attribute name")
	}
	sp.skipSpace()
	if sp.eof() {
		return a, errors.New("unterminated attribute selector")
	}
	if sp.peek() == ']' {
		sp.pos++
		return a, nil
	}

	ops := []struct {
		text string
		op   AttrOp
	}{
		{"~=", AttrIncludes}, {"|=", AttrDashMatch}, {"^=", AttrPrefix},
		{"$=", AttrSuffix}, {"*=", AttrSubstring}, {"=", AttrEquals},
	}
	matched := false
	for _, o := range ops {
		if strings.HasPrefix(sp.src[sp.pos:], o.text) {
			a.Op = o.op
			sp.pos += len(o.text)
			matched = true
			break
		}
	}
	if !matched {
		return a, fmt.Errorf("bad attribute operator at %d", sp.pos)
	}
	sp.skipSpace()
	if sp.eof() {
		return a, errors.New("unterminated attribute selector")
	}
	if q := sp.peek(); q == '"' || q == '\'' {
		end := strings.IndexByte(sp.src[sp.pos+1:], q)
		if end < 0 {
			return a, errors.New("unterminated attribute value")
		}
		a.Value = sp.src[sp.pos+1 : sp.pos+1+end]
		sp.pos += end + 2
	} else {
		a.Value = sp.ident()
	}
	sp.skipSpace()
	// case-sensitivity flags are accepted and ignored
	if !sp.eof() && (sp.peek() == 'i' || sp.peek() == 's') {
		sp.pos++
		sp.skipSpace()
	}
	if sp.eof() || sp.peek() != ']' {
		return a, errors.New("unterminated attribute selector")
	}
	sp.pos++
	return a, nil
}

func (sp *selectorParser) skipParens() error {
	depth := 0
	for !sp.eof() {
		switch sp.peek() {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				sp.pos++
				return nil
			}
		}
		sp.pos++
	}
	return errors.New("unbalanced parentheses")
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isIdentChar(ch byte) bool {
	return ch == '-' || ch == '_' || ch >= 0x80 ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}
