package style

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"folio/css"
	"folio/glyph"
	"folio/markup"
)

// listFormats are recognized list-style-type keywords.
var listFormats = map[string]struct{}{
	"none": {}, "disc": {}, "circle": {}, "square": {}, "decimal": {},
	"lower-alpha": {}, "upper-alpha": {}, "lower-latin": {}, "upper-latin": {},
	"lower-roman": {}, "upper-roman": {},
}

// IsListFormat reports whether keyword is a supported list-style-type.
func IsListFormat(keyword string) bool {
	_, ok := listFormats[keyword]
	return ok
}

type indexedRule struct {
	rule        css.Rule
	rightmost   css.Compound
	specificity css.Specificity
	order       int // global source order: sheet order then rule order
}

// Resolver applies user agent defaults and an ordered list of stylesheets to
// markup nodes. It is immutable after creation.
type Resolver struct {
	log    *zap.Logger
	parser *css.Parser
	rules  []indexedRule
}

// NewResolver prepares stylesheets (document order) for matching, rules of
// @media blocks not applicable to screen are dropped.
func NewResolver(sheets []*css.Stylesheet, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Resolver{
		log:    log.Named("style"),
		parser: css.NewParser(log),
	}
	for _, sheet := range sheets {
		for _, rule := range sheet.Rules(css.MediaScreen) {
			r.rules = append(r.rules, indexedRule{
				rule:        rule,
				rightmost:   rule.Selector.Rightmost(),
				specificity: rule.Selector.Specificity(),
				order:       len(r.rules),
			})
		}
	}
	r.log.Debug("Resolver ready", zap.Int("sheets", len(sheets)), zap.Int("rules", len(r.rules)))
	return r
}

type match struct {
	specificity css.Specificity
	order       int
	decls       []css.Declaration
}

// Compute returns style of the node: user agent defaults overridden by
// matching rules in (specificity, source order) order, then inline style
// attribute, then important declarations in the same order.
func (r *Resolver) Compute(n markup.Node, ancestors Ancestors) Style {
	s := Defaults(n.Tag())
	presentationalHints(&s, n)

	var (
		matches []match
		elems   []css.Element
	)
	for i := range r.rules {
		ir := &r.rules[i]
		if !quickMatch(ir.rightmost, n) {
			continue
		}
		if elems == nil {
			elems = ancestors.elements()
		}
		if ir.rule.Selector.Matches(n, elems) {
			matches = append(matches, match{specificity: ir.specificity, order: ir.order, decls: ir.rule.Declarations})
		}
	}
	slices.SortFunc(matches, func(a, b match) int {
		if c := cmp.Compare(a.specificity, b.specificity); c != 0 {
			return c
		}
		return cmp.Compare(a.order, b.order)
	})

	var inline []css.Declaration
	if attr, ok := n.Attr("style"); ok && attr != "" {
		inline = r.parser.ParseInline([]byte(attr))
	}

	for _, important := range []bool{false, true} {
		for _, m := range matches {
			for _, d := range m.decls {
				if d.Important == important {
					s.apply(d)
				}
			}
		}
		for _, d := range inline {
			if d.Important == important {
				s.apply(d)
			}
		}
	}
	return s
}

// presentationalHints maps legacy attributes to declarations, they lose to
// any author rule.
func presentationalHints(s *Style, n markup.Node) {
	if n.Tag() == "ol" {
		if v, ok := n.Attr("type"); ok {
			switch v {
			case "1":
				s.Set(ListStyleType, kw("decimal"))
			case "a":
				s.Set(ListStyleType, kw("lower-alpha"))
			case "A":
				s.Set(ListStyleType, kw("upper-alpha"))
			case "i":
				s.Set(ListStyleType, kw("lower-roman"))
			case "I":
				s.Set(ListStyleType, kw("upper-roman"))
			}
		}
	}
	if v, ok := n.Attr("align"); ok {
		s.Set(TextAlign, kw(strings.ToLower(v)))
	}
}

// quickMatch rejects rules whose rightmost compound cannot match the node by
// looking at tag, id and classes only.
func quickMatch(c css.Compound, n markup.Node) bool {
	if c.Element != "" && !strings.EqualFold(c.Element, n.Tag()) {
		return false
	}
	if c.ID != "" {
		if id, _ := n.Attr("id"); id != c.ID {
			return false
		}
	}
	if len(c.Classes) > 0 {
		if _, ok := n.Attr("class"); !ok {
			return false
		}
	}
	return true
}

// Resolve computes style of the node and applies it to the parse state. It
// returns additive margins (padding included) and state for node children.
// Unsupported units are reported in returned error, they never stop
// resolution.
func (r *Resolver) Resolve(n markup.Node, ps ParseState) (Margins, ParseState, error) {
	s := r.Compute(n, ps.Ancestors)

	var errs error
	if v, ok := s.Get(FontSize); ok {
		size, err := ResolveFontSize(v, ps.FontSize, ps.RootFontSize)
		errs = multierr.Append(errs, err)
		ps.FontSize = size
	}
	if v, ok := s.Get(FontWeight); ok {
		ps.FontWeight = ResolveFontWeight(v, ps.FontWeight)
	}
	if v, ok := s.Get(FontStyle); ok {
		switch v.Keyword {
		case "italic", "oblique":
			ps.FontStyle = glyph.StyleItalic
		case "normal":
			ps.FontStyle = glyph.StyleNormal
		}
	}
	if v, ok := s.Get(TextAlign); ok {
		switch v.Keyword {
		case "left", "start":
			ps.Align = AlignLeft
		case "right", "end":
			ps.Align = AlignRight
		case "center":
			ps.Align = AlignCenter
		case "justify":
			ps.Align = AlignJustify
		}
	}
	if v, ok := s.Get(WhiteSpace); ok {
		switch v.Keyword {
		case "pre", "pre-wrap":
			ps.Pre = true
		case "normal", "nowrap", "pre-line":
			ps.Pre = false
		}
	}
	if v, ok := s.Get(ListStyleType); ok && IsListFormat(v.Keyword) {
		ps.ListStyle = v.Keyword
	}

	ctx := LengthContext{FontSize: ps.FontSize, RootFontSize: ps.RootFontSize, Percent: ps.Width}
	side := func(margin, padding Property) float64 {
		var total float64
		for _, p := range []Property{margin, padding} {
			v, ok := s.Get(p)
			if !ok {
				continue
			}
			l, err := ResolveLength(v, ctx)
			if err != nil {
				r.log.Debug("Unable to resolve length",
					zap.String("tag", n.Tag()), zap.Stringer("property", p), zap.Error(err))
				errs = multierr.Append(errs, err)
			}
			total += l
		}
		return total
	}
	m := Margins{
		Top:    side(MarginTop, PaddingTop),
		Right:  side(MarginRight, PaddingRight),
		Bottom: side(MarginBottom, PaddingBottom),
		Left:   side(MarginLeft, PaddingLeft),
	}
	return m, ps, errs
}

// ListStart returns first ordinal of an ordered list honoring start attribute.
func ListStart(n markup.Node) int {
	if v, ok := n.Attr("start"); ok {
		if start, err := strconv.Atoi(v); err == nil {
			return start
		}
	}
	return 1
}
