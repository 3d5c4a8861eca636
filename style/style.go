// Package style resolves cascaded CSS declarations into box margins and
// inherited text properties.
package style

import (
	"folio/css"
)

// Property is the closed set of properties layout understands.
type Property uint8

const (
	MarginTop Property = iota
	MarginRight
	MarginBottom
	MarginLeft
	PaddingTop
	PaddingRight
	PaddingBottom
	PaddingLeft
	FontWeight
	TextAlign
	FontStyle
	FontSize
	ListStyleType
	WhiteSpace

	numProperties
)

var propertyNames = [numProperties]string{
	"margin-top", "margin-right", "margin-bottom", "margin-left",
	"padding-top", "padding-right", "padding-bottom", "padding-left",
	"font-weight", "text-align", "font-style", "font-size",
	"list-style-type", "white-space",
}

func (p Property) String() string {
	if p < numProperties {
		return propertyNames[p]
	}
	return "unknown"
}

// PropertyByName returns property for CSS longhand name.
func PropertyByName(name string) (Property, bool) {
	for i, n := range propertyNames {
		if n == name {
			return Property(i), true
		}
	}
	return 0, false
}

// Style holds declarations applicable to a node, still unresolved.
type Style struct {
	values [numProperties]css.Value
	set    uint32
}

// Get returns declared value of the property.
func (s *Style) Get(p Property) (css.Value, bool) {
	if s.set&(1<<p) == 0 {
		return css.Value{}, false
	}
	return s.values[p], true
}

// Set stores value of the property replacing previous one.
func (s *Style) Set(p Property, v css.Value) {
	s.values[p] = v
	s.set |= 1 << p
}

// Len returns number of declared properties.
func (s *Style) Len() int {
	n := 0
	for p := range numProperties {
		if s.set&(1<<p) != 0 {
			n++
		}
	}
	return n
}

// apply stores declaration, shorthands are expanded into longhands, unknown
// properties are ignored.
func (s *Style) apply(d css.Declaration) {
	switch d.Property {
	case "margin":
		s.expandBox(MarginTop, d.Value)
	case "padding":
		s.expandBox(PaddingTop, d.Value)
	case "list-style":
		for _, part := range d.Value.Components() {
			if _, ok := listFormats[part.Keyword]; ok {
				s.Set(ListStyleType, part)
				return
			}
		}
	default:
		if p, ok := PropertyByName(d.Property); ok {
			s.Set(p, d.Value)
		}
	}
}

// expandBox expands 1 to 4 value box shorthand starting at top longhand, in
// top, right, bottom, left order.
func (s *Style) expandBox(top Property, v css.Value) {
	parts := v.Components()
	var t, r, b, l css.Value
	switch len(parts) {
	case 1:
		t, r, b, l = parts[0], parts[0], parts[0], parts[0]
	case 2:
		t, r, b, l = parts[0], parts[1], parts[0], parts[1]
	case 3:
		t, r, b, l = parts[0], parts[1], parts[2], parts[1]
	default:
		t, r, b, l = parts[0], parts[1], parts[2], parts[3]
	}
	s.Set(top, t)
	s.Set(top+1, r)
	s.Set(top+2, b)
	s.Set(top+3, l)
}

func em(v float64) css.Value { return css.Value{Value: v, Unit: "em"} }
func px(v float64) css.Value { return css.Value{Value: v, Unit: "px"} }
func kw(k string) css.Value  { return css.Value{Raw: k, Keyword: k} }

// Defaults returns user agent style for a tag.
func Defaults(tag string) Style {
	var s Style
	vertical := func(v css.Value) {
		s.Set(MarginTop, v)
		s.Set(MarginBottom, v)
	}
	heading := func(size, margin float64) {
		if size != 0 {
			s.Set(FontSize, em(size))
		}
		vertical(em(margin))
		s.Set(FontWeight, kw("bold"))
	}

	switch tag {
	case "p":
		vertical(em(1))
	case "h1":
		heading(2, 0.67)
	case "h2":
		heading(1.5, 0.83)
	case "h3":
		heading(1.17, 1)
	case "h4":
		heading(0, 1.33)
	case "h5":
		heading(0.83, 1.67)
	case "h6":
		heading(0.67, 2.33)
	case "dd":
		s.Set(MarginLeft, px(40))
	case "th":
		s.Set(FontWeight, kw("bold"))
		s.Set(TextAlign, kw("center"))
	case "blockquote":
		vertical(em(1))
		s.Set(MarginLeft, px(40))
		s.Set(MarginRight, px(40))
	case "em", "i", "cite", "var", "dfn":
		s.Set(FontStyle, kw("italic"))
	case "strong", "b":
		s.Set(FontWeight, kw("bold"))
	case "ul", "ol":
		vertical(em(1))
		if tag == "ul" {
			s.Set(ListStyleType, kw("disc"))
		} else {
			s.Set(ListStyleType, kw("decimal"))
		}
	case "pre":
		vertical(em(1))
		s.Set(WhiteSpace, kw("pre"))
	}
	return s
}
