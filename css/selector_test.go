package css_test

import (
	"errors"
	"testing"

	"folio/css"
)

type testElem struct {
	tag   string
	attrs map[string]string
}

func (e testElem) Tag() string { return e.tag }

func (e testElem) Attr(name string) (string, bool) {
	v, ok := e.attrs[name]
	return v, ok
}

func el(tag string, kv ...string) css.Element {
	e := testElem{tag: tag, attrs: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		e.attrs[kv[i]] = kv[i+1]
	}
	return e
}

func TestParseSelector_Specificity(t *testing.T) {
	tests := []struct {
		sel                 string
		ids, classes, elems int
	}{
		{"p", 0, 0, 1},
		{"*", 0, 0, 0},
		{".note", 0, 1, 0},
		{"p.note.big", 0, 2, 1},
		{"#a", 1, 0, 0},
		{"div#a p.x", 1, 1, 2},
		{"a[href][lang|=en]", 0, 2, 1},
		{"body > section  p", 0, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			sel, err := css.ParseSelector(tt.sel)
			if err != nil {
				t.Fatalf("ParseSelector: %v", err)
			}
			ids, classes, elems := sel.Specificity().Components()
			if ids != tt.ids || classes != tt.classes || elems != tt.elems {
				t.Errorf("specificity = (%d,%d,%d), want (%d,%d,%d)", ids, classes, elems, tt.ids, tt.classes, tt.elems)
			}
		})
	}

	a, _ := css.ParseSelector("#x")
	b, _ := css.ParseSelector("p.a.b.c")
	if a.Specificity() <= b.Specificity() {
		t.Error("id selector must be more specific than any number of classes")
	}
}

func TestParseSelector_Errors(t *testing.T) {
	unsupported := []string{"h1 + p", "h1 ~ p", "a:hover", "p::before", "li:nth-child(2n+1)"}
	for _, s := range unsupported {
		if _, err := css.ParseSelector(s); !errors.Is(err, css.ErrUnsupportedSelector) {
			t.Errorf("%q: expected ErrUnsupportedSelector, got %v", s, err)
		}
	}

	invalid := []string{"", "p >", "[href", "p..x", "#"}
	for _, s := range invalid {
		_, err := css.ParseSelector(s)
		if err == nil || errors.Is(err, css.ErrUnsupportedSelector) {
			t.Errorf("%q: expected syntax error, got %v", s, err)
		}
	}
}

func TestSelector_Matches(t *testing.T) {
	html := el("html")
	body := el("body")
	div := el("div", "class", "chapter main", "id", "c1")
	section := el("section")
	p := el("p", "class", "note", "lang", "en-US")

	tests := []struct {
		sel       string
		subject   css.Element
		ancestors []css.Element
		want      bool
	}{
		{"p", p, nil, true},
		{"P", p, nil, true},
		{"span", p, nil, false},
		{"*", p, nil, true},
		{".note", p, nil, true},
		{"p.other", p, nil, false},
		{"div.chapter.main", div, nil, true},
		{"#c1", div, nil, true},
		{"#C1", div, nil, false},
		{"[lang|=en]", p, nil, true},
		{"[lang^=en]", p, nil, true},
		{"[lang$=US]", p, nil, true},
		{"[lang*=n-U]", p, nil, true},
		{"[lang=en]", p, nil, false},
		{"[class~=main]", div, nil, true},
		{"[title]", p, nil, false},
		{"div p", p, []css.Element{html, body, div, section}, true},
		{"div > p", p, []css.Element{html, body, div, section}, false},
		{"section > p", p, []css.Element{html, body, div, section}, true},
		{"body div > section > p", p, []css.Element{html, body, div, section}, true},
		{"html > div p", p, []css.Element{html, body, div, section}, false},
		{"html > body p", p, []css.Element{html, body, div, section}, true},
		{"div p", p, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			sel, err := css.ParseSelector(tt.sel)
			if err != nil {
				t.Fatalf("ParseSelector: %v", err)
			}
			if got := sel.Matches(tt.subject, tt.ancestors); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}
