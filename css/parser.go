package css

import (
	"bytes"
	"slices"
	"strconv"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Items:    make([]StylesheetItem, 0),
		Warnings: make([]string, 0),
	}

	// Log parsing start with source identifier if provided
	if len(source) > 0 && source[0] != "" {
		sheet.Source = source[0]
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	var currentSelectors []string

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or error
			if parser.Err() != nil && parser.Err().Error() != "EOF" {
				p.log.Debug("CSS parse error", zap.Error(parser.Err()))
			}
			return sheet

		case css.BeginAtRuleGrammar:
			atRule := string(data)
			switch atRule {
			case "@media":
				// Parse @media query and preserve the block in the AST
				mq := p.parseMediaQueryFromTokens(parser.Values())
				rules := p.parseMediaBlockRules(parser, sheet)
				p.log.Debug("Parsed @media block", zap.String("query", mq.Raw), zap.Int("rules", len(rules)))
				sheet.Items = append(sheet.Items, StylesheetItem{
					MediaBlock: &MediaBlock{Query: mq, Rules: rules},
				})
			case "@font-face":
				// Parse @font-face
				ff := p.parseFontFace(parser)
				sheet.Items = append(sheet.Items, StylesheetItem{FontFace: &ff})
			default:
				// Skip other @-rules with blocks
				p.skipAtRuleBlock(parser)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}
		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g., @import)
			atRule := string(data)
			if atRule == "@import" {
				url := extractImportURL(parser.Values())
				if url != "" {
					sheet.Items = append(sheet.Items, StylesheetItem{Import: &url})
					p.log.Debug("Parsed @import", zap.String("url", url))
				}
			} else {
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.BeginRulesetGrammar:
			// Collect selector tokens
			currentSelectors = p.parseSelectors(data, parser.Values())

		case css.DeclarationGrammar:
			// Property declaration - already handled in EndRulesetGrammar

		case css.EndRulesetGrammar:
			// End of ruleset - we need to re-parse to get declarations
			// This is handled differently - the declarations come before EndRulesetGrammar

		case css.QualifiedRuleGrammar:
			// This shouldn't happen in our flow, but handle it
			currentSelectors = p.parseSelectors(data, parser.Values())
		}

		// Check for declarations after BeginRulesetGrammar
		if gt == css.BeginRulesetGrammar {
			decls := p.parseDeclarations(parser, sheet)
			for _, rule := range p.buildRules(currentSelectors, decls, sheet) {
				sheet.Items = append(sheet.Items, StylesheetItem{Rule: &rule})
			}
			currentSelectors = nil
		}
	}
}

// ParseInline parses declaration list of a style attribute.
func (p *Parser) ParseInline(data []byte) []Declaration {
	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), true)
	sheet := &Stylesheet{}
	decls := p.parseDeclarations(parser, sheet)
	for _, w := range sheet.Warnings {
		p.log.Debug("Inline style", zap.String("warning", w))
	}
	return decls
}

// buildRules creates one rule per supported selector of a group, each rule
// gets its own copy of declarations.
func (p *Parser) buildRules(selectors []string, decls []Declaration, sheet *Stylesheet) []Rule {
	var rules []Rule
	for _, selStr := range selectors {
		sel, err := ParseSelector(selStr)
		if err != nil {
			sheet.Warnings = append(sheet.Warnings, err.Error())
			p.log.Debug("Skipping selector", zap.String("selector", selStr), zap.Error(err))
			continue
		}
		rules = append(rules, Rule{Selector: sel, Declarations: slices.Clone(decls)})
	}
	return rules
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			// url(something), the token data is the full url(...) string
			s := string(t.Data)
			// Strip url( prefix and ) suffix
			s = strings.TrimPrefix(s, "url(")
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		}
	}
	return ""
}

// parseSelectors extracts selector strings from token data.
func (p *Parser) parseSelectors(data []byte, values []css.Token) []string {
	// Build full selector string from data and values
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}

	return splitGroup(sb.String())
}

// splitGroup splits grouped selectors by top-level commas.
func splitGroup(s string) []string {
	var (
		selectors []string
		depth     int
		quote     rune
		start     int
	)
	add := func(part string) {
		if part = strings.TrimSpace(part); part != "" {
			selectors = append(selectors, part)
		}
	}
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[' || r == '(':
			depth++
		case r == ']' || r == ')':
			depth--
		case r == ',' && depth == 0:
			add(s[start:i])
			start = i + 1
		}
	}
	add(s[start:])
	return selectors
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(parser *css.Parser, sheet *Stylesheet) []Declaration {
	var decls []Declaration

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return decls

		case css.DeclarationGrammar:
			propName := strings.ToLower(string(data))
			values, important := stripImportant(parser.Values())
			if len(values) == 0 {
				sheet.Warnings = append(sheet.Warnings, "empty value for property: "+propName)
				continue
			}
			decls = append(decls, Declaration{
				Property:  propName,
				Value:     p.parsePropertyValue(values),
				Important: important,
			})

		case css.CustomPropertyGrammar:
			// CSS custom properties (--var) - skip for now
			continue
		}
	}
}

// stripImportant removes trailing "! important" tokens.
func stripImportant(tokens []css.Token) ([]css.Token, bool) {
	end := len(tokens)
	skipWS := func() {
		for end > 0 && tokens[end-1].TokenType == css.WhitespaceToken {
			end--
		}
	}
	skipWS()
	if end < 2 || tokens[end-1].TokenType != css.IdentToken || !strings.EqualFold(string(tokens[end-1].Data), "important") {
		return tokens, false
	}
	end--
	skipWS()
	if end == 0 || tokens[end-1].TokenType != css.DelimToken || string(tokens[end-1].Data) != "!" {
		return tokens, false
	}
	end--
	skipWS()
	return tokens[:end], true
}

// parsePropertyValue converts CSS tokens to a Value.
func (p *Parser) parsePropertyValue(tokens []css.Token) Value {
	if len(tokens) == 0 {
		return Value{}
	}

	// Build raw value string
	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			// Add space between non-whitespace tokens
			rawParts = append(rawParts, " ")
		}
	}
	raw := strings.TrimSpace(strings.Join(rawParts, ""))

	// Split into space separated groups, functions keep their arguments
	var groups [][]css.Token
	var cur []css.Token
	depth := 0
	for _, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
		case css.WhitespaceToken:
			if depth == 0 {
				if len(cur) > 0 {
					groups = append(groups, cur)
				}
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}

	if len(groups) == 1 {
		val := singleValue(groups[0])
		val.Raw = raw
		return val
	}

	val := Value{Raw: raw, Keyword: raw}
	for _, g := range groups {
		val.Parts = append(val.Parts, singleValue(g))
	}
	return val
}

// singleValue interprets a token group which has no top-level whitespace.
func singleValue(tokens []css.Token) Value {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	val := Value{Raw: sb.String()}
	if len(tokens) != 1 {
		// Functions and composite tokens (rgb(), url(), a,b) are kept raw
		val.Keyword = val.Raw
		return val
	}

	t := tokens[0]
	switch t.TokenType {
	case css.DimensionToken:
		val.Value, val.Unit = parseDimension(string(t.Data))
	case css.PercentageToken:
		val.Value, _ = strconv.ParseFloat(strings.TrimSuffix(string(t.Data), "%"), 64)
		val.Unit = "%"
	case css.NumberToken:
		val.Value, _ = strconv.ParseFloat(string(t.Data), 64)
	case css.IdentToken:
		val.Keyword = strings.ToLower(string(t.Data))
	case css.StringToken:
		val.Keyword = unquote(string(t.Data))
	case css.HashToken:
		// Color value
		val.Keyword = string(t.Data)
	default:
		val.Keyword = val.Raw
	}
	return val
}

// parseDimension extracts numeric value and unit from dimension token.
func parseDimension(s string) (float64, string) {
	// Find where number ends
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else {
			break
		}
	}

	if numEnd == 0 {
		return 0, ""
	}

	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	unit := strings.ToLower(s[numEnd:])
	return num, unit
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// parseFontFace parses an @font-face block.
func (p *Parser) parseFontFace(parser *css.Parser) FontFace {
	ff := FontFace{}

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			return ff

		case css.DeclarationGrammar:
			propName := string(data)
			values := parser.Values()
			if len(values) == 0 {
				continue
			}

			// Build value string
			var parts []string
			for _, v := range values {
				if v.TokenType != css.WhitespaceToken {
					parts = append(parts, string(v.Data))
				}
			}
			valStr := strings.Join(parts, " ")

			switch propName {
			case "font-family":
				ff.Family = unquote(valStr)
			case "src":
				ff.Src = valStr
			case "font-style":
				ff.Style = valStr
			case "font-weight":
				ff.Weight = valStr
			}
		}
	}
}

// parseMediaQueryFromTokens parses a media query from CSS tokens.
// Handles queries like "screen", "not print", "amzn-kf8 and not amzn-et".
func (p *Parser) parseMediaQueryFromTokens(tokens []css.Token) MediaQuery {
	mq := MediaQuery{}

	// Build raw string for logging
	var rawParts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			rawParts = append(rawParts, string(t.Data))
		} else if len(rawParts) > 0 {
			rawParts = append(rawParts, " ")
		}
	}
	mq.Raw = strings.TrimSpace(strings.Join(rawParts, ""))

	// Parse tokens into media query components
	// Format: [not] type [and [not] feature]...
	var idents []string
	for _, t := range tokens {
		if t.TokenType == css.IdentToken {
			idents = append(idents, strings.ToLower(string(t.Data)))
		}
	}

	if len(idents) == 0 {
		return mq
	}

	i := 0
	// Check for leading "not"
	if idents[i] == "not" {
		mq.Negated = true
		i++
	}

	// Get main media type
	if i < len(idents) {
		mq.Type = idents[i]
		i++
	}

	// Parse "and [not] feature" pairs
	for i < len(idents) {
		if idents[i] == "and" {
			i++
			if i >= len(idents) {
				break
			}

			feature := MediaFeature{}
			if idents[i] == "not" {
				feature.Negated = true
				i++
				if i >= len(idents) {
					break
				}
			}
			feature.Name = idents[i]
			mq.Features = append(mq.Features, feature)
			i++
		} else {
			i++
		}
	}

	return mq
}

// parseMediaBlockRules parses rules inside an @media block and returns them.
func (p *Parser) parseMediaBlockRules(parser *css.Parser, sheet *Stylesheet) []Rule {
	var rules []Rule

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			return rules

		case css.BeginAtRuleGrammar:
			// Nested @-rules are not supported
			p.skipAtRuleBlock(parser)

		case css.BeginRulesetGrammar:
			selectors := p.parseSelectors(data, parser.Values())
			decls := p.parseDeclarations(parser, sheet)
			rules = append(rules, p.buildRules(selectors, decls, sheet)...)
		}
	}
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
