// Package mf2 implements the MessageFormat 2 text syntax: a hand-written
// parser and a canonical serializer operating directly on the message
// data model.
package mf2

import (
	"fmt"
	"strings"

	"github.com/mozilla/moz-l10n-go/message"
)

// Parse parses MF2 message syntax into a Message. Parsing is
// all-or-nothing: on failure a *ParseError is returned and no message.
func Parse(source string) (message.Message, error) {
	p := &parser{source: []rune(source)}
	return p.parse()
}

type parser struct {
	source []rune
	pos    int
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{
		Msg:    fmt.Sprintf(format, args...),
		Pos:    p.pos,
		Source: string(p.source),
	}
}

func (p *parser) parse() (message.Message, error) {
	var msg message.Message
	var err error
	switch ch := p.skipOptSpace(); {
	case ch == '.':
		msg, err = p.complexMessage()
	case p.hasPrefix("{{"):
		var pattern message.Pattern
		pattern, err = p.quotedPattern()
		msg = &message.PatternMessage{Pattern: pattern}
	default:
		p.pos = 0
		var pattern message.Pattern
		pattern, err = p.pattern()
		msg = &message.PatternMessage{Pattern: pattern}
	}
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.source) {
		return nil, p.errorf("Extra content at message end")
	}
	return msg, nil
}

func (p *parser) complexMessage() (message.Message, error) {
	var declarations message.Declarations
	declared := map[string]bool{}
	var keyword string
	for {
		keyword = p.peekString(6)
		var name string
		var expr *message.Expression
		var err error
		switch keyword {
		case ".input":
			name, expr, err = p.inputDeclaration()
		case ".local":
			name, expr, err = p.localDeclaration()
			if err == nil {
				if ref, ok := expr.Arg.(message.VariableRef); ok {
					declared[ref.Name] = true
				}
			}
		default:
			keyword = ""
		}
		if keyword == "" {
			break
		}
		if err != nil {
			return nil, err
		}
		if expr.Function != "" {
			for _, opt := range expr.Options {
				if ref, ok := opt.Value.(message.VariableRef); ok {
					declared[ref.Name] = true
				}
			}
		}
		if declared[name] {
			return nil, p.errorf("Duplicate declaration for $%s", name)
		}
		declarations.Set(name, expr)
		declared[name] = true
		p.skipOptSpace()
	}

	if p.hasPrefix(".match") {
		selectors, err := p.matchStatement()
		if err != nil {
			return nil, err
		}
		for _, sel := range selectors {
			if err := checkSelectorAnnotation(declarations, sel); err != nil {
				return nil, p.errorf("%s", err.Error())
			}
		}
		msg := &message.SelectMessage{
			Declarations: declarations,
			Selectors:    selectors,
		}
		for p.pos < len(p.source) {
			keys, pattern, err := p.variant(len(selectors))
			if err != nil {
				return nil, err
			}
			if _, dup := msg.Variant(keys); dup {
				return nil, p.errorf("Duplicate variant with keys %s", keysString(keys))
			}
			msg.Variants = append(msg.Variants, message.Variant{Keys: keys, Pattern: pattern})
		}
		fallback := make([]message.VariantKey, len(selectors))
		for i := range fallback {
			fallback[i] = message.CatchallKey{}
		}
		if _, ok := msg.Variant(fallback); !ok {
			return nil, p.errorf("Missing fallback variant")
		}
		return msg, nil
	}

	pattern, err := p.quotedPattern()
	if err != nil {
		return nil, err
	}
	return &message.PatternMessage{Declarations: declarations, Pattern: pattern}, nil
}

// checkSelectorAnnotation resolves sel through the declaration chain and
// requires a function annotation at its end.
func checkSelectorAnnotation(declarations message.Declarations, sel message.VariableRef) error {
	name := sel.Name
	expr := declarations.Get(name)
	for expr != nil && expr.Function == "" {
		if ref, ok := expr.Arg.(message.VariableRef); ok && ref.Name != name {
			name = ref.Name
			expr = declarations.Get(name)
		} else {
			expr = nil
		}
	}
	if expr == nil {
		return fmt.Errorf("Missing selector annotation for $%s", sel.Name)
	}
	return nil
}

func (p *parser) inputDeclaration() (string, *message.Expression, error) {
	p.pos += len(".input")
	ch := p.skipOptSpace()
	if err := p.expect('{', ch); err != nil {
		return "", nil, err
	}
	part, err := p.expressionOrMarkup()
	if err != nil {
		return "", nil, err
	}
	expr, ok := part.(*message.Expression)
	if !ok {
		return "", nil, p.errorf("Variable argument required for .input")
	}
	ref, ok := expr.Arg.(message.VariableRef)
	if !ok {
		return "", nil, p.errorf("Variable argument required for .input")
	}
	return ref.Name, expr, nil
}

func (p *parser) localDeclaration() (string, *message.Expression, error) {
	p.pos += len(".local")
	if !p.reqSpace() || p.char() != '$' {
		return "", nil, p.errorf("Expected $ with leading space")
	}
	name, err := p.name(1)
	if err != nil {
		return "", nil, err
	}
	if err := p.expect('=', p.skipOptSpace()); err != nil {
		return "", nil, err
	}
	if err := p.expect('{', p.skipOptSpace()); err != nil {
		return "", nil, err
	}
	part, err := p.expressionOrMarkup()
	if err != nil {
		return "", nil, err
	}
	expr, ok := part.(*message.Expression)
	if !ok {
		return "", nil, p.errorf("Markup is not a valid .local value")
	}
	if ref, ok := expr.Arg.(message.VariableRef); ok && ref.Name == name {
		return "", nil, p.errorf("A .local declaration cannot be self-referential")
	}
	return name, expr, nil
}

func (p *parser) matchStatement() ([]message.VariableRef, error) {
	p.pos += len(".match")
	var names []string
	hasSpace := p.reqSpace()
	for hasSpace && p.char() == '$' {
		name, err := p.name(1)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		hasSpace = p.reqSpace()
	}
	if len(names) == 0 {
		return nil, p.errorf("At least one variable reference is required for .match")
	}
	if !hasSpace {
		return nil, p.errorf("Expected space")
	}
	selectors := make([]message.VariableRef, len(names))
	for i, name := range names {
		selectors[i] = message.VariableRef{Name: name}
	}
	return selectors, nil
}

func (p *parser) variant(numSel int) ([]message.VariantKey, message.Pattern, error) {
	var keys []message.VariantKey
	ch := p.char()
	for ch != '{' && ch != 0 {
		if ch == '*' {
			keys = append(keys, message.CatchallKey{})
			p.pos++
		} else {
			lit, err := p.literal()
			if err != nil {
				return nil, nil, err
			}
			keys = append(keys, message.StringKey(lit))
		}
		if !p.reqSpace() {
			break
		}
		ch = p.char()
	}
	if len(keys) != numSel {
		return nil, nil, p.errorf("Variant key mismatch, expected %d but found %d", numSel, len(keys))
	}
	pattern, err := p.quotedPattern()
	if err != nil {
		return nil, nil, err
	}
	return keys, pattern, nil
}

func (p *parser) quotedPattern() (message.Pattern, error) {
	if !p.hasPrefix("{{") {
		return nil, p.errorf("Expected {{")
	}
	p.pos += 2
	pattern, err := p.pattern()
	if err != nil {
		return nil, err
	}
	if !p.hasPrefix("}}") {
		return nil, p.errorf("Expected }}")
	}
	p.pos += 2
	p.skipOptSpace()
	return pattern, nil
}

func (p *parser) pattern() (message.Pattern, error) {
	pattern := message.Pattern{}
	for {
		ch := p.char()
		if ch == 0 || ch == '}' {
			return pattern, nil
		}
		if ch == '{' {
			p.pos++
			part, err := p.expressionOrMarkup()
			if err != nil {
				return nil, err
			}
			pattern = append(pattern, part)
		} else {
			text, err := p.text()
			if err != nil {
				return nil, err
			}
			pattern = append(pattern, message.Text(text))
		}
	}
}

func (p *parser) text() (string, error) {
	var b strings.Builder
	atEsc := false
	for p.pos < len(p.source) {
		ch := p.source[p.pos]
		if atEsc {
			if !isEscapable(ch) {
				return "", p.errorf("Invalid escape: \\%c", ch)
			}
			b.WriteRune(ch)
			atEsc = false
		} else if ch == 0 {
			return "", p.errorf("NUL character is not allowed")
		} else if ch == '\\' {
			atEsc = true
		} else if ch == '{' || ch == '}' {
			break
		} else {
			b.WriteRune(ch)
		}
		p.pos++
	}
	return b.String(), nil
}

func (p *parser) expressionOrMarkup() (message.PatternPart, error) {
	ch := p.skipOptSpace()
	var part message.PatternPart
	var err error
	if ch == '#' || ch == '/' {
		part, err = p.markupBody(ch)
	} else {
		part, err = p.expressionBody(ch)
	}
	if err != nil {
		return nil, err
	}
	if err := p.expect('}', 0); err != nil {
		return nil, err
	}
	return part, nil
}

func (p *parser) expressionBody(ch rune) (*message.Expression, error) {
	var arg message.Value
	argEnd := p.pos
	var err error
	if ch == '$' {
		ref, err := p.variable()
		if err != nil {
			return nil, err
		}
		arg = ref
		argEnd = p.pos
		ch = p.skipOptSpace()
	} else if ch != ':' {
		lit, err := p.literal()
		if err != nil {
			return nil, err
		}
		arg = message.Literal(lit)
		argEnd = p.pos
		ch = p.skipOptSpace()
	}
	var function string
	var options message.Options
	if ch == ':' {
		if arg != nil && p.pos == argEnd {
			return nil, p.errorf("Expected space")
		}
		function, err = p.identifier(1)
		if err != nil {
			return nil, err
		}
		options, err = p.options()
		if err != nil {
			return nil, err
		}
	} else {
		p.pos = argEnd
	}
	attributes, err := p.attributes()
	if err != nil {
		return nil, err
	}
	p.skipOptSpace()
	return &message.Expression{
		Arg:        arg,
		Function:   function,
		Options:    options,
		Attributes: attributes,
	}, nil
}

func (p *parser) markupBody(ch rune) (*message.Markup, error) {
	var kind message.MarkupKind
	switch ch {
	case '#':
		kind = message.MarkupOpen
	case '/':
		kind = message.MarkupClose
	default:
		return nil, p.errorf("Expected # or /")
	}
	name, err := p.identifier(1)
	if err != nil {
		return nil, err
	}
	options, err := p.options()
	if err != nil {
		return nil, err
	}
	attributes, err := p.attributes()
	if err != nil {
		return nil, err
	}
	if p.skipOptSpace() == '/' {
		if kind != message.MarkupOpen {
			return nil, p.errorf("Expected }")
		}
		kind = message.MarkupStandalone
		p.pos++
	}
	return &message.Markup{
		Kind:       kind,
		Name:       name,
		Options:    options,
		Attributes: attributes,
	}, nil
}

func (p *parser) options() (message.Options, error) {
	var options message.Options
	optEnd := p.pos
	for p.reqSpace() {
		ch := p.char()
		if ch == 0 || ch == '@' || ch == '/' || ch == '}' {
			p.pos = optEnd
			break
		}
		id, err := p.identifier(0)
		if err != nil {
			return nil, err
		}
		if options.Get(id) != nil {
			return nil, p.errorf("Duplicate option name %s", id)
		}
		if err := p.expect('=', p.skipOptSpace()); err != nil {
			return nil, err
		}
		var value message.Value
		if p.skipOptSpace() == '$' {
			value, err = p.variable()
		} else {
			var lit string
			lit, err = p.literal()
			value = message.Literal(lit)
		}
		if err != nil {
			return nil, err
		}
		options.Set(id, value)
		optEnd = p.pos
	}
	return options, nil
}

func (p *parser) attributes() (message.Attributes, error) {
	var attributes message.Attributes
	attrEnd := p.pos
	for p.reqSpace() {
		if p.char() != '@' {
			p.pos = attrEnd
			break
		}
		id, err := p.identifier(1)
		if err != nil {
			return nil, err
		}
		idEnd := p.pos
		if _, dup := attributes.Get(id); dup {
			return nil, p.errorf("Duplicate attribute name %s", id)
		}
		if p.skipOptSpace() == '=' {
			p.pos++
			p.skipOptSpace()
			lit, err := p.literal()
			if err != nil {
				return nil, err
			}
			attributes.Set(id, message.String(lit))
		} else {
			p.pos = idEnd
			attributes.Set(id, nil)
		}
		attrEnd = p.pos
	}
	return attributes, nil
}

func (p *parser) variable() (message.VariableRef, error) {
	name, err := p.name(1)
	if err != nil {
		return message.VariableRef{}, err
	}
	return message.VariableRef{Name: name}, nil
}

func (p *parser) literal() (string, error) {
	if p.char() == '|' {
		return p.quotedLiteral()
	}
	return p.unquotedLiteral()
}

func (p *parser) quotedLiteral() (string, error) {
	p.pos++
	var b strings.Builder
	atEsc := false
	for p.pos < len(p.source) {
		ch := p.source[p.pos]
		p.pos++
		if atEsc {
			if !isEscapable(ch) {
				return "", p.errorf("Invalid escape: \\%c", ch)
			}
			b.WriteRune(ch)
			atEsc = false
		} else if ch == 0 {
			return "", p.errorf("NUL character is not allowed")
		} else if ch == '\\' {
			atEsc = true
		} else if ch == '|' {
			return b.String(), nil
		} else {
			b.WriteRune(ch)
		}
	}
	return "", p.errorf("Expected |")
}

func (p *parser) unquotedLiteral() (string, error) {
	if end := p.scanNumber(); end > p.pos {
		lit := string(p.source[p.pos:end])
		p.pos = end
		return lit, nil
	}
	if end := p.scanName(); end > p.pos {
		lit := string(p.source[p.pos:end])
		p.pos = end
		return lit, nil
	}
	return "", p.errorf("Invalid name or number")
}

// scanNumber returns the end of a number literal starting at p.pos,
// or p.pos if there is none.
func (p *parser) scanNumber() int {
	i := p.pos
	if i < len(p.source) && p.source[i] == '-' {
		i++
	}
	switch {
	case i < len(p.source) && p.source[i] == '0':
		i++
	case i < len(p.source) && p.source[i] >= '1' && p.source[i] <= '9':
		for i < len(p.source) && isDigit(p.source[i]) {
			i++
		}
	default:
		return p.pos
	}
	if i+1 < len(p.source) && p.source[i] == '.' && isDigit(p.source[i+1]) {
		i += 2
		for i < len(p.source) && isDigit(p.source[i]) {
			i++
		}
	}
	if i < len(p.source) && (p.source[i] == 'e' || p.source[i] == 'E') {
		j := i + 1
		if j < len(p.source) && (p.source[j] == '+' || p.source[j] == '-') {
			j++
		}
		if j < len(p.source) && isDigit(p.source[j]) {
			for j < len(p.source) && isDigit(p.source[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

// scanName returns the end of a name starting at p.pos, or p.pos.
func (p *parser) scanName() int {
	i := p.pos
	if i >= len(p.source) || !isNameStart(p.source[i]) {
		return p.pos
	}
	i++
	for i < len(p.source) && isNameChar(p.source[i]) {
		i++
	}
	return i
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func (p *parser) identifier(offset int) (string, error) {
	ns, err := p.name(offset)
	if err != nil {
		return "", err
	}
	if p.char() != ':' {
		return ns, nil
	}
	name, err := p.name(1)
	if err != nil {
		return "", err
	}
	return ns + ":" + name, nil
}

func (p *parser) name(offset int) (string, error) {
	p.pos += offset
	p.skipBidi()
	end := p.scanName()
	if end == p.pos {
		return "", p.errorf("Invalid name")
	}
	name := string(p.source[p.pos:end])
	p.pos = end
	p.skipBidi()
	return name, nil
}

// reqSpace consumes required whitespace, returning false and restoring
// the position if none is present.
func (p *parser) reqSpace() bool {
	start := p.pos
	ch := p.skipBidi()
	if !isSpace(ch) {
		p.pos = start
		return false
	}
	for isSpace(ch) || isBidi(ch) {
		p.pos++
		ch = p.char()
	}
	return true
}

func (p *parser) skipOptSpace() rune {
	ch := p.char()
	for isSpace(ch) || isBidi(ch) {
		p.pos++
		ch = p.char()
	}
	return ch
}

func (p *parser) skipBidi() rune {
	ch := p.char()
	for isBidi(ch) {
		p.pos++
		ch = p.char()
	}
	return ch
}

// expect consumes the expected character. If ch is non-zero it is the
// already-peeked current character.
func (p *parser) expect(exp rune, ch rune) error {
	if ch == 0 {
		ch = p.char()
	}
	if ch != exp {
		return p.errorf("Expected %c", exp)
	}
	p.pos++
	return nil
}

func (p *parser) char() rune {
	if p.pos >= len(p.source) {
		return 0
	}
	return p.source[p.pos]
}

func (p *parser) peekString(n int) string {
	if p.pos >= len(p.source) {
		return ""
	}
	end := p.pos + n
	if end > len(p.source) {
		end = len(p.source)
	}
	return string(p.source[p.pos:end])
}

func (p *parser) hasPrefix(s string) bool {
	return strings.HasPrefix(string(p.source[min(p.pos, len(p.source)):]), s)
}

func keysString(keys []message.VariantKey) string {
	parts := make([]string, len(keys))
	for i, key := range keys {
		if sk, ok := key.(message.StringKey); ok {
			parts[i] = string(sk)
		} else {
			parts[i] = "*"
		}
	}
	return strings.Join(parts, " ")
}
