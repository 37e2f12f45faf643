package syntax

import (
	"fmt"
	"strings"
)

// ParseError describes a syntax error at a rune offset of the source.
// Parse errors never escape Parse; they surface as Junk annotations.
type ParseError struct {
	Msg string
	Pos int
}

func (e *ParseError) Error() string { return e.Msg }

// Parse parses FTL source into a Resource. Unparseable spans become Junk
// entries; the caller decides whether those are fatal.
func Parse(source string) *Resource {
	p := &parser{src: []rune(strings.ReplaceAll(source, "\r\n", "\n"))}
	res := &Resource{}
	p.skipBlankBlock()
	var lastComment *Comment
	for p.pos < len(p.src) {
		entry := p.getEntryOrJunk()
		blank := p.skipBlankBlock()
		if c, ok := entry.(*Comment); ok && blank == "" && p.pos < len(p.src) {
			// A comment directly above a message or term documents it.
			lastComment = c
			continue
		}
		if lastComment != nil {
			switch e := entry.(type) {
			case *Message:
				e.Comment = lastComment
			case *Term:
				e.Comment = lastComment
			default:
				res.Body = append(res.Body, lastComment)
			}
			lastComment = nil
		}
		res.Body = append(res.Body, entry)
	}
	if lastComment != nil {
		res.Body = append(res.Body, lastComment)
	}
	return res
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Pos: p.pos}
}

func (p *parser) charAt(i int) rune {
	if i < len(p.src) {
		return p.src[i]
	}
	return 0
}

func (p *parser) current() rune { return p.charAt(p.pos) }

func (p *parser) expectChar(c rune) error {
	if p.current() == c {
		p.pos++
		return nil
	}
	return p.errorf("Expected character %q", c)
}

func (p *parser) expectLineEnd() error {
	switch p.current() {
	case 0:
		return nil
	case '\n':
		p.pos++
		return nil
	}
	return p.errorf("Expected a line end")
}

func (p *parser) skipBlankInline() {
	for p.current() == ' ' {
		p.pos++
	}
}

func (p *parser) skipBlank() {
	for c := p.current(); c == ' ' || c == '\n'; c = p.current() {
		p.pos++
	}
}

// skipBlankBlock consumes fully blank lines and returns the newlines
// consumed, one per line.
func (p *parser) skipBlankBlock() string {
	var b strings.Builder
	for {
		lineStart := p.pos
		p.skipBlankInline()
		if p.current() != '\n' {
			p.pos = lineStart
			return b.String()
		}
		p.pos++
		b.WriteByte('\n')
	}
}

func (p *parser) getEntryOrJunk() Entry {
	start := p.pos
	entry, err := p.getEntry()
	if err == nil {
		// Consume the entry's own line end, so that a following blank
		// line is seen as such by the comment attachment logic.
		switch p.current() {
		case 0:
			return entry
		case '\n':
			p.pos++
			return entry
		}
		err = p.errorf("Expected a line end")
	}
	// Recover at the start of the next line that could begin an entry.
	for p.pos < len(p.src) {
		if p.src[p.pos] == '\n' && p.pos+1 < len(p.src) {
			if c := p.src[p.pos+1]; isIDStart(c) || c == '-' || c == '#' {
				p.pos++
				break
			}
		}
		p.pos++
	}
	return &Junk{Content: string(p.src[start:p.pos]), Annotations: []string{err.Error()}}
}

func (p *parser) getEntry() (Entry, error) {
	switch c := p.current(); {
	case c == '#':
		return p.getComment()
	case c == '-':
		return p.getTerm()
	case isIDStart(c):
		return p.getMessage()
	default:
		return nil, p.errorf("Expected an entry start")
	}
}

// getComment reads one or more adjacent comment lines of the same level.
func (p *parser) getComment() (Entry, error) {
	level := -1
	var lines []string
	for {
		max := 3
		if level != -1 {
			max = level
		}
		n := 0
		for n < max && p.current() == '#' {
			p.pos++
			n++
		}
		if level == -1 {
			level = n
		}
		var line string
		if c := p.current(); c != '\n' && c != 0 {
			if c != ' ' {
				return nil, p.errorf("Expected a space after the comment sign")
			}
			p.pos++
			start := p.pos
			for p.current() != '\n' && p.current() != 0 {
				p.pos++
			}
			line = string(p.src[start:p.pos])
		}
		lines = append(lines, line)
		if p.current() != '\n' {
			break
		}
		q := p.pos + 1
		m := 0
		for q < len(p.src) && p.src[q] == '#' {
			q++
			m++
		}
		if m != level || (q < len(p.src) && p.src[q] != ' ' && p.src[q] != '\n') {
			break
		}
		p.pos++
	}
	content := strings.Join(lines, "\n")
	switch level {
	case 2:
		return &GroupComment{Content: content}, nil
	case 3:
		return &ResourceComment{Content: content}, nil
	default:
		return &Comment{Content: content}, nil
	}
}

func (p *parser) getMessage() (Entry, error) {
	id, err := p.getIdentifier()
	if err != nil {
		return nil, err
	}
	p.skipBlankInline()
	if err := p.expectChar('='); err != nil {
		return nil, err
	}
	value, err := p.maybeGetPattern()
	if err != nil {
		return nil, err
	}
	attrs, err := p.getAttributes()
	if err != nil {
		return nil, err
	}
	if value == nil && len(attrs) == 0 {
		return nil, p.errorf("Expected message %q to have a value or attributes", id.Name)
	}
	return &Message{ID: id, Value: value, Attributes: attrs}, nil
}

func (p *parser) getTerm() (Entry, error) {
	if err := p.expectChar('-'); err != nil {
		return nil, err
	}
	id, err := p.getIdentifier()
	if err != nil {
		return nil, err
	}
	p.skipBlankInline()
	if err := p.expectChar('='); err != nil {
		return nil, err
	}
	value, err := p.maybeGetPattern()
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, p.errorf("Expected term %q to have a value", id.Name)
	}
	attrs, err := p.getAttributes()
	if err != nil {
		return nil, err
	}
	return &Term{ID: id, Value: value, Attributes: attrs}, nil
}

func (p *parser) getAttributes() ([]*Attribute, error) {
	var attrs []*Attribute
	for {
		q := p.pos
		for q < len(p.src) && (p.src[q] == ' ' || p.src[q] == '\n') {
			q++
		}
		if q >= len(p.src) || p.src[q] != '.' {
			return attrs, nil
		}
		p.pos = q
		attr, err := p.getAttribute()
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, attr)
	}
}

func (p *parser) getAttribute() (*Attribute, error) {
	if err := p.expectChar('.'); err != nil {
		return nil, err
	}
	id, err := p.getIdentifier()
	if err != nil {
		return nil, err
	}
	p.skipBlankInline()
	if err := p.expectChar('='); err != nil {
		return nil, err
	}
	value, err := p.maybeGetPattern()
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, p.errorf("Expected attribute %q to have a value", id.Name)
	}
	return &Attribute{ID: id, Value: value}, nil
}

func (p *parser) getIdentifier() (Identifier, error) {
	if !isIDStart(p.current()) {
		return Identifier{}, p.errorf("Expected an identifier")
	}
	start := p.pos
	p.pos++
	for isIDChar(p.current()) {
		p.pos++
	}
	return Identifier{Name: string(p.src[start:p.pos])}, nil
}

// maybeGetPattern reads a pattern starting either on the current line or,
// indented, on the following lines. Returns nil when no value follows.
func (p *parser) maybeGetPattern() (*Pattern, error) {
	q := p.pos
	for q < len(p.src) && p.src[q] == ' ' {
		q++
	}
	if q < len(p.src) && p.src[q] != '\n' {
		p.pos = q
		return p.getPattern(-1)
	}
	if content, _, indent, ok := p.scanContinuation(p.pos); ok {
		p.pos = content
		return p.getPattern(indent)
	}
	return nil, nil
}

// scanContinuation looks past blank lines for a pattern continuation: an
// indented line whose first char can continue a pattern, or any line
// starting a placeable. It returns the position of the first content
// char, the blank run (newlines plus final indent), and the indent width.
func (p *parser) scanContinuation(from int) (int, string, int, bool) {
	var blank strings.Builder
	q := from
	for {
		r := q
		for r < len(p.src) && p.src[r] == ' ' {
			r++
		}
		if r == len(p.src) {
			return 0, "", 0, false
		}
		if p.src[r] == '\n' {
			blank.WriteByte('\n')
			q = r + 1
			continue
		}
		indent := r - q
		c := p.src[r]
		if c != '{' && (indent == 0 || c == '}' || c == '.' || c == '[' || c == '*') {
			return 0, "", 0, false
		}
		blank.WriteString(strings.Repeat(" ", indent))
		return r, blank.String(), indent, true
	}
}

type patternItem struct {
	el        PatternElement
	indent    string
	isIndent  bool
	indentLen int
}

// getPattern reads pattern elements until the pattern can no longer
// continue, then removes the common indentation of its block lines.
// firstIndent is the indent of the first line for block patterns, or -1
// when the pattern starts inline.
func (p *parser) getPattern(firstIndent int) (*Pattern, error) {
	var items []patternItem
	common := -1
	if firstIndent >= 0 {
		items = append(items, patternItem{
			isIndent:  true,
			indent:    strings.Repeat(" ", firstIndent),
			indentLen: firstIndent,
		})
		common = firstIndent
	}
loop:
	for p.pos < len(p.src) {
		switch c := p.src[p.pos]; c {
		case '\n':
			content, blank, indent, ok := p.scanContinuation(p.pos)
			if !ok {
				break loop
			}
			p.pos = content
			items = append(items, patternItem{isIndent: true, indent: blank, indentLen: indent})
			if common < 0 || indent < common {
				common = indent
			}
		case '}':
			return nil, p.errorf("Unbalanced closing brace")
		case '{':
			pl, err := p.getPlaceable()
			if err != nil {
				return nil, err
			}
			items = append(items, patternItem{el: pl})
		default:
			start := p.pos
			for p.pos < len(p.src) {
				if c := p.src[p.pos]; c == '{' || c == '}' || c == '\n' {
					break
				}
				p.pos++
			}
			items = append(items, patternItem{el: &Text{Value: string(p.src[start:p.pos])}})
		}
	}

	pattern := &Pattern{}
	appendText := func(s string) {
		if s == "" {
			return
		}
		if n := len(pattern.Elements); n > 0 {
			if t, ok := pattern.Elements[n-1].(*Text); ok {
				t.Value += s
				return
			}
		}
		pattern.Elements = append(pattern.Elements, &Text{Value: s})
	}
	for _, it := range items {
		if it.isIndent {
			appendText(it.indent[:len(it.indent)-common])
		} else if t, ok := it.el.(*Text); ok {
			appendText(t.Value)
		} else {
			pattern.Elements = append(pattern.Elements, it.el)
		}
	}
	if n := len(pattern.Elements); n > 0 {
		if t, ok := pattern.Elements[n-1].(*Text); ok {
			t.Value = strings.TrimRight(t.Value, " \n\r")
			if t.Value == "" {
				pattern.Elements = pattern.Elements[:n-1]
			}
		}
	}
	if len(pattern.Elements) == 0 {
		return nil, nil
	}
	return pattern, nil
}

func (p *parser) getPlaceable() (*Placeable, error) {
	if err := p.expectChar('{'); err != nil {
		return nil, err
	}
	p.skipBlank()
	exp, err := p.getExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectChar('}'); err != nil {
		return nil, err
	}
	return &Placeable{Expression: exp}, nil
}

func (p *parser) getExpression() (Expression, error) {
	sel, err := p.getInlineExpression()
	if err != nil {
		return nil, err
	}
	p.skipBlank()
	if p.current() == '-' && p.charAt(p.pos+1) == '>' {
		switch s := sel.(type) {
		case *MessageReference:
			if s.Attribute == nil {
				return nil, p.errorf("Message references cannot be used as selectors")
			}
			return nil, p.errorf("Attributes of messages cannot be used as selectors")
		case *TermReference:
			if s.Attribute == nil {
				return nil, p.errorf("Term references cannot be used as selectors")
			}
		case *Placeable:
			return nil, p.errorf("Placeables cannot be used as selectors")
		}
		p.pos += 2
		p.skipBlankInline()
		if err := p.expectLineEnd(); err != nil {
			return nil, err
		}
		variants, err := p.getVariants()
		if err != nil {
			return nil, err
		}
		return &SelectExpression{Selector: sel, Variants: variants}, nil
	}
	if t, ok := sel.(*TermReference); ok && t.Attribute != nil {
		return nil, p.errorf("Attributes of terms cannot be used as placeables")
	}
	return sel, nil
}

func (p *parser) getVariants() ([]*Variant, error) {
	var variants []*Variant
	hasDefault := false
	for {
		p.skipBlank()
		if c := p.current(); c != '[' && c != '*' {
			break
		}
		def := false
		if p.current() == '*' {
			if hasDefault {
				return nil, p.errorf("Only one variant can be marked as default (*)")
			}
			def = true
			hasDefault = true
			p.pos++
		}
		if err := p.expectChar('['); err != nil {
			return nil, err
		}
		p.skipBlank()
		key, err := p.getVariantKey()
		if err != nil {
			return nil, err
		}
		p.skipBlank()
		if err := p.expectChar(']'); err != nil {
			return nil, err
		}
		value, err := p.maybeGetPattern()
		if err != nil {
			return nil, err
		}
		if value == nil {
			return nil, p.errorf("Expected variant to have a value")
		}
		variants = append(variants, &Variant{Key: key, Value: value, Default: def})
	}
	if len(variants) == 0 {
		return nil, p.errorf(`Expected at least one variant after "->"`)
	}
	if !hasDefault {
		return nil, p.errorf("Expected one of the variants to be marked as default (*)")
	}
	return variants, nil
}

func (p *parser) getVariantKey() (VariantKey, error) {
	if c := p.current(); isDigit(c) || c == '-' {
		return p.getNumberLiteral()
	}
	id, err := p.getIdentifier()
	if err != nil {
		return nil, err
	}
	return id, nil
}

func (p *parser) getInlineExpression() (Expression, error) {
	switch c := p.current(); {
	case c == '{':
		return p.getPlaceable()
	case c == '"':
		return p.getStringLiteral()
	case isDigit(c), c == '-' && isDigit(p.charAt(p.pos+1)):
		return p.getNumberLiteral()
	case c == '$':
		p.pos++
		id, err := p.getIdentifier()
		if err != nil {
			return nil, err
		}
		return &VariableReference{ID: id}, nil
	case c == '-':
		p.pos++
		id, err := p.getIdentifier()
		if err != nil {
			return nil, err
		}
		term := &TermReference{ID: id}
		if p.current() == '.' {
			p.pos++
			attr, err := p.getIdentifier()
			if err != nil {
				return nil, err
			}
			term.Attribute = &attr
		}
		if p.current() == '(' {
			args, err := p.getCallArguments()
			if err != nil {
				return nil, err
			}
			term.Arguments = args
		}
		return term, nil
	case isIDStart(c):
		id, err := p.getIdentifier()
		if err != nil {
			return nil, err
		}
		if p.current() == '(' {
			if !isCallee(id.Name) {
				return nil, p.errorf("Callees have to be upper-case identifiers or terms")
			}
			args, err := p.getCallArguments()
			if err != nil {
				return nil, err
			}
			return &FunctionReference{ID: id, Arguments: args}, nil
		}
		ref := &MessageReference{ID: id}
		if p.current() == '.' {
			p.pos++
			attr, err := p.getIdentifier()
			if err != nil {
				return nil, err
			}
			ref.Attribute = &attr
		}
		return ref, nil
	default:
		return nil, p.errorf("Expected an inline expression")
	}
}

func (p *parser) getStringLiteral() (*StringLiteral, error) {
	if err := p.expectChar('"'); err != nil {
		return nil, err
	}
	start := p.pos
	for {
		switch c := p.current(); c {
		case '"':
			raw := string(p.src[start:p.pos])
			p.pos++
			return &StringLiteral{Value: raw}, nil
		case 0, '\n':
			return nil, p.errorf("Unterminated string literal")
		case '\\':
			p.pos++
			switch e := p.current(); e {
			case '\\', '"':
				p.pos++
			case 'u', 'U':
				p.pos++
				n := 4
				if e == 'U' {
					n = 6
				}
				for i := 0; i < n; i++ {
					if !isHexDigit(p.current()) {
						return nil, p.errorf("Invalid Unicode escape sequence")
					}
					p.pos++
				}
			default:
				return nil, p.errorf(`Unknown escape sequence: \%c`, e)
			}
		default:
			p.pos++
		}
	}
}

func (p *parser) getNumberLiteral() (*NumberLiteral, error) {
	start := p.pos
	if p.current() == '-' {
		p.pos++
	}
	if !isDigit(p.current()) {
		return nil, p.errorf("Expected a digit")
	}
	for isDigit(p.current()) {
		p.pos++
	}
	if p.current() == '.' {
		p.pos++
		if !isDigit(p.current()) {
			return nil, p.errorf("Expected a digit")
		}
		for isDigit(p.current()) {
			p.pos++
		}
	}
	return &NumberLiteral{Value: string(p.src[start:p.pos])}, nil
}

func (p *parser) getCallArguments() (*CallArguments, error) {
	if err := p.expectChar('('); err != nil {
		return nil, err
	}
	args := &CallArguments{}
	named := map[string]bool{}
	p.skipBlank()
	for p.current() != ')' && p.current() != 0 {
		exp, err := p.getInlineExpression()
		if err != nil {
			return nil, err
		}
		p.skipBlank()
		if p.current() == ':' {
			ref, ok := exp.(*MessageReference)
			if !ok || ref.Attribute != nil {
				return nil, p.errorf("Expected a simple identifier as the argument name")
			}
			p.pos++
			p.skipBlank()
			value, err := p.getLiteral()
			if err != nil {
				return nil, err
			}
			if named[ref.ID.Name] {
				return nil, p.errorf("The %q argument appears twice", ref.ID.Name)
			}
			named[ref.ID.Name] = true
			args.Named = append(args.Named, &NamedArgument{Name: ref.ID, Value: value})
		} else {
			if len(args.Named) > 0 {
				return nil, p.errorf("Positional arguments must not follow named arguments")
			}
			args.Positional = append(args.Positional, exp)
		}
		p.skipBlank()
		if p.current() != ',' {
			break
		}
		p.pos++
		p.skipBlank()
	}
	if err := p.expectChar(')'); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) getLiteral() (Expression, error) {
	switch c := p.current(); {
	case c == '"':
		return p.getStringLiteral()
	case isDigit(c), c == '-':
		return p.getNumberLiteral()
	default:
		return nil, p.errorf("Expected a literal")
	}
}

func isIDStart(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIDChar(c rune) bool {
	return isIDStart(c) || isDigit(c) || c == '_' || c == '-'
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isHexDigit(c rune) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func isCallee(name string) bool {
	for _, c := range name {
		if !(c >= 'A' && c <= 'Z' || isDigit(c) || c == '_' || c == '-') {
			return false
		}
	}
	return true
}
