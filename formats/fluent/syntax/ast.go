// Package syntax implements the Fluent (FTL) file format: an AST, a
// resilient parser, and a canonical serializer.
//
// Parsing never fails outright; lines that do not form a valid entry are
// collected into Junk nodes carrying the parse error, as Fluent files are
// expected to remain usable when a single entry is broken.
package syntax

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// Entry is a top-level item of a Resource body: *Message, *Term,
// *Comment, *GroupComment, *ResourceComment, or *Junk.
type Entry interface {
	entry()
}

// PatternElement is one element of a Pattern: *Text or *Placeable.
type PatternElement interface {
	patternElement()
}

// Expression is an inline or select expression.
type Expression interface {
	expression()
}

// VariantKey is a variant key: an Identifier or a *NumberLiteral.
type VariantKey interface {
	variantKey()
}

// Resource is a complete FTL file.
type Resource struct {
	Body []Entry
}

// Identifier is a message, term, attribute, variable, or function name.
type Identifier struct {
	Name string
}

// Message is a translation unit with an optional value and attributes.
type Message struct {
	ID         Identifier
	Value      *Pattern
	Attributes []*Attribute
	Comment    *Comment
}

// Term is a private translation unit, referenced from other messages but
// never formatted directly. Unlike a Message, a Term must have a value.
type Term struct {
	ID         Identifier
	Value      *Pattern
	Attributes []*Attribute
	Comment    *Comment
}

// Attribute is a named sub-value of a Message or Term.
type Attribute struct {
	ID    Identifier
	Value *Pattern
}

// Pattern is the value of a message, term, attribute, or variant.
type Pattern struct {
	Elements []PatternElement
}

// Text is literal pattern text. Multiline values have been dedented and
// joined; escape sequences do not exist outside string literals.
type Text struct {
	Value string
}

// Placeable wraps an expression embedded in a pattern. A Placeable may
// itself appear as an expression when nested, as in `{ { $var } }`.
type Placeable struct {
	Expression Expression
}

// StringLiteral is a quoted literal. Value holds the raw source text
// between the quotes, with escape sequences unprocessed so that
// serialization round-trips exactly; use Parse for the decoded text.
type StringLiteral struct {
	Value string
}

// Parse decodes the escape sequences of the literal. Escapes for lone
// surrogates or out-of-range code points yield U+FFFD.
func (l *StringLiteral) Parse() string {
	if !strings.Contains(l.Value, `\`) {
		return l.Value
	}
	var b strings.Builder
	src := []rune(l.Value)
	for i := 0; i < len(src); i++ {
		if src[i] != '\\' || i+1 == len(src) {
			b.WriteRune(src[i])
			continue
		}
		i++
		switch src[i] {
		case '\\', '"':
			b.WriteRune(src[i])
		case 'u', 'U':
			n := 4
			if src[i] == 'U' {
				n = 6
			}
			if i+n >= len(src) {
				b.WriteRune('\\')
				b.WriteRune(src[i])
				continue
			}
			b.WriteRune(decodeUnicodeEscape(src[i+1 : i+1+n]))
			i += n
		default:
			b.WriteRune('\\')
			b.WriteRune(src[i])
		}
	}
	return b.String()
}

func decodeUnicodeEscape(digits []rune) rune {
	n, err := strconv.ParseUint(string(digits), 16, 32)
	if err != nil {
		return '�'
	}
	if r := rune(n); r <= 0x10FFFF && !utf16.IsSurrogate(r) {
		return r
	}
	return '�'
}

// NumberLiteral is an unquoted numeric literal, kept in its source form.
type NumberLiteral struct {
	Value string
}

// MessageReference is a reference to another message, or to one of its
// attributes.
type MessageReference struct {
	ID        Identifier
	Attribute *Identifier
}

// TermReference is a reference to a term or term attribute, with optional
// call arguments parameterizing the term.
type TermReference struct {
	ID        Identifier
	Attribute *Identifier
	Arguments *CallArguments
}

// VariableReference is a reference to an externally provided variable.
type VariableReference struct {
	ID Identifier
}

// FunctionReference is a call to a formatting function. Function names
// are upper-case identifiers.
type FunctionReference struct {
	ID        Identifier
	Arguments *CallArguments
}

// CallArguments holds the arguments of a term or function call.
type CallArguments struct {
	Positional []Expression
	Named      []*NamedArgument
}

// NamedArgument is a named call argument. Its value is always a
// *StringLiteral or *NumberLiteral.
type NamedArgument struct {
	Name  Identifier
	Value Expression
}

// SelectExpression chooses one of its variants by the value of the
// selector. Exactly one variant is marked as the default.
type SelectExpression struct {
	Selector Expression
	Variants []*Variant
}

// Variant is one branch of a SelectExpression.
type Variant struct {
	Key     VariantKey
	Value   *Pattern
	Default bool
}

// Comment is a standalone `#` comment, or one attached to the message or
// term that directly follows it.
type Comment struct {
	Content string
}

// GroupComment is a `##` comment opening a group of messages.
type GroupComment struct {
	Content string
}

// ResourceComment is a `###` comment applying to the whole file.
type ResourceComment struct {
	Content string
}

// Junk is a span of unparseable content, with the parse errors that
// caused it to be skipped.
type Junk struct {
	Content     string
	Annotations []string
}

func (*Message) entry()         {}
func (*Term) entry()            {}
func (*Comment) entry()         {}
func (*GroupComment) entry()    {}
func (*ResourceComment) entry() {}
func (*Junk) entry()            {}

func (*Text) patternElement()      {}
func (*Placeable) patternElement() {}

func (*Placeable) expression()         {}
func (*StringLiteral) expression()     {}
func (*NumberLiteral) expression()     {}
func (*MessageReference) expression()  {}
func (*TermReference) expression()     {}
func (*VariableReference) expression() {}
func (*FunctionReference) expression() {}
func (*SelectExpression) expression()  {}

func (Identifier) variantKey()     {}
func (*NumberLiteral) variantKey() {}
