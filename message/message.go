// Package message defines the unified data model for localizable messages.
//
// All format parsers in this module translate their native inline syntax
// into this representation, and all serializers consume it. The model
// follows the MessageFormat 2 data model: a message is either a single
// pattern, or a set of patterns selected between by the values of
// annotated variables.
package message

import "strings"

// VariableRef is a reference to a variable, either bound by a declaration
// or provided externally at format time.
type VariableRef struct {
	Name string
}

// Value is an expression operand or option value: either a literal string
// (Literal) or a VariableRef.
type Value interface {
	isValue()
}

// Literal is a literal string value. All escape sequences of the source
// format have been processed.
type Literal string

func (Literal) isValue()     {}
func (VariableRef) isValue() {}

// Option is a single named argument of an annotation function.
type Option struct {
	Name  string
	Value Value
}

// Options is an ordered list of named function arguments. Insertion order
// is significant and preserved through a round-trip.
type Options []Option

// Get returns the value of the named option, or nil if it is not set.
func (opts Options) Get(name string) Value {
	for _, opt := range opts {
		if opt.Name == name {
			return opt.Value
		}
	}
	return nil
}

// Set replaces the value of the named option, or appends a new one.
func (opts *Options) Set(name string, value Value) {
	for i, opt := range *opts {
		if opt.Name == name {
			(*opts)[i].Value = value
			return
		}
	}
	*opts = append(*opts, Option{name, value})
}

// Attribute is an expression or markup attribute. A nil Value represents
// an attribute with no value, e.g. `@translate`.
type Attribute struct {
	Name  string
	Value *string
}

// Attributes is an ordered list of expression or markup attributes.
type Attributes []Attribute

// Get returns the value of the named attribute and whether it is present.
// A present attribute may still have a nil value.
func (attrs Attributes) Get(name string) (*string, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// GetString returns the string value of the named attribute,
// or "" if the attribute is absent or has no value.
func (attrs Attributes) GetString(name string) string {
	if v, ok := attrs.Get(name); ok && v != nil {
		return *v
	}
	return ""
}

// Set replaces the value of the named attribute, or appends a new one.
func (attrs *Attributes) Set(name string, value *string) {
	for i, a := range *attrs {
		if a.Name == name {
			(*attrs)[i].Value = value
			return
		}
	}
	*attrs = append(*attrs, Attribute{name, value})
}

// String builds an attribute value from a plain string.
func String(s string) *string { return &s }

// Expression is a placeholder within a pattern, or the value of a
// declaration.
//
// A valid Expression has a non-nil Arg, a non-empty Function, or both.
// Options require a Function.
type Expression struct {
	Arg        Value
	Function   string
	Options    Options
	Attributes Attributes
}

// MarkupKind distinguishes the three markup placeholder forms.
type MarkupKind int

const (
	MarkupOpen MarkupKind = iota
	MarkupStandalone
	MarkupClose
)

func (k MarkupKind) String() string {
	switch k {
	case MarkupOpen:
		return "open"
	case MarkupStandalone:
		return "standalone"
	case MarkupClose:
		return "close"
	default:
		return "unknown"
	}
}

// Markup is a tag-like placeholder representing inline formatting.
// Close markup must not carry options.
type Markup struct {
	Kind       MarkupKind
	Name       string
	Options    Options
	Attributes Attributes
}

// PatternPart is one element of a Pattern: Text, *Expression, or *Markup.
type PatternPart interface {
	isPatternPart()
}

// Text is literal message text, with all source-format escapes processed.
type Text string

func (Text) isPatternPart()        {}
func (*Expression) isPatternPart() {}
func (*Markup) isPatternPart()     {}

// Pattern is a linear sequence of text and placeholders corresponding to
// the potential output of a message.
type Pattern []PatternPart

// AppendText adds literal text to the pattern, coalescing it with a
// preceding Text part so that round-trips stay idempotent.
func (p Pattern) AppendText(text string) Pattern {
	if text == "" {
		return p
	}
	if n := len(p); n > 0 {
		if prev, ok := p[n-1].(Text); ok {
			p[n-1] = prev + Text(text)
			return p
		}
	}
	return append(p, Text(text))
}

// IsEmpty reports whether the pattern is empty or consists only of empty
// text parts.
func (p Pattern) IsEmpty() bool {
	for _, part := range p {
		if text, ok := part.(Text); !ok || text != "" {
			return false
		}
	}
	return true
}

// Declaration binds a name to an expression. A declaration whose
// expression argument is a VariableRef of the same name is an input
// declaration; any other is a local declaration.
type Declaration struct {
	Name  string
	Value *Expression
}

// Declarations is an ordered list of declarations. Order is significant:
// a declaration may only refer to variables declared before it.
type Declarations []Declaration

// Get returns the expression bound to name, or nil.
func (decls Declarations) Get(name string) *Expression {
	for _, d := range decls {
		if d.Name == name {
			return d.Value
		}
	}
	return nil
}

// Set replaces the expression bound to name, or appends a new declaration.
func (decls *Declarations) Set(name string, value *Expression) {
	for i, d := range *decls {
		if d.Name == name {
			(*decls)[i].Value = value
			return
		}
	}
	*decls = append(*decls, Declaration{name, value})
}

// Message is a localizable message: either a *PatternMessage or a
// *SelectMessage.
type Message interface {
	isMessage()
	// IsEmpty reports whether all of the message's patterns are empty,
	// or consist only of empty strings.
	IsEmpty() bool
}

// PatternMessage is a message without selectors, with a single pattern.
type PatternMessage struct {
	Declarations Declarations
	Pattern      Pattern
}

func (*PatternMessage) isMessage() {}

func (m *PatternMessage) IsEmpty() bool { return m.Pattern.IsEmpty() }

// VariantKey is a single variant key: a literal StringKey or the
// CatchallKey.
type VariantKey interface {
	isVariantKey()
}

// StringKey is a literal variant key.
type StringKey string

func (StringKey) isVariantKey()   {}
func (CatchallKey) isVariantKey() {}

// CatchallKey marks the default variant of a selector. Its Value is a
// display hint only, never a comparison key: all CatchallKey values are
// mutually equal, as only one catch-all variant is meaningful per
// selector axis.
type CatchallKey struct {
	Value string
}

// Equal reports key equivalence for comparison purposes; all catch-all
// keys are equivalent regardless of their display hint.
func (CatchallKey) Equal(CatchallKey) bool { return true }

// Variant is one pattern of a SelectMessage together with the keys that
// select it. len(Keys) always equals the number of message selectors.
type Variant struct {
	Keys    []VariantKey
	Pattern Pattern
}

// SelectMessage is a message with one or more selectors and a
// corresponding set of variants.
//
// Invariants: every variant's key count equals the selector count; at
// least one variant's keys are all catch-all; each selector resolves
// through the declarations to an expression with a function annotation.
type SelectMessage struct {
	Declarations Declarations
	Selectors    []VariableRef
	Variants     []Variant
}

func (*SelectMessage) isMessage() {}

func (m *SelectMessage) IsEmpty() bool {
	for _, v := range m.Variants {
		if !v.Pattern.IsEmpty() {
			return false
		}
	}
	return true
}

// SelectorExpressions resolves each selector to its declared expression.
// Entries are nil for undeclared selectors.
func (m *SelectMessage) SelectorExpressions() []*Expression {
	exprs := make([]*Expression, len(m.Selectors))
	for i, sel := range m.Selectors {
		exprs[i] = m.Declarations.Get(sel.Name)
	}
	return exprs
}

// Variant returns the pattern of the variant matching the given keys,
// comparing catch-all keys as mutually equal. The second result reports
// whether a matching variant exists.
func (m *SelectMessage) Variant(keys []VariantKey) (Pattern, bool) {
	for _, v := range m.Variants {
		if keysEqual(v.Keys, keys) {
			return v.Pattern, true
		}
	}
	return nil, false
}

func keysEqual(a, b []VariantKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !keyEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func keyEqual(a, b VariantKey) bool {
	switch ak := a.(type) {
	case StringKey:
		bk, ok := b.(StringKey)
		return ok && ak == bk
	case CatchallKey:
		_, ok := b.(CatchallKey)
		return ok
	default:
		return false
	}
}

// KeyEqual reports whether two variant keys are equivalent, with all
// catch-all keys considered equal to each other.
func KeyEqual(a, b VariantKey) bool { return keyEqual(a, b) }

// PatternText returns the concatenated text of a PatternMessage without
// declarations whose pattern holds only literal text. Formats that
// cannot express placeholders use it to reject structured messages.
func PatternText(msg Message) (string, bool) {
	pm, ok := msg.(*PatternMessage)
	if !ok || len(pm.Declarations) > 0 {
		return "", false
	}
	var b strings.Builder
	for _, part := range pm.Pattern {
		text, ok := part.(Text)
		if !ok {
			return "", false
		}
		b.WriteString(string(text))
	}
	return b.String(), true
}
