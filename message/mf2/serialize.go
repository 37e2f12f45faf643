package mf2

import (
	"fmt"
	"strings"

	"github.com/mozilla/moz-l10n-go/message"
)

// Serialize emits msg in canonical MF2 syntax: single-space separators,
// `=` without surrounding space in .local declarations, literals quoted
// only when required. The output of Serialize re-parses to an equal
// message.
//
// The message is validated on the way out; a *SerializeError is
// returned for messages that cannot be expressed in the syntax.
func Serialize(msg message.Message) (string, error) {
	var b strings.Builder
	switch msg := msg.(type) {
	case *message.PatternMessage:
		if err := serializeDeclarations(&b, msg.Declarations); err != nil {
			return "", err
		}
		body, err := serializePattern(msg.Pattern)
		if err != nil {
			return "", err
		}
		if len(msg.Declarations) > 0 || startsLikeKeyword(body) {
			b.WriteString("{{")
			b.WriteString(body)
			b.WriteString("}}")
		} else {
			b.WriteString(body)
		}
	case *message.SelectMessage:
		if err := serializeDeclarations(&b, msg.Declarations); err != nil {
			return "", err
		}
		if len(msg.Selectors) == 0 {
			return "", &SerializeError{"At least one selector is required"}
		}
		b.WriteString(".match")
		for _, sel := range msg.Selectors {
			if !isName(sel.Name) {
				return "", &SerializeError{fmt.Sprintf("Invalid selector name: %s", sel.Name)}
			}
			b.WriteString(" $")
			b.WriteString(sel.Name)
		}
		for _, variant := range msg.Variants {
			b.WriteByte('\n')
			if len(variant.Keys) != len(msg.Selectors) {
				return "", &SerializeError{fmt.Sprintf(
					"Variant key mismatch, expected %d but found %d",
					len(msg.Selectors), len(variant.Keys),
				)}
			}
			for _, key := range variant.Keys {
				if sk, ok := key.(message.StringKey); ok {
					b.WriteString(serializeLiteral(string(sk)))
				} else {
					b.WriteByte('*')
				}
				b.WriteByte(' ')
			}
			body, err := serializePattern(variant.Pattern)
			if err != nil {
				return "", err
			}
			b.WriteString("{{")
			b.WriteString(body)
			b.WriteString("}}")
		}
	default:
		return "", &SerializeError{fmt.Sprintf("Unsupported message type: %T", msg)}
	}
	return b.String(), nil
}

// startsLikeKeyword reports whether a bare pattern would be mistaken for
// a complex message, i.e. starts with `.` after optional whitespace.
func startsLikeKeyword(body string) bool {
	for _, r := range body {
		if isSpace(r) || isBidi(r) {
			continue
		}
		return r == '.'
	}
	return false
}

func serializeDeclarations(b *strings.Builder, declarations message.Declarations) error {
	for _, decl := range declarations {
		if !isName(decl.Name) {
			return &SerializeError{fmt.Sprintf("Invalid declaration name: %s", decl.Name)}
		}
		if decl.Value == nil {
			return &SerializeError{fmt.Sprintf("Missing expression for $%s", decl.Name)}
		}
		if ref, ok := decl.Value.Arg.(message.VariableRef); ok && ref.Name == decl.Name {
			b.WriteString(".input ")
		} else {
			b.WriteString(".local $")
			b.WriteString(decl.Name)
			b.WriteString(" = ")
		}
		expr, err := serializeExpression(decl.Value)
		if err != nil {
			return err
		}
		b.WriteString(expr)
		b.WriteByte('\n')
	}
	return nil
}

func serializePattern(pattern message.Pattern) (string, error) {
	var b strings.Builder
	for _, part := range pattern {
		switch part := part.(type) {
		case message.Text:
			b.WriteString(escapeText(string(part)))
		case *message.Expression:
			s, err := serializeExpression(part)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case *message.Markup:
			s, err := serializeMarkup(part)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		default:
			return "", &SerializeError{fmt.Sprintf("Unsupported pattern part: %T", part)}
		}
	}
	return b.String(), nil
}

func serializeExpression(expr *message.Expression) (string, error) {
	var b strings.Builder
	b.WriteByte('{')
	switch arg := expr.Arg.(type) {
	case nil:
	case message.VariableRef:
		if !isName(arg.Name) {
			return "", &SerializeError{fmt.Sprintf("Invalid variable name: %s", arg.Name)}
		}
		b.WriteByte('$')
		b.WriteString(arg.Name)
	case message.Literal:
		b.WriteString(serializeLiteral(string(arg)))
	default:
		return "", &SerializeError{fmt.Sprintf("Unsupported expression argument: %T", arg)}
	}
	if expr.Function != "" {
		if !isIdentifier(expr.Function) {
			return "", &SerializeError{fmt.Sprintf("Invalid function name: %s", expr.Function)}
		}
		if expr.Arg != nil {
			b.WriteByte(' ')
		}
		b.WriteByte(':')
		b.WriteString(expr.Function)
		if err := serializeOptions(&b, expr.Options); err != nil {
			return "", err
		}
	} else {
		if expr.Arg == nil {
			return "", &SerializeError{"Invalid expression with no argument and no function"}
		}
		if len(expr.Options) > 0 {
			return "", &SerializeError{"Invalid expression with options but no function"}
		}
	}
	if err := serializeAttributes(&b, expr.Attributes); err != nil {
		return "", err
	}
	b.WriteByte('}')
	return b.String(), nil
}

func serializeMarkup(markup *message.Markup) (string, error) {
	if !isIdentifier(markup.Name) {
		return "", &SerializeError{fmt.Sprintf("Invalid markup name: %s", markup.Name)}
	}
	var b strings.Builder
	if markup.Kind == message.MarkupClose {
		if len(markup.Options) > 0 {
			return "", &SerializeError{"Close markup cannot have options"}
		}
		b.WriteString("{/")
	} else {
		b.WriteString("{#")
	}
	b.WriteString(markup.Name)
	if err := serializeOptions(&b, markup.Options); err != nil {
		return "", err
	}
	if err := serializeAttributes(&b, markup.Attributes); err != nil {
		return "", err
	}
	if markup.Kind == message.MarkupStandalone {
		b.WriteString(" /")
	}
	b.WriteByte('}')
	return b.String(), nil
}

func serializeOptions(b *strings.Builder, options message.Options) error {
	for _, opt := range options {
		if !isIdentifier(opt.Name) {
			return &SerializeError{fmt.Sprintf("Invalid option name: %s", opt.Name)}
		}
		b.WriteByte(' ')
		b.WriteString(opt.Name)
		b.WriteByte('=')
		switch value := opt.Value.(type) {
		case message.VariableRef:
			if !isName(value.Name) {
				return &SerializeError{fmt.Sprintf("Invalid variable name: %s", value.Name)}
			}
			b.WriteByte('$')
			b.WriteString(value.Name)
		case message.Literal:
			b.WriteString(serializeLiteral(string(value)))
		default:
			return &SerializeError{fmt.Sprintf("Unsupported option value: %T", value)}
		}
	}
	return nil
}

func serializeAttributes(b *strings.Builder, attributes message.Attributes) error {
	for _, attr := range attributes {
		if !isIdentifier(attr.Name) {
			return &SerializeError{fmt.Sprintf("Invalid attribute name: %s", attr.Name)}
		}
		b.WriteString(" @")
		b.WriteString(attr.Name)
		if attr.Value != nil {
			b.WriteByte('=')
			b.WriteString(serializeLiteral(*attr.Value))
		}
	}
	return nil
}

// serializeLiteral emits value bare when it is a valid name or number,
// and pipe-quoted otherwise.
func serializeLiteral(value string) string {
	if isName(value) || isNumber(value) {
		return value
	}
	esc := strings.ReplaceAll(value, `\`, `\\`)
	esc = strings.ReplaceAll(esc, "|", `\|`)
	return "|" + esc + "|"
}

func escapeText(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r == '\\' || r == '{' || r == '}' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
