package mf2

import (
	"fmt"

	"github.com/mozilla/moz-l10n-go/message"
)

// Validate checks a programmatically constructed message against the
// MF2 data model rules that the parser enforces on syntax: valid names,
// declaration ordering without cycles or duplicates, annotated
// selectors, and variant key consistency with a fallback variant.
//
// Messages produced by Parse are always valid.
func Validate(msg message.Message) error {
	switch msg := msg.(type) {
	case *message.PatternMessage:
		if err := validateDeclarations(msg.Declarations); err != nil {
			return err
		}
		return validatePattern(msg.Pattern)
	case *message.SelectMessage:
		if err := validateDeclarations(msg.Declarations); err != nil {
			return err
		}
		if len(msg.Selectors) == 0 {
			return &ValidationError{"At least one selector is required"}
		}
		for _, sel := range msg.Selectors {
			if !isName(sel.Name) {
				return &ValidationError{fmt.Sprintf("Invalid selector name: %s", sel.Name)}
			}
			if err := checkSelectorAnnotation(msg.Declarations, sel); err != nil {
				return &ValidationError{err.Error()}
			}
		}
		if len(msg.Variants) == 0 {
			return &ValidationError{"At least one variant is required"}
		}
		hasFallback := false
		for i, variant := range msg.Variants {
			if len(variant.Keys) != len(msg.Selectors) {
				return &ValidationError{fmt.Sprintf(
					"Variant key mismatch, expected %d but found %d",
					len(msg.Selectors), len(variant.Keys),
				)}
			}
			allCatchall := true
			for _, key := range variant.Keys {
				if _, ok := key.(message.CatchallKey); !ok {
					allCatchall = false
				}
			}
			if allCatchall {
				hasFallback = true
			}
			for _, prev := range msg.Variants[:i] {
				if variantKeysEqual(prev.Keys, variant.Keys) {
					return &ValidationError{fmt.Sprintf(
						"Duplicate variant with keys %s", keysString(variant.Keys),
					)}
				}
			}
			if err := validatePattern(variant.Pattern); err != nil {
				return err
			}
		}
		if !hasFallback {
			return &ValidationError{"Missing fallback variant"}
		}
		return nil
	default:
		return &ValidationError{fmt.Sprintf("Unsupported message type: %T", msg)}
	}
}

// validateDeclarations checks names and the ordering rule: a declaration
// may only refer to variables declared before it, so self-references and
// reference cycles are invalid.
func validateDeclarations(declarations message.Declarations) error {
	declared := map[string]bool{}
	for _, decl := range declarations {
		if !isName(decl.Name) {
			return &ValidationError{fmt.Sprintf("Invalid declaration name: %s", decl.Name)}
		}
		if declared[decl.Name] {
			return &ValidationError{fmt.Sprintf("Duplicate declaration for $%s", decl.Name)}
		}
		if decl.Value == nil {
			return &ValidationError{fmt.Sprintf("Missing expression for $%s", decl.Name)}
		}
		if err := validateExpression(decl.Value); err != nil {
			return err
		}
		if ref, ok := decl.Value.Arg.(message.VariableRef); ok && ref.Name != decl.Name {
			if !declared[ref.Name] {
				return &ValidationError{fmt.Sprintf(
					"Declaration of $%s refers to undeclared $%s", decl.Name, ref.Name,
				)}
			}
		}
		for _, opt := range decl.Value.Options {
			if ref, ok := opt.Value.(message.VariableRef); ok && !declared[ref.Name] {
				return &ValidationError{fmt.Sprintf(
					"Declaration of $%s refers to undeclared $%s", decl.Name, ref.Name,
				)}
			}
		}
		declared[decl.Name] = true
	}
	return nil
}

func validatePattern(pattern message.Pattern) error {
	for _, part := range pattern {
		switch part := part.(type) {
		case message.Text:
		case *message.Expression:
			if err := validateExpression(part); err != nil {
				return err
			}
		case *message.Markup:
			if !isIdentifier(part.Name) {
				return &ValidationError{fmt.Sprintf("Invalid markup name: %s", part.Name)}
			}
			if part.Kind == message.MarkupClose && len(part.Options) > 0 {
				return &ValidationError{"Close markup cannot have options"}
			}
			if err := validateNamedValues(part.Options, part.Attributes); err != nil {
				return err
			}
		default:
			return &ValidationError{fmt.Sprintf("Unsupported pattern part: %T", part)}
		}
	}
	return nil
}

func validateExpression(expr *message.Expression) error {
	switch arg := expr.Arg.(type) {
	case nil:
		if expr.Function == "" {
			return &ValidationError{"Invalid expression with no argument and no function"}
		}
	case message.VariableRef:
		if !isName(arg.Name) {
			return &ValidationError{fmt.Sprintf("Invalid variable name: %s", arg.Name)}
		}
	case message.Literal:
	default:
		return &ValidationError{fmt.Sprintf("Unsupported expression argument: %T", arg)}
	}
	if expr.Function == "" {
		if len(expr.Options) > 0 {
			return &ValidationError{"Invalid expression with options but no function"}
		}
	} else if !isIdentifier(expr.Function) {
		return &ValidationError{fmt.Sprintf("Invalid function name: %s", expr.Function)}
	}
	return validateNamedValues(expr.Options, expr.Attributes)
}

func validateNamedValues(options message.Options, attributes message.Attributes) error {
	seen := map[string]bool{}
	for _, opt := range options {
		if !isIdentifier(opt.Name) {
			return &ValidationError{fmt.Sprintf("Invalid option name: %s", opt.Name)}
		}
		if seen[opt.Name] {
			return &ValidationError{fmt.Sprintf("Duplicate option name %s", opt.Name)}
		}
		seen[opt.Name] = true
		switch value := opt.Value.(type) {
		case message.VariableRef:
			if !isName(value.Name) {
				return &ValidationError{fmt.Sprintf("Invalid variable name: %s", value.Name)}
			}
		case message.Literal:
		default:
			return &ValidationError{fmt.Sprintf("Unsupported option value: %T", value)}
		}
	}
	seen = map[string]bool{}
	for _, attr := range attributes {
		if !isIdentifier(attr.Name) {
			return &ValidationError{fmt.Sprintf("Invalid attribute name: %s", attr.Name)}
		}
		if seen[attr.Name] {
			return &ValidationError{fmt.Sprintf("Duplicate attribute name %s", attr.Name)}
		}
		seen[attr.Name] = true
	}
	return nil
}

func variantKeysEqual(a, b []message.VariantKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !message.KeyEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
