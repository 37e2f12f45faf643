// Package fluent implements the Fluent (FTL) localization format as a
// two-way translator between FTL files and the unified message model.
//
// Each message or term becomes an entry keyed by its identifier, with
// attributes as two-part ids; term ids keep their "-" prefix. Select
// expressions anywhere in a pattern are lifted into the selectors of a
// SelectMessage: structurally identical selectors are deduplicated into
// one selector axis, and the variant table is the cartesian product of
// the key sets of all axes.
package fluent

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/formats/fluent/syntax"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Parse parses an FTL file. Group comments start a new section; resource
// comments are joined into the resource comment; broken entries are a
// parse error.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	ast := syntax.Parse(string(source))
	res := &resource.Resource[message.Message]{Format: formats.Fluent}
	section := &resource.Section[message.Message]{}
	res.Sections = []*resource.Section[message.Message]{section}
	var fileComments []string
	for _, entry := range ast.Body {
		switch e := entry.(type) {
		case *syntax.Junk:
			return nil, fmt.Errorf("parse error: %s", strings.Join(e.Annotations, "; "))
		case *syntax.ResourceComment:
			fileComments = append(fileComments, e.Content)
		case *syntax.GroupComment:
			if len(section.Entries) == 0 {
				section.Comment = e.Content
			} else {
				section = &resource.Section[message.Message]{Comment: e.Content}
				res.Sections = append(res.Sections, section)
			}
		case *syntax.Comment:
			section.AddComment(e.Content)
		case *syntax.Message:
			if err := addEntries(section, e.ID.Name, e.Value, e.Attributes, e.Comment); err != nil {
				return nil, err
			}
		case *syntax.Term:
			if err := addEntries(section, "-"+e.ID.Name, e.Value, e.Attributes, e.Comment); err != nil {
				return nil, err
			}
		}
	}
	res.Comment = strings.Join(fileComments, "\n\n")
	return res, nil
}

// addEntries emits the value and attributes of one FTL entry. A comment
// on the entry is assigned to the first emitted part only.
func addEntries(
	section *resource.Section[message.Message],
	name string,
	value *syntax.Pattern,
	attrs []*syntax.Attribute,
	comment *syntax.Comment,
) error {
	text := ""
	if comment != nil {
		text = comment.Content
	}
	if value != nil {
		msg, err := patternMessage(value)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		section.AddEntry(&resource.Entry[message.Message]{
			ID: resource.ID{name}, Value: msg, Comment: text,
		})
		text = ""
	}
	for _, attr := range attrs {
		msg, err := patternMessage(attr.Value)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", name, attr.ID.Name, err)
		}
		section.AddEntry(&resource.Entry[message.Message]{
			ID: resource.ID{name, attr.ID.Name}, Value: msg, Comment: text,
		})
		text = ""
	}
	return nil
}

// pluralCategories are the CLDR plural category names; a variable
// selected over them is presumed numeric.
var pluralCategories = map[string]bool{
	"zero": true, "one": true, "two": true, "few": true, "many": true, "other": true,
}

// ftlKey identifies one variant key of a selector axis.
type ftlKey struct {
	name    string
	numeric bool
	def     bool
}

// selectorAxis is one deduplicated selector: the translated expression,
// the FTL select nodes it came from, and the union of their keys.
type selectorAxis struct {
	expr  *message.Expression
	nodes []*syntax.SelectExpression
	keys  []ftlKey
}

type variantSlot struct {
	row     []int
	keys    []message.VariantKey
	pattern message.Pattern
}

func patternMessage(p *syntax.Pattern) (message.Message, error) {
	var axes []*selectorAxis
	if err := findSelectors(p, &axes); err != nil {
		return nil, err
	}
	if len(axes) == 0 {
		pattern, err := flatPattern(p)
		if err != nil {
			return nil, err
		}
		return &message.PatternMessage{Pattern: pattern}, nil
	}

	for _, axis := range axes {
		sortKeys(axis.keys)
	}

	// One variant slot per combination of keys, in axis order with the
	// last axis varying fastest.
	counts := make([]int, len(axes))
	total := 1
	for i, axis := range axes {
		counts[i] = len(axis.keys)
		total *= counts[i]
	}
	slots := make([]*variantSlot, 0, total)
	row := make([]int, len(axes))
	for {
		keys := make([]message.VariantKey, len(axes))
		for a, ki := range row {
			k := axes[a].keys[ki]
			if k.def {
				keys[a] = message.CatchallKey{Value: k.name}
			} else {
				keys[a] = message.StringKey(k.name)
			}
		}
		slots = append(slots, &variantSlot{
			row:  append([]int(nil), row...),
			keys: keys,
		})
		a := len(axes) - 1
		for ; a >= 0; a-- {
			row[a]++
			if row[a] < counts[a] {
				break
			}
			row[a] = 0
		}
		if a < 0 {
			break
		}
	}

	filter := make([]int, len(axes))
	for i := range filter {
		filter[i] = -1
	}
	varNames := map[string]bool{}
	if err := fillVariants(p, filter, axes, slots, varNames); err != nil {
		return nil, err
	}

	// A selector declaration is named after its variable, but must not
	// shadow any variable used inline in the pattern; on collision (and
	// always for non-variable selectors) the name gets a numeric suffix.
	var decls message.Declarations
	selectors := make([]message.VariableRef, len(axes))
	for i, axis := range axes {
		stem := ""
		if ref, ok := axis.expr.Arg.(message.VariableRef); ok {
			stem = ref.Name
		}
		name := stem
		for n := 1; name == "" || varNames[name]; n++ {
			name = fmt.Sprintf("%s_%d", stem, n)
		}
		varNames[name] = true
		decls.Set(name, axis.expr)
		selectors[i] = message.VariableRef{Name: name}
	}

	var variants []message.Variant
	for _, s := range slots {
		if len(s.pattern) > 0 {
			variants = append(variants, message.Variant{Keys: s.keys, Pattern: s.pattern})
		}
	}
	return &message.SelectMessage{
		Declarations: decls,
		Selectors:    selectors,
		Variants:     variants,
	}, nil
}

// findSelectors collects the selector axes of a pattern, deduplicating
// structurally equal selector expressions, and descends into variants.
func findSelectors(p *syntax.Pattern, axes *[]*selectorAxis) error {
	for _, el := range p.Elements {
		pl, ok := el.(*syntax.Placeable)
		if !ok {
			continue
		}
		sel, ok := unwrap(pl).(*syntax.SelectExpression)
		if !ok {
			continue
		}
		expr, err := selectorExpression(sel)
		if err != nil {
			return err
		}
		var axis *selectorAxis
		for _, a := range *axes {
			if reflect.DeepEqual(a.expr, expr) {
				axis = a
				break
			}
		}
		if axis == nil {
			axis = &selectorAxis{expr: expr}
			*axes = append(*axes, axis)
		}
		axis.nodes = append(axis.nodes, sel)
		for _, v := range sel.Variants {
			if k := variantKey(v); keyIndex(axis.keys, k) < 0 {
				axis.keys = append(axis.keys, k)
			}
			if err := findSelectors(v.Value, axes); err != nil {
				return err
			}
		}
	}
	return nil
}

// fillVariants walks the pattern depth-first, appending text and
// placeholders to every variant slot matching the current key filter.
// The names of variables used inline are collected into varNames.
func fillVariants(p *syntax.Pattern, filter []int, axes []*selectorAxis, slots []*variantSlot, varNames map[string]bool) error {
	for _, el := range p.Elements {
		switch e := el.(type) {
		case *syntax.Text:
			for _, s := range slots {
				if rowMatches(s.row, filter) {
					s.pattern = s.pattern.AppendText(e.Value)
				}
			}
		case *syntax.Placeable:
			inner := unwrap(e)
			if sel, ok := inner.(*syntax.SelectExpression); ok {
				ai, axis := axisOf(axes, sel)
				for _, v := range sel.Variants {
					ki := keyIndex(axis.keys, variantKey(v))
					sub := append([]int(nil), filter...)
					sub[ai] = ki
					if err := fillVariants(v.Value, sub, axes, slots, varNames); err != nil {
						return err
					}
				}
			} else {
				exp, err := inlineExpression(inner)
				if err != nil {
					return err
				}
				if ref, ok := exp.Arg.(message.VariableRef); ok {
					varNames[ref.Name] = true
				}
				for _, s := range slots {
					if rowMatches(s.row, filter) {
						s.pattern = append(s.pattern, exp)
					}
				}
			}
		}
	}
	return nil
}

func rowMatches(row, filter []int) bool {
	for i, f := range filter {
		if f != -1 && f != row[i] {
			return false
		}
	}
	return true
}

func axisOf(axes []*selectorAxis, sel *syntax.SelectExpression) (int, *selectorAxis) {
	for i, a := range axes {
		for _, n := range a.nodes {
			if n == sel {
				return i, a
			}
		}
	}
	return -1, nil
}

func keyIndex(keys []ftlKey, k ftlKey) int {
	for i, c := range keys {
		if c == k {
			return i
		}
	}
	return -1
}

func variantKey(v *syntax.Variant) ftlKey {
	switch k := v.Key.(type) {
	case *syntax.NumberLiteral:
		return ftlKey{name: k.Value, numeric: true, def: v.Default}
	case syntax.Identifier:
		return ftlKey{name: k.Name, def: v.Default}
	}
	return ftlKey{def: v.Default}
}

// sortKeys orders variant keys with the default last; non-default
// numeric keys sort before named ones. The sort is stable, so keys of
// the same class keep their source order.
func sortKeys(keys []ftlKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].def != keys[j].def {
			return !keys[i].def
		}
		return keys[i].numeric && !keys[j].numeric
	})
}

func unwrap(pl *syntax.Placeable) syntax.Expression {
	exp := pl.Expression
	for {
		inner, ok := exp.(*syntax.Placeable)
		if !ok {
			return exp
		}
		exp = inner.Expression
	}
}

// selectorExpression translates a select expression's selector. A
// variable selected over exclusively numbers and plural categories is
// annotated as a number, any other as a string.
func selectorExpression(sel *syntax.SelectExpression) (*message.Expression, error) {
	if ref, ok := sel.Selector.(*syntax.VariableReference); ok {
		fn := "string"
		if allNumericKeys(sel.Variants) {
			fn = "number"
		}
		return &message.Expression{
			Arg:      message.VariableRef{Name: ref.ID.Name},
			Function: fn,
		}, nil
	}
	exp, err := inlineExpression(sel.Selector)
	if err != nil {
		return nil, err
	}
	if exp.Function == "" {
		exp.Function = "string"
	}
	return exp, nil
}

func allNumericKeys(variants []*syntax.Variant) bool {
	for _, v := range variants {
		switch k := v.Key.(type) {
		case *syntax.NumberLiteral:
		case syntax.Identifier:
			if !pluralCategories[k.Name] {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func flatPattern(p *syntax.Pattern) (message.Pattern, error) {
	var pattern message.Pattern
	for _, el := range p.Elements {
		switch e := el.(type) {
		case *syntax.Text:
			pattern = pattern.AppendText(e.Value)
		case *syntax.Placeable:
			exp, err := inlineExpression(unwrap(e))
			if err != nil {
				return nil, err
			}
			pattern = append(pattern, exp)
		}
	}
	return pattern, nil
}

// inlineExpression translates an FTL inline expression. Message and term
// references become "message" function literals; function names are
// lower-cased.
func inlineExpression(exp syntax.Expression) (*message.Expression, error) {
	switch e := exp.(type) {
	case *syntax.Placeable:
		return inlineExpression(unwrap(e))
	case *syntax.NumberLiteral:
		return &message.Expression{Arg: message.Literal(e.Value), Function: "number"}, nil
	case *syntax.StringLiteral:
		return &message.Expression{Arg: message.Literal(e.Parse())}, nil
	case *syntax.VariableReference:
		return &message.Expression{Arg: message.VariableRef{Name: e.ID.Name}}, nil
	case *syntax.MessageReference:
		name := e.ID.Name
		if e.Attribute != nil {
			name += "." + e.Attribute.Name
		}
		return &message.Expression{Arg: message.Literal(name), Function: "message"}, nil
	case *syntax.TermReference:
		name := "-" + e.ID.Name
		if e.Attribute != nil {
			name += "." + e.Attribute.Name
		}
		res := &message.Expression{Arg: message.Literal(name), Function: "message"}
		if e.Arguments != nil {
			for _, arg := range e.Arguments.Named {
				value, err := argumentValue(arg.Value)
				if err != nil {
					return nil, err
				}
				res.Options.Set(arg.Name.Name, value)
			}
		}
		return res, nil
	case *syntax.FunctionReference:
		res := &message.Expression{Function: strings.ToLower(e.ID.Name)}
		if e.Arguments != nil {
			if len(e.Arguments.Positional) > 1 {
				return nil, fmt.Errorf("more than one positional argument in %s()", e.ID.Name)
			}
			if len(e.Arguments.Positional) == 1 {
				value, err := argumentValue(e.Arguments.Positional[0])
				if err != nil {
					return nil, err
				}
				res.Arg = value
			}
			for _, arg := range e.Arguments.Named {
				value, err := argumentValue(arg.Value)
				if err != nil {
					return nil, err
				}
				res.Options.Set(arg.Name.Name, value)
			}
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported expression %T", exp)
	}
}

func argumentValue(exp syntax.Expression) (message.Value, error) {
	switch e := exp.(type) {
	case *syntax.StringLiteral:
		return message.Literal(e.Parse()), nil
	case *syntax.NumberLiteral:
		return message.Literal(e.Value), nil
	case *syntax.VariableReference:
		return message.VariableRef{Name: e.ID.Name}, nil
	case *syntax.Placeable:
		return argumentValue(unwrap(e))
	default:
		return nil, fmt.Errorf("unsupported argument value %T", exp)
	}
}
