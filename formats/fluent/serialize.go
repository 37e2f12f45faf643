package fluent

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mozilla/moz-l10n-go/formats/fluent/syntax"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

var (
	nameRE   = regexp.MustCompile(`^-?[a-zA-Z][a-zA-Z0-9_-]*$`)
	identRE  = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
	calleeRE = regexp.MustCompile(`^[A-Z][A-Z0-9_-]*$`)
	numberRE = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)
)

// Serialize writes res as FTL. Consecutive entries sharing a first id
// part merge back into one message or term, with two-part ids as its
// attributes. Metadata and markup have no FTL representation and are
// errors, as are sections with a non-empty id.
func Serialize(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	ast := &syntax.Resource{}
	if res.Comment != "" && !trimComments {
		ast.Body = append(ast.Body, &syntax.ResourceComment{Content: res.Comment})
	}
	for _, section := range res.Sections {
		if len(section.ID) > 0 {
			return fmt.Errorf("unsupported section id %q", section.ID.String())
		}
		if len(section.Meta) > 0 {
			return fmt.Errorf("unsupported section metadata")
		}
		if section.Comment != "" && !trimComments {
			ast.Body = append(ast.Body, &syntax.GroupComment{Content: section.Comment})
		}
		if err := appendSection(ast, section, trimComments); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, syntax.Serialize(ast))
	return err
}

// ftlEntry accumulates the value and attribute entries of one message or
// term while they remain adjacent in the section.
type ftlEntry struct {
	name    string
	value   *syntax.Pattern
	attrs   []*syntax.Attribute
	comment string
}

func appendSection(ast *syntax.Resource, section *resource.Section[message.Message], trim bool) error {
	var cur *ftlEntry
	flush := func() error {
		if cur == nil {
			return nil
		}
		var comment *syntax.Comment
		if cur.comment != "" {
			comment = &syntax.Comment{Content: cur.comment}
		}
		if strings.HasPrefix(cur.name, "-") {
			if cur.value == nil {
				return fmt.Errorf("term %s has no value", cur.name)
			}
			ast.Body = append(ast.Body, &syntax.Term{
				ID:         syntax.Identifier{Name: cur.name[1:]},
				Value:      cur.value,
				Attributes: cur.attrs,
				Comment:    comment,
			})
		} else {
			ast.Body = append(ast.Body, &syntax.Message{
				ID:         syntax.Identifier{Name: cur.name},
				Value:      cur.value,
				Attributes: cur.attrs,
				Comment:    comment,
			})
		}
		cur = nil
		return nil
	}
	for _, se := range section.Entries {
		switch e := se.(type) {
		case resource.Comment:
			if err := flush(); err != nil {
				return err
			}
			if !trim {
				ast.Body = append(ast.Body, &syntax.Comment{Content: e.Comment})
			}
		case *resource.Entry[message.Message]:
			if len(e.Meta) > 0 {
				return fmt.Errorf("%s: unsupported metadata", e.ID.String())
			}
			if len(e.ID) == 0 || len(e.ID) > 2 {
				return fmt.Errorf("invalid entry id %q", e.ID.String())
			}
			name := e.ID[0]
			if !nameRE.MatchString(name) {
				return fmt.Errorf("invalid name %q", name)
			}
			if cur == nil || cur.name != name {
				if err := flush(); err != nil {
					return err
				}
				cur = &ftlEntry{name: name}
			}
			pattern, err := ftlPattern(e.Value)
			if err != nil {
				return fmt.Errorf("%s: %w", e.ID.String(), err)
			}
			if len(e.ID) == 1 {
				if cur.value != nil {
					return fmt.Errorf("duplicate entry %s", e.ID.String())
				}
				cur.value = pattern
			} else {
				if !identRE.MatchString(e.ID[1]) {
					return fmt.Errorf("invalid attribute name %q", e.ID[1])
				}
				cur.attrs = append(cur.attrs, &syntax.Attribute{
					ID:    syntax.Identifier{Name: e.ID[1]},
					Value: pattern,
				})
			}
			if e.Comment != "" && !trim && cur.comment == "" {
				cur.comment = e.Comment
			}
		}
	}
	return flush()
}

func ftlPattern(msg message.Message) (*syntax.Pattern, error) {
	switch m := msg.(type) {
	case *message.PatternMessage:
		return patternElements(m.Pattern, m.Declarations)
	case *message.SelectMessage:
		return selectPattern(m, m.Variants, 0)
	}
	return nil, fmt.Errorf("unsupported message %T", msg)
}

// patternElements renders a flat pattern. Literal braces in text have no
// escape in FTL and are emitted as string literal placeables; an empty
// pattern becomes `{ "" }`, as FTL values cannot be empty.
func patternElements(p message.Pattern, decls message.Declarations) (*syntax.Pattern, error) {
	out := &syntax.Pattern{}
	for _, part := range p {
		switch part := part.(type) {
		case message.Text:
			appendTextElements(out, string(part))
		case *message.Expression:
			exp, err := ftlExpression(part, decls, nil)
			if err != nil {
				return nil, err
			}
			out.Elements = append(out.Elements, &syntax.Placeable{Expression: exp})
		case *message.Markup:
			return nil, fmt.Errorf("markup is not supported")
		}
	}
	if len(out.Elements) == 0 {
		out.Elements = []syntax.PatternElement{
			&syntax.Placeable{Expression: &syntax.StringLiteral{}},
		}
	}
	return out, nil
}

func appendTextElements(p *syntax.Pattern, text string) {
	for text != "" {
		i := strings.IndexAny(text, "{}")
		if i < 0 {
			p.Elements = append(p.Elements, &syntax.Text{Value: text})
			return
		}
		if i > 0 {
			p.Elements = append(p.Elements, &syntax.Text{Value: text[:i]})
		}
		p.Elements = append(p.Elements, &syntax.Placeable{
			Expression: &syntax.StringLiteral{Value: string(text[i])},
		})
		text = text[i+1:]
	}
}

// selectPattern renders a SelectMessage as nested select expressions,
// one per selector, grouping the variants by their key at each depth.
func selectPattern(m *message.SelectMessage, variants []message.Variant, depth int) (*syntax.Pattern, error) {
	if depth == len(m.Selectors) {
		if len(variants) == 0 {
			return nil, fmt.Errorf("missing variant")
		}
		if len(variants) > 1 {
			return nil, fmt.Errorf("duplicate variant keys")
		}
		return patternElements(variants[0].Pattern, m.Declarations)
	}

	selName := m.Selectors[depth].Name
	selExpr := m.Declarations.Get(selName)
	if selExpr == nil {
		selExpr = &message.Expression{
			Arg:      message.VariableRef{Name: selName},
			Function: "string",
		}
	}
	ftlSel, err := ftlExpression(selExpr, m.Declarations, nil)
	if err != nil {
		return nil, err
	}

	type group struct {
		key   message.VariantKey
		items []message.Variant
	}
	var groups []*group
	for _, v := range variants {
		if len(v.Keys) != len(m.Selectors) {
			return nil, fmt.Errorf("variant key count does not match selector count")
		}
		k := v.Keys[depth]
		var g *group
		for _, c := range groups {
			if message.KeyEqual(c.key, k) {
				g = c
				break
			}
		}
		if g == nil {
			g = &group{key: k}
			groups = append(groups, g)
		}
		g.items = append(g.items, v)
	}

	sel := &syntax.SelectExpression{Selector: ftlSel}
	hasDefault := false
	for _, g := range groups {
		v := &syntax.Variant{}
		name := ""
		switch k := g.key.(type) {
		case message.StringKey:
			name = string(k)
		case message.CatchallKey:
			v.Default = true
			hasDefault = true
			if name = k.Value; name == "" {
				name = "other"
			}
		}
		key, err := ftlVariantKey(name)
		if err != nil {
			return nil, err
		}
		v.Key = key
		value, err := selectPattern(m, g.items, depth+1)
		if err != nil {
			return nil, err
		}
		v.Value = value
		sel.Variants = append(sel.Variants, v)
	}
	if !hasDefault {
		return nil, fmt.Errorf("no default variant for selector %s", selName)
	}
	return &syntax.Pattern{
		Elements: []syntax.PatternElement{&syntax.Placeable{Expression: sel}},
	}, nil
}

func ftlVariantKey(name string) (syntax.VariantKey, error) {
	if numberRE.MatchString(name) {
		return &syntax.NumberLiteral{Value: name}, nil
	}
	if identRE.MatchString(name) {
		return syntax.Identifier{Name: name}, nil
	}
	return nil, fmt.Errorf("invalid variant key %q", name)
}

// ftlExpression renders a model expression back into FTL. A bare
// variable reference resolves through the declarations, so selector
// annotations do not leak into the output as extra function calls.
func ftlExpression(e *message.Expression, decls message.Declarations, seen map[string]bool) (syntax.Expression, error) {
	if e.Function == "" {
		switch a := e.Arg.(type) {
		case message.Literal:
			return &syntax.StringLiteral{Value: escapeLiteral(string(a))}, nil
		case message.VariableRef:
			if d := decls.Get(a.Name); d != nil && !seen[a.Name] {
				if seen == nil {
					seen = map[string]bool{}
				}
				seen[a.Name] = true
				return ftlExpression(d, decls, seen)
			}
			return &syntax.VariableReference{ID: syntax.Identifier{Name: a.Name}}, nil
		}
		return nil, fmt.Errorf("expression with no operand or function")
	}

	switch e.Function {
	case "string":
		if len(e.Options) == 0 {
			switch a := e.Arg.(type) {
			case message.Literal:
				return &syntax.StringLiteral{Value: escapeLiteral(string(a))}, nil
			case message.VariableRef:
				return &syntax.VariableReference{ID: syntax.Identifier{Name: a.Name}}, nil
			}
		}
	case "number":
		if len(e.Options) == 0 {
			switch a := e.Arg.(type) {
			case message.Literal:
				if numberRE.MatchString(string(a)) {
					return &syntax.NumberLiteral{Value: string(a)}, nil
				}
			case message.VariableRef:
				return &syntax.VariableReference{ID: syntax.Identifier{Name: a.Name}}, nil
			}
		}
	case "message":
		name, ok := e.Arg.(message.Literal)
		if !ok {
			return nil, fmt.Errorf("message reference with a non-literal name")
		}
		return referenceExpression(string(name), e.Options)
	}

	fn := &syntax.FunctionReference{
		ID:        syntax.Identifier{Name: strings.ToUpper(e.Function)},
		Arguments: &syntax.CallArguments{},
	}
	if !calleeRE.MatchString(fn.ID.Name) {
		return nil, fmt.Errorf("invalid function name %q", e.Function)
	}
	if e.Arg != nil {
		arg, err := ftlValue(e.Arg)
		if err != nil {
			return nil, err
		}
		fn.Arguments.Positional = append(fn.Arguments.Positional, arg)
	}
	named, err := namedArguments(e.Options)
	if err != nil {
		return nil, err
	}
	fn.Arguments.Named = named
	return fn, nil
}

func referenceExpression(name string, options message.Options) (syntax.Expression, error) {
	term := strings.HasPrefix(name, "-")
	base := strings.TrimPrefix(name, "-")
	var attr *syntax.Identifier
	if i := strings.IndexByte(base, '.'); i >= 0 {
		a := syntax.Identifier{Name: base[i+1:]}
		attr = &a
		base = base[:i]
	}
	if !identRE.MatchString(base) || attr != nil && !identRE.MatchString(attr.Name) {
		return nil, fmt.Errorf("invalid reference %q", name)
	}
	if term {
		ref := &syntax.TermReference{ID: syntax.Identifier{Name: base}, Attribute: attr}
		if len(options) > 0 {
			named, err := namedArguments(options)
			if err != nil {
				return nil, err
			}
			ref.Arguments = &syntax.CallArguments{Named: named}
		}
		return ref, nil
	}
	if len(options) > 0 {
		return nil, fmt.Errorf("options are not supported on message reference %q", name)
	}
	return &syntax.MessageReference{ID: syntax.Identifier{Name: base}, Attribute: attr}, nil
}

// namedArguments renders options as named call arguments. FTL named
// arguments must be literals, so variable values are an error.
func namedArguments(options message.Options) ([]*syntax.NamedArgument, error) {
	var named []*syntax.NamedArgument
	for _, opt := range options {
		if !identRE.MatchString(opt.Name) {
			return nil, fmt.Errorf("invalid argument name %q", opt.Name)
		}
		lit, ok := opt.Value.(message.Literal)
		if !ok {
			return nil, fmt.Errorf("non-literal value for the %q argument", opt.Name)
		}
		value, err := ftlValue(lit)
		if err != nil {
			return nil, err
		}
		named = append(named, &syntax.NamedArgument{
			Name:  syntax.Identifier{Name: opt.Name},
			Value: value,
		})
	}
	return named, nil
}

func ftlValue(v message.Value) (syntax.Expression, error) {
	switch a := v.(type) {
	case message.Literal:
		if numberRE.MatchString(string(a)) {
			return &syntax.NumberLiteral{Value: string(a)}, nil
		}
		return &syntax.StringLiteral{Value: escapeLiteral(string(a))}, nil
	case message.VariableRef:
		return &syntax.VariableReference{ID: syntax.Identifier{Name: a.Name}}, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

// escapeLiteral escapes a string for use in an FTL string literal.
// Newlines have no body escape and are written as Unicode escapes.
func escapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\n", `\u000A`)
}
