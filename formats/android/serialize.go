package android

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/mozilla/moz-l10n-go/formats/dtd"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// block is one root-level child of <resources>: an element, a comment,
// or an incrementally filled <string-array>.
type block struct {
	text       string
	blankAfter bool
	arrayName  string
	inner      []string
}

// Serialize writes a resource as an Android strings XML file.
//
// Section comments and metadata are not supported; resource and entry
// metadata become XML attributes. Messages in an "!ENTITY" section are
// included in a DOCTYPE declaration; other sections must be anonymous.
// Multi-part message identifiers are only supported for <string-array>
// values, for which the second part must be an ordered integer index.
func Serialize(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	if res.Comment != "" && !trimComments {
		b.WriteString("\n<!--" + commentBody(res.Comment, 0) + "-->\n\n")
	}

	var entities strings.Builder
	var blocks []*block
	current := func() *block {
		if len(blocks) > 0 {
			return blocks[len(blocks)-1]
		}
		return nil
	}

	for _, section := range res.Sections {
		if len(section.Meta) > 0 {
			return fmt.Errorf("section metadata is not supported")
		}
		if section.Comment != "" && !trimComments {
			blocks = append(blocks, &block{
				text:       "<!--" + commentBody(section.Comment, 2) + "-->",
				blankAfter: true,
			})
		}
		if len(section.ID) > 0 {
			if section.ID.String() != "!ENTITY" {
				return fmt.Errorf("unsupported section id: %v", section.ID)
			}
			for _, se := range section.Entries {
				if e, ok := se.(*resource.Entry[message.Message]); ok {
					def, err := entityDefinition(e)
					if err != nil {
						return err
					}
					entities.WriteString("\n  " + def)
				}
			}
			continue
		}

		for _, se := range section.Entries {
			switch e := se.(type) {
			case *resource.Entry[message.Message]:
				if len(e.ID) == 0 || len(e.ID) > 2 {
					return fmt.Errorf("unsupported entry id: %v", e.ID)
				}
				name := e.ID[0]
				if !dtd.IsName(name) {
					return fmt.Errorf("invalid entry name: %q", name)
				}
				attrs, err := attrString(name, e.Meta)
				if err != nil {
					return err
				}
				if len(e.ID) == 2 {
					arr := current()
					if arr == nil || arr.arrayName != name {
						arr = &block{arrayName: name, text: "<string-array" + attrs + ">"}
						blocks = append(blocks, arr)
					}
					if e.Comment != "" && !trimComments {
						arr.inner = append(arr.inner, "<!--"+commentBody(e.Comment, 4)+"-->")
					}
					item, err := arrayItem(arr, e)
					if err != nil {
						return err
					}
					arr.inner = append(arr.inner, item)
					continue
				}
				if sel, ok := e.Value.(*message.SelectMessage); ok {
					inner, err := pluralItems(sel)
					if err != nil {
						return fmt.Errorf("unsupported message for %s: %w", name, err)
					}
					plurals := &block{text: "<plurals" + attrs + ">"}
					if e.Comment != "" && !trimComments {
						plurals.inner = append(plurals.inner, "<!--"+commentBody(e.Comment, 4)+"-->")
					}
					plurals.inner = append(plurals.inner, inner...)
					blocks = append(blocks, &block{
						text: renderContainer(plurals.text, plurals.inner, "</plurals>"),
					})
					continue
				}
				if e.Comment != "" && !trimComments {
					blocks = append(blocks, &block{
						text: "<!--" + commentBody(e.Comment, 2) + "-->",
					})
				}
				content, err := patternString(e.Value)
				if err != nil {
					return fmt.Errorf("unsupported message for %s: %w", name, err)
				}
				blocks = append(blocks, &block{
					text: "<string" + attrs + ">" + content + "</string>",
				})
			case resource.Comment:
				if trimComments {
					continue
				}
				comment := "<!--" + commentBody(e.Comment, 2) + "-->"
				if arr := current(); arr != nil && arr.arrayName != "" {
					arr.inner = append(arr.inner, comment)
				} else {
					blocks = append(blocks, &block{text: comment, blankAfter: true})
				}
			}
		}
	}

	if entities.Len() > 0 {
		b.WriteString("<!DOCTYPE resources [" + entities.String() + "\n]>\n")
	}
	b.WriteString("<resources" + metaAttrString(res.Meta) + ">")
	if len(blocks) == 0 {
		b.WriteString("\n</resources>\n")
	} else {
		for i, blk := range blocks {
			if i > 0 && blocks[i-1].blankAfter {
				b.WriteString("\n")
			}
			b.WriteString("\n  ")
			if blk.arrayName != "" {
				b.WriteString(renderContainer(blk.text, blk.inner, "</string-array>"))
			} else {
				b.WriteString(blk.text)
			}
		}
		b.WriteString("\n</resources>\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderContainer(openTag string, inner []string, closeTag string) string {
	if len(inner) == 0 {
		return openTag + "\n  " + closeTag
	}
	return openTag + "\n    " + strings.Join(inner, "\n    ") + "\n  " + closeTag
}

func arrayItem(arr *block, e *resource.Entry[message.Message]) (string, error) {
	num, err := strconv.Atoi(e.ID[1])
	if err != nil {
		return "", fmt.Errorf("unsupported entry id: %v", e.ID)
	}
	count := 0
	for _, line := range arr.inner {
		if strings.HasPrefix(line, "<item") {
			count++
		}
	}
	if num != count {
		return "", fmt.Errorf("string-array keys must be ordered: %v", e.ID)
	}
	content, err := patternString(e.Value)
	if err != nil {
		return "", fmt.Errorf("unsupported message for %v: %w", e.ID, err)
	}
	return "<item>" + content + "</item>", nil
}

func pluralItems(msg *message.SelectMessage) ([]string, error) {
	if len(msg.Selectors) != 1 || len(msg.Declarations) != 1 {
		return nil, fmt.Errorf("unsupported selectors")
	}
	sel := msg.Declarations.Get(msg.Selectors[0].Name)
	if sel == nil || sel.Function != "number" {
		return nil, fmt.Errorf("unsupported selector for %s", msg.Selectors[0].Name)
	}
	var items []string
	for _, variant := range msg.Variants {
		if len(variant.Keys) != 1 {
			return nil, fmt.Errorf("unsupported variant keys: %v", variant.Keys)
		}
		var quantity string
		switch key := variant.Keys[0].(type) {
		case message.StringKey:
			quantity = string(key)
		case message.CatchallKey:
			quantity = key.Value
			if quantity == "" {
				quantity = "other"
			}
		}
		if !isPluralCategory(quantity) {
			return nil, fmt.Errorf("unsupported plural variant key: %q", quantity)
		}
		content, err := serializePattern(variant.Pattern)
		if err != nil {
			return nil, err
		}
		items = append(items, `<item quantity="`+quantity+`">`+content+"</item>")
	}
	return items, nil
}

func patternString(msg message.Message) (string, error) {
	pm, ok := msg.(*message.PatternMessage)
	if !ok || len(pm.Declarations) > 0 {
		return "", fmt.Errorf("unsupported message: %v", msg)
	}
	return serializePattern(pm.Pattern)
}

// entityDefinition renders an "!ENTITY" section entry as a DOCTYPE
// entity declaration.
func entityDefinition(e *resource.Entry[message.Message]) (string, error) {
	if len(e.ID) != 1 || !dtd.IsName(e.ID[0]) {
		return "", fmt.Errorf("invalid entity identifier: %v", e.ID)
	}
	pm, ok := e.Value.(*message.PatternMessage)
	if !ok || len(pm.Declarations) > 0 {
		return "", fmt.Errorf("unsupported entity value: %v", e.Value)
	}
	var value strings.Builder
	for _, part := range pm.Pattern {
		switch part := part.(type) {
		case message.Text:
			value.WriteString(escapeEntityValue(string(part)))
		case *message.Expression:
			if name, ok := entityName(part); ok && dtd.IsName(name) {
				value.WriteString("&" + name + ";")
			} else {
				return "", fmt.Errorf("unsupported entity part: %v", part)
			}
		default:
			return "", fmt.Errorf("unsupported entity part: %v", part)
		}
	}
	return `<!ENTITY ` + e.ID[0] + ` "` + value.String() + `">`, nil
}

// escapeEntityValue escapes the characters not allowed in XML
// EntityValue text.
func escapeEntityValue(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "%", "&#37;")
	return strings.ReplaceAll(s, `"`, "&quot;")
}

func entityName(part *message.Expression) (string, bool) {
	if part.Function != "entity" {
		return "", false
	}
	ref, ok := part.Arg.(message.VariableRef)
	if !ok || ref.Name == "" {
		return "", false
	}
	return ref.Name, true
}

// serializePattern renders a pattern as XML element content. Patterns
// with markup are written as nested elements without Android escaping;
// others are built as a single escaped string, with entity references
// tracked through NUL sentinels so quoting applies to the whole value.
func serializePattern(pattern message.Pattern) (string, error) {
	for _, part := range pattern {
		if _, ok := part.(*message.Markup); ok {
			return serializeMarkupPattern(pattern)
		}
	}

	if len(pattern) == 1 {
		if expr, ok := pattern[0].(*message.Expression); ok && expr.Function == "reference" {
			switch arg := expr.Arg.(type) {
			case message.Literal:
				return escapeXMLText(string(arg)), nil
			case message.VariableRef:
				return escapeXMLText(arg.Name), nil
			}
		}
	}

	var src strings.Builder
	type token struct {
		entity  string
		literal string
	}
	var tokens []token
	for _, part := range pattern {
		switch part := part.(type) {
		case message.Text:
			for _, c := range string(part) {
				if c == 0 {
					src.WriteByte(0)
					tokens = append(tokens, token{literal: `\u0000`})
				} else {
					src.WriteRune(c)
				}
			}
		case *message.Expression:
			if name, ok := entityName(part); ok {
				src.WriteByte(0)
				tokens = append(tokens, token{entity: name})
			} else if lit, ok := part.Arg.(message.Literal); ok {
				src.WriteString(string(lit))
			} else if ref, ok := part.Arg.(message.VariableRef); ok {
				if source := part.Attributes.GetString("source"); source != "" {
					src.WriteString(source)
				} else {
					src.WriteString(ref.Name)
				}
			} else {
				return "", fmt.Errorf("unsupported expression: %v", part)
			}
		}
	}
	res := escapeXMLText(escapeStr(src.String()))
	if len(tokens) == 0 {
		return res, nil
	}
	var b strings.Builder
	for i, chunk := range strings.Split(res, "\x00") {
		if i > 0 {
			if tok := tokens[i-1]; tok.entity != "" {
				b.WriteString("&" + tok.entity + ";")
			} else {
				b.WriteString(tok.literal)
			}
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

// serializeMarkupPattern builds a nested element tree for HTML content,
// without applying Android escaping.
func serializeMarkupPattern(pattern message.Pattern) (string, error) {
	var b strings.Builder
	var stack []string
	for _, part := range pattern {
		switch part := part.(type) {
		case message.Text:
			b.WriteString(escapeXMLText(string(part)))
		case *message.Expression:
			name, ok := entityName(part)
			if !ok {
				return "", fmt.Errorf("unsupported expression: %v", part)
			}
			b.WriteString("&" + name + ";")
		case *message.Markup:
			attrs := ""
			for _, opt := range part.Options {
				lit, ok := opt.Value.(message.Literal)
				if !ok {
					return "", fmt.Errorf("unsupported markup with variable option: %v", part)
				}
				attrs += " " + opt.Name + `="` + escapeXMLAttr(string(lit)) + `"`
			}
			switch part.Kind {
			case message.MarkupStandalone:
				b.WriteString("<" + part.Name + attrs + "/>")
			case message.MarkupOpen:
				b.WriteString("<" + part.Name + attrs + ">")
				stack = append(stack, part.Name)
			case message.MarkupClose:
				if len(stack) == 0 || stack[len(stack)-1] != part.Name {
					return "", fmt.Errorf("improper element nesting for %s", part.Name)
				}
				stack = stack[:len(stack)-1]
				b.WriteString("</" + part.Name + ">")
			}
		}
	}
	if len(stack) > 0 {
		return "", fmt.Errorf("unclosed element <%s>", stack[len(stack)-1])
	}
	return b.String(), nil
}

// escapeStr applies Android escaping: special characters get single-char
// escapes, control characters and nonstandard whitespace are written as
// \uNNNN, and content with multiple spaces or an apostrophe is wrapped
// in double quotes.
func escapeStr(src string) string {
	var b strings.Builder
	for _, c := range src {
		switch c {
		case '\\':
			b.WriteString(`\u0092`)
		case '@':
			b.WriteString(`\@`)
		case '?':
			b.WriteString(`\?`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			b.WriteString(`\"`)
		default:
			if c != 0 && (c >= 0x01 && c <= 0x19 || c >= 0x1C && c <= 0x1F ||
				c >= 0x7F && c <= 0x9F || unicode.IsSpace(c) && c != ' ') {
				fmt.Fprintf(&b, `\u%04d`, c)
			} else {
				b.WriteRune(c)
			}
		}
	}
	s := b.String()
	if strings.Contains(s, "  ") || strings.ContainsRune(s, '\'') {
		return `"` + s + `"`
	}
	return s
}

func escapeXMLText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	return strings.ReplaceAll(s, "<", "&lt;")
}

func escapeXMLAttr(s string) string {
	s = escapeXMLText(s)
	return strings.ReplaceAll(s, `"`, "&quot;")
}

func attrString(name string, meta resource.Metadata) (string, error) {
	attrs := ` name="` + escapeXMLAttr(name) + `"`
	for _, m := range meta {
		if m.Key == "name" {
			return "", fmt.Errorf("unsupported %q metadata for %s", "name", name)
		}
		attrs += " " + m.Key + `="` + escapeXMLAttr(m.Value) + `"`
	}
	return attrs, nil
}

func metaAttrString(meta resource.Metadata) string {
	attrs := ""
	for _, m := range meta {
		attrs += " " + m.Key + `="` + escapeXMLAttr(m.Value) + `"`
	}
	return attrs
}

// commentBody renders comment text for inclusion in <!-- -->, indenting
// multi-line comments and softening internal double dashes.
func commentBody(content string, indent int) string {
	cc := strings.ReplaceAll(strings.TrimSpace(content), "--", "-\u200b-\u200b")
	if !strings.Contains(cc, "\n") {
		return " " + cc + " "
	}
	sp := strings.Repeat(" ", indent+2)
	var lines []string
	for _, line := range strings.Split(cc, "\n") {
		if line == "" {
			lines = append(lines, "")
		} else {
			lines = append(lines, sp+line)
		}
	}
	return "\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(" ", indent)
}
