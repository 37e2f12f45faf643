package syntax

import "strings"

// Serialize writes the resource back out as canonical FTL. Multiline and
// select-bearing patterns start on their own line, indented by four
// spaces; Junk is emitted verbatim.
//
// Standalone comment entries are set off with blank lines on both sides,
// so that reparsing does not attach them to the entry that follows.
func Serialize(res *Resource) string {
	var b strings.Builder
	prevComment := false
	for i, entry := range res.Body {
		isComment := false
		switch entry.(type) {
		case *Comment, *GroupComment, *ResourceComment:
			isComment = true
		}
		if i > 0 && (isComment || prevComment) {
			b.WriteByte('\n')
		}
		writeEntry(&b, entry)
		prevComment = isComment
	}
	return b.String()
}

func writeEntry(b *strings.Builder, entry Entry) {
	switch e := entry.(type) {
	case *Message:
		if e.Comment != nil {
			writeComment(b, "#", e.Comment.Content)
		}
		b.WriteString(e.ID.Name)
		b.WriteString(" =")
		if e.Value != nil {
			b.WriteString(serializePattern(e.Value))
		}
		for _, attr := range e.Attributes {
			writeAttribute(b, attr)
		}
		b.WriteByte('\n')
	case *Term:
		if e.Comment != nil {
			writeComment(b, "#", e.Comment.Content)
		}
		b.WriteByte('-')
		b.WriteString(e.ID.Name)
		b.WriteString(" =")
		if e.Value != nil {
			b.WriteString(serializePattern(e.Value))
		}
		for _, attr := range e.Attributes {
			writeAttribute(b, attr)
		}
		b.WriteByte('\n')
	case *Comment:
		writeComment(b, "#", e.Content)
	case *GroupComment:
		writeComment(b, "##", e.Content)
	case *ResourceComment:
		writeComment(b, "###", e.Content)
	case *Junk:
		b.WriteString(e.Content)
	}
}

func writeComment(b *strings.Builder, prefix, content string) {
	for _, line := range strings.Split(content, "\n") {
		b.WriteString(prefix)
		if line != "" {
			b.WriteByte(' ')
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
}

func writeAttribute(b *strings.Builder, attr *Attribute) {
	b.WriteString("\n    .")
	b.WriteString(attr.ID.Name)
	b.WriteString(" =")
	b.WriteString(indent(serializePattern(attr.Value)))
}

// indent deepens the continuation lines of already-serialized content by
// one level.
func indent(content string) string {
	return strings.ReplaceAll(content, "\n", "\n    ")
}

func serializePattern(p *Pattern) string {
	var content strings.Builder
	startOnNewLine := false
	for _, el := range p.Elements {
		switch e := el.(type) {
		case *Text:
			if strings.Contains(e.Value, "\n") {
				startOnNewLine = true
			}
			content.WriteString(e.Value)
		case *Placeable:
			if _, ok := e.Expression.(*SelectExpression); ok {
				startOnNewLine = true
			}
			content.WriteString(serializePlaceable(e))
		}
	}
	if startOnNewLine {
		return "\n    " + indent(content.String())
	}
	return " " + content.String()
}

func serializePlaceable(pl *Placeable) string {
	switch exp := pl.Expression.(type) {
	case *Placeable:
		return "{" + serializePlaceable(exp) + "}"
	case *SelectExpression:
		return "{ " + serializeExpression(exp) + "}"
	default:
		return "{ " + serializeExpression(exp) + " }"
	}
}

func serializeExpression(exp Expression) string {
	switch e := exp.(type) {
	case *StringLiteral:
		return `"` + e.Value + `"`
	case *NumberLiteral:
		return e.Value
	case *VariableReference:
		return "$" + e.ID.Name
	case *MessageReference:
		if e.Attribute != nil {
			return e.ID.Name + "." + e.Attribute.Name
		}
		return e.ID.Name
	case *TermReference:
		var b strings.Builder
		b.WriteByte('-')
		b.WriteString(e.ID.Name)
		if e.Attribute != nil {
			b.WriteByte('.')
			b.WriteString(e.Attribute.Name)
		}
		if e.Arguments != nil {
			writeCallArguments(&b, e.Arguments)
		}
		return b.String()
	case *FunctionReference:
		var b strings.Builder
		b.WriteString(e.ID.Name)
		if e.Arguments != nil {
			writeCallArguments(&b, e.Arguments)
		} else {
			b.WriteString("()")
		}
		return b.String()
	case *SelectExpression:
		var b strings.Builder
		b.WriteString(serializeExpression(e.Selector))
		b.WriteString(" ->")
		for _, v := range e.Variants {
			b.WriteByte('\n')
			if v.Default {
				b.WriteString("   *")
			} else {
				b.WriteString("    ")
			}
			b.WriteByte('[')
			b.WriteString(serializeVariantKey(v.Key))
			b.WriteByte(']')
			b.WriteString(indent(serializePattern(v.Value)))
		}
		b.WriteByte('\n')
		return b.String()
	case *Placeable:
		return serializePlaceable(e)
	default:
		return ""
	}
}

func serializeVariantKey(key VariantKey) string {
	switch k := key.(type) {
	case Identifier:
		return k.Name
	case *NumberLiteral:
		return k.Value
	default:
		return ""
	}
}

func writeCallArguments(b *strings.Builder, args *CallArguments) {
	b.WriteByte('(')
	first := true
	for _, arg := range args.Positional {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(serializeExpression(arg))
	}
	for _, arg := range args.Named {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(arg.Name.Name)
		b.WriteString(": ")
		b.WriteString(serializeExpression(arg.Value))
	}
	b.WriteByte(')')
}
