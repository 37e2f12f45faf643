// Package xliff reads and writes XLIFF 1.2 files.
//
// Sections identify files and groups within them: the first identifier
// part holds the <file> "original" attribute, and later parts hold
// <group> "id" attributes. An entry's value represents the <target> of
// a <trans-unit>, and its comment the first <note>. Other elements and
// attributes are represented by metadata.
//
// Metadata keys encode XML element data. They have the following shape:
//
//	key = *path_part ('.' | '!' | xml_id)
//	path_part = [digits ','] xml_id '/'
//	xml_id = xml_name | xml_name ':' xml_name
//
// Each path_part represents a possibly namespaced element. The starting
// digits are ignored; their only function is to differentiate adjacent
// elements with the same name. A key ending with '.' represents text
// content, and a key ending with '!' represents a comment. Other keys
// represent attribute values. Attribute and element names may be of the
// form ns:foo, in which case the resource should have an xmlns:ns
// metadata entry with the namespace URI as its value.
package xliff

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

var xliffNamespaces = []string{
	"urn:oasis:names:tc:xliff:document:1.0",
	"urn:oasis:names:tc:xliff:document:1.1",
	"urn:oasis:names:tc:xliff:document:1.2",
}

func isXliffNamespace(uri string) bool {
	for _, ns := range xliffNamespaces {
		if uri == ns {
			return true
		}
	}
	return false
}

type parser struct {
	// xliffPrefix holds the namespace prefixes bound to an XLIFF
	// namespace URI; their element names are recorded unprefixed.
	xliffPrefix map[string]bool
}

// Parse reads an XLIFF 1.0, 1.1, or 1.2 file into a message resource.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(source); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("missing root element")
	}

	p := &parser{xliffPrefix: map[string]bool{}}
	defaultNS := ""
	for _, a := range root.Attr {
		if a.Space == "" && a.Key == "xmlns" {
			defaultNS = a.Value
		} else if a.Space == "xmlns" && isXliffNamespace(a.Value) {
			p.xliffPrefix[a.Key] = true
		}
	}
	if defaultNS != "" && !isXliffNamespace(defaultNS) {
		return nil, fmt.Errorf("unsupported namespace: %s", defaultNS)
	}
	if root.Tag != "xliff" || root.Space != "" && !p.xliffPrefix[root.Space] {
		return nil, fmt.Errorf("unsupported root node: <%s>", fullTag(root))
	}
	version := root.SelectAttrValue("version", "")
	switch version {
	case "1.0", "1.1", "1.2":
	default:
		return nil, fmt.Errorf("unsupported <xliff> version: %q", version)
	}

	res := &resource.Resource[message.Message]{Format: formats.XLIFF}
	var rootComments []string
	for _, tok := range doc.Child {
		if el, ok := tok.(*etree.Element); ok && el == root {
			break
		}
		if c, ok := tok.(*etree.Comment); ok {
			rootComments = append(rootComments, c.Data)
		}
	}
	res.Comment = commentStr(rootComments)
	for _, a := range root.Attr {
		if a.Space != "xmlns" && !(a.Space == "" && a.Key == "xmlns") {
			res.Meta.Add(p.prettyAttr(a), a.Value)
		}
	}
	for _, a := range root.Attr {
		if a.Space == "xmlns" {
			res.Meta.Add("xmlns:"+a.Key, a.Value)
		} else if a.Space == "" && a.Key == "xmlns" {
			res.Meta.Add("xmlns", a.Value)
		}
	}

	var pending []string
	for _, tok := range root.Child {
		switch tok := tok.(type) {
		case *etree.Comment:
			pending = append(pending, tok.Data)
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				return nil, fmt.Errorf("unexpected text in <xliff>: %q", tok.Data)
			}
		case *etree.Element:
			if p.localName(tok) != "file" {
				return nil, fmt.Errorf("unsupported <%s> element in <xliff>", fullTag(tok))
			}
			if err := p.parseFile(res, tok, commentStr(pending)); err != nil {
				return nil, err
			}
			pending = nil
		}
	}
	return res, nil
}

func (p *parser) parseFile(res *resource.Resource[message.Message], file *etree.Element, comment string) error {
	original := file.SelectAttr("original")
	if original == nil {
		return fmt.Errorf(`missing "original" attribute for <file>`)
	}
	section := &resource.Section[message.Message]{
		ID:      resource.ID{original.Value},
		Comment: comment,
		Meta:    p.attrMetadata(file, "", "original"),
	}
	res.Sections = append(res.Sections, section)

	var body *etree.Element
	for _, tok := range file.Child {
		switch tok := tok.(type) {
		case *etree.Comment:
			section.AddComment(commentStr([]string{tok.Data}))
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				return fmt.Errorf("unexpected text in <file> %s: %q", original.Value, tok.Data)
			}
		case *etree.Element:
			switch p.localName(tok) {
			case "header":
				md, err := p.elementAsMetadata(tok, "header/", true)
				if err != nil {
					return err
				}
				section.Meta = append(section.Meta, md...)
			case "body":
				if body != nil {
					return fmt.Errorf("duplicate <body> in <file> %s", original.Value)
				}
				body = tok
			default:
				return fmt.Errorf("unsupported <%s> element in <file> %s", fullTag(tok), original.Value)
			}
		}
	}
	if body == nil {
		return fmt.Errorf("missing <body> in <file> %s", original.Value)
	}
	return p.parseBody(res, section, body)
}

func (p *parser) parseBody(res *resource.Resource[message.Message], section *resource.Section[message.Message], body *etree.Element) error {
	for _, tok := range body.Child {
		switch tok := tok.(type) {
		case *etree.Comment:
			section.AddComment(commentStr([]string{tok.Data}))
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				return fmt.Errorf("unexpected text in <body>: %q", tok.Data)
			}
		case *etree.Element:
			switch p.localName(tok) {
			case "trans-unit":
				entry, err := p.parseTransUnit(tok)
				if err != nil {
					return err
				}
				section.AddEntry(entry)
			case "bin-unit":
				entry, err := p.parseBinUnit(tok)
				if err != nil {
					return err
				}
				section.AddEntry(entry)
			case "group":
				if err := p.parseGroup(res, section.ID, tok); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported <%s> element in <body>", fullTag(tok))
			}
		}
	}
	return nil
}

func (p *parser) parseGroup(res *resource.Resource[message.Message], parent resource.ID, group *etree.Element) error {
	path := append(append(resource.ID{}, parent...), group.SelectAttrValue("id", ""))
	section := &resource.Section[message.Message]{
		ID:   path,
		Meta: p.attrMetadata(group, "", "id"),
	}
	// Appended before its contents are parsed, so that nested groups
	// are ordered by path.
	res.Sections = append(res.Sections, section)

	idx := 0
	for _, tok := range group.Child {
		switch tok := tok.(type) {
		case *etree.Comment:
			section.AddComment(commentStr([]string{tok.Data}))
			idx++
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				return fmt.Errorf("unexpected text in <group>: %q", tok.Data)
			}
		case *etree.Element:
			switch p.localName(tok) {
			case "trans-unit":
				entry, err := p.parseTransUnit(tok)
				if err != nil {
					return err
				}
				section.AddEntry(entry)
			case "bin-unit":
				entry, err := p.parseBinUnit(tok)
				if err != nil {
					return err
				}
				section.AddEntry(entry)
			case "group":
				if err := p.parseGroup(res, path, tok); err != nil {
					return err
				}
			default:
				base := fmt.Sprintf("%d,%s/", idx, p.prettyTag(tok))
				md, err := p.elementAsMetadata(tok, base, true)
				if err != nil {
					return err
				}
				section.Meta = append(section.Meta, md...)
			}
			idx++
		}
	}
	return nil
}

func (p *parser) parseBinUnit(unit *etree.Element) (*resource.Entry[message.Message], error) {
	id := unit.SelectAttr("id")
	if id == nil {
		return nil, fmt.Errorf(`missing "id" attribute for <bin-unit>`)
	}
	meta := p.attrMetadata(unit, "", "id")
	md, err := p.elementAsMetadata(unit, "", false)
	if err != nil {
		return nil, err
	}
	meta = append(meta, md...)
	msg := &message.PatternMessage{Pattern: message.Pattern{
		&message.Expression{Attributes: message.Attributes{{Name: "bin-unit"}}},
	}}
	return &resource.Entry[message.Message]{ID: resource.ID{id.Value}, Value: msg, Meta: meta}, nil
}

func (p *parser) parseTransUnit(unit *etree.Element) (*resource.Entry[message.Message], error) {
	id := unit.SelectAttr("id")
	if id == nil {
		return nil, fmt.Errorf(`missing "id" attribute for <trans-unit>`)
	}
	meta := p.attrMetadata(unit, "", "id")

	var tokens []etree.Token
	for _, tok := range unit.Child {
		switch tok := tok.(type) {
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				return nil, fmt.Errorf("unexpected text in <trans-unit> %s: %q", id.Value, tok.Data)
			}
		case *etree.Comment, *etree.Element:
			tokens = append(tokens, tok)
		}
	}

	var target, note *etree.Element
	for idx, tok := range tokens {
		switch tok := tok.(type) {
		case *etree.Comment:
			meta.Add("!", tok.Data)
		case *etree.Element:
			switch name := p.localName(tok); {
			case name == "target":
				if target != nil {
					return nil, fmt.Errorf("duplicate <target> in <trans-unit> %s", id.Value)
				}
				target = tok
				meta = append(meta, p.attrMetadata(tok, "target/")...)
			case name == "note" && note == nil && leadingText(tok) != "":
				note = tok
				if noteAttrs := p.attrMetadata(tok, "note/"); len(noteAttrs) > 0 {
					meta = append(meta, noteAttrs...)
				} else if idx < len(tokens)-1 {
					// A marker for the relative position of the note,
					// as elements follow it.
					meta.Add("note/.", "")
				}
			default:
				base := name + "/"
				if name != "source" && name != "seg-source" {
					base = fmt.Sprintf("%d,%s/", idx, p.prettyTag(tok))
				}
				md, err := p.elementAsMetadata(tok, base, true)
				if err != nil {
					return nil, err
				}
				meta = append(meta, md...)
			}
		}
	}

	msg := &message.PatternMessage{}
	if target != nil {
		pattern, err := p.parsePattern(nil, target)
		if err != nil {
			return nil, err
		}
		msg.Pattern = pattern
	}
	comment := ""
	if note != nil {
		comment = leadingText(note)
	}
	return &resource.Entry[message.Message]{
		ID:      resource.ID{id.Value},
		Value:   msg,
		Comment: comment,
		Meta:    meta,
	}, nil
}

// parsePattern translates <target> content: inline <x>, <bx>, and <ex>
// elements become standalone markup, and other elements open/close
// markup pairs.
func (p *parser) parsePattern(pattern message.Pattern, el *etree.Element) (message.Pattern, error) {
	for _, tok := range el.Child {
		switch tok := tok.(type) {
		case *etree.CharData:
			pattern = pattern.AppendText(tok.Data)
		case *etree.Element:
			name := p.localName(tok)
			markup := &message.Markup{Kind: message.MarkupOpen, Name: name}
			for _, a := range tok.Attr {
				markup.Options.Set(p.prettyAttr(a), message.Literal(a.Value))
			}
			if name == "x" || name == "bx" || name == "ex" {
				markup.Kind = message.MarkupStandalone
				pattern = append(pattern, markup)
				continue
			}
			pattern = append(pattern, markup)
			var err error
			pattern, err = p.parsePattern(pattern, tok)
			if err != nil {
				return nil, err
			}
			pattern = append(pattern, &message.Markup{Kind: message.MarkupClose, Name: name})
		}
	}
	return pattern, nil
}

// elementAsMetadata encodes an element subtree as path-keyed metadata.
func (p *parser) elementAsMetadata(el *etree.Element, base string, withAttrib bool) (resource.Metadata, error) {
	var meta resource.Metadata
	empty := true
	if withAttrib {
		if am := p.attrMetadata(el, base); len(am) > 0 {
			meta = append(meta, am...)
			empty = false
		}
	}
	idx := 0
	for _, tok := range el.Child {
		switch tok := tok.(type) {
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				meta.Add(base+".", tok.Data)
				empty = false
			}
		case *etree.Comment:
			meta.Add(base+"!", tok.Data)
			empty = false
			idx++
		case *etree.Element:
			md, err := p.elementAsMetadata(tok, fmt.Sprintf("%s%d,%s/", base, idx, p.prettyTag(tok)), true)
			if err != nil {
				return nil, err
			}
			meta = append(meta, md...)
			empty = false
			idx++
		default:
			return nil, fmt.Errorf("unsupported metadata element at %s%d", base, idx)
		}
	}
	if empty && withAttrib {
		meta.Add(base+".", "")
	}
	return meta, nil
}

// attrMetadata encodes element attributes as metadata, excluding any
// named keys.
func (p *parser) attrMetadata(el *etree.Element, base string, exclude ...string) resource.Metadata {
	var meta resource.Metadata
attrs:
	for _, a := range el.Attr {
		for _, x := range exclude {
			if a.Space == "" && a.Key == x {
				continue attrs
			}
		}
		meta.Add(base+p.prettyAttr(a), a.Value)
	}
	return meta
}

// localName resolves an element name, dropping XLIFF namespace prefixes.
func (p *parser) localName(el *etree.Element) string {
	if el.Space == "" || p.xliffPrefix[el.Space] {
		return el.Tag
	}
	return el.Space + ":" + el.Tag
}

func (p *parser) prettyTag(el *etree.Element) string {
	return p.localName(el)
}

func (p *parser) prettyAttr(a etree.Attr) string {
	if a.Space == "" || p.xliffPrefix[a.Space] {
		return a.Key
	}
	return a.Space + ":" + a.Key
}

func fullTag(el *etree.Element) string {
	if el.Space != "" {
		return el.Space + ":" + el.Tag
	}
	return el.Tag
}

// leadingText returns the character data before the first child element.
func leadingText(el *etree.Element) string {
	var b strings.Builder
	for _, tok := range el.Child {
		if _, ok := tok.(*etree.Element); ok {
			break
		}
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return b.String()
}

// commentStr joins adjacent XML comments into one comment string.
func commentStr(body []string) string {
	var lines []string
	for _, comment := range body {
		if comment == "" {
			continue
		}
		if dashAligned(comment) {
			// A dash is considered part of the indent if it's aligned
			// with the last dash of <!-- in a top-level comment.
			lines = append(lines, strings.Trim(strings.ReplaceAll(comment, "\n   - ", "\n"), " "))
		} else {
			var trimmed []string
			for _, line := range strings.Split(comment, "\n") {
				trimmed = append(trimmed, strings.TrimSpace(line))
			}
			lines = append(lines, strings.Trim(strings.Join(trimmed, "\n"), "\n"))
		}
	}
	return strings.Trim(strings.Join(lines, "\n\n"), "\n")
}

func dashAligned(comment string) bool {
	if !strings.HasPrefix(comment, " ") || !strings.HasSuffix(comment, " ") {
		return false
	}
	lines := strings.Split(comment, "\n")
	if len(lines) < 2 || len(lines[0]) < 2 {
		return false
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "   - ") {
			return false
		}
	}
	return true
}
