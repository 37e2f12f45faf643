package xliff

import (
	"fmt"
	"io"
	"strings"

	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

type nodeKind int

const (
	elementNode nodeKind = iota
	textNode
	commentNode
)

type xmlAttr struct {
	name  string
	value string
}

// node is a single XML output token: an element with attributes and
// children, a text chunk, or a comment.
type node struct {
	kind     nodeKind
	name     string
	text     string
	attrs    []xmlAttr
	parent   *node
	children []*node
}

func newElement(name string) *node {
	return &node{kind: elementNode, name: name}
}

func (n *node) appendChild(child *node) {
	child.parent = n
	n.children = append(n.children, child)
}

func (n *node) insertAfter(ref, child *node) {
	for i, c := range n.children {
		if c == ref {
			n.children = append(n.children, nil)
			copy(n.children[i+2:], n.children[i+1:])
			n.children[i+1] = child
			child.parent = n
			return
		}
	}
	n.appendChild(child)
}

// appendText merges adjacent text content, matching how text and
// element tails accumulate.
func (n *node) appendText(s string) {
	if s == "" {
		return
	}
	if len(n.children) > 0 {
		if last := n.children[len(n.children)-1]; last.kind == textNode {
			last.text += s
			return
		}
	}
	n.appendChild(&node{kind: textNode, text: s})
}

// setText replaces the text content before the first child element.
func (n *node) setText(s string) {
	if len(n.children) > 0 && n.children[0].kind == textNode {
		n.children[0].text = s
		return
	}
	child := &node{kind: textNode, text: s, parent: n}
	n.children = append([]*node{child}, n.children...)
}

func (n *node) find(name string) *node {
	for _, c := range n.children {
		if c.kind == elementNode && c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) hasText() bool {
	for _, c := range n.children {
		if c.kind == textNode {
			return true
		}
	}
	return false
}

// Serialize writes a resource as an XLIFF 1.2 file.
//
// Sections identify files and groups within them, with the first
// identifier part written as the <file> "original" attribute and later
// parts as <group> "id" attributes. Metadata keys encode XML element
// data as described in the package documentation.
func Serialize(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	if res.Comment != "" && !trimComments {
		b.WriteString("\n<!--" + commentBody(res.Comment, 0) + "-->\n\n")
	}

	nsmap := map[string]string{}
	root := newElement("xliff")
	var rest []xmlAttr
	for _, m := range res.Meta {
		if m.Key == "xmlns" {
			nsmap[""] = m.Value
			root.attrs = append(root.attrs, xmlAttr{m.Key, m.Value})
		} else if prefix, ok := strings.CutPrefix(m.Key, "xmlns:"); ok {
			nsmap[prefix] = m.Value
			root.attrs = append(root.attrs, xmlAttr{m.Key, m.Value})
		} else {
			rest = append(rest, xmlAttr{m.Key, m.Value})
		}
	}
	for _, a := range rest {
		if err := checkName(nsmap, a.name); err != nil {
			return err
		}
		root.attrs = append(root.attrs, a)
	}

	prev := map[string]*node{}
	joinID := func(id resource.ID) string { return strings.Join(id, "\x00") }
	for _, section := range res.Sections {
		if len(section.ID) == 0 {
			return fmt.Errorf("anonymous sections are not supported")
		}
		if _, ok := prev[joinID(section.ID)]; ok {
			return fmt.Errorf("duplicate section identifier: %v", section.ID)
		}
		depth := len(section.ID)
		for depth > 0 {
			if _, ok := prev[joinID(section.ID[:depth])]; ok {
				break
			}
			depth--
		}
		parent := root
		if depth > 0 {
			parent = prev[joinID(section.ID[:depth])]
		}
		for _, idPart := range section.ID[depth:] {
			depth++
			if parent == root {
				file := newElement("file")
				file.attrs = append(file.attrs, xmlAttr{"original", idPart})
				root.appendChild(file)
				if err := assignMetadata(file, section.Meta, "", nsmap, trimComments); err != nil {
					return err
				}
				body := newElement("body")
				file.appendChild(body)
				parent = body
			} else {
				group := newElement("group")
				group.attrs = append(group.attrs, xmlAttr{"id", idPart})
				parent.appendChild(group)
				if err := assignMetadata(group, section.Meta, "", nsmap, trimComments); err != nil {
					return err
				}
				parent = group
			}
			prev[joinID(section.ID[:depth])] = parent
		}

		indent := 2 * len(section.ID)
		if section.Comment != "" && !trimComments {
			comment := &node{kind: commentNode, text: commentBody(section.Comment, indent)}
			pp := parent.parent
			pp.insertBefore(parent, comment)
		}

		indent += 2
		for _, se := range section.Entries {
			switch e := se.(type) {
			case resource.Comment:
				if !trimComments {
					parent.appendChild(&node{kind: commentNode, text: commentBody(e.Comment, indent)})
				}
			case *resource.Entry[message.Message]:
				if err := serializeEntry(parent, e, nsmap, trimComments); err != nil {
					return err
				}
			}
		}
	}

	render(&b, root, 0)
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (n *node) insertBefore(ref, child *node) {
	for i, c := range n.children {
		if c == ref {
			n.children = append(n.children, nil)
			copy(n.children[i+1:], n.children[i:])
			n.children[i] = child
			child.parent = n
			return
		}
	}
	n.appendChild(child)
}

func serializeEntry(parent *node, e *resource.Entry[message.Message], nsmap map[string]string, trimComments bool) error {
	if len(e.ID) != 1 {
		return fmt.Errorf("unsupported entry id: %v", e.ID)
	}
	id := e.ID[0]

	pm, isPattern := e.Value.(*message.PatternMessage)
	if e.Value != nil && !isPattern {
		return fmt.Errorf("unsupported message for %s: %v", id, e.Value)
	}
	tag := "trans-unit"
	if isBinUnit(pm) {
		tag = "bin-unit"
	}

	unit := newElement(tag)
	unit.attrs = append(unit.attrs, xmlAttr{"id", id})
	parent.appendChild(unit)
	if err := assignMetadata(unit, e.Meta, "", nsmap, trimComments); err != nil {
		return err
	}

	var target *node
	if tag == "trans-unit" && pm != nil && len(pm.Pattern) > 0 {
		if len(pm.Declarations) > 0 {
			return fmt.Errorf("unsupported message with declarations for %s", id)
		}
		target = unit.find("target")
		if target == nil {
			source := unit.find("source")
			if source == nil {
				return fmt.Errorf("invalid entry with no source: %s", id)
			}
			target = newElement("target")
			unit.insertAfter(source, target)
		}
		if err := setPattern(target, pm.Pattern, nsmap); err != nil {
			return fmt.Errorf("unsupported pattern for %s: %w", id, err)
		}
	}

	if e.Comment != "" && !trimComments {
		note := unit.find("note")
		if note == nil {
			prevEl := target
			if prevEl == nil {
				prevEl = unit.find("target")
			}
			if prevEl == nil {
				prevEl = unit.find("source")
			}
			if prevEl == nil {
				return fmt.Errorf("invalid entry with no source: %s", id)
			}
			note = newElement("note")
			unit.insertAfter(prevEl, note)
		}
		note.setText(e.Comment)
	}
	return nil
}

func isBinUnit(pm *message.PatternMessage) bool {
	if pm == nil || len(pm.Pattern) != 1 {
		return false
	}
	expr, ok := pm.Pattern[0].(*message.Expression)
	if !ok {
		return false
	}
	_, ok = expr.Attributes.Get("bin-unit")
	return ok
}

// assignMetadata rebuilds attributes, text, comments, and child
// elements from path-keyed metadata.
func assignMetadata(el *node, meta resource.Metadata, base string, nsmap map[string]string, trimComments bool) error {
	var done []string
next:
	for _, m := range meta {
		key := strings.TrimPrefix(m.Key, base)
		switch {
		case key == ".":
			el.appendText(m.Value)
		case key == "!":
			el.appendChild(&node{kind: commentNode, text: m.Value})
		case strings.Contains(key, "/"):
			for _, prefix := range done {
				if strings.HasPrefix(m.Key, prefix) {
					continue next
				}
			}
			nameEnd := strings.Index(key, "/")
			name := key[:nameEnd]
			if comma := strings.Index(name, ","); comma >= 0 {
				name = name[comma+1:]
			}
			childBase := base + key[:nameEnd+1]
			done = append(done, childBase)
			if trimComments && name == "note" {
				continue
			}
			if err := checkName(nsmap, name); err != nil {
				return err
			}
			child := newElement(name)
			el.appendChild(child)
			var childMeta resource.Metadata
			for _, cm := range meta {
				if strings.HasPrefix(cm.Key, childBase) {
					childMeta = append(childMeta, cm)
				}
			}
			if err := assignMetadata(child, childMeta, childBase, nsmap, trimComments); err != nil {
				return err
			}
		default:
			if err := checkName(nsmap, key); err != nil {
				return err
			}
			el.attrs = append(el.attrs, xmlAttr{key, m.Value})
		}
	}
	return nil
}

// setPattern writes a message pattern into a <target> element, with
// markup becoming nested elements.
func setPattern(el *node, pattern message.Pattern, nsmap map[string]string) error {
	parent := el
	for _, part := range pattern {
		switch part := part.(type) {
		case message.Text:
			parent.appendText(string(part))
		case *message.Markup:
			if err := checkName(nsmap, part.Name); err != nil {
				return err
			}
			if part.Kind == message.MarkupClose {
				if len(part.Options) > 0 {
					return fmt.Errorf("options on closing markup are not supported: %s", part.Name)
				}
				if parent == el || parent.name != part.Name {
					return fmt.Errorf("improper element nesting for %s", part.Name)
				}
				parent = parent.parent
				continue
			}
			child := newElement(part.Name)
			for _, opt := range part.Options {
				lit, ok := opt.Value.(message.Literal)
				if !ok {
					return fmt.Errorf("unsupported markup with variable option: %s", part.Name)
				}
				if err := checkName(nsmap, opt.Name); err != nil {
					return err
				}
				child.attrs = append(child.attrs, xmlAttr{opt.Name, string(lit)})
			}
			parent.appendChild(child)
			if part.Kind == message.MarkupOpen {
				parent = child
			}
		case *message.Expression:
			return fmt.Errorf("unsupported expression in pattern")
		}
	}
	if parent != el {
		return fmt.Errorf("unclosed element <%s>", parent.name)
	}
	return nil
}

// checkName verifies that a prefixed name's namespace is declared on
// the resource.
func checkName(nsmap map[string]string, name string) error {
	prefix, _, ok := strings.Cut(name, ":")
	if !ok || prefix == "xml" || prefix == "xmlns" {
		return nil
	}
	if _, ok := nsmap[prefix]; ok {
		return nil
	}
	return fmt.Errorf("name with unknown namespace: %q", name)
}

// render writes the node tree with two-space indentation. An element
// holding any text renders its contents inline; a negative depth marks
// an inline context.
func render(b *strings.Builder, n *node, depth int) {
	switch n.kind {
	case commentNode:
		b.WriteString("<!--" + n.text + "-->")
	case textNode:
		b.WriteString(escapeText(n.text))
	case elementNode:
		b.WriteString("<" + n.name)
		for _, a := range n.attrs {
			b.WriteString(" " + a.name + `="` + escapeAttr(a.value) + `"`)
		}
		if len(n.children) == 0 {
			b.WriteString("/>")
			return
		}
		b.WriteString(">")
		if depth < 0 || n.hasText() {
			for _, c := range n.children {
				render(b, c, -1)
			}
		} else {
			sp := strings.Repeat("  ", depth+1)
			for _, c := range n.children {
				b.WriteString("\n" + sp)
				render(b, c, depth+1)
			}
			b.WriteString("\n" + strings.Repeat("  ", depth))
		}
		b.WriteString("</" + n.name + ">")
	}
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}

func escapeAttr(s string) string {
	return strings.ReplaceAll(escapeText(s), `"`, "&quot;")
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
