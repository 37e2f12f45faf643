// Package android reads and writes Android strings.xml resources.
//
// Android string resources contain several kinds of localizable values:
// DOCTYPE entity declarations that are inserted into other strings during
// XML parsing, strings with printf-style variables using "quotes" for
// special escaping behaviour, and strings with HTML contents that cannot
// include variables. Each kind needs different inline parsing, and
// message strings can be found in <string>, <string-array>, and <plurals>
// elements.
//
// For more information, see:
// https://developer.android.com/guide/topics/resources/string-resource
package android

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/beevik/etree"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/formats/dtd"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

var pluralCategories = []string{"zero", "one", "two", "few", "many", "other"}

func isPluralCategory(key string) bool {
	for _, c := range pluralCategories {
		if key == c {
			return true
		}
	}
	return false
}

// Entity references are replaced with private-use sentinels while the
// XML is parsed, so that they survive text handling and can be restored
// as expressions afterwards.
const (
	entStart = '\uE000'
	entEnd   = '\uE001'
)

// Parse reads an Android strings XML file into a message resource.
//
// If any internal DOCTYPE entities are declared, they are included as
// messages in an "!ENTITY" section. Resource and entry attributes are
// parsed as metadata.
//
// All XML, Android, and printf escapes are unescaped except for %n,
// which has a platform-dependent meaning.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	entities, err := scanDoctypeEntities(source)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	if len(entities) > 0 {
		doc.ReadSettings.Entity = map[string]string{}
		for _, ent := range entities {
			doc.ReadSettings.Entity[ent.name] = string(entStart) + ent.name + string(entEnd)
		}
	}
	if err := doc.ReadFromBytes(source); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil || root.Tag != "resources" || root.Space != "" {
		return nil, fmt.Errorf("unsupported root node")
	}

	res := &resource.Resource[message.Message]{Format: formats.Android}
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
		res.Meta.Add(attrKey(a), a.Value)
	}

	if len(entities) > 0 {
		section := &resource.Section[message.Message]{ID: resource.ID{"!ENTITY"}}
		for _, ent := range entities {
			section.AddEntry(&resource.Entry[message.Message]{
				ID:    resource.ID{ent.name},
				Value: &message.PatternMessage{Pattern: parseEntityValue(ent.value)},
			})
		}
		res.Sections = append(res.Sections, section)
	}

	section := &resource.Section[message.Message]{}
	res.Sections = append(res.Sections, section)
	var pending []string
	for _, tok := range root.Child {
		switch tok := tok.(type) {
		case *etree.Comment:
			pending = append(pending, tok.Data)
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				return nil, fmt.Errorf("unexpected text in resource: %q", tok.Data)
			}
			if strings.Count(tok.Data, "\n") > 1 && len(pending) > 0 {
				section.AddComment(commentStr(pending))
				pending = nil
			}
		case *etree.Element:
			if err := parseEntry(section, tok, pending); err != nil {
				return nil, err
			}
			pending = nil
		}
	}
	return res, nil
}

func parseEntry(section *resource.Section[message.Message], el *etree.Element, pending []string) error {
	name := el.SelectAttrValue("name", "")
	if name == "" {
		return fmt.Errorf("unnamed <%s> entry", fullTag(el))
	}
	var meta resource.Metadata
	for _, a := range el.Attr {
		if key := attrKey(a); key != "name" {
			meta.Add(key, a.Value)
		}
	}

	switch fullTag(el) {
	case "string":
		pattern, err := parsePattern(el)
		if err != nil {
			return err
		}
		section.AddEntry(&resource.Entry[message.Message]{
			ID:      resource.ID{name},
			Value:   &message.PatternMessage{Pattern: pattern},
			Comment: commentStr(pending),
			Meta:    meta,
		})

	case "plurals":
		value, err := parsePlurals(name, el, &pending)
		if err != nil {
			return err
		}
		section.AddEntry(&resource.Entry[message.Message]{
			ID:      resource.ID{name},
			Value:   value,
			Comment: commentStr(pending),
			Meta:    meta,
		})

	case "string-array":
		idx := 0
		for _, tok := range el.Child {
			switch tok := tok.(type) {
			case *etree.Comment:
				pending = append(pending, tok.Data)
			case *etree.CharData:
				if strings.TrimSpace(tok.Data) != "" {
					return fmt.Errorf("unexpected text in %s string-array: %q", name, tok.Data)
				}
			case *etree.Element:
				if fullTag(tok) != "item" {
					return fmt.Errorf("unsupported %s string-array child: <%s>", name, fullTag(tok))
				}
				pattern, err := parsePattern(tok)
				if err != nil {
					return err
				}
				section.AddEntry(&resource.Entry[message.Message]{
					ID:      resource.ID{name, strconv.Itoa(idx)},
					Value:   &message.PatternMessage{Pattern: pattern},
					Comment: commentStr(pending),
					Meta:    append(resource.Metadata{}, meta...),
				})
				pending = nil
				idx++
			}
		}

	default:
		return fmt.Errorf("unsupported entry: <%s>", fullTag(el))
	}
	return nil
}

func parsePlurals(name string, el *etree.Element, pending *[]string) (*message.SelectMessage, error) {
	msg := &message.SelectMessage{
		Declarations: message.Declarations{{
			Name: "quantity",
			Value: &message.Expression{
				Arg:      message.VariableRef{Name: "quantity"},
				Function: "number",
			},
		}},
		Selectors: []message.VariableRef{{Name: "quantity"}},
	}
	var varComment []string
	for _, tok := range el.Child {
		switch tok := tok.(type) {
		case *etree.Comment:
			varComment = append(varComment, tok.Data)
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				return nil, fmt.Errorf("unexpected text in %s plurals: %q", name, tok.Data)
			}
		case *etree.Element:
			if fullTag(tok) != "item" {
				return nil, fmt.Errorf("unsupported %s plurals child: <%s>", name, fullTag(tok))
			}
			quantity := tok.SelectAttrValue("quantity", "")
			if !isPluralCategory(quantity) {
				return nil, fmt.Errorf("invalid quantity for %s plurals item: %q", name, quantity)
			}
			if len(varComment) > 0 {
				if len(msg.Variants) > 0 {
					for _, c := range varComment {
						if c != "" {
							*pending = append(*pending, quantity+": "+c)
						}
					}
				} else {
					*pending = append(*pending, varComment...)
				}
				varComment = nil
			}
			var key message.VariantKey = message.StringKey(quantity)
			if quantity == "other" {
				key = message.CatchallKey{Value: "other"}
			}
			pattern, err := parsePattern(tok)
			if err != nil {
				return nil, err
			}
			msg.Variants = append(msg.Variants, message.Variant{
				Keys:    []message.VariantKey{key},
				Pattern: pattern,
			})
		}
	}
	return msg, nil
}

// parsePattern translates the contents of a <string> or <item> element.
// Elements without child elements hold Android-escaped text; elements
// with children hold raw HTML, passed through as markup.
func parsePattern(el *etree.Element) (message.Pattern, error) {
	if len(el.ChildElements()) == 0 {
		text := textContent(el)
		plain, entities := extractEntities(text)
		if len(entities) == 0 && isResourceRef(plain) {
			return message.Pattern{&message.Expression{
				Arg:      message.Literal(plain),
				Function: "reference",
			}}, nil
		}
		if plain == "" {
			return message.Pattern{}, nil
		}
		return parseInline(collapseSpaces(plain), entities)
	}

	var pattern message.Pattern
	for _, tok := range el.Child {
		switch tok := tok.(type) {
		case *etree.CharData:
			pattern = appendRawText(pattern, tok.Data)
		case *etree.Element:
			var err error
			pattern, err = parseElement(pattern, tok)
			if err != nil {
				return nil, err
			}
		}
	}
	return pattern, nil
}

// parseElement appends a raw HTML child element as markup.
func parseElement(pattern message.Pattern, el *etree.Element) (message.Pattern, error) {
	open := &message.Markup{Kind: message.MarkupOpen, Name: fullTag(el)}
	for _, a := range el.Attr {
		open.Options.Set(attrKey(a), message.Literal(a.Value))
	}
	pattern = append(pattern, open)
	for _, tok := range el.Child {
		switch tok := tok.(type) {
		case *etree.CharData:
			pattern = appendRawText(pattern, tok.Data)
		case *etree.Element:
			var err error
			pattern, err = parseElement(pattern, tok)
			if err != nil {
				return nil, err
			}
		}
	}
	return append(pattern, &message.Markup{Kind: message.MarkupClose, Name: fullTag(el)}), nil
}

// appendRawText adds HTML-mode text, restoring sentinel-encoded entity
// references as expressions.
func appendRawText(pattern message.Pattern, text string) message.Pattern {
	plain, entities := extractEntities(text)
	if len(entities) == 0 {
		return pattern.AppendText(text)
	}
	for i, chunk := range strings.Split(plain, "\x00") {
		if i > 0 {
			pattern = append(pattern, entityExpression(entities[i-1]))
		}
		pattern = pattern.AppendText(chunk)
	}
	return pattern
}

func entityExpression(name string) *message.Expression {
	return &message.Expression{
		Arg:      message.VariableRef{Name: name},
		Function: "entity",
	}
}

// parseEntityValue translates a DOCTYPE entity value, with nested
// &name; references becoming entity expressions.
func parseEntityValue(src string) message.Pattern {
	var pattern message.Pattern
	pos := 0
	for i := 0; i < len(src); i++ {
		if src[i] != '&' {
			continue
		}
		end := strings.IndexByte(src[i:], ';')
		if end < 0 {
			break
		}
		name := src[i+1 : i+end]
		if !dtd.IsName(name) {
			continue
		}
		pattern = pattern.AppendText(src[pos:i])
		pattern = append(pattern, entityExpression(name))
		pos = i + end + 1
		i = pos - 1
	}
	return pattern.AppendText(src[pos:])
}

// textContent concatenates the character data of an element without
// child elements.
func textContent(el *etree.Element) string {
	var b strings.Builder
	for _, tok := range el.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return b.String()
}

// extractEntities replaces sentinel-encoded entity references with NUL
// bytes, returning the entity names in order of appearance.
func extractEntities(s string) (string, []string) {
	if !strings.ContainsRune(s, entStart) {
		return s, nil
	}
	var b strings.Builder
	var names []string
	for {
		start := strings.IndexRune(s, entStart)
		if start < 0 {
			break
		}
		end := strings.IndexRune(s[start:], entEnd)
		if end < 0 {
			break
		}
		b.WriteString(s[:start])
		b.WriteByte(0)
		names = append(names, s[start+len(string(entStart)):start+end])
		s = s[start+end+len(string(entEnd)):]
	}
	b.WriteString(s)
	return b.String(), names
}

// isResourceRef reports whether the text is a resource reference such as
// @string/foo, @android:color/bar, or ?attr/baz.
//
// https://developer.android.com/guide/topics/resources/providing-resources#ResourcesFromXml
func isResourceRef(s string) bool {
	if s == "" {
		return false
	}
	scanWord := func(s string) int {
		n := 0
		for _, c := range s {
			if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
				break
			}
			n += len(string(c))
		}
		return n
	}
	switch s[0] {
	case '@':
		rest := s[1:]
		n := scanWord(rest)
		if n == 0 {
			return false
		}
		if n < len(rest) && rest[n] == ':' {
			rest = rest[n+1:]
			n = scanWord(rest)
			if n == 0 {
				return false
			}
		}
		if n >= len(rest) || rest[n] != '/' {
			return false
		}
		rest = rest[n+1:]
		n = scanWord(rest)
		return n > 0 && n == len(rest)
	case '?':
		rest := s[1:]
		n := scanWord(rest)
		if n == 0 {
			return false
		}
		if n < len(rest) && rest[n] == ':' {
			rest = rest[n+1:]
			n = scanWord(rest)
			if n == 0 {
				return false
			}
		}
		if n < len(rest) && rest[n] == '/' {
			rest = rest[n+1:]
			n = scanWord(rest)
			if n == 0 {
				return false
			}
		}
		return n == len(rest)
	}
	return false
}

// collapseSpaces collapses all whitespace outside "double quoted" parts
// to single spaces. The quotes themselves are dropped; their contents
// are preserved verbatim.
func collapseSpaces(src string) string {
	var b strings.Builder
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		if runes[i] == '"' && (i == 0 || runes[i-1] != '\\') {
			j := i + 1
			for j < len(runes) && !(runes[j] == '"' && runes[j-1] != '\\') {
				j++
			}
			if j < len(runes) {
				b.WriteString(string(runes[i+1 : j]))
				i = j + 1
				continue
			}
		}
		if unicode.IsSpace(runes[i]) {
			b.WriteByte(' ')
			for i < len(runes) && unicode.IsSpace(runes[i]) {
				i++
			}
			continue
		}
		b.WriteRune(runes[i])
		i++
	}
	return b.String()
}

// parseInline tokenizes Android-escaped text: entity sentinels, special
// character and \uNNNN escapes, escaped HTML fragments such as &lt;b>,
// and printf-style placeholders.
func parseInline(src string, entities []string) (message.Pattern, error) {
	var pattern message.Pattern
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			pattern = pattern.AppendText(cur.String())
			cur.Reset()
		}
	}
	runes := []rune(src)
	i := 0
	argCount := 0
	for i < len(runes) {
		switch c := runes[i]; c {
		case 0:
			flush()
			pattern = append(pattern, entityExpression(entities[0]))
			entities = entities[1:]
			i++
		case '\\':
			if i+1 >= len(runes) {
				cur.WriteRune(c)
				i++
				break
			}
			switch n := runes[i+1]; n {
			case '@', '?', '\'', '"':
				cur.WriteRune(n)
				i += 2
			case 'n':
				cur.WriteByte('\n')
				i += 2
			case 't':
				cur.WriteByte('\t')
				i += 2
			case 'u':
				if val, ok := decimal4(runes[i+2:]); ok {
					cur.WriteRune(rune(val))
					i += 6
				} else {
					cur.WriteRune(c)
					i++
				}
			default:
				cur.WriteRune(c)
				i++
			}
		case '<':
			// Escaped HTML element, e.g. &lt;b>. Fragments containing
			// internal % formatting are not wrapped as literals.
			j := i + 1
			for j < len(runes) && runes[j] != '>' && runes[j] != '%' {
				j++
			}
			if j > i+1 && j < len(runes) && runes[j] == '>' {
				flush()
				pattern = append(pattern, &message.Expression{
					Arg:      message.Literal(string(runes[i : j+1])),
					Function: "html",
				})
				i = j + 1
			} else {
				cur.WriteRune(c)
				i++
			}
		case '%':
			source, conv, index, n := scanPrintf(runes[i:])
			if n == 0 {
				cur.WriteRune(c)
				i++
				break
			}
			i += n
			if conv == '%' {
				cur.WriteByte('%')
				break
			}
			flush()
			argCount++
			argName := "arg" + strconv.Itoa(argCount)
			if index > 0 {
				argName = "arg" + strconv.Itoa(index)
			}
			pattern = append(pattern, &message.Expression{
				Arg:        message.VariableRef{Name: argName},
				Function:   printfFunction(conv),
				Attributes: message.Attributes{{Name: "source", Value: message.String(source)}},
			})
		default:
			cur.WriteRune(c)
			i++
		}
	}
	flush()
	return pattern, nil
}

func decimal4(runes []rune) (int, bool) {
	if len(runes) < 4 {
		return 0, false
	}
	val := 0
	for _, c := range runes[:4] {
		if c < '0' || c > '9' {
			return 0, false
		}
		val = val*10 + int(c-'0')
	}
	return val, true
}

// scanPrintf matches %[n$][flag][width]conv starting at a % sign,
// returning the matched source text, the conversion character, the
// explicit argument index (0 if none), and the match length in runes.
// A zero length means no match.
func scanPrintf(runes []rune) (string, rune, int, int) {
	i := 1
	index := 0
	if i+1 < len(runes) && runes[i] >= '1' && runes[i] <= '9' && runes[i+1] == '$' {
		index = int(runes[i] - '0')
		i += 2
	}
	if i < len(runes) && strings.ContainsRune("-#+ 0,(", runes[i]) {
		i++
	}
	for i < len(runes) && (runes[i] == '.' || runes[i] >= '0' && runes[i] <= '9') {
		i++
	}
	if i >= len(runes) {
		return "", 0, 0, 0
	}
	conv := runes[i]
	switch {
	case conv == '%':
		i++
	case conv == 't' || conv == 'T':
		if i+1 >= len(runes) || !isASCIILetter(runes[i+1]) {
			return "", 0, 0, 0
		}
		i += 2
	case isASCIILetter(conv):
		i++
	default:
		return "", 0, 0, 0
	}
	return string(runes[:i]), conv, index, i
}

func isASCIILetter(c rune) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func printfFunction(conv rune) string {
	switch conv {
	case 'b', 'B':
		return "boolean"
	case 'c', 'C', 's', 'S':
		return "string"
	case 'd', 'h', 'H', 'o', 'x', 'X':
		return "integer"
	case 'a', 'A', 'e', 'E', 'f', 'g', 'G':
		return "number"
	case 't', 'T':
		return "datetime"
	}
	return ""
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

func fullTag(el *etree.Element) string {
	if el.Space != "" {
		return el.Space + ":" + el.Tag
	}
	return el.Tag
}

func attrKey(a etree.Attr) string {
	if a.Space != "" {
		return a.Space + ":" + a.Key
	}
	return a.Key
}

type entityDef struct {
	name  string
	value string
}

// scanDoctypeEntities extracts <!ENTITY name "value"> declarations from
// the internal DTD subset of a DOCTYPE declaration, if any.
func scanDoctypeEntities(source []byte) ([]entityDef, error) {
	src := string(source)
	start := strings.Index(src, "<!DOCTYPE")
	if start < 0 {
		return nil, nil
	}
	open := strings.IndexByte(src[start:], '[')
	if open < 0 {
		return nil, nil
	}
	subset := src[start+open+1:]
	if end := strings.IndexByte(subset, ']'); end >= 0 {
		subset = subset[:end]
	}
	var entities []entityDef
	for i := 0; i < len(subset); {
		if strings.HasPrefix(subset[i:], "<!--") {
			end := strings.Index(subset[i:], "-->")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment in DOCTYPE")
			}
			i += end + 3
			continue
		}
		if !strings.HasPrefix(subset[i:], "<!ENTITY") {
			i++
			continue
		}
		i += len("<!ENTITY")
		for i < len(subset) && isXMLSpace(subset[i]) {
			i++
		}
		ns := i
		for i < len(subset) && !isXMLSpace(subset[i]) && subset[i] != '"' && subset[i] != '\'' {
			i++
		}
		name := subset[ns:i]
		if !dtd.IsName(name) {
			return nil, fmt.Errorf("invalid entity name: %q", name)
		}
		for i < len(subset) && isXMLSpace(subset[i]) {
			i++
		}
		if i >= len(subset) || subset[i] != '"' && subset[i] != '\'' {
			return nil, fmt.Errorf("malformed entity declaration for %s", name)
		}
		quote := subset[i]
		i++
		vs := i
		for i < len(subset) && subset[i] != quote {
			i++
		}
		if i >= len(subset) {
			return nil, fmt.Errorf("unterminated entity value for %s", name)
		}
		value := subset[vs:i]
		i++
		for i < len(subset) && isXMLSpace(subset[i]) {
			i++
		}
		if i >= len(subset) || subset[i] != '>' {
			return nil, fmt.Errorf("malformed entity declaration for %s", name)
		}
		i++
		entities = append(entities, entityDef{name, value})
	}
	return entities, nil
}

func isXMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
