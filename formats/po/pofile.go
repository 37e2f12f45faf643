// Package po reads and writes gettext PO and POT catalogs.
package po

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// unit is a single PO catalog entry.
type unit struct {
	TranslatorComments string   // #  lines
	ExtractedComments  string   // #. lines
	References         []string // #: lines, one file:line per element
	Flags              []string // #, lines
	Obsolete           bool     // #~ prefixed entry
	MsgCtxt            string
	MsgID              string
	MsgIDPlural        string
	MsgStr             string
	MsgStrPlural       map[int]string
}

// file is a parsed PO catalog: the header unit's comment and metadata,
// and the translation units.
type file struct {
	HeaderComment string
	Metadata      []headerField
	Units         []*unit
}

type headerField struct {
	Key   string
	Value string
}

// parseFile reads a PO catalog. The first entry with an empty msgid is
// the header; its msgstr holds `Key: Value` metadata fields.
func parseFile(source string) (*file, error) {
	f := &file{}
	var u *unit
	var field *string // target of string continuation lines
	pluralIdx := -1   // continuation target is msgstr[pluralIdx] when >= 0
	obsolete := false

	seenHeader := false
	flush := func() {
		if u == nil {
			return
		}
		if u.MsgID == "" && u.MsgCtxt == "" && !seenHeader && len(f.Units) == 0 {
			seenHeader = true
			f.HeaderComment = strings.TrimRight(strings.TrimLeft(u.TranslatorComments, "\n"), "\n \t")
			f.Metadata = parseHeaderFields(u.MsgStr)
		} else {
			f.Units = append(f.Units, u)
		}
		u = nil
		field = nil
		pluralIdx = -1
	}

	lineno := 0
	for _, line := range strings.Split(source, "\n") {
		lineno++
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			obsolete = false
			continue
		}
		if strings.HasPrefix(trimmed, "#~") {
			obsolete = true
			trimmed = strings.TrimSpace(trimmed[2:])
			if trimmed == "" {
				continue
			}
		}
		if u == nil {
			u = &unit{}
		}
		u.Obsolete = u.Obsolete || obsolete
		switch {
		case strings.HasPrefix(trimmed, "#."):
			u.ExtractedComments = appendLine(u.ExtractedComments, strings.TrimPrefix(trimmed[2:], " "))
			field, pluralIdx = nil, -1
		case strings.HasPrefix(trimmed, "#:"):
			u.References = append(u.References, strings.Fields(trimmed[2:])...)
			field, pluralIdx = nil, -1
		case strings.HasPrefix(trimmed, "#,"):
			for _, flag := range strings.Split(trimmed[2:], ",") {
				if flag = strings.TrimSpace(flag); flag != "" {
					u.Flags = append(u.Flags, flag)
				}
			}
			field, pluralIdx = nil, -1
		case strings.HasPrefix(trimmed, "#|"):
			// Previous msgid annotations are not preserved.
			field, pluralIdx = nil, -1
		case strings.HasPrefix(trimmed, "#"):
			u.TranslatorComments = appendLine(u.TranslatorComments, strings.TrimPrefix(trimmed[1:], " "))
			field, pluralIdx = nil, -1
		case strings.HasPrefix(trimmed, "msgctxt "):
			field, pluralIdx = &u.MsgCtxt, -1
			if err := appendString(field, trimmed[len("msgctxt "):], lineno); err != nil {
				return nil, err
			}
		case strings.HasPrefix(trimmed, "msgid_plural "):
			field, pluralIdx = &u.MsgIDPlural, -1
			if err := appendString(field, trimmed[len("msgid_plural "):], lineno); err != nil {
				return nil, err
			}
		case strings.HasPrefix(trimmed, "msgid "):
			field, pluralIdx = &u.MsgID, -1
			if err := appendString(field, trimmed[len("msgid "):], lineno); err != nil {
				return nil, err
			}
		case strings.HasPrefix(trimmed, "msgstr["):
			end := strings.IndexByte(trimmed, ']')
			if end < 0 {
				return nil, fmt.Errorf("line %d: malformed msgstr index", lineno)
			}
			idx, err := strconv.Atoi(trimmed[len("msgstr["):end])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("line %d: malformed msgstr index", lineno)
			}
			if u.MsgStrPlural == nil {
				u.MsgStrPlural = map[int]string{}
			}
			s, err := unquote(strings.TrimSpace(trimmed[end+1:]))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineno, err)
			}
			u.MsgStrPlural[idx] += s
			field, pluralIdx = nil, idx
		case strings.HasPrefix(trimmed, "msgstr "):
			field, pluralIdx = &u.MsgStr, -1
			if err := appendString(field, trimmed[len("msgstr "):], lineno); err != nil {
				return nil, err
			}
		case strings.HasPrefix(trimmed, `"`):
			s, err := unquote(trimmed)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineno, err)
			}
			switch {
			case pluralIdx >= 0:
				u.MsgStrPlural[pluralIdx] += s
			case field != nil:
				*field += s
			default:
				return nil, fmt.Errorf("line %d: unexpected continuation line", lineno)
			}
		default:
			return nil, fmt.Errorf("line %d: unexpected content: %s", lineno, trimmed)
		}
	}
	flush()
	return f, nil
}

func appendLine(s, line string) string {
	if s == "" {
		return line
	}
	return s + "\n" + line
}

// appendString parses a quoted PO string fragment and appends it.
func appendString(target *string, fragment string, lineno int) error {
	s, err := unquote(fragment)
	if err != nil {
		return fmt.Errorf("line %d: %w", lineno, err)
	}
	*target += s
	return nil
}

func unquote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("malformed string: %s", s)
	}
	var b strings.Builder
	body := s[1 : len(s)-1]
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(body[i])
		}
	}
	return b.String(), nil
}

func parseHeaderFields(header string) []headerField {
	var fields []headerField
	for _, line := range strings.Split(header, "\n") {
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields = append(fields, headerField{strings.TrimSpace(key), strings.TrimSpace(value)})
	}
	return fields
}

// writeUnit emits one catalog entry in canonical PO layout.
func (u *unit) write(b *strings.Builder, trimComments bool) {
	prefix := ""
	if u.Obsolete {
		prefix = "#~ "
	}
	if !trimComments {
		for _, line := range splitComment(u.TranslatorComments) {
			if line == "" {
				b.WriteString("#\n")
			} else {
				b.WriteString("# " + line + "\n")
			}
		}
		for _, line := range splitComment(u.ExtractedComments) {
			b.WriteString("#. " + line + "\n")
		}
		if len(u.References) > 0 {
			b.WriteString("#: " + strings.Join(u.References, " ") + "\n")
		}
		if len(u.Flags) > 0 {
			b.WriteString("#, " + strings.Join(u.Flags, ", ") + "\n")
		}
	}
	if u.MsgCtxt != "" {
		writeField(b, prefix, "msgctxt", u.MsgCtxt)
	}
	writeField(b, prefix, "msgid", u.MsgID)
	if u.MsgIDPlural != "" {
		writeField(b, prefix, "msgid_plural", u.MsgIDPlural)
	}
	if u.MsgStrPlural != nil {
		indices := make([]int, 0, len(u.MsgStrPlural))
		for idx := range u.MsgStrPlural {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			writeField(b, prefix, fmt.Sprintf("msgstr[%d]", idx), u.MsgStrPlural[idx])
		}
	} else {
		writeField(b, prefix, "msgstr", u.MsgStr)
	}
}

func splitComment(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.Trim(s, "\n"), "\n")
}

// writeField emits `keyword "value"`, splitting multi-line values into
// an empty first string followed by one string per line.
func writeField(b *strings.Builder, prefix, keyword, value string) {
	lines := strings.SplitAfter(value, "\n")
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > 1 {
		b.WriteString(prefix + keyword + " \"\"\n")
		for _, line := range lines {
			b.WriteString(prefix + quote(line) + "\n")
		}
	} else {
		b.WriteString(prefix + keyword + " " + quote(value) + "\n")
	}
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('"')
	return b.String()
}
