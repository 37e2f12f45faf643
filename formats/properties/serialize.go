package properties

import (
	"fmt"
	"io"
	"strings"

	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Serialize writes a resource as the contents of a .properties file.
//
// Section identifiers are prepended to their constituent message
// identifiers; multi-part identifiers are joined with `.`. Metadata is
// not supported. Comment lines not starting with `#` are prefixed with
// `# `. Re-parsing serialized output is not guaranteed to result in the
// same resource, as sections are flattened.
func Serialize(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	s := commentWriter{w: w, trim: trimComments, atEmptyLine: true}
	if err := s.comment(res.Comment, res.Meta, true); err != nil {
		return err
	}
	for _, section := range res.Sections {
		if err := s.comment(section.Comment, section.Meta, true); err != nil {
			return err
		}
		idPrefix := ""
		if len(section.ID) > 0 {
			idPrefix = section.ID.String() + "."
		}
		for _, se := range section.Entries {
			switch e := se.(type) {
			case *resource.Entry[message.Message]:
				if err := s.comment(e.Comment, e.Meta, false); err != nil {
					return err
				}
				key := idPrefix + e.ID.String()
				value, ok := message.PatternText(e.Value)
				if !ok {
					return fmt.Errorf("unsupported message for %s: %v", key, e.Value)
				}
				line := escapeKey(key) + " = " + escapeValue(value) + "\n"
				if _, err := io.WriteString(w, line); err != nil {
					return err
				}
				s.atEmptyLine = false
			case resource.Comment:
				if err := s.comment(e.Comment, nil, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// commentWriter emits `#`-prefixed comment blocks, separating
// standalone blocks from surrounding content with blank lines.
type commentWriter struct {
	w           io.Writer
	trim        bool
	atEmptyLine bool
}

func (s *commentWriter) comment(text string, meta resource.Metadata, standalone bool) error {
	if s.trim {
		return nil
	}
	if len(meta) > 0 {
		return fmt.Errorf("metadata is not supported")
	}
	if text == "" {
		return nil
	}
	if standalone && !s.atEmptyLine {
		if _, err := io.WriteString(s.w, "\n"); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(strings.Trim(text, "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			line = "#"
		} else if !strings.HasPrefix(line, "#") {
			line = "# " + strings.TrimRight(line, " \t")
		} else {
			line = strings.TrimRight(line, " \t")
		}
		if _, err := io.WriteString(s.w, line+"\n"); err != nil {
			return err
		}
	}
	if standalone {
		if _, err := io.WriteString(s.w, "\n"); err != nil {
			return err
		}
		s.atEmptyLine = true
	}
	return nil
}

func escapeKey(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch r {
		case '\\', '=', ':', ' ', '\t', '\f':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '#', '!':
			if i == 0 {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func escapeValue(value string) string {
	var b strings.Builder
	for i, r := range value {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\f':
			b.WriteString(`\f`)
		case r == ' ' && i == 0:
			// A leading space would be eaten by the parser.
			b.WriteString(`\ `)
		case r < 0x20:
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	// A trailing bare space would be invisible in the file.
	if strings.HasSuffix(s, " ") && !strings.HasSuffix(s, `\ `) {
		s = s[:len(s)-1] + "\\u0020"
	}
	return s
}
