package dtd

import (
	"fmt"
	"io"
	"strings"

	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Serialize writes a resource as the contents of a DTD file.
//
// Section identifiers are prepended to their constituent message
// identifiers; multi-part identifiers are joined with `.`. Metadata is
// not supported. Re-parsing serialized output is not guaranteed to
// result in the same resource, as sections are flattened.
func Serialize(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	atEmptyLine := true
	comment := func(text string, meta resource.Metadata, standalone bool) error {
		if trimComments {
			return nil
		}
		if len(meta) > 0 {
			return fmt.Errorf("metadata is not supported")
		}
		if text == "" {
			return nil
		}
		if standalone && !atEmptyLine {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		lines := strings.Split(strings.Trim(text, "\n"), "\n")
		for i, line := range lines {
			// Comments can't include --, so add a zero width space
			// between and after dashes beyond the first.
			lines[i] = strings.ReplaceAll(strings.TrimRight(line, " \t"), "--", "-\u200b-\u200b")
		}
		var b strings.Builder
		if lines[0] == "" || strings.HasPrefix(lines[0], " ") {
			b.WriteString("<!--")
		} else {
			b.WriteString("<!-- ")
		}
		b.WriteString(lines[0])
		for _, line := range lines[1:] {
			b.WriteByte('\n')
			if strings.TrimSpace(line) != "" {
				if !strings.HasPrefix(line, " ") {
					b.WriteString("     ")
				}
				b.WriteString(line)
			}
		}
		b.WriteString(" -->\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if standalone {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
			atEmptyLine = true
		}
		return nil
	}

	if err := comment(res.Comment, res.Meta, true); err != nil {
		return err
	}
	for _, section := range res.Sections {
		if err := comment(section.Comment, section.Meta, true); err != nil {
			return err
		}
		idPrefix := ""
		if len(section.ID) > 0 {
			idPrefix = section.ID.String() + "."
		}
		for _, se := range section.Entries {
			switch e := se.(type) {
			case *resource.Entry[message.Message]:
				if err := comment(e.Comment, e.Meta, false); err != nil {
					return err
				}
				name := idPrefix + e.ID.String()
				if !IsName(name) {
					return fmt.Errorf("unsupported DTD name: %s", name)
				}
				value, ok := message.PatternText(e.Value)
				if !ok {
					return fmt.Errorf("value for %s is not plain text", name)
				}
				var quoted string
				if strings.Contains(value, `"`) && !strings.Contains(value, "'") {
					quoted = "'" + value + "'"
				} else {
					quoted = `"` + strings.ReplaceAll(value, `"`, "&quot;") + `"`
				}
				quoted = stripComments(quoted)
				if _, err := fmt.Fprintf(w, "<!ENTITY %s %s>\n", name, quoted); err != nil {
					return err
				}
				atEmptyLine = false
			case resource.Comment:
				if err := comment(e.Comment, nil, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// stripComments removes any `<!-- -->` blocks embedded in a value, as
// they would terminate the surrounding document structure.
func stripComments(s string) string {
	for {
		start, end, _, ok := findComment(s, 0)
		if !ok {
			return s
		}
		s = s[:start] + s[end:]
	}
}
