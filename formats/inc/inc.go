// Package inc reads and writes `#define` .inc files.
package inc

import (
	"fmt"
	"io"
	"strings"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Parse reads a .inc file into a message resource.
//
// Directives such as `#filter` and `#unfilter` are stored as standalone
// comments.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	section := &resource.Section[message.Message]{}
	res := &resource.Resource[message.Message]{
		Format:   formats.Inc,
		Sections: []*resource.Section[message.Message]{section},
	}
	comment := ""
	for _, line := range strings.Split(string(source), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.TrimSpace(line) == "":
			section.AddComment(comment)
			comment = ""
		case strings.HasPrefix(line, "# "):
			nc := strings.TrimLeft(line[2:], " \t")
			if strings.HasPrefix(nc, "#") {
				nc = line
			}
			if comment == "" {
				comment = nc
			} else {
				comment += "\n" + nc
			}
		default:
			if name, value, ok := parseDefine(line); ok {
				section.AddEntry(&resource.Entry[message.Message]{
					ID:      resource.ID{name},
					Value:   &message.PatternMessage{Pattern: message.Pattern{}.AppendText(value)},
					Comment: comment,
				})
				comment = ""
			} else if strings.HasPrefix(line, "#") {
				section.AddComment(comment)
				comment = ""
				section.AddComment(line)
			} else {
				return nil, fmt.Errorf("unsupported content: %s", line)
			}
		}
	}
	section.AddComment(comment)
	return res, nil
}

// parseDefine matches `#define NAME` with an optional value after a
// single space or tab.
func parseDefine(line string) (string, string, bool) {
	rest, ok := strings.CutPrefix(line, "#define")
	if !ok || rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return "", "", false
	}
	rest = strings.TrimLeft(rest, " \t")
	name := rest
	value := ""
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		name, value = rest[:i], rest[i+1:]
	}
	if name == "" || !isWordName(name) {
		return "", "", false
	}
	return name, value, true
}

func isWordName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// Serialize writes a resource as the contents of a .inc file.
//
// Section identifiers and multi-part identifiers are not supported.
// Comment lines not starting with `#` are prefixed with `# `.
func Serialize(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	comment := func(text string, meta resource.Metadata, standalone bool) error {
		if len(meta) > 0 {
			return fmt.Errorf("metadata is not supported")
		}
		if text == "" {
			return nil
		}
		wrote := false
		for _, line := range strings.Split(strings.Trim(text, "\n"), "\n") {
			if strings.HasPrefix(line, "#") {
				// Directives survive comment trimming.
				if !trimComments || !strings.HasPrefix(line, "# ") {
					if _, err := io.WriteString(w, line+"\n"); err != nil {
						return err
					}
					wrote = true
				}
			} else if !trimComments {
				line = strings.TrimSpace(line)
				if line == "" {
					line = "#"
				} else {
					line = "# " + line
				}
				if _, err := io.WriteString(w, line+"\n"); err != nil {
					return err
				}
				wrote = true
			}
		}
		if standalone && wrote {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
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
		if len(section.ID) > 0 {
			return fmt.Errorf("section identifiers not supported: %v", section.ID)
		}
		for _, se := range section.Entries {
			switch e := se.(type) {
			case *resource.Entry[message.Message]:
				if err := comment(e.Comment, e.Meta, false); err != nil {
					return err
				}
				if len(e.ID) != 1 {
					return fmt.Errorf("unsupported identifier: %v", e.ID)
				}
				value, ok := message.PatternText(e.Value)
				if !ok {
					return fmt.Errorf("value for %s is not plain text", e.ID)
				}
				value = strings.ReplaceAll(value, "\n", " ")
				if _, err := fmt.Fprintf(w, "#define %s %s\n\n", e.ID[0], value); err != nil {
					return err
				}
			case resource.Comment:
				if err := comment(e.Comment, nil, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
