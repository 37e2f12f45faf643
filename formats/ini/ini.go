// Package ini reads and writes .ini localization files, such as the
// Mozilla updater and installer string bundles.
package ini

import (
	"fmt"
	"io"
	"strings"

	goini "gopkg.in/ini.v1"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Parse reads an .ini file into a message resource.
//
// Comments preceding a section header or a key attach to the section or
// entry. Values may continue over indented lines. Keys outside any
// section are an error.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	file, err := goini.LoadSources(goini.LoadOptions{
		AllowPythonMultilineValues: true,
		KeyValueDelimiters:         "=:",
	}, source)
	if err != nil {
		return nil, err
	}
	res := &resource.Resource[message.Message]{Format: formats.Ini}
	for _, s := range file.Sections() {
		if s.Name() == goini.DefaultSection {
			if len(s.Keys()) > 0 {
				return nil, fmt.Errorf(
					"unexpected value %s before section header", s.Keys()[0].Name(),
				)
			}
			continue
		}
		section := &resource.Section[message.Message]{
			ID:      resource.ID{s.Name()},
			Comment: cleanComment(s.Comment),
		}
		for _, k := range s.Keys() {
			value := strings.TrimRight(k.Value(), "\n")
			section.AddEntry(&resource.Entry[message.Message]{
				ID:      resource.ID{k.Name()},
				Value:   &message.PatternMessage{Pattern: message.Pattern{}.AppendText(value)},
				Comment: cleanComment(k.Comment),
			})
		}
		res.Sections = append(res.Sections, section)
	}
	return res, nil
}

// cleanComment strips the `;` or `#` markers and one leading space from
// each comment line.
func cleanComment(comment string) string {
	if comment == "" {
		return ""
	}
	lines := strings.Split(comment, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) > 0 && (line[0] == ';' || line[0] == '#') {
			line = line[1:]
		}
		lines[i] = strings.TrimPrefix(line, " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

// Serialize writes a resource as the contents of an .ini file.
//
// Anonymous sections are not supported; multi-part identifiers are
// joined with `.`. Metadata is not supported. Multi-line values are
// written with two-space indented continuation lines.
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
		for _, line := range strings.Split(strings.Trim(text, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				line = "#"
			} else if strings.HasPrefix(line, "#") {
				line = strings.TrimRight(line, " \t")
			} else {
				line = "# " + strings.TrimRight(line, " \t")
			}
			if _, err := io.WriteString(w, line+"\n"); err != nil {
				return err
			}
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
		if len(section.ID) == 0 {
			return fmt.Errorf("anonymous sections are not supported")
		}
		if err := comment(section.Comment, section.Meta, false); err != nil {
			return err
		}
		name, err := idString(section.ID)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "[%s]\n", name); err != nil {
			return err
		}
		atEmptyLine = false
		for _, se := range section.Entries {
			switch e := se.(type) {
			case *resource.Entry[message.Message]:
				if err := comment(e.Comment, e.Meta, false); err != nil {
					return err
				}
				key, err := idString(e.ID)
				if err != nil {
					return err
				}
				value, ok := message.PatternText(e.Value)
				if !ok {
					return fmt.Errorf("value for %s is not plain text", e.ID)
				}
				lines := strings.Split(strings.TrimRight(value, " \t\n"), "\n")
				first := strings.TrimRight(fmt.Sprintf("%s = %s", key, lines[0]), " ")
				if _, err := io.WriteString(w, first+"\n"); err != nil {
					return err
				}
				for _, line := range lines[1:] {
					line = strings.TrimRight(line, " \t")
					if line == "" {
						line = "\n"
					} else {
						line = "  " + line + "\n"
					}
					if _, err := io.WriteString(w, line); err != nil {
						return err
					}
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

func idString(id resource.ID) (string, error) {
	name := id.String()
	if name == "" || strings.ContainsAny(name, "\n:=[]") ||
		strings.TrimSpace(name) != name {
		return "", fmt.Errorf("unsupported character in identifier: %v", id)
	}
	return name, nil
}
