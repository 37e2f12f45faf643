// Package dtd reads and writes DTD files holding `<!ENTITY>` strings.
package dtd

import (
	"fmt"
	"strings"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Parse reads a .dtd file into a message resource.
//
// Comments directly preceding an entity attach to it; comment blocks
// separated by blank lines are standalone, with the first becoming the
// resource comment. A comment containing an entity declaration is kept
// standalone, as it is likely a commented-out entity. The parsed
// resource does not include any metadata.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	src := string(source)
	section := &resource.Section[message.Message]{}
	res := &resource.Resource[message.Message]{
		Format:   formats.DTD,
		Sections: []*resource.Section[message.Message]{section},
	}

	pos := 0
	atNewline := true
	comment := ""
	flushStandalone := func() {
		if comment == "" {
			return
		}
		if len(section.Entries) == 0 && res.Comment == "" {
			res.Comment = comment
		} else {
			section.AddComment(comment)
		}
		comment = ""
	}

	for {
		cstart, cend, body, ok := findComment(src, pos)
		end := len(src)
		if ok {
			end = cstart
		}
		hasPrevEntries := false
		for pos < end {
			entry, estart, eend, found, err := findEntity(src, pos, end)
			if err != nil {
				return nil, err
			}
			var text string
			if found {
				text = src[pos:estart]
				pos = eend
			} else {
				text = src[pos:end]
				pos = end
			}
			if strings.TrimSpace(text) != "" {
				return nil, fmt.Errorf("unexpected content in DTD: %s", strings.TrimSpace(text))
			}
			lines := strings.Count(text, "\n")
			if comment != "" && lines > 1 {
				flushStandalone()
			}
			atNewline = lines > 0
			if found {
				entry.Comment = comment
				comment = ""
				section.AddEntry(entry)
				hasPrevEntries = true
			}
		}
		if !ok {
			break
		}
		nc := strings.ReplaceAll(strings.TrimSpace(body), "\r\n", "\n")
		if comment == "" {
			comment = nc
		} else if nc != "" {
			comment += "\n" + nc
		}
		if comment != "" {
			if !atNewline && hasPrevEntries {
				// Trailing comment on the same line as an entity.
				last := section.Entries[len(section.Entries)-1].(*resource.Entry[message.Message])
				if last.Comment == "" {
					last.Comment = comment
				} else {
					last.Comment += "\n" + comment
				}
				comment = ""
			} else if containsEntity(comment) {
				section.AddComment(comment)
				comment = ""
			}
		}
		pos = cend
	}
	flushStandalone()
	return res, nil
}

// findComment locates the next `<!-- ... -->` block at or after pos,
// returning its bounds and body.
func findComment(src string, pos int) (start, end int, body string, ok bool) {
	for i := pos; i < len(src); i++ {
		if src[i] != '<' || i+1 >= len(src) || src[i+1] != '!' {
			continue
		}
		j := i + 2
		for j < len(src) && isXMLSpace(src[j]) {
			j++
		}
		if !strings.HasPrefix(src[j:], "--") {
			continue
		}
		j += 2
		bodyEnd := strings.Index(src[j:], "--")
		if bodyEnd < 0 {
			return 0, 0, "", false
		}
		k := j + bodyEnd + 2
		for k < len(src) && isXMLSpace(src[k]) {
			k++
		}
		if k < len(src) && src[k] == '>' {
			return i, k + 1, src[j : j+bodyEnd], true
		}
	}
	return 0, 0, "", false
}

// findEntity locates the next `<!ENTITY name "value">` declaration
// between pos and end.
func findEntity(src string, pos, end int) (*resource.Entry[message.Message], int, int, bool, error) {
	i := strings.Index(src[pos:end], "<!ENTITY")
	if i < 0 {
		return nil, 0, 0, false, nil
	}
	start := pos + i
	j := start + len("<!ENTITY")
	if j >= end || !isXMLSpace(src[j]) {
		return nil, 0, 0, false, fmt.Errorf("malformed entity declaration")
	}
	for j < end && isXMLSpace(src[j]) {
		j++
	}
	nameStart := j
	runes := []rune(src[j:end])
	if len(runes) == 0 || !isNameStart(runes[0]) {
		return nil, 0, 0, false, fmt.Errorf("malformed entity name")
	}
	k := 0
	for k < len(runes) && isNameChar(runes[k]) {
		k += 1
	}
	name := string(runes[:k])
	j = nameStart + len(name)
	if j >= end || !isXMLSpace(src[j]) {
		return nil, 0, 0, false, fmt.Errorf("malformed entity declaration for %s", name)
	}
	for j < end && isXMLSpace(src[j]) {
		j++
	}
	if j >= end || (src[j] != '"' && src[j] != '\'') {
		return nil, 0, 0, false, fmt.Errorf("missing value for entity %s", name)
	}
	quote := src[j]
	j++
	valueEnd := strings.IndexByte(src[j:end], quote)
	if valueEnd < 0 {
		return nil, 0, 0, false, fmt.Errorf("unterminated value for entity %s", name)
	}
	value := src[j : j+valueEnd]
	j += valueEnd + 1
	for j < end && isXMLSpace(src[j]) {
		j++
	}
	if j >= end || src[j] != '>' {
		return nil, 0, 0, false, fmt.Errorf("unterminated declaration for entity %s", name)
	}
	entry := &resource.Entry[message.Message]{
		ID:    resource.ID{name},
		Value: &message.PatternMessage{Pattern: message.Pattern{}.AppendText(value)},
	}
	return entry, start, j + 1, true, nil
}

func containsEntity(s string) bool {
	_, _, _, found, err := findEntity(s, 0, len(s))
	return err == nil && found
}

func isXMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// XML name character classes, as range data.

func isNameStart(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
		return true
	case r >= 0x00C0 && r <= 0x00D6,
		r >= 0x00D8 && r <= 0x00F6,
		r >= 0x00F8 && r <= 0x02FF,
		r >= 0x0370 && r <= 0x037D,
		r >= 0x037F && r <= 0x1FFF,
		r >= 0x200C && r <= 0x200D,
		r >= 0x2070 && r <= 0x218F,
		r >= 0x2C00 && r <= 0x2FEF,
		r >= 0x3001 && r <= 0xD7FF,
		r >= 0xF900 && r <= 0xFDCF,
		r >= 0xFDF0 && r <= 0xFFFD:
		return true
	}
	return false
}

func isNameChar(r rune) bool {
	switch {
	case isNameStart(r):
		return true
	case r >= '0' && r <= '9', r == '-', r == '.':
		return true
	case r == 0x00B7,
		r >= 0x0300 && r <= 0x036F,
		r >= 0x203F && r <= 0x2040:
		return true
	}
	return false
}

// IsName reports whether s is a valid entity name.
func IsName(s string) bool {
	runes := []rune(s)
	if len(runes) == 0 || !isNameStart(runes[0]) {
		return false
	}
	for _, r := range runes[1:] {
		if !isNameChar(r) {
			return false
		}
	}
	return true
}
