// Package properties reads and writes Java .properties files.
package properties

import (
	"strings"
	"unicode/utf16"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Parse reads a .properties file into a message resource.
//
// Comment lines directly above an entry become its comment; comment
// blocks separated from what follows by a blank line are standalone,
// with the first such block becoming the resource comment. The parsed
// resource does not include any metadata.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	section := &resource.Section[message.Message]{}
	res := &resource.Resource[message.Message]{
		Format:   formats.Properties,
		Sections: []*resource.Section[message.Message]{section},
	}

	lines := strings.Split(string(source), "\n")
	var comment []string
	flushComment := func() {
		text := strings.Join(comment, "\n")
		comment = nil
		if text == "" {
			return
		}
		if len(section.Entries) == 0 && res.Comment == "" {
			res.Comment = text
		} else {
			section.AddComment(text)
		}
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		trimmed := strings.TrimLeft(line, " \t\f")
		switch {
		case trimmed == "":
			flushComment()
		case trimmed[0] == '#' || trimmed[0] == '!':
			comment = append(comment, trimComment(trimmed))
		default:
			// Logical line: join backslash continuations, dropping the
			// leading whitespace of each continuation line.
			logical := trimmed
			for hasTrailingContinuation(logical) && i+1 < len(lines) {
				i++
				next := strings.TrimRight(lines[i], "\r")
				logical = logical[:len(logical)-1] + strings.TrimLeft(next, " \t\f")
			}
			key, value, err := splitKeyValue(logical)
			if err != nil {
				return nil, err
			}
			if key == "" && value == "" {
				continue
			}
			section.AddEntry(&resource.Entry[message.Message]{
				ID:      resource.ID{key},
				Value:   &message.PatternMessage{Pattern: message.Pattern{}.AppendText(value)},
				Comment: strings.Join(comment, "\n"),
			})
			comment = nil
		}
	}
	flushComment()
	return res, nil
}

func trimComment(line string) string {
	s := line[1:]
	return strings.TrimPrefix(s, " ")
}

// hasTrailingContinuation reports whether the line ends with an odd
// number of backslashes.
func hasTrailingContinuation(line string) bool {
	n := 0
	for i := len(line) - 1; i >= 0 && line[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// splitKeyValue splits a logical line at the first unescaped `=`, `:`,
// or whitespace delimiter, and unescapes both parts.
func splitKeyValue(line string) (string, string, error) {
	i := 0
	for i < len(line) {
		c := line[i]
		if c == '\\' {
			i += 2
			continue
		}
		if c == '=' || c == ':' || c == ' ' || c == '\t' || c == '\f' {
			break
		}
		i++
	}
	if i > len(line) {
		i = len(line)
	}
	rawKey := line[:i]
	rest := strings.TrimLeft(line[i:], " \t\f")
	if rest != "" && (rest[0] == '=' || rest[0] == ':') {
		rest = strings.TrimLeft(rest[1:], " \t\f")
	}
	key, err := unescape(rawKey)
	if err != nil {
		return "", "", err
	}
	value, err := unescape(rest)
	if err != nil {
		return "", "", err
	}
	return key, value, nil
}

// unescape processes backslash escapes: \t \n \f \r \uXXXX, with any
// other escaped character standing for itself.
func unescape(s string) (string, error) {
	if !strings.Contains(s, "\\") {
		return s, nil
	}
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '\\' || i+1 >= len(runes) {
			b.WriteRune(r)
			continue
		}
		i++
		switch runes[i] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'f':
			b.WriteByte('\f')
		case 'r':
			b.WriteByte('\r')
		case 'u':
			u, size := parseUnicodeEscape(runes[i+1:])
			if size == 0 {
				b.WriteString(`\u`)
				break
			}
			b.WriteRune(u)
			i += size
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String(), nil
}

// parseUnicodeEscape reads the four hex digits following \u, combining
// a UTF-16 surrogate pair when a second \uXXXX escape follows.
func parseUnicodeEscape(runes []rune) (rune, int) {
	u, ok := hex4(runes)
	if !ok {
		return 0, 0
	}
	if utf16.IsSurrogate(u) && len(runes) >= 10 && runes[4] == '\\' && runes[5] == 'u' {
		if u2, ok := hex4(runes[6:]); ok {
			if c := utf16.DecodeRune(u, u2); c != 0xFFFD {
				return c, 10
			}
		}
	}
	return u, 4
}

func hex4(runes []rune) (rune, bool) {
	if len(runes) < 4 {
		return 0, false
	}
	var u rune
	for _, r := range runes[:4] {
		var d rune
		switch {
		case r >= '0' && r <= '9':
			d = r - '0'
		case r >= 'a' && r <= 'f':
			d = r - 'a' + 10
		case r >= 'A' && r <= 'F':
			d = r - 'A' + 10
		default:
			return 0, false
		}
		u = u<<4 | d
	}
	return u, true
}
