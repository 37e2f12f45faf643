package mf2

// Character classes of the MessageFormat 2 grammar, ported as explicit
// range data so that acceptance behavior does not depend on a regexp
// engine's Unicode handling.

// isNameStart reports whether r may start a name.
func isNameStart(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		return true
	case r >= 0x00C0 && r <= 0x00D6,
		r >= 0x00D8 && r <= 0x00F6,
		r >= 0x00F8 && r <= 0x02FF,
		r >= 0x0370 && r <= 0x037D,
		r >= 0x037F && r <= 0x061B,
		r >= 0x061D && r <= 0x1FFF,
		r >= 0x200C && r <= 0x200D,
		r >= 0x2070 && r <= 0x218F,
		r >= 0x2C00 && r <= 0x2FEF,
		r >= 0x3001 && r <= 0xD7FF,
		r >= 0xF900 && r <= 0xFDCF,
		r >= 0xFDF0 && r <= 0xFFFC,
		r >= 0x10000 && r <= 0xEFFFF:
		return true
	}
	return false
}

// isNameChar reports whether r may continue a name.
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

// isSpace reports whether r is MF2 whitespace.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\r', ' ', '　':
		return true
	}
	return false
}

// isBidi reports whether r is a bidirectional mark or isolate, which the
// grammar allows around names and whitespace.
func isBidi(r rune) bool {
	switch r {
	case '؜', '‎', '‏', '⁦', '⁧', '⁨', '⁩':
		return true
	}
	return false
}

// isEscapable reports whether r may follow a backslash in text or in a
// quoted literal.
func isEscapable(r rune) bool {
	switch r {
	case '\\', '{', '|', '}':
		return true
	}
	return false
}

// isName reports whether s is a valid bare name.
func isName(s string) bool {
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

// isIdentifier reports whether s is a name or a namespaced `ns:name` pair.
func isIdentifier(s string) bool {
	for i, r := range s {
		if r == ':' {
			return isName(s[:i]) && isName(s[i+len(":"):])
		}
	}
	return isName(s)
}

// isNumber reports whether s is a valid unquoted number literal,
// following the JSON number grammar.
func isNumber(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case i < len(s) && s[i] >= '1' && s[i] <= '9':
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		if i >= len(s) || s[i] < '0' || s[i] > '9' {
			return false
		}
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if i >= len(s) || s[i] < '0' || s[i] > '9' {
			return false
		}
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	return i == len(s)
}
