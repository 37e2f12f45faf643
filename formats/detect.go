package formats

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
)

// Detect determines the format of a localization file, from its path
// extension first and its contents second. A *UnsupportedFormatError is
// returned when neither identifies a supported format; malformed content
// in an identified format is not detected here and surfaces later as a
// parse error.
func Detect(path string, source []byte) (Format, error) {
	if format, ok := DetectPath(path); ok {
		return format, nil
	}
	if format, ok := DetectContent(source); ok {
		return format, nil
	}
	return "", &UnsupportedFormatError{Path: path}
}

// DetectPath determines the format from the file path alone.
func DetectPath(path string) (Format, bool) {
	base := strings.ToLower(filepath.Base(path))
	if base == "messages.json" {
		return WebExt, true
	}
	switch filepath.Ext(base) {
	case ".dtd":
		return DTD, true
	case ".ftl":
		return Fluent, true
	case ".inc":
		return Inc, true
	case ".ini":
		return Ini, true
	case ".json":
		return PlainJSON, true
	case ".po", ".pot":
		return PO, true
	case ".properties":
		return Properties, true
	case ".xml":
		return Android, true
	case ".xlf", ".xliff":
		return XLIFF, true
	}
	return "", false
}

// DetectContent determines the format by sniffing the file contents.
// Formats without distinctive syntax (Fluent, properties) cannot be
// sniffed and must be named by path or explicitly.
func DetectContent(source []byte) (Format, bool) {
	src := bytes.TrimLeft(source, "\uFEFF \t\r\n")
	switch {
	case len(src) == 0:
		return "", false
	case src[0] == '<':
		return detectXML(src)
	case src[0] == '{':
		return detectJSON(src)
	case src[0] == '[':
		return Ini, true
	}
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			if strings.HasPrefix(line, "#define") {
				return Inc, true
			}
		case strings.HasPrefix(line, "msgid ") || strings.HasPrefix(line, "msgctxt "):
			return PO, true
		default:
			return "", false
		}
	}
	return "", false
}

func detectXML(src []byte) (Format, bool) {
	s := string(src)
	for {
		switch {
		case strings.HasPrefix(s, "<?"), strings.HasPrefix(s, "<!--"):
			end := strings.Index(s, ">")
			if end < 0 {
				return "", false
			}
			s = strings.TrimLeft(s[end+1:], " \t\r\n")
		case strings.HasPrefix(s, "<!ENTITY"):
			return DTD, true
		case strings.HasPrefix(s, "<!DOCTYPE"), strings.HasPrefix(s, "<resources"):
			return Android, true
		case strings.HasPrefix(s, "<xliff"):
			return XLIFF, true
		default:
			return "", false
		}
	}
}

// detectJSON distinguishes WebExtensions messages.json, where every
// top-level value is an object with a "message" property, from plain
// nested JSON.
func detectJSON(src []byte) (Format, bool) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(StripJSONComments(src), &top); err != nil {
		return "", false
	}
	if len(top) == 0 {
		return PlainJSON, true
	}
	for _, raw := range top {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return PlainJSON, true
		}
		if _, ok := obj["message"]; !ok {
			return PlainJSON, true
		}
	}
	return WebExt, true
}

// StripJSONComments removes // line comments, which WebExtensions
// messages.json files may contain. Comment markers inside strings are
// left alone.
func StripJSONComments(src []byte) []byte {
	var out bytes.Buffer
	inString := false
	escaped := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}
		if c == '/' && i+1 < len(src) && src[i+1] == '/' {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				out.WriteByte('\n')
			}
			continue
		}
		out.WriteByte(c)
	}
	return out.Bytes()
}
