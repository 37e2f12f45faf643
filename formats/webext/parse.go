// Package webext reads and writes WebExtensions messages.json files.
package webext

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iancoleman/orderedmap"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Parse reads a messages.json file into a message resource.
//
// Named placeholders are represented as declarations, with a `source`
// attribute keeping the original placeholder syntax and an `example`
// attribute when available. `//` line comments in the input are
// tolerated. The parsed resource does not include any metadata.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	root := orderedmap.New()
	if err := json.Unmarshal(formats.StripJSONComments(source), root); err != nil {
		return nil, err
	}
	section := &resource.Section[message.Message]{}
	for _, key := range root.Keys() {
		raw, _ := root.Get(key)
		obj, ok := raw.(orderedmap.OrderedMap)
		if !ok {
			return nil, fmt.Errorf("unexpected value for %s", key)
		}
		msgSrc, ok := stringValue(&obj, "message")
		if !ok {
			return nil, fmt.Errorf("missing message for %s", key)
		}
		var placeholders *orderedmap.OrderedMap
		if raw, ok := obj.Get("placeholders"); ok {
			if ph, ok := raw.(orderedmap.OrderedMap); ok {
				placeholders = &ph
			}
		}
		msg, err := ParseMessage(msgSrc, placeholders)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		comment, _ := stringValue(&obj, "description")
		section.AddEntry(&resource.Entry[message.Message]{
			ID:      resource.ID{key},
			Value:   msg,
			Comment: comment,
		})
	}
	return &resource.Resource[message.Message]{
		Format:   formats.WebExt,
		Sections: []*resource.Section[message.Message]{section},
	}, nil
}

// ParseMessage parses a single messages.json message string together
// with its placeholders object.
func ParseMessage(source string, placeholders *orderedmap.OrderedMap) (*message.PatternMessage, error) {
	phData := map[string]*orderedmap.OrderedMap{}
	if placeholders != nil {
		for _, key := range placeholders.Keys() {
			raw, _ := placeholders.Get(key)
			if obj, ok := raw.(orderedmap.OrderedMap); ok {
				phData[strings.ToLower(key)] = &obj
			}
		}
	}

	msg := &message.PatternMessage{}
	phNames := map[string]string{}
	pos := 0
	for pos < len(source) {
		m, ok := nextPlaceholder(source, pos)
		if !ok {
			break
		}
		msg.Pattern = msg.Pattern.AppendText(source[pos:m.start])
		switch {
		case m.name != "":
			phKey := strings.ToLower(m.name)
			phName, seen := phNames[phKey]
			if !seen {
				ph := phData[phKey]
				if ph == nil {
					return nil, fmt.Errorf("missing placeholders entry for %s", phKey)
				}
				content, ok := stringValue(ph, "content")
				if !ok {
					return nil, fmt.Errorf("missing content for placeholder %s", phKey)
				}
				decl := &message.Expression{}
				if arg, ok := positionalArg(content); ok {
					decl.Arg = message.VariableRef{Name: arg}
					decl.Attributes.Set("source", message.String(content))
				} else {
					decl.Arg = message.Literal(content)
				}
				if example, ok := stringValue(ph, "example"); ok {
					decl.Attributes.Set("example", message.String(example))
				}
				phName = strings.ReplaceAll(m.name, "@", "_")
				if phName[0] >= '0' && phName[0] <= '9' {
					phName = "_" + phName
				}
				msg.Declarations.Set(phName, decl)
				phNames[phKey] = phName
			}
			msg.Pattern = append(msg.Pattern, &message.Expression{
				Arg:        message.VariableRef{Name: phName},
				Attributes: message.Attributes{{Name: "source", Value: message.String(m.text)}},
			})
		case m.index != 0:
			msg.Pattern = append(msg.Pattern, &message.Expression{
				Arg:        message.VariableRef{Name: fmt.Sprintf("arg%d", m.index)},
				Attributes: message.Attributes{{Name: "source", Value: message.String(m.text)}},
			})
		default:
			// Escaped dollar signs: $$ stands for $, each further $ for itself.
			msg.Pattern = msg.Pattern.AppendText(m.text[1:])
		}
		pos = m.end
	}
	msg.Pattern = msg.Pattern.AppendText(source[pos:])
	return msg, nil
}

type placeholderMatch struct {
	start, end int
	text       string
	name       string // named placeholder, $name$
	index      int    // positional placeholder, $1-$9
}

// nextPlaceholder finds the next placeholder at or after pos: a
// `$name$` reference, a `$N` positional argument, or a `$$`+ escape.
func nextPlaceholder(source string, pos int) (placeholderMatch, bool) {
	for i := pos; i < len(source); i++ {
		if source[i] != '$' {
			continue
		}
		j := i + 1
		for j < len(source) && isPlaceholderNameChar(source[j]) {
			j++
		}
		if j > i+1 && j < len(source) && source[j] == '$' {
			return placeholderMatch{
				start: i, end: j + 1,
				text: source[i : j+1],
				name: source[i+1 : j],
			}, true
		}
		if i+1 < len(source) && source[i+1] >= '1' && source[i+1] <= '9' {
			return placeholderMatch{
				start: i, end: i + 2,
				text:  source[i : i+2],
				index: int(source[i+1] - '0'),
			}, true
		}
		if i+1 < len(source) && source[i+1] == '$' {
			j = i + 1
			for j < len(source) && source[j] == '$' {
				j++
			}
			return placeholderMatch{start: i, end: j, text: source[i:j]}, true
		}
	}
	return placeholderMatch{}, false
}

func isPlaceholderNameChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '@'
}

// positionalArg maps a `$N` placeholder content to an argN variable name.
func positionalArg(content string) (string, bool) {
	if len(content) == 2 && content[0] == '$' && content[1] >= '1' && content[1] <= '9' {
		return "arg" + content[1:], true
	}
	return "", false
}

func stringValue(obj *orderedmap.OrderedMap, key string) (string, bool) {
	raw, ok := obj.Get(key)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}
