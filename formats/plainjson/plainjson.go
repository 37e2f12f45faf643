// Package plainjson reads and writes nested JSON objects with string
// leaf values, such as the resource files of many web frameworks.
package plainjson

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iancoleman/orderedmap"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Parse reads a JSON file into a message resource. The input must be a
// nested object with string values at its leaf nodes; entry ids are the
// object key paths. Key order is preserved.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	root := orderedmap.New()
	if err := json.Unmarshal(source, root); err != nil {
		return nil, fmt.Errorf("unexpected root value: %w", err)
	}
	section := &resource.Section[message.Message]{}
	if err := parseObject(section, nil, root); err != nil {
		return nil, err
	}
	return &resource.Resource[message.Message]{
		Format:   formats.PlainJSON,
		Sections: []*resource.Section[message.Message]{section},
	}, nil
}

func parseObject(section *resource.Section[message.Message], path resource.ID, obj *orderedmap.OrderedMap) error {
	for _, key := range obj.Keys() {
		value, _ := obj.Get(key)
		id := append(append(resource.ID{}, path...), key)
		switch v := value.(type) {
		case string:
			section.AddEntry(&resource.Entry[message.Message]{
				ID:    id,
				Value: &message.PatternMessage{Pattern: message.Pattern{}.AppendText(v)},
			})
		case orderedmap.OrderedMap:
			if err := parseObject(section, id, &v); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected value at %s: %v", id, value)
		}
	}
	return nil
}

// Serialize writes a resource as a nested JSON object. Comments and
// metadata are not supported.
func Serialize(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	check := func(comment string, meta resource.Metadata) error {
		if comment != "" && !trimComments {
			return fmt.Errorf("comments are not supported")
		}
		if len(meta) > 0 {
			return fmt.Errorf("metadata is not supported")
		}
		return nil
	}
	if err := check(res.Comment, res.Meta); err != nil {
		return err
	}
	root := orderedmap.New()
	root.SetEscapeHTML(false)
	for _, section := range res.Sections {
		if err := check(section.Comment, section.Meta); err != nil {
			return err
		}
		for _, se := range section.Entries {
			switch e := se.(type) {
			case *resource.Entry[message.Message]:
				if err := check(e.Comment, e.Meta); err != nil {
					return err
				}
				if len(e.ID) == 0 {
					return fmt.Errorf("unsupported empty identifier in %v", section.ID)
				}
				id := append(append(resource.ID{}, section.ID...), e.ID...)
				value, ok := message.PatternText(e.Value)
				if !ok {
					return fmt.Errorf("value for %s is not plain text", id)
				}
				parent := root
				for _, part := range id[:len(id)-1] {
					next, exists := parent.Get(part)
					if m, isMap := next.(*orderedmap.OrderedMap); exists && isMap {
						parent = m
					} else {
						m := orderedmap.New()
						m.SetEscapeHTML(false)
						parent.Set(part, m)
						parent = m
					}
				}
				parent.Set(id[len(id)-1], value)
			case resource.Comment:
				if err := check(e.Comment, nil); err != nil {
					return err
				}
			}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(root)
}
