package webext

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iancoleman/orderedmap"

	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Serialize writes a resource as the contents of a messages.json file.
//
// Section identifiers, multi-part message identifiers, resource and
// section comments, and metadata are not supported.
func Serialize(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	check := func(comment string, meta resource.Metadata) error {
		if trimComments {
			return nil
		}
		if comment != "" {
			return fmt.Errorf("resource and section comments are not supported")
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
		if len(section.ID) > 0 {
			return fmt.Errorf("section identifiers not supported: %v", section.ID)
		}
		if err := check(section.Comment, section.Meta); err != nil {
			return err
		}
		for _, se := range section.Entries {
			switch e := se.(type) {
			case *resource.Entry[message.Message]:
				if len(e.Meta) > 0 {
					return fmt.Errorf("metadata is not supported")
				}
				if len(e.ID) != 1 {
					return fmt.Errorf("unsupported entry identifier: %v", e.ID)
				}
				name := e.ID[0]
				msgstr, placeholders, err := SerializeMessage(e.Value, trimComments)
				if err != nil {
					return fmt.Errorf("error serializing %s: %w", name, err)
				}
				obj := orderedmap.New()
				obj.SetEscapeHTML(false)
				obj.Set("message", msgstr)
				if !trimComments && e.Comment != "" {
					obj.Set("description", e.Comment)
				}
				if len(placeholders.Keys()) > 0 {
					obj.Set("placeholders", placeholders)
				}
				root.Set(name, obj)
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

// SerializeMessage builds the messages.json representation of a message:
// the "message" string and the "placeholders" object.
func SerializeMessage(msg message.Message, trimComments bool) (string, *orderedmap.OrderedMap, error) {
	pm, ok := msg.(*message.PatternMessage)
	if !ok {
		return "", nil, fmt.Errorf("unsupported message: %v", msg)
	}
	var msgstr strings.Builder
	placeholders := orderedmap.New()
	placeholders.SetEscapeHTML(false)
	for _, part := range pm.Pattern {
		switch part := part.(type) {
		case message.Text:
			msgstr.WriteString(escapeDollars(string(part)))
		case *message.Expression:
			ref, ok := part.Arg.(message.VariableRef)
			if !ok || part.Function != "" {
				return "", nil, fmt.Errorf("unsupported message part: %v", part)
			}
			phName := ref.Name
			source := part.Attributes.GetString("source")
			local := pm.Declarations.Get(phName)
			if local == nil {
				argName := phName
				if source != "" {
					argName = source
				}
				if !strings.HasPrefix(argName, "$") {
					argName = "$" + argName
				}
				msgstr.WriteString(argName)
				continue
			}
			var content string
			switch {
			case local.Attributes.GetString("source") != "":
				content = local.Attributes.GetString("source")
			case local.Arg != nil:
				switch arg := local.Arg.(type) {
				case message.VariableRef:
					content = arg.Name
					if !strings.HasPrefix(content, "$") {
						content = "$" + content
					}
				case message.Literal:
					content = string(arg)
				}
			default:
				return "", nil, fmt.Errorf("unsupported placeholder for %s", phName)
			}
			if local.Function != "" {
				return "", nil, fmt.Errorf("unsupported annotation for %s", phName)
			}
			if len(source) >= 3 && strings.HasPrefix(source, "$") && strings.HasSuffix(source, "$") {
				phName = source[1 : len(source)-1]
			} else {
				source = ""
			}
			if !hasKeyFold(placeholders, phName) {
				ph := orderedmap.New()
				ph.SetEscapeHTML(false)
				ph.Set("content", content)
				if !trimComments {
					if example := local.Attributes.GetString("example"); example != "" {
						ph.Set("example", example)
					}
				}
				placeholders.Set(phName, ph)
			}
			if source != "" {
				msgstr.WriteString(source)
			} else {
				msgstr.WriteString("$" + phName + "$")
			}
		default:
			return "", nil, fmt.Errorf("unsupported message part: %v", part)
		}
	}
	return msgstr.String(), placeholders, nil
}

// escapeDollars prefixes each run of dollar signs with one more, so
// that literal text never forms a placeholder.
func escapeDollars(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '$' {
			b.WriteByte('$')
			for i < len(s) && s[i] == '$' {
				b.WriteByte('$')
				i++
			}
			i--
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func hasKeyFold(m *orderedmap.OrderedMap, key string) bool {
	for _, k := range m.Keys() {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
