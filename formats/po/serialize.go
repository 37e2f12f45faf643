package po

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Serialize writes a resource as the contents of a .po file.
//
// Section identifiers, section comments, and detached comments are not
// supported. The resource comment and metadata form the catalog header.
// Plural entries are written with one msgstr[N] per plural form, taking
// the form count from the nplurals declaration of the Plural-Forms
// header field; variants without a matching index are written as empty
// strings. With trimComments, all comments and obsolete entries are
// dropped.
func Serialize(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	var b strings.Builder

	header := &unit{MsgStr: headerString(res.Meta)}
	if !trimComments && strings.TrimSpace(res.Comment) != "" {
		header.TranslatorComments = strings.TrimRight(res.Comment, " \t\n")
	}
	header.write(&b, trimComments)

	nplurals := pluralCount(res.Meta)
	for _, section := range res.Sections {
		if len(section.ID) > 0 {
			return fmt.Errorf("section identifiers not supported: %v", section.ID)
		}
		if section.Comment != "" {
			return fmt.Errorf("section comments are not supported")
		}
		if len(section.Meta) > 0 {
			return fmt.Errorf("section metadata is not supported")
		}
		for _, se := range section.Entries {
			switch e := se.(type) {
			case *resource.Entry[message.Message]:
				u, err := entryUnit(e, nplurals, trimComments)
				if err != nil {
					return err
				}
				if u.Obsolete && trimComments {
					continue
				}
				b.WriteString("\n")
				u.write(&b, trimComments)
			case resource.Comment:
				return fmt.Errorf("standalone comments are not supported: %s", e.Comment)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func entryUnit(e *resource.Entry[message.Message], nplurals int, trimComments bool) (*unit, error) {
	u := &unit{}
	switch len(e.ID) {
	case 1:
		u.MsgID = e.ID[0]
	case 2:
		u.MsgID, u.MsgCtxt = e.ID[0], e.ID[1]
	default:
		return nil, fmt.Errorf("unsupported entry identifier: %v", e.ID)
	}
	if !trimComments {
		u.TranslatorComments = strings.TrimRight(e.Comment, " \t\n")
	}
	for _, m := range e.Meta {
		switch m.Key {
		case "obsolete":
			u.Obsolete = m.Value != "false"
		case "plural":
			u.MsgIDPlural = m.Value
		case "translator-comments":
			if !trimComments {
				u.TranslatorComments = appendLine(
					u.TranslatorComments, trimComment(m.Value),
				)
			}
		case "extracted-comments":
			if !trimComments {
				u.ExtractedComments = trimComment(m.Value)
			}
		case "reference":
			if !trimComments {
				u.References = append(u.References, m.Value)
			}
		case "flag":
			if !trimComments {
				u.Flags = append(u.Flags, m.Value)
			}
		default:
			return nil, fmt.Errorf("unsupported meta entry %q for %v: %s", m.Key, e.ID, m.Value)
		}
	}

	switch msg := e.Value.(type) {
	case *message.PatternMessage:
		text, ok := message.PatternText(msg)
		if !ok || len(msg.Declarations) > 0 {
			return nil, fmt.Errorf("value for %v is not supported: %v", e.ID, e.Value)
		}
		u.MsgStr = text
	case *message.SelectMessage:
		plurals, err := pluralStrings(msg, nplurals)
		if err != nil {
			return nil, fmt.Errorf("value for %v is not supported: %w", e.ID, err)
		}
		u.MsgStrPlural = plurals
	default:
		return nil, fmt.Errorf("value for %v is not supported: %v", e.ID, e.Value)
	}
	return u, nil
}

// pluralStrings flattens a select message into indexed msgstr values.
// The message must select on a bare :number variable, and each variant
// key must match a plural index by its string or catch-all hint value.
func pluralStrings(msg *message.SelectMessage, nplurals int) (map[int]string, error) {
	if len(msg.Declarations) != 1 || len(msg.Selectors) != 1 {
		return nil, fmt.Errorf("unsupported selectors: %v", msg.Selectors)
	}
	sel := msg.Declarations.Get(msg.Selectors[0].Name)
	if sel == nil || sel.Function != "number" || len(sel.Options) > 0 {
		return nil, fmt.Errorf("unsupported selector for %s", msg.Selectors[0].Name)
	}
	variants := map[string]string{}
	for _, variant := range msg.Variants {
		var name string
		switch key := variant.Keys[0].(type) {
		case message.StringKey:
			name = string(key)
		case message.CatchallKey:
			name = key.Value
		}
		text, err := patternText(variant.Pattern)
		if err != nil {
			return nil, err
		}
		variants[name] = text
	}
	plurals := map[int]string{}
	for idx := 0; idx < nplurals; idx++ {
		plurals[idx] = variants[strconv.Itoa(idx)]
	}
	return plurals, nil
}

func patternText(pattern message.Pattern) (string, error) {
	var b strings.Builder
	for _, part := range pattern {
		text, ok := part.(message.Text)
		if !ok {
			return "", fmt.Errorf("unsupported pattern part: %v", part)
		}
		b.WriteString(string(text))
	}
	return b.String(), nil
}

func trimComment(s string) string {
	return strings.TrimRight(strings.TrimLeft(s, "\n"), " \t\n")
}

// headerString joins the metadata into the msgstr of the header entry.
func headerString(meta resource.Metadata) string {
	var b strings.Builder
	for _, kv := range meta {
		b.WriteString(kv.Key + ": " + kv.Value + "\n")
	}
	return b.String()
}

// pluralCount reads the nplurals declaration from the Plural-Forms
// header field, defaulting to 1.
func pluralCount(meta resource.Metadata) int {
	forms, _ := meta.Get("Plural-Forms")
	for _, clause := range strings.Split(forms, ";") {
		key, value, found := strings.Cut(clause, "=")
		if found && strings.TrimSpace(key) == "nplurals" {
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				return n
			}
		}
	}
	return 1
}
