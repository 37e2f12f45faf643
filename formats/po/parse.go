package po

import (
	"strconv"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

// Parse reads a .po or .pot file into a message resource.
//
// The catalog header becomes the resource comment and metadata. Entry
// identifiers have one or two parts, with the second holding the
// optional message context. Entries may carry the following metadata:
//   - translator-comments
//   - extracted-comments
//   - reference: one per reference, as "file:line"
//   - obsolete: "true"
//   - flag: one per flag
//   - plural: the msgid_plural source text
//
// Plural entries become select messages over a :number selector, keyed
// by msgstr index with the highest index as the catch-all.
func Parse(source []byte) (*resource.Resource[message.Message], error) {
	f, err := parseFile(string(source))
	if err != nil {
		return nil, err
	}
	res := &resource.Resource[message.Message]{
		Format:  formats.PO,
		Comment: f.HeaderComment,
	}
	for _, field := range f.Metadata {
		res.Meta.Add(field.Key, field.Value)
	}
	section := &resource.Section[message.Message]{}
	for _, u := range f.Units {
		id := resource.ID{u.MsgID}
		if u.MsgCtxt != "" {
			id = append(id, u.MsgCtxt)
		}
		var meta resource.Metadata
		if u.TranslatorComments != "" {
			meta.Add("translator-comments", u.TranslatorComments)
		}
		if u.ExtractedComments != "" {
			meta.Add("extracted-comments", u.ExtractedComments)
		}
		for _, ref := range u.References {
			meta.Add("reference", ref)
		}
		if u.Obsolete {
			meta.Add("obsolete", "true")
		}
		for _, flag := range u.Flags {
			meta.Add("flag", flag)
		}
		var value message.Message
		if u.MsgStrPlural != nil {
			meta.Add("plural", u.MsgIDPlural)
			value = pluralMessage(u.MsgStrPlural)
		} else {
			value = &message.PatternMessage{
				Pattern: message.Pattern{}.AppendText(u.MsgStr),
			}
		}
		section.AddEntry(&resource.Entry[message.Message]{
			ID:    id,
			Value: value,
			Meta:  meta,
		})
	}
	res.Sections = []*resource.Section[message.Message]{section}
	return res, nil
}

// pluralMessage builds a select message from the msgstr[N] strings,
// with the highest index as the catch-all variant.
func pluralMessage(plurals map[int]string) *message.SelectMessage {
	max := 0
	for idx := range plurals {
		if idx > max {
			max = idx
		}
	}
	msg := &message.SelectMessage{
		Declarations: message.Declarations{{
			Name: "n",
			Value: &message.Expression{
				Arg:      message.VariableRef{Name: "n"},
				Function: "number",
			},
		}},
		Selectors: []message.VariableRef{{Name: "n"}},
	}
	for idx := 0; idx <= max; idx++ {
		name := strconv.Itoa(idx)
		var key message.VariantKey = message.StringKey(name)
		if idx == max {
			key = message.CatchallKey{Value: name}
		}
		msg.Variants = append(msg.Variants, message.Variant{
			Keys:    []message.VariantKey{key},
			Pattern: message.Pattern{}.AppendText(plurals[idx]),
		})
	}
	return msg
}
