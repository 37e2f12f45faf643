package po

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

const catalog = `# This file is distributed under the same license as the package.
msgid ""
msgstr ""
"Project-Id-Version: foo\n"
"Plural-Forms: nplurals=2; plural=(n != 1);\n"

#. An extracted comment
#: src/a.c:42
#, fuzzy
msgctxt "button"
msgid "Open"
msgstr "Avaa"

msgid "%d apple"
msgid_plural "%d apples"
msgstr[0] "%d omena"
msgstr[1] "%d omenaa"

#~ msgid "Close"
#~ msgstr "Sulje"
`

func TestParse(t *testing.T) {
	res, err := Parse([]byte(catalog))
	require.NoError(t, err)
	assert.Equal(t, formats.PO, res.Format)
	assert.Equal(t, "This file is distributed under the same license as the package.", res.Comment)
	assert.Equal(t, resource.Metadata{
		{Key: "Project-Id-Version", Value: "foo"},
		{Key: "Plural-Forms", Value: "nplurals=2; plural=(n != 1);"},
	}, res.Meta)

	entries := res.AllEntries()
	require.Len(t, entries, 3)

	assert.Equal(t, resource.ID{"Open", "button"}, entries[0].ID)
	assert.Equal(t, resource.Metadata{
		{Key: "extracted-comments", Value: "An extracted comment"},
		{Key: "reference", Value: "src/a.c:42"},
		{Key: "flag", Value: "fuzzy"},
	}, entries[0].Meta)
	text, ok := message.PatternText(entries[0].Value)
	require.True(t, ok)
	assert.Equal(t, "Avaa", text)

	assert.Equal(t, resource.ID{"%d apple"}, entries[1].ID)
	plural, _ := entries[1].Meta.Get("plural")
	assert.Equal(t, "%d apples", plural)
	want := &message.SelectMessage{
		Declarations: message.Declarations{{
			Name: "n",
			Value: &message.Expression{
				Arg:      message.VariableRef{Name: "n"},
				Function: "number",
			},
		}},
		Selectors: []message.VariableRef{{Name: "n"}},
		Variants: []message.Variant{
			{
				Keys:    []message.VariantKey{message.StringKey("0")},
				Pattern: message.Pattern{message.Text("%d omena")},
			},
			{
				Keys:    []message.VariantKey{message.CatchallKey{Value: "1"}},
				Pattern: message.Pattern{message.Text("%d omenaa")},
			},
		},
	}
	if diff := cmp.Diff(want, entries[1].Value); diff != "" {
		t.Errorf("plural message mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, resource.ID{"Close"}, entries[2].ID)
	obsolete, _ := entries[2].Meta.Get("obsolete")
	assert.Equal(t, "true", obsolete)
}

func TestParseMultilineString(t *testing.T) {
	res, err := Parse([]byte(`msgid ""
"first line\n"
"second line"
msgstr ""
"eka rivi\n"
"toka rivi"
`))
	require.NoError(t, err)
	entries := res.AllEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, resource.ID{"first line\nsecond line"}, entries[0].ID)
	text, ok := message.PatternText(entries[0].Value)
	require.True(t, ok)
	assert.Equal(t, "eka rivi\ntoka rivi", text)
}

func TestParseErrors(t *testing.T) {
	for _, source := range []string{
		"msgid \"unterminated\nmsgstr \"x\"\n",
		"\"stray continuation\"\n",
		"bogus line\n",
		"msgid \"x\"\nmsgstr[no] \"y\"\n",
	} {
		_, err := Parse([]byte(source))
		assert.Error(t, err, "source: %q", source)
	}
}

func TestSerialize(t *testing.T) {
	res, err := Parse([]byte(catalog))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))
	assert.Equal(t, `# This file is distributed under the same license as the package.
msgid ""
msgstr ""
"Project-Id-Version: foo\n"
"Plural-Forms: nplurals=2; plural=(n != 1);\n"

#. An extracted comment
#: src/a.c:42
#, fuzzy
msgctxt "button"
msgid "Open"
msgstr "Avaa"

msgid "%d apple"
msgid_plural "%d apples"
msgstr[0] "%d omena"
msgstr[1] "%d omenaa"

#~ msgid "Close"
#~ msgstr "Sulje"
`, out.String())
}

func TestSerializeRoundTrip(t *testing.T) {
	res, err := Parse([]byte(catalog))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))
	res2, err := Parse([]byte(out.String()))
	require.NoError(t, err)
	if diff := cmp.Diff(res.Sections, res2.Sections); diff != "" {
		t.Errorf("round-trip mismatch (-first +second):\n%s", diff)
	}
	assert.Equal(t, res.Comment, res2.Comment)
	assert.Equal(t, res.Meta, res2.Meta)
}

func TestSerializeTrimComments(t *testing.T) {
	res, err := Parse([]byte(catalog))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, true))
	s := out.String()
	assert.NotContains(t, s, "#")
	assert.NotContains(t, s, "Close")
	assert.Contains(t, s, "msgctxt \"button\"")
}

func TestSerializeMissingVariant(t *testing.T) {
	res := &resource.Resource[message.Message]{
		Meta: resource.Metadata{{Key: "Plural-Forms", Value: "nplurals=3; plural=0;"}},
		Sections: []*resource.Section[message.Message]{
			{Entries: []resource.SectionEntry[message.Message]{
				&resource.Entry[message.Message]{
					ID: resource.ID{"key"},
					Value: &message.SelectMessage{
						Declarations: message.Declarations{{
							Name: "n",
							Value: &message.Expression{
								Arg:      message.VariableRef{Name: "n"},
								Function: "number",
							},
						}},
						Selectors: []message.VariableRef{{Name: "n"}},
						Variants: []message.Variant{
							{
								Keys:    []message.VariantKey{message.StringKey("0")},
								Pattern: message.Pattern{message.Text("zero")},
							},
							{
								Keys:    []message.VariantKey{message.CatchallKey{Value: "2"}},
								Pattern: message.Pattern{message.Text("two")},
							},
						},
					},
				},
			}},
		},
	}
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))
	assert.Contains(t, out.String(), "msgstr[0] \"zero\"\n")
	assert.Contains(t, out.String(), "msgstr[1] \"\"\n")
	assert.Contains(t, out.String(), "msgstr[2] \"two\"\n")
}

func TestSerializeRejectsSection(t *testing.T) {
	res := &resource.Resource[message.Message]{
		Sections: []*resource.Section[message.Message]{{ID: resource.ID{"group"}}},
	}
	var out strings.Builder
	require.Error(t, Serialize(&out, res, false))
}

func TestPluralCategories(t *testing.T) {
	categories, err := PluralCategories("ru")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "few", "many", "other"}, categories)

	categories, err = PluralCategories("en-US")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "other"}, categories)

	categories, err = PluralCategories("ja")
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, categories)

	_, err = PluralCategories("not a tag")
	assert.Error(t, err)
}
