package android

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

const stringsXML = `<?xml version="1.0" encoding="utf-8"?>
<!-- Test translation file.
     Any copyright is dedicated to the Public Domain.
     http://creativecommons.org/publicdomain/zero/1.0/ -->
<!DOCTYPE resources [
  <!ENTITY foo "Foo">
  <!ENTITY bar "Bar &foo;">
]>
<resources xmlns:xliff="urn:oasis:names:tc:xliff:document:1.2">
  <string name="one"></string>
  <!-- bar -->
  <string name="three">value</string>
  <string name="five" translatable="false">@string/three</string>

  <!-- standalone -->

  <string name="welcome">Welcome to <b>&foo;</b>!</string>
  <string name="placeholders">Hello, %1$s! You have %2$d new messages.</string>
  <string name="escaped_html">Hello, %1$s! You have &lt;b>%2$d new messages&lt;/b>.</string>
  <string name="quotes">"  double  spaces  "</string>
  <plurals name="num_items">
    <item quantity="one">%d item</item>
    <item quantity="other">%d items</item>
  </plurals>
  <string-array name="colors">
    <item>red</item>
    <item>green</item>
  </string-array>
</resources>
`

func sourceExpr(name, function, source string) *message.Expression {
	return &message.Expression{
		Arg:        message.VariableRef{Name: name},
		Function:   function,
		Attributes: message.Attributes{{Name: "source", Value: message.String(source)}},
	}
}

func TestParse(t *testing.T) {
	res, err := Parse([]byte(stringsXML))
	require.NoError(t, err)
	assert.Equal(t, formats.Android, res.Format)
	assert.Equal(t, "Test translation file.\n"+
		"Any copyright is dedicated to the Public Domain.\n"+
		"http://creativecommons.org/publicdomain/zero/1.0/", res.Comment)
	assert.Equal(t, resource.Metadata{
		{Key: "xmlns:xliff", Value: "urn:oasis:names:tc:xliff:document:1.2"},
	}, res.Meta)

	require.Len(t, res.Sections, 2)
	entities := res.Sections[0]
	assert.Equal(t, resource.ID{"!ENTITY"}, entities.ID)
	wantEntities := []resource.SectionEntry[message.Message]{
		&resource.Entry[message.Message]{
			ID:    resource.ID{"foo"},
			Value: &message.PatternMessage{Pattern: message.Pattern{message.Text("Foo")}},
		},
		&resource.Entry[message.Message]{
			ID: resource.ID{"bar"},
			Value: &message.PatternMessage{Pattern: message.Pattern{
				message.Text("Bar "),
				entityExpression("foo"),
			}},
		},
	}
	if diff := cmp.Diff(wantEntities, entities.Entries); diff != "" {
		t.Errorf("entity section mismatch (-want +got):\n%s", diff)
	}

	all := res.AllEntries()
	require.Len(t, all, 12)

	one := all[2]
	assert.Equal(t, resource.ID{"one"}, one.ID)
	assert.Equal(t, &message.PatternMessage{Pattern: message.Pattern{}}, one.Value)

	three := all[3]
	assert.Equal(t, "bar", three.Comment)

	five := all[4]
	assert.Equal(t, resource.Metadata{{Key: "translatable", Value: "false"}}, five.Meta)
	want := &message.PatternMessage{Pattern: message.Pattern{
		&message.Expression{Arg: message.Literal("@string/three"), Function: "reference"},
	}}
	if diff := cmp.Diff(want, five.Value); diff != "" {
		t.Errorf("reference mismatch (-want +got):\n%s", diff)
	}

	welcome := all[5]
	wantWelcome := &message.PatternMessage{Pattern: message.Pattern{
		message.Text("Welcome to "),
		&message.Markup{Kind: message.MarkupOpen, Name: "b"},
		entityExpression("foo"),
		&message.Markup{Kind: message.MarkupClose, Name: "b"},
		message.Text("!"),
	}}
	if diff := cmp.Diff(wantWelcome, welcome.Value); diff != "" {
		t.Errorf("welcome mismatch (-want +got):\n%s", diff)
	}

	placeholders := all[6]
	wantPlaceholders := &message.PatternMessage{Pattern: message.Pattern{
		message.Text("Hello, "),
		sourceExpr("arg1", "string", "%1$s"),
		message.Text("! You have "),
		sourceExpr("arg2", "integer", "%2$d"),
		message.Text(" new messages."),
	}}
	if diff := cmp.Diff(wantPlaceholders, placeholders.Value); diff != "" {
		t.Errorf("placeholders mismatch (-want +got):\n%s", diff)
	}

	escapedHTML := all[7]
	wantEscaped := &message.PatternMessage{Pattern: message.Pattern{
		message.Text("Hello, "),
		sourceExpr("arg1", "string", "%1$s"),
		message.Text("! You have "),
		&message.Expression{Arg: message.Literal("<b>"), Function: "html"},
		sourceExpr("arg2", "integer", "%2$d"),
		message.Text(" new messages"),
		&message.Expression{Arg: message.Literal("</b>"), Function: "html"},
		message.Text("."),
	}}
	if diff := cmp.Diff(wantEscaped, escapedHTML.Value); diff != "" {
		t.Errorf("escaped html mismatch (-want +got):\n%s", diff)
	}

	quotes := all[8]
	text, ok := message.PatternText(quotes.Value)
	require.True(t, ok)
	assert.Equal(t, "  double  spaces  ", text)

	numItems := all[9]
	sel, ok := numItems.Value.(*message.SelectMessage)
	require.True(t, ok)
	require.Len(t, sel.Variants, 2)
	assert.Equal(t, []message.VariantKey{message.StringKey("one")}, sel.Variants[0].Keys)
	assert.Equal(t, []message.VariantKey{message.CatchallKey{Value: "other"}}, sel.Variants[1].Keys)

	assert.Equal(t, resource.ID{"colors", "0"}, all[10].ID)
	assert.Equal(t, resource.ID{"colors", "1"}, all[11].ID)
}

func TestParseWhitespaceCollapse(t *testing.T) {
	res, err := Parse([]byte(`<resources>
  <string name="plain">a   b</string>
  <string name="quoted">"a   b"</string>
</resources>`))
	require.NoError(t, err)
	text, ok := message.PatternText(res.AllEntries()[0].Value)
	require.True(t, ok)
	assert.Equal(t, "a b", text)
	text, ok = message.PatternText(res.AllEntries()[1].Value)
	require.True(t, ok)
	assert.Equal(t, "a   b", text)
}

func TestParseEscapes(t *testing.T) {
	res, err := Parse([]byte(
		`<resources><string name="esc">\@home\?	100%% 3</string></resources>`,
	))
	require.NoError(t, err)
	text, ok := message.PatternText(res.AllEntries()[0].Value)
	require.True(t, ok)
	assert.Equal(t, "@home? 100% !", text)
}

func TestParseErrors(t *testing.T) {
	for _, source := range []string{
		`<strings><string name="a">x</string></strings>`,
		`<resources>stray text</resources>`,
		`<resources><string>unnamed</string></resources>`,
		`<resources><bogus name="a">x</bogus></resources>`,
		`<resources><plurals name="p"><item quantity="several">x</item></plurals></resources>`,
	} {
		_, err := Parse([]byte(source))
		assert.Error(t, err, "source: %s", source)
	}
}

func TestSerialize(t *testing.T) {
	res, err := Parse([]byte(stringsXML))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))
	assert.Equal(t, `<?xml version="1.0" encoding="utf-8"?>

<!--
  Test translation file.
  Any copyright is dedicated to the Public Domain.
  http://creativecommons.org/publicdomain/zero/1.0/
-->

<!DOCTYPE resources [
  <!ENTITY foo "Foo">
  <!ENTITY bar "Bar &foo;">
]>
<resources xmlns:xliff="urn:oasis:names:tc:xliff:document:1.2">
  <string name="one"></string>
  <!-- bar -->
  <string name="three">value</string>
  <string name="five" translatable="false">@string/three</string>
  <!-- standalone -->

  <string name="welcome">Welcome to <b>&foo;</b>!</string>
  <string name="placeholders">Hello, %1$s! You have %2$d new messages.</string>
  <string name="escaped_html">Hello, %1$s! You have &lt;b>%2$d new messages&lt;/b>.</string>
  <string name="quotes">"  double  spaces  "</string>
  <plurals name="num_items">
    <item quantity="one">%d item</item>
    <item quantity="other">%d items</item>
  </plurals>
  <string-array name="colors">
    <item>red</item>
    <item>green</item>
  </string-array>
</resources>
`, out.String())
}

func TestSerializeRoundTrip(t *testing.T) {
	res, err := Parse([]byte(stringsXML))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))
	res2, err := Parse([]byte(out.String()))
	require.NoError(t, err)
	assert.Equal(t, res.Comment, res2.Comment)
	assert.Equal(t, res.Meta, res2.Meta)
	if diff := cmp.Diff(res.Sections, res2.Sections); diff != "" {
		t.Errorf("round-trip mismatch (-first +second):\n%s", diff)
	}
}

func TestSerializeTrimComments(t *testing.T) {
	res, err := Parse([]byte(stringsXML))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, true))
	assert.NotContains(t, out.String(), "<!-- bar -->")
	assert.NotContains(t, out.String(), "standalone")
}

func TestSerializeControlChars(t *testing.T) {
	res := &resource.Resource[message.Message]{
		Sections: []*resource.Section[message.Message]{
			{Entries: []resource.SectionEntry[message.Message]{
				&resource.Entry[message.Message]{
					ID:    resource.ID{"ctrl"},
					Value: &message.PatternMessage{Pattern: message.Pattern{}.AppendText("a\x07b\x1cc\x1fd")},
				},
			}},
		},
	}
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))
	assert.Contains(t, out.String(),
		`<string name="ctrl">a\u0007b\u0028c\u0031d</string>`)
}

func TestSerializeErrors(t *testing.T) {
	pattern := func(text string) message.Message {
		return &message.PatternMessage{Pattern: message.Pattern{}.AppendText(text)}
	}
	for name, res := range map[string]*resource.Resource[message.Message]{
		"section id": {
			Sections: []*resource.Section[message.Message]{{ID: resource.ID{"group"}}},
		},
		"name metadata": {
			Sections: []*resource.Section[message.Message]{
				{Entries: []resource.SectionEntry[message.Message]{
					&resource.Entry[message.Message]{
						ID:    resource.ID{"a"},
						Value: pattern("x"),
						Meta:  resource.Metadata{{Key: "name", Value: "b"}},
					},
				}},
			},
		},
		"unordered array": {
			Sections: []*resource.Section[message.Message]{
				{Entries: []resource.SectionEntry[message.Message]{
					&resource.Entry[message.Message]{ID: resource.ID{"arr", "1"}, Value: pattern("x")},
				}},
			},
		},
		"bad entry name": {
			Sections: []*resource.Section[message.Message]{
				{Entries: []resource.SectionEntry[message.Message]{
					&resource.Entry[message.Message]{ID: resource.ID{"no spaces"}, Value: pattern("x")},
				}},
			},
		},
	} {
		var out strings.Builder
		assert.Error(t, Serialize(&out, res, false), name)
	}
}
