package xliff

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

const catalog = `<?xml version="1.0" encoding="utf-8"?>

<!-- Example catalog -->

<xliff xmlns="urn:oasis:names:tc:xliff:document:1.2" version="1.2">
  <file original="app/strings.xml" source-language="en" datatype="plaintext">
    <header>
      <tool tool-id="acme" tool-name="Acme"/>
    </header>
    <body>
      <trans-unit id="hello">
        <source>Hello, <x id="1"/>!</source>
        <target>Hei, <x id="1"/>!</target>
        <note>A greeting</note>
        <context-group purpose="location">
          <context context-type="sourcefile">src/app.c</context>
        </context-group>
      </trans-unit>
      <!-- obsolete -->
      <bin-unit id="logo" mime-type="image/png">
        <bin-source>
          <external-file href="logo.png"/>
        </bin-source>
      </bin-unit>
      <group id="menu">
        <trans-unit id="open">
          <source>Open &amp; shut</source>
          <target>Avaa</target>
        </trans-unit>
      </group>
    </body>
  </file>
</xliff>
`

func TestParse(t *testing.T) {
	res, err := Parse([]byte(catalog))
	require.NoError(t, err)
	assert.Equal(t, formats.XLIFF, res.Format)
	assert.Equal(t, "Example catalog", res.Comment)
	assert.Equal(t, resource.Metadata{
		{Key: "version", Value: "1.2"},
		{Key: "xmlns", Value: "urn:oasis:names:tc:xliff:document:1.2"},
	}, res.Meta)

	require.Len(t, res.Sections, 2)
	file := res.Sections[0]
	assert.Equal(t, resource.ID{"app/strings.xml"}, file.ID)
	assert.Equal(t, resource.Metadata{
		{Key: "source-language", Value: "en"},
		{Key: "datatype", Value: "plaintext"},
		{Key: "header/0,tool/tool-id", Value: "acme"},
		{Key: "header/0,tool/tool-name", Value: "Acme"},
	}, file.Meta)

	require.Len(t, file.Entries, 3)
	hello, ok := file.Entries[0].(*resource.Entry[message.Message])
	require.True(t, ok)
	assert.Equal(t, resource.ID{"hello"}, hello.ID)
	assert.Equal(t, "A greeting", hello.Comment)
	assert.Equal(t, resource.Metadata{
		{Key: "source/.", Value: "Hello, "},
		{Key: "source/0,x/id", Value: "1"},
		{Key: "source/.", Value: "!"},
		{Key: "note/.", Value: ""},
		{Key: "3,context-group/purpose", Value: "location"},
		{Key: "3,context-group/0,context/context-type", Value: "sourcefile"},
		{Key: "3,context-group/0,context/.", Value: "src/app.c"},
	}, hello.Meta)
	wantPattern := &message.PatternMessage{Pattern: message.Pattern{
		message.Text("Hei, "),
		&message.Markup{
			Kind:    message.MarkupStandalone,
			Name:    "x",
			Options: message.Options{{Name: "id", Value: message.Literal("1")}},
		},
		message.Text("!"),
	}}
	if diff := cmp.Diff(wantPattern, hello.Value); diff != "" {
		t.Errorf("hello value mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, resource.Comment{Comment: "obsolete"}, file.Entries[1])

	logo, ok := file.Entries[2].(*resource.Entry[message.Message])
	require.True(t, ok)
	assert.Equal(t, resource.ID{"logo"}, logo.ID)
	assert.Equal(t, resource.Metadata{
		{Key: "mime-type", Value: "image/png"},
		{Key: "0,bin-source/0,external-file/href", Value: "logo.png"},
	}, logo.Meta)
	pm, ok := logo.Value.(*message.PatternMessage)
	require.True(t, ok)
	require.Len(t, pm.Pattern, 1)
	expr, ok := pm.Pattern[0].(*message.Expression)
	require.True(t, ok)
	_, ok = expr.Attributes.Get("bin-unit")
	assert.True(t, ok)

	group := res.Sections[1]
	assert.Equal(t, resource.ID{"app/strings.xml", "menu"}, group.ID)
	require.Len(t, group.Entries, 1)
	open := group.Entries[0].(*resource.Entry[message.Message])
	assert.Equal(t, resource.ID{"open"}, open.ID)
	assert.Equal(t, resource.Metadata{{Key: "source/.", Value: "Open & shut"}}, open.Meta)
	text, ok := message.PatternText(open.Value)
	require.True(t, ok)
	assert.Equal(t, "Avaa", text)
}

func TestParseFileComment(t *testing.T) {
	res, err := Parse([]byte(`<xliff version="1.2">
  <!-- First file -->
  <file original="a.txt">
    <body/>
  </file>
</xliff>`))
	require.NoError(t, err)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, "First file", res.Sections[0].Comment)
}

func TestParseNestedMarkup(t *testing.T) {
	res, err := Parse([]byte(`<xliff version="1.2">
  <file original="a.txt">
    <body>
      <trans-unit id="m">
        <source>in <g ctype="bold">the</g> middle</source>
        <target>in <g ctype="bold">the</g> middle</target>
      </trans-unit>
    </body>
  </file>
</xliff>`))
	require.NoError(t, err)
	entry := res.Sections[0].Entries[0].(*resource.Entry[message.Message])
	want := &message.PatternMessage{Pattern: message.Pattern{
		message.Text("in "),
		&message.Markup{
			Kind:    message.MarkupOpen,
			Name:    "g",
			Options: message.Options{{Name: "ctype", Value: message.Literal("bold")}},
		},
		message.Text("the"),
		&message.Markup{Kind: message.MarkupClose, Name: "g"},
		message.Text(" middle"),
	}}
	if diff := cmp.Diff(want, entry.Value); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, source := range []string{
		`<xliff version="2.0"><file original="f"><body/></file></xliff>`,
		`<xliff version="1.2" xmlns="urn:example:other"><file original="f"><body/></file></xliff>`,
		`<xliff version="1.2"><file original="f"><body><trans-unit><source>x</source></trans-unit></body></file></xliff>`,
		`<xliff version="1.2"><file original="f"><body>stray</body></file></xliff>`,
		`<xliff version="1.2"><file original="f"/></xliff>`,
		`<xliff version="1.2"><file><body/></file></xliff>`,
		`<xliff version="1.2"><bogus/></xliff>`,
		`<resources version="1.2"/>`,
	} {
		_, err := Parse([]byte(source))
		assert.Error(t, err, "source: %s", source)
	}
}

func TestSerialize(t *testing.T) {
	res, err := Parse([]byte(catalog))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))
	assert.Equal(t, catalog, out.String())
}

func TestSerializeRoundTrip(t *testing.T) {
	res, err := Parse([]byte(catalog))
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
	res, err := Parse([]byte(catalog))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, true))
	s := out.String()
	assert.NotContains(t, s, "Example catalog")
	assert.NotContains(t, s, "obsolete")
	assert.NotContains(t, s, "<note")
}

func TestSerializeErrors(t *testing.T) {
	entry := func(id resource.ID, meta resource.Metadata, pattern message.Pattern) *resource.Entry[message.Message] {
		return &resource.Entry[message.Message]{
			ID:    id,
			Value: &message.PatternMessage{Pattern: pattern},
			Meta:  meta,
		}
	}
	section := func(id resource.ID, entries ...resource.SectionEntry[message.Message]) *resource.Section[message.Message] {
		return &resource.Section[message.Message]{ID: id, Entries: entries}
	}
	sourceMeta := resource.Metadata{{Key: "source/.", Value: "x"}}
	for name, res := range map[string]*resource.Resource[message.Message]{
		"anonymous section": {
			Sections: []*resource.Section[message.Message]{section(nil)},
		},
		"duplicate section": {
			Sections: []*resource.Section[message.Message]{
				section(resource.ID{"f"}), section(resource.ID{"f"}),
			},
		},
		"no source": {
			Sections: []*resource.Section[message.Message]{
				section(resource.ID{"f"},
					entry(resource.ID{"a"}, nil, message.Pattern{}.AppendText("x"))),
			},
		},
		"expression in pattern": {
			Sections: []*resource.Section[message.Message]{
				section(resource.ID{"f"},
					entry(resource.ID{"a"}, sourceMeta, message.Pattern{
						&message.Expression{Arg: message.VariableRef{Name: "v"}},
					})),
			},
		},
		"variable markup option": {
			Sections: []*resource.Section[message.Message]{
				section(resource.ID{"f"},
					entry(resource.ID{"a"}, sourceMeta, message.Pattern{
						&message.Markup{
							Kind: message.MarkupStandalone,
							Name: "x",
							Options: message.Options{
								{Name: "id", Value: message.VariableRef{Name: "v"}},
							},
						},
					})),
			},
		},
		"unknown namespace": {
			Meta: resource.Metadata{{Key: "its:version", Value: "2.0"}},
		},
		"multi-part entry id": {
			Sections: []*resource.Section[message.Message]{
				section(resource.ID{"f"},
					entry(resource.ID{"a", "b"}, sourceMeta, message.Pattern{}.AppendText("x"))),
			},
		},
	} {
		var out strings.Builder
		assert.Error(t, Serialize(&out, res, false), name)
	}
}
