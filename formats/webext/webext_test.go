package webext

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

const messagesJSON = `{
  // A leading line comment
  "SourceString": {
    "message": "Translated String",
    "description": "Sample comment"
  },
  "NoComment": {
    "message": "Translated No Comments or Sources"
  },
  "placeholders": {
    "message": "Hello$$$ $1YOUR_NAME$ at $2",
    "description": "Peer greeting",
    "placeholders": {
      "1your_name": {
        "content": "$1",
        "example": "Cira"
      }
    }
  },
  "repeated_ref": {
    "message": "$foo$ and $Foo$",
    "placeholders": {
      "Foo": { "content": "bar" }
    }
  }
}
`

func TestParse(t *testing.T) {
	res, err := Parse([]byte(messagesJSON))
	require.NoError(t, err)
	assert.Equal(t, formats.WebExt, res.Format)

	entries := res.AllEntries()
	require.Len(t, entries, 4)

	assert.Equal(t, resource.ID{"SourceString"}, entries[0].ID)
	assert.Equal(t, "Sample comment", entries[0].Comment)
	text, ok := message.PatternText(entries[0].Value)
	require.True(t, ok)
	assert.Equal(t, "Translated String", text)

	wantPlaceholders := &message.PatternMessage{
		Declarations: message.Declarations{
			{Name: "_1YOUR_NAME", Value: &message.Expression{
				Arg: message.VariableRef{Name: "arg1"},
				Attributes: message.Attributes{
					{Name: "source", Value: message.String("$1")},
					{Name: "example", Value: message.String("Cira")},
				},
			}},
		},
		Pattern: message.Pattern{
			message.Text("Hello$$ "),
			&message.Expression{
				Arg:        message.VariableRef{Name: "_1YOUR_NAME"},
				Attributes: message.Attributes{{Name: "source", Value: message.String("$1YOUR_NAME$")}},
			},
			message.Text(" at "),
			&message.Expression{
				Arg:        message.VariableRef{Name: "arg2"},
				Attributes: message.Attributes{{Name: "source", Value: message.String("$2")}},
			},
		},
	}
	if diff := cmp.Diff(wantPlaceholders, entries[2].Value); diff != "" {
		t.Errorf("placeholders message mismatch (-want +got):\n%s", diff)
	}

	repeated := entries[3].Value.(*message.PatternMessage)
	require.Len(t, repeated.Declarations, 1)
	assert.Equal(t, "foo", repeated.Declarations[0].Name)
	first := repeated.Pattern[0].(*message.Expression)
	second := repeated.Pattern[2].(*message.Expression)
	assert.Equal(t, message.VariableRef{Name: "foo"}, first.Arg)
	assert.Equal(t, message.VariableRef{Name: "foo"}, second.Arg)
	assert.Equal(t, "$foo$", first.Attributes.GetString("source"))
	assert.Equal(t, "$Foo$", second.Attributes.GetString("source"))
}

func TestParseMissingPlaceholder(t *testing.T) {
	_, err := Parse([]byte(`{"a": {"message": "Hi $NAME$"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestSerializeRoundTrip(t *testing.T) {
	res, err := Parse([]byte(messagesJSON))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))

	res2, err := Parse([]byte(out.String()))
	require.NoError(t, err)
	if diff := cmp.Diff(res.Sections, res2.Sections); diff != "" {
		t.Errorf("round-trip mismatch (-first +second):\n%s", diff)
	}
	assert.Contains(t, out.String(), `"message": "Hello$$$ $1YOUR_NAME$ at $2"`)
	assert.Contains(t, out.String(), `"example": "Cira"`)
}

func TestSerializeTrimComments(t *testing.T) {
	res, err := Parse([]byte(messagesJSON))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, true))
	assert.NotContains(t, out.String(), "description")
	assert.NotContains(t, out.String(), "example")
}

func TestSerializeRejectsSelect(t *testing.T) {
	res := &resource.Resource[message.Message]{
		Sections: []*resource.Section[message.Message]{
			{Entries: []resource.SectionEntry[message.Message]{
				&resource.Entry[message.Message]{
					ID: resource.ID{"plural"},
					Value: &message.SelectMessage{
						Selectors: []message.VariableRef{{Name: "n"}},
						Variants: []message.Variant{
							{Keys: []message.VariantKey{message.CatchallKey{}}},
						},
					},
				},
			}},
		},
	}
	var out strings.Builder
	err := Serialize(&out, res, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plural")
}
