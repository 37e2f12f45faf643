package inc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

const defines = `#filter emptyLines

# This is a comment
#define MOZ_LANGPACK_CREATOR mozilla.org

# If non-English locales wish to credit multiple contributors, uncomment this
#define MOZ_LANGPACK_CONTRIBUTORS <em:contributor>Joe Solon</em:contributor>

#unfilter emptyLines
`

func TestParseDefines(t *testing.T) {
	res, err := Parse([]byte(defines))
	require.NoError(t, err)
	assert.Equal(t, formats.Inc, res.Format)

	body := res.Sections[0].Entries
	require.Len(t, body, 4)
	assert.Equal(t, resource.Comment{Comment: "#filter emptyLines"}, body[0])

	creator := body[1].(*resource.Entry[message.Message])
	assert.Equal(t, resource.ID{"MOZ_LANGPACK_CREATOR"}, creator.ID)
	assert.Equal(t, "This is a comment", creator.Comment)
	text, ok := message.PatternText(creator.Value)
	require.True(t, ok)
	assert.Equal(t, "mozilla.org", text)

	contrib := body[2].(*resource.Entry[message.Message])
	assert.Equal(t, "If non-English locales wish to credit multiple contributors, uncomment this", contrib.Comment)
	text, ok = message.PatternText(contrib.Value)
	require.True(t, ok)
	assert.Equal(t, "<em:contributor>Joe Solon</em:contributor>", text)

	assert.Equal(t, resource.Comment{Comment: "#unfilter emptyLines"}, body[3])
}

func TestRoundTrip(t *testing.T) {
	res, err := Parse([]byte(defines))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))

	res2, err := Parse([]byte(out.String()))
	require.NoError(t, err)
	assert.Equal(t, len(res.AllEntries()), len(res2.AllEntries()))
	for i, e := range res.AllEntries() {
		e2 := res2.AllEntries()[i]
		assert.Equal(t, e.ID, e2.ID)
		assert.Equal(t, e.Comment, e2.Comment)
		assert.Equal(t, e.Value, e2.Value)
	}
}

func TestTrimCommentsKeepsDirectives(t *testing.T) {
	res, err := Parse([]byte(defines))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, true))
	s := out.String()
	assert.Contains(t, s, "#filter emptyLines")
	assert.Contains(t, s, "#unfilter emptyLines")
	assert.NotContains(t, s, "This is a comment")
}

func TestParseRejectsUnknownContent(t *testing.T) {
	_, err := Parse([]byte("plain text\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content")
}
