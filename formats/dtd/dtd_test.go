package dtd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

const accounts = `<!-- This Source Code Form is subject to the terms of the Mozilla Public
   - License, v. 2.0. If a copy of the MPL was not distributed with this
   - file, You can obtain one at http://mozilla.org/MPL/2.0/. -->

<!-- This file is originally from:
     https://searchfox.org/comm-central/chat/locales/en-US/accounts.dtd -->

<!-- Account manager window for Instantbird -->
<!ENTITY accounts.title "Accounts - &brandShortName;">
<!ENTITY accountManager.newAccount.label "New Account">
<!ENTITY accountManager.close.accesskey "l">
<!-- This should match account.commandkey in instantbird.dtd -->
<!ENTITY accountManager.close.commandkey "a">
<!ENTITY account.connecting "Connecting…">
`

func TestParseAccounts(t *testing.T) {
	res, err := Parse([]byte(accounts))
	require.NoError(t, err)

	assert.Equal(t, "This Source Code Form is subject to the terms of the Mozilla Public\n"+
		"   - License, v. 2.0. If a copy of the MPL was not distributed with this\n"+
		"   - file, You can obtain one at http://mozilla.org/MPL/2.0/.", res.Comment)

	body := res.Sections[0].Entries
	require.Len(t, body, 6)
	assert.Equal(t, resource.Comment{Comment: "This file is originally from:\n" +
		"https://searchfox.org/comm-central/chat/locales/en-US/accounts.dtd"}, body[0])

	title := body[1].(*resource.Entry[message.Message])
	assert.Equal(t, resource.ID{"accounts.title"}, title.ID)
	assert.Equal(t, "Account manager window for Instantbird", title.Comment)
	text, ok := message.PatternText(title.Value)
	require.True(t, ok)
	assert.Equal(t, "Accounts - &brandShortName;", text)

	commandkey := body[4].(*resource.Entry[message.Message])
	assert.Equal(t, "This should match account.commandkey in instantbird.dtd", commandkey.Comment)

	connecting := body[5].(*resource.Entry[message.Message])
	text, ok = message.PatternText(connecting.Value)
	require.True(t, ok)
	assert.Equal(t, "Connecting…", text)
}

func TestParseTrailingCommentOnEntityLine(t *testing.T) {
	res, err := Parse([]byte(`<!ENTITY key "value"> <!-- trailing -->` + "\n"))
	require.NoError(t, err)
	e := res.AllEntries()[0]
	assert.Equal(t, "trailing", e.Comment)
}

func TestParseCommentedOutEntity(t *testing.T) {
	src := `<!-- <!ENTITY old.key "unused"> -->
<!ENTITY new.key "used">
`
	res, err := Parse([]byte(src))
	require.NoError(t, err)
	body := res.Sections[0].Entries
	require.Len(t, body, 2)
	assert.Equal(t, resource.Comment{Comment: `<!ENTITY old.key "unused">`}, body[0])
	assert.Equal(t, "", body[1].(*resource.Entry[message.Message]).Comment)
}

func TestParseRejectsStrayContent(t *testing.T) {
	_, err := Parse([]byte(`<!ENTITY a "1"> stray <!ENTITY b "2">`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stray")
}

func TestSerialize(t *testing.T) {
	res, err := Parse([]byte(accounts))
	require.NoError(t, err)
	res.Sections[0].Entries = append(
		[]resource.SectionEntry[message.Message]{
			&resource.Entry[message.Message]{
				ID:    resource.ID{"foo"},
				Value: &message.PatternMessage{Pattern: message.Pattern{message.Text(`"bar"`)}},
			},
		},
		res.Sections[0].Entries...,
	)

	var out strings.Builder
	require.NoError(t, Serialize(&out, res, false))
	assert.Equal(t, `<!-- This Source Code Form is subject to the terms of the Mozilla Public
   - License, v. 2.0. If a copy of the MPL was not distributed with this
   - file, You can obtain one at http://mozilla.org/MPL/2.0/. -->

<!ENTITY foo '"bar"'>

<!-- This file is originally from:
     https://searchfox.org/comm-central/chat/locales/en-US/accounts.dtd -->

<!-- Account manager window for Instantbird -->
<!ENTITY accounts.title "Accounts - &brandShortName;">
<!ENTITY accountManager.newAccount.label "New Account">
<!ENTITY accountManager.close.accesskey "l">
<!-- This should match account.commandkey in instantbird.dtd -->
<!ENTITY accountManager.close.commandkey "a">
<!ENTITY account.connecting "Connecting…">
`, out.String())
}

func TestSerializeTrimComments(t *testing.T) {
	res, err := Parse([]byte(accounts))
	require.NoError(t, err)
	var out strings.Builder
	require.NoError(t, Serialize(&out, res, true))
	assert.NotContains(t, out.String(), "<!--")
	assert.Contains(t, out.String(), `<!ENTITY accounts.title "Accounts - &brandShortName;">`)
}

func TestSerializeRejectsInvalidName(t *testing.T) {
	res := &resource.Resource[message.Message]{
		Sections: []*resource.Section[message.Message]{
			{Entries: []resource.SectionEntry[message.Message]{
				&resource.Entry[message.Message]{
					ID:    resource.ID{"not a name"},
					Value: &message.PatternMessage{Pattern: message.Pattern{message.Text("x")}},
				},
			}},
		},
	}
	var out strings.Builder
	err := Serialize(&out, res, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a name")
}
