package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPath(t *testing.T) {
	tests := []struct {
		path   string
		format Format
	}{
		{"values/strings.xml", Android},
		{"browser.dtd", DTD},
		{"messages.ftl", Fluent},
		{"defines.inc", Inc},
		{"updater.ini", Ini},
		{"data.json", PlainJSON},
		{"_locales/en/messages.json", WebExt},
		{"de.po", PO},
		{"template.pot", PO},
		{"app.properties", Properties},
		{"translation.xlf", XLIFF},
		{"translation.xliff", XLIFF},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, ok := DetectPath(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.format, format)
		})
	}

	_, ok := DetectPath("README.md")
	assert.False(t, ok)
	_, ok = DetectPath("no_extension")
	assert.False(t, ok)
}

func TestDetectContent(t *testing.T) {
	tests := []struct {
		name   string
		source string
		format Format
	}{
		{
			"android resources",
			`<?xml version="1.0" encoding="utf-8"?>` + "\n<resources>\n</resources>",
			Android,
		},
		{
			"android with license comment",
			"<!-- license -->\n<resources/>",
			Android,
		},
		{
			"xliff",
			`<xliff version="1.2" xmlns="urn:oasis:names:tc:xliff:document:1.2"></xliff>`,
			XLIFF,
		},
		{"dtd", `<!ENTITY app.title "App">`, DTD},
		{"po", "msgid \"hello\"\nmsgstr \"hallo\"\n", PO},
		{"po with leading comment", "# translators\nmsgid \"x\"\nmsgstr \"\"\n", PO},
		{"inc", "# #define does not count in a comment\n#define MOZ_LANGPACK_CONTRIBUTORS text\n", Inc},
		{"ini section", "[Strings]\nTitle=Updater\n", Ini},
		{
			"webext",
			`{"greeting": {"message": "Hello", "description": "greets"}}`,
			WebExt,
		},
		{
			"webext with line comments",
			"{\n  // greeting message\n  \"hi\": {\"message\": \"Hello\"}\n}",
			WebExt,
		},
		{"plain json", `{"a": {"b": "c"}}`, PlainJSON},
		{"empty json", `{}`, PlainJSON},
		{"byte order mark", "\uFEFF<resources/>", Android},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, ok := DetectContent([]byte(tt.source))
			require.True(t, ok)
			assert.Equal(t, tt.format, format)
		})
	}

	for name, source := range map[string]string{
		"empty":      "",
		"fluent":     "key = Value\n",
		"properties": "key = value\n",
		"prose":      "Just some text.",
	} {
		t.Run("no match "+name, func(t *testing.T) {
			_, ok := DetectContent([]byte(source))
			assert.False(t, ok)
		})
	}
}

func TestDetect(t *testing.T) {
	format, err := Detect("strings.xml", nil)
	require.NoError(t, err)
	assert.Equal(t, Android, format)

	// Content wins when the extension is unknown.
	format, err = Detect("strings.txt", []byte(`<resources/>`))
	require.NoError(t, err)
	assert.Equal(t, Android, format)

	_, err = Detect("notes.txt", []byte("hello"))
	var uerr *UnsupportedFormatError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "notes.txt", uerr.Path)
}
