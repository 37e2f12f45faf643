package mf2

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozilla/moz-l10n-go/message"
)

func TestSerializeCanonical(t *testing.T) {
	tests := []struct {
		name string
		msg  message.Message
		want string
	}{
		{
			"plain text",
			&message.PatternMessage{Pattern: message.Pattern{message.Text("Hello, world!")}},
			"Hello, world!",
		},
		{
			"text escapes",
			&message.PatternMessage{Pattern: message.Pattern{message.Text(`a {b} \c`)}},
			`a \{b\} \\c`,
		},
		{
			"leading dot needs quoting",
			&message.PatternMessage{Pattern: message.Pattern{message.Text(".hidden file")}},
			"{{.hidden file}}",
		},
		{
			"leading space and dot needs quoting",
			&message.PatternMessage{Pattern: message.Pattern{message.Text("  .ok")}},
			"{{  .ok}}",
		},
		{
			"variable",
			&message.PatternMessage{Pattern: message.Pattern{
				message.Text("Hi "),
				&message.Expression{Arg: message.VariableRef{Name: "user"}},
			}},
			"Hi {$user}",
		},
		{
			"function and options",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Expression{
					Arg:      message.VariableRef{Name: "count"},
					Function: "number",
					Options: message.Options{
						{Name: "style", Value: message.Literal("decimal")},
						{Name: "minimumFractionDigits", Value: message.VariableRef{Name: "d"}},
					},
				},
			}},
			"{$count :number style=decimal minimumFractionDigits=$d}",
		},
		{
			"literal quoting",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Expression{Arg: message.Literal("two words"), Function: "string"},
			}},
			"{|two words| :string}",
		},
		{
			"bare name and number literals",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Expression{
					Function: "f",
					Options: message.Options{
						{Name: "a", Value: message.Literal("bare")},
						{Name: "b", Value: message.Literal("-0.5e3")},
						{Name: "c", Value: message.Literal("")},
					},
				},
			}},
			"{:f a=bare b=-0.5e3 c=||}",
		},
		{
			"literal with pipe",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Expression{Arg: message.Literal(`a|b\c`)},
			}},
			`{|a\|b\\c|}`,
		},
		{
			"attributes",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Expression{
					Arg:      message.Literal("arg1"),
					Function: "string",
					Attributes: message.Attributes{
						{Name: "source", Value: message.String("%1$s")},
						{Name: "translate", Value: nil},
					},
				},
			}},
			"{arg1 :string @source=|%1$s| @translate}",
		},
		{
			"markup",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Markup{
					Kind:    message.MarkupOpen,
					Name:    "b",
					Options: message.Options{{Name: "class", Value: message.Literal("warn")}},
				},
				message.Text("!"),
				&message.Markup{Kind: message.MarkupClose, Name: "b"},
				&message.Markup{Kind: message.MarkupStandalone, Name: "br"},
			}},
			"{#b class=warn}!{/b}{#br /}",
		},
		{
			"declarations quote the pattern",
			&message.PatternMessage{
				Declarations: message.Declarations{
					{Name: "n", Value: &message.Expression{
						Arg: message.VariableRef{Name: "n"}, Function: "number",
					}},
					{Name: "half", Value: &message.Expression{
						Arg: message.VariableRef{Name: "n"}, Function: "math",
						Options: message.Options{{Name: "divide", Value: message.Literal("2")}},
					}},
				},
				Pattern: message.Pattern{
					&message.Expression{Arg: message.VariableRef{Name: "half"}},
				},
			},
			".input {$n :number}\n.local $half = {$n :math divide=2}\n{{{$half}}}",
		},
		{
			"select message",
			&message.SelectMessage{
				Declarations: message.Declarations{
					{Name: "count", Value: &message.Expression{
						Arg: message.VariableRef{Name: "count"}, Function: "number",
					}},
				},
				Selectors: []message.VariableRef{{Name: "count"}},
				Variants: []message.Variant{
					{
						Keys:    []message.VariantKey{message.StringKey("one")},
						Pattern: message.Pattern{message.Text("One item")},
					},
					{
						Keys: []message.VariantKey{message.CatchallKey{Value: "other"}},
						Pattern: message.Pattern{
							&message.Expression{Arg: message.VariableRef{Name: "count"}},
							message.Text(" items"),
						},
					},
				},
			},
			".input {$count :number}\n.match $count\none {{One item}}\n* {{{$count} items}}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Serialize(tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSerializeErrors(t *testing.T) {
	tests := []struct {
		name   string
		msg    message.Message
		errMsg string
	}{
		{
			"options without function",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Expression{
					Arg:     message.Literal("x"),
					Options: message.Options{{Name: "a", Value: message.Literal("1")}},
				},
			}},
			"options but no function",
		},
		{
			"no argument and no function",
			&message.PatternMessage{Pattern: message.Pattern{&message.Expression{}}},
			"no argument and no function",
		},
		{
			"close markup with options",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Markup{
					Kind:    message.MarkupClose,
					Name:    "b",
					Options: message.Options{{Name: "a", Value: message.Literal("1")}},
				},
			}},
			"Close markup cannot have options",
		},
		{
			"invalid function name",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Expression{Function: "not a name"},
			}},
			"Invalid function name",
		},
		{
			"select without selectors",
			&message.SelectMessage{
				Variants: []message.Variant{{Keys: nil, Pattern: message.Pattern{}}},
			},
			"At least one selector",
		},
		{
			"variant key arity",
			&message.SelectMessage{
				Selectors: []message.VariableRef{{Name: "n"}},
				Variants: []message.Variant{
					{Keys: []message.VariantKey{
						message.StringKey("a"), message.StringKey("b"),
					}},
				},
			},
			"Variant key mismatch",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Serialize(tt.msg)
			require.Error(t, err)
			var serr *SerializeError
			require.ErrorAs(t, err, &serr)
			assert.Contains(t, serr.Msg, tt.errMsg)
		})
	}
}

// Serialization is canonical: parse→serialize→parse→serialize is a
// fixed point, and both parses yield equal messages.
func TestRoundTripIdempotence(t *testing.T) {
	sources := []string{
		"Hello, world!",
		"Hello, {$user}!",
		`escaped \{brace\} and \\slash`,
		"{$count :number style=decimal}",
		"{|quoted literal| :string @source=|%1$s| @translate}",
		"{#a href=|/x|}link{/a}{#br /}",
		"{{  .dot text must stay quoted}}",
		".input {$n :number}\n{{You have {$n}}}",
		".local $v = {|x y| :string}\n{{{$v}}}",
		".input {$n :number}\n.match $n\none {{One}}\n* {{Many}}",
		".input {$a :string}\n.input {$b :string}\n.match $a $b\nx y {{XY}}\nx * {{X}}\n* * {{F}}",
		"{{  padded pattern  }}",
		"{1 :number} and {-0.5e3 :number}",
	}
	for _, source := range sources {
		t.Run(source, func(t *testing.T) {
			msg1, err := Parse(source)
			require.NoError(t, err)
			out1, err := Serialize(msg1)
			require.NoError(t, err)
			msg2, err := Parse(out1)
			require.NoError(t, err, "canonical output must re-parse: %q", out1)
			if diff := cmp.Diff(msg1, msg2); diff != "" {
				t.Fatalf("re-parsed message differs (-first +second):\n%s", diff)
			}
			out2, err := Serialize(msg2)
			require.NoError(t, err)
			assert.Equal(t, out1, out2)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := &message.SelectMessage{
		Declarations: message.Declarations{
			{Name: "n", Value: &message.Expression{
				Arg: message.VariableRef{Name: "n"}, Function: "number",
			}},
		},
		Selectors: []message.VariableRef{{Name: "n"}},
		Variants: []message.Variant{
			{
				Keys:    []message.VariantKey{message.StringKey("one")},
				Pattern: message.Pattern{message.Text("One")},
			},
			{
				Keys:    []message.VariantKey{message.CatchallKey{}},
				Pattern: message.Pattern{message.Text("Other")},
			},
		},
	}
	assert.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		msg    message.Message
		errMsg string
	}{
		{
			"undeclared reference",
			&message.PatternMessage{
				Declarations: message.Declarations{
					{Name: "a", Value: &message.Expression{Arg: message.VariableRef{Name: "b"}}},
				},
			},
			"refers to undeclared $b",
		},
		{
			"missing fallback",
			&message.SelectMessage{
				Declarations: valid.Declarations,
				Selectors:    valid.Selectors,
				Variants:     valid.Variants[:1],
			},
			"Missing fallback variant",
		},
		{
			"duplicate catch-all variants",
			&message.SelectMessage{
				Declarations: valid.Declarations,
				Selectors:    valid.Selectors,
				Variants: []message.Variant{
					{Keys: []message.VariantKey{message.CatchallKey{Value: "other"}}},
					{Keys: []message.VariantKey{message.CatchallKey{Value: "many"}}},
				},
			},
			"Duplicate variant",
		},
		{
			"unannotated selector",
			&message.SelectMessage{
				Selectors: []message.VariableRef{{Name: "n"}},
				Variants: []message.Variant{
					{Keys: []message.VariantKey{message.CatchallKey{}}},
				},
			},
			"Missing selector annotation",
		},
		{
			"duplicate option",
			&message.PatternMessage{Pattern: message.Pattern{
				&message.Expression{
					Function: "f",
					Options: message.Options{
						{Name: "a", Value: message.Literal("1")},
						{Name: "a", Value: message.Literal("2")},
					},
				},
			}},
			"Duplicate option name a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.msg)
			require.Error(t, err)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Msg, tt.errMsg)
		})
	}
}
