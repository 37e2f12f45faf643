package message

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestCatchallKeyIdentity(t *testing.T) {
	a := CatchallKey{Value: "other"}
	b := CatchallKey{Value: "many"}
	c := CatchallKey{}

	assert.True(t, KeyEqual(a, b))
	assert.True(t, KeyEqual(a, c))
	assert.True(t, cmp.Equal(a, b), "go-cmp must honor CatchallKey.Equal")
	assert.False(t, KeyEqual(a, StringKey("other")))
	assert.False(t, KeyEqual(StringKey("one"), StringKey("two")))
	assert.True(t, KeyEqual(StringKey("one"), StringKey("one")))
}

func TestPatternAppendText(t *testing.T) {
	var p Pattern
	p = p.AppendText("Hello ")
	p = p.AppendText("world")
	p = append(p, &Expression{Arg: VariableRef{Name: "user"}})
	p = p.AppendText("!")
	p = p.AppendText("")

	want := Pattern{
		Text("Hello world"),
		&Expression{Arg: VariableRef{Name: "user"}},
		Text("!"),
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

func TestMessageIsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		msg   Message
		empty bool
	}{
		{"nil pattern", &PatternMessage{}, true},
		{"empty text", &PatternMessage{Pattern: Pattern{Text("")}}, true},
		{"text", &PatternMessage{Pattern: Pattern{Text("hi")}}, false},
		{
			"expression only",
			&PatternMessage{Pattern: Pattern{&Expression{Arg: Literal("x")}}},
			false,
		},
		{
			"select with empty variants",
			&SelectMessage{
				Selectors: []VariableRef{{Name: "n"}},
				Variants: []Variant{
					{Keys: []VariantKey{StringKey("one")}},
					{Keys: []VariantKey{CatchallKey{Value: "other"}}},
				},
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.empty, tt.msg.IsEmpty())
		})
	}
}

func TestOrderedContainers(t *testing.T) {
	var opts Options
	opts.Set("style", Literal("decimal"))
	opts.Set("minimumFractionDigits", VariableRef{Name: "digits"})
	opts.Set("style", Literal("percent"))

	assert.Equal(t, Literal("percent"), opts.Get("style"))
	assert.Nil(t, opts.Get("missing"))
	assert.Equal(t, []string{"style", "minimumFractionDigits"}, func() []string {
		names := make([]string, len(opts))
		for i, o := range opts {
			names[i] = o.Name
		}
		return names
	}())

	var attrs Attributes
	attrs.Set("translate", nil)
	attrs.Set("source", String("%1$s"))
	v, ok := attrs.Get("translate")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "%1$s", attrs.GetString("source"))
	assert.Equal(t, "", attrs.GetString("translate"))

	var decls Declarations
	decls.Set("n", &Expression{Arg: VariableRef{Name: "n"}, Function: "number"})
	assert.NotNil(t, decls.Get("n"))
	assert.Nil(t, decls.Get("m"))
}

func TestSelectMessageVariantLookup(t *testing.T) {
	msg := &SelectMessage{
		Selectors: []VariableRef{{Name: "count"}},
		Variants: []Variant{
			{Keys: []VariantKey{StringKey("one")}, Pattern: Pattern{Text("A")}},
			{Keys: []VariantKey{CatchallKey{Value: "other"}}, Pattern: Pattern{Text("B")}},
		},
	}
	p, ok := msg.Variant([]VariantKey{StringKey("one")})
	assert.True(t, ok)
	assert.Equal(t, Pattern{Text("A")}, p)

	// Any catch-all key matches the fallback variant.
	p, ok = msg.Variant([]VariantKey{CatchallKey{}})
	assert.True(t, ok)
	assert.Equal(t, Pattern{Text("B")}, p)

	_, ok = msg.Variant([]VariantKey{StringKey("two")})
	assert.False(t, ok)
}
