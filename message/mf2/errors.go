package mf2

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// ParseError reports a grammar violation in an MF2 message. Parsing is
// all-or-nothing per message: no partial result accompanies an error.
type ParseError struct {
	Msg    string
	Pos    int // rune offset into Source
	Source string
}

func (e *ParseError) Error() string {
	src := strings.ReplaceAll(e.Source, "\n", "¶")
	return fmt.Sprintf("%s\n%s\n%s^", e.Msg, src, strings.Repeat(" ", e.Pos))
}

// Pretty renders the error with the offending position highlighted,
// for terminal output.
func (e *ParseError) Pretty() string {
	src := []rune(strings.ReplaceAll(e.Source, "\n", "¶"))
	var b strings.Builder
	b.WriteString(color.New(color.FgRed, color.Bold).Sprint("error: "))
	b.WriteString(e.Msg)
	b.WriteByte('\n')
	if e.Pos < len(src) {
		b.WriteString(string(src[:e.Pos]))
		b.WriteString(color.New(color.FgRed, color.Underline).Sprint(string(src[e.Pos])))
		b.WriteString(string(src[e.Pos+1:]))
	} else {
		b.WriteString(string(src))
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", e.Pos))
	b.WriteString(color.New(color.FgRed).Sprint("^"))
	return b.String()
}

// SerializeError reports a message that cannot be expressed in MF2
// syntax, e.g. an expression with options but no function.
type SerializeError struct {
	Msg string
}

func (e *SerializeError) Error() string { return e.Msg }

// ValidationError reports a model-level validity violation in a
// programmatically constructed message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }
