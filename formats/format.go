// Package formats defines the serialization format tags shared by the
// per-format packages, and detection of a file's format from its path
// and contents.
package formats

import "fmt"

// Format identifies a localization file format.
type Format string

const (
	Android    Format = "android"
	DTD        Format = "dtd"
	Fluent     Format = "fluent"
	Inc        Format = "inc"
	Ini        Format = "ini"
	PlainJSON  Format = "plain_json"
	PO         Format = "po"
	Properties Format = "properties"
	WebExt     Format = "webext"
	XLIFF      Format = "xliff"
)

// Formats lists all supported format tags.
func Formats() []Format {
	return []Format{
		Android, DTD, Fluent, Inc, Ini,
		PlainJSON, PO, Properties, WebExt, XLIFF,
	}
}

// UnsupportedFormatError reports an input that is not a recognizable
// localization resource. It is distinct from a parse error in a
// recognized format: malformed content in a known format never produces
// this error.
type UnsupportedFormatError struct {
	// Path is the file path the detection was attempted on, if any.
	Path string
	// Format is the unrecognized format tag, when dispatch was asked
	// for a format by name.
	Format Format
}

func (e *UnsupportedFormatError) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("unsupported localization format: %s", e.Path)
	case e.Format != "":
		return fmt.Sprintf("unsupported localization format: %s", e.Format)
	}
	return "unsupported localization format"
}
