// Package l10n ties the per-format codecs together behind two entry
// points: ParseResource and SerializeResource. Outer layers depend on
// these only; the per-format packages stay importable on their own for
// callers that know what they are handling.
package l10n

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mozilla/moz-l10n-go/formats"
	"github.com/mozilla/moz-l10n-go/formats/android"
	"github.com/mozilla/moz-l10n-go/formats/dtd"
	"github.com/mozilla/moz-l10n-go/formats/fluent"
	"github.com/mozilla/moz-l10n-go/formats/inc"
	"github.com/mozilla/moz-l10n-go/formats/ini"
	"github.com/mozilla/moz-l10n-go/formats/plainjson"
	"github.com/mozilla/moz-l10n-go/formats/po"
	"github.com/mozilla/moz-l10n-go/formats/properties"
	"github.com/mozilla/moz-l10n-go/formats/webext"
	"github.com/mozilla/moz-l10n-go/formats/xliff"
	"github.com/mozilla/moz-l10n-go/internal/log"
	"github.com/mozilla/moz-l10n-go/message"
	"github.com/mozilla/moz-l10n-go/resource"
)

type codec struct {
	parse     func([]byte) (*resource.Resource[message.Message], error)
	serialize func(io.Writer, *resource.Resource[message.Message], bool) error
}

var codecs = map[formats.Format]codec{
	formats.Android:    {android.Parse, android.Serialize},
	formats.DTD:        {dtd.Parse, dtd.Serialize},
	formats.Fluent:     {fluent.Parse, fluent.Serialize},
	formats.Inc:        {inc.Parse, inc.Serialize},
	formats.Ini:        {ini.Parse, ini.Serialize},
	formats.PlainJSON:  {plainjson.Parse, plainjson.Serialize},
	formats.PO:         {po.Parse, po.Serialize},
	formats.Properties: {properties.Parse, properties.Serialize},
	formats.WebExt:     {webext.Parse, webext.Serialize},
	formats.XLIFF:      {xliff.Parse, xliff.Serialize},
}

// ParseResource parses a localization file, determining its format from
// the path extension first and the contents second. A file that matches
// no supported format returns a *formats.UnsupportedFormatError;
// malformed content in a recognized format returns that format's parse
// error instead.
func ParseResource(path string, source []byte) (*resource.Resource[message.Message], error) {
	format, err := formats.Detect(path, source)
	if err != nil {
		return nil, err
	}
	log.L().Debug("detected localization format",
		zap.String("path", path),
		zap.String("format", string(format)))
	return ParseResourceFormat(format, source)
}

// ParseResourceFormat parses source as the given format. An
// unrecognized format returns a *formats.UnsupportedFormatError, like
// failed detection does.
func ParseResourceFormat(format formats.Format, source []byte) (*resource.Resource[message.Message], error) {
	c, ok := codecs[format]
	if !ok {
		return nil, &formats.UnsupportedFormatError{Format: format}
	}
	res, err := c.parse(source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s resource: %w", format, err)
	}
	return res, nil
}

// SerializeResource writes res to w in the resource's own format.
func SerializeResource(w io.Writer, res *resource.Resource[message.Message], trimComments bool) error {
	return SerializeResourceFormat(w, res, res.Format, trimComments)
}

// SerializeResourceFormat writes res to w in the given format, which
// may differ from the format the resource was parsed from. Constructs
// the target format cannot express are an error naming the construct.
func SerializeResourceFormat(w io.Writer, res *resource.Resource[message.Message], format formats.Format, trimComments bool) error {
	c, ok := codecs[format]
	if !ok {
		return &formats.UnsupportedFormatError{Format: format}
	}
	log.L().Debug("serializing resource",
		zap.String("format", string(format)),
		zap.Int("sections", len(res.Sections)))
	return c.serialize(w, res, trimComments)
}
