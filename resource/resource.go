// Package resource defines the container model for a parsed localization
// file: a Resource holds sections, sections hold entries and detached
// comments, and every level can carry a comment and ordered metadata.
//
// The containers are generic over the entry value type. Format parsers
// produce Resource[message.Message]; intermediate or lossless pipelines
// may use Resource[string] or a format-specific value type.
package resource

import (
	"strings"

	"github.com/mozilla/moz-l10n-go/formats"
)

// ID is a multi-part identifier. Most formats use a single part; nested
// formats (plain JSON, XLIFF groups, PO msgctxt, Fluent attributes,
// Android string-arrays) use several.
type ID []string

// String joins the id parts with dots, for diagnostics only. Formats
// define their own joining rules on serialization.
func (id ID) String() string { return strings.Join(id, ".") }

// Equal reports whether two ids have the same parts.
func (id ID) Equal(other ID) bool {
	if len(id) != len(other) {
		return false
	}
	for i := range id {
		if id[i] != other[i] {
			return false
		}
	}
	return true
}

// Meta is a single metadata key-value pair. Keys may repeat; order is
// significant and preserved through a round-trip.
type Meta struct {
	Key   string
	Value string
}

// Metadata is an ordered list of key-value pairs.
type Metadata []Meta

// Get returns the value of the first pair with the given key.
func (m Metadata) Get(key string) (string, bool) {
	for _, kv := range m {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// GetAll returns the values of every pair with the given key, in order.
func (m Metadata) GetAll(key string) []string {
	var values []string
	for _, kv := range m {
		if kv.Key == key {
			values = append(values, kv.Value)
		}
	}
	return values
}

// Add appends a key-value pair.
func (m *Metadata) Add(key, value string) {
	*m = append(*m, Meta{key, value})
}

// Entry is a single localizable value with its id, comment, and metadata.
type Entry[V any] struct {
	ID      ID
	Value   V
	Comment string
	Meta    Metadata
}

// Comment is a detached comment between entries, not attached to any of
// them.
type Comment struct {
	Comment string
}

// SectionEntry is an element of a section body: an *Entry or a Comment.
type SectionEntry[V any] interface {
	sectionEntry()
}

func (*Entry[V]) sectionEntry() {}
func (Comment) sectionEntry()   {}

// Section is a named group of entries. Formats without native sections
// use a single section with an empty id.
type Section[V any] struct {
	ID      ID
	Entries []SectionEntry[V]
	Comment string
	Meta    Metadata
}

// AddEntry appends an entry to the section body.
func (s *Section[V]) AddEntry(e *Entry[V]) {
	s.Entries = append(s.Entries, e)
}

// AddComment appends a detached comment to the section body. Empty
// comments are dropped.
func (s *Section[V]) AddComment(text string) {
	if text != "" {
		s.Entries = append(s.Entries, Comment{text})
	}
}

// Resource is a complete parsed localization file.
type Resource[V any] struct {
	// Format is the serialization format tag of the source, or "" when
	// the resource was built programmatically.
	Format   formats.Format
	Sections []*Section[V]
	Comment  string
	Meta     Metadata
}

// FindSection returns the first section with the given id, or nil.
func (r *Resource[V]) FindSection(id ID) *Section[V] {
	for _, s := range r.Sections {
		if s.ID.Equal(id) {
			return s
		}
	}
	return nil
}

// AllEntries returns every entry of every section in document order,
// skipping detached comments.
func (r *Resource[V]) AllEntries() []*Entry[V] {
	var entries []*Entry[V]
	for _, s := range r.Sections {
		for _, e := range s.Entries {
			if entry, ok := e.(*Entry[V]); ok {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

// FindEntry returns the first entry with the given id across all
// sections, or nil. Section and entry ids are matched by concatenation,
// so a lookup of ("group", "key") finds both an entry ("group", "key")
// in the anonymous section and an entry ("key",) in section ("group",).
func (r *Resource[V]) FindEntry(id ID) *Entry[V] {
	for _, s := range r.Sections {
		if len(s.ID) > len(id) {
			continue
		}
		if !s.ID.Equal(id[:len(s.ID)]) {
			continue
		}
		rest := id[len(s.ID):]
		for _, e := range s.Entries {
			if entry, ok := e.(*Entry[V]); ok && entry.ID.Equal(rest) {
				return entry
			}
		}
	}
	return nil
}
