package core

import (
	"errors"
	"strings"
)

// Lookup errors returned by Index accessors.
var (
	ErrSheetNotFound  = errors.New("output table not found")
	ErrRecordNotFound = errors.New("record id not found")
)

// LineageRecord is one raw row of an output-table sheet.
type LineageRecord struct {
	Sheet        string `json:"sheet" yaml:"sheet"`
	OutputColumn string `json:"output_column" yaml:"output_column"`
	RecordID     string `json:"record_id" yaml:"record_id"`
	InputRefs    string `json:"input_refs" yaml:"input_refs"` // newline-delimited "table.column" tokens
	Rule         string `json:"rule,omitempty" yaml:"rule,omitempty"`
	Example      string `json:"example,omitempty" yaml:"example,omitempty"`
}

// Reference is an (input table, input column) pair.
type Reference struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// ID returns the dotted form "table.column".
func (r Reference) ID() string {
	return r.Table + "." + r.Column
}

// AnchorKey is the key used to match a reference against laid out input
// columns. Both parts are compared case-insensitively.
func (r Reference) AnchorKey() string {
	return strings.ToLower(r.Table) + "." + strings.ToLower(r.Column)
}

// Key addresses one output column of one record of one sheet.
type Key struct {
	Sheet        string `json:"sheet"`
	RecordID     string `json:"record_id"`
	OutputColumn string `json:"output_column"`
}

// Entry is the lineage value stored for a Key.
type Entry struct {
	References []Reference `json:"references"`
	Rule       string      `json:"rule"`
	Example    string      `json:"example"`
}

// Selection picks a slice of the index.
type Selection struct {
	Sheet    string `json:"sheet"`
	RecordID string `json:"record_id"`
}

// Index is the flat lineage index. Keys keep their insertion order so that
// sheets, record ids and output columns can be listed in the order they were
// first encountered.
type Index struct {
	entries map[Key]*Entry
	keys    []Key
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{entries: make(map[Key]*Entry)}
}

// Ensure returns the entry for key, creating an empty one if needed.
func (ix *Index) Ensure(key Key) *Entry {
	if e, ok := ix.entries[key]; ok {
		return e
	}
	e := &Entry{References: []Reference{}}
	ix.entries[key] = e
	ix.keys = append(ix.keys, key)
	return e
}

// Entry returns a copy of the entry for key.
func (ix *Index) Entry(key Key) (Entry, bool) {
	e, ok := ix.entries[key]
	if !ok {
		return Entry{}, false
	}
	return cloneEntry(e), true
}

// Keys returns all keys in insertion order.
func (ix *Index) Keys() []Key {
	out := make([]Key, len(ix.keys))
	copy(out, ix.keys)
	return out
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	return len(ix.keys)
}

// Sheets returns output table names in first-seen order.
func (ix *Index) Sheets() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, k := range ix.keys {
		if _, ok := seen[k.Sheet]; ok {
			continue
		}
		seen[k.Sheet] = struct{}{}
		out = append(out, k.Sheet)
	}
	return out
}

// RecordIDs returns the record ids of a sheet in first-seen order.
func (ix *Index) RecordIDs(sheet string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, k := range ix.keys {
		if k.Sheet != sheet {
			continue
		}
		if _, ok := seen[k.RecordID]; ok {
			continue
		}
		seen[k.RecordID] = struct{}{}
		out = append(out, k.RecordID)
	}
	return out
}

// Slice returns the output columns of one (sheet, record id) selection.
// An unknown selection yields an empty slice, never an error.
func (ix *Index) Slice(sel Selection) *Slice {
	s := &Slice{Sheet: sel.Sheet, RecordID: sel.RecordID}
	for _, k := range ix.keys {
		if k.Sheet != sel.Sheet || k.RecordID != sel.RecordID {
			continue
		}
		s.Columns = append(s.Columns, SliceColumn{
			Name:  k.OutputColumn,
			Entry: cloneEntry(ix.entries[k]),
		})
	}
	return s
}

// Resolve validates a selection, returning ErrSheetNotFound or
// ErrRecordNotFound when it addresses nothing in the index.
func (ix *Index) Resolve(sel Selection) (Selection, error) {
	found := false
	for _, k := range ix.keys {
		if k.Sheet != sel.Sheet {
			continue
		}
		found = true
		if k.RecordID == sel.RecordID {
			return sel, nil
		}
	}
	if !found {
		return sel, ErrSheetNotFound
	}
	return sel, ErrRecordNotFound
}

// Default returns the first selection of the index, if any.
func (ix *Index) Default() (Selection, bool) {
	if len(ix.keys) == 0 {
		return Selection{}, false
	}
	return Selection{Sheet: ix.keys[0].Sheet, RecordID: ix.keys[0].RecordID}, true
}

func cloneEntry(e *Entry) Entry {
	refs := make([]Reference, len(e.References))
	copy(refs, e.References)
	return Entry{References: refs, Rule: e.Rule, Example: e.Example}
}

// Slice is the subset of the index selected by (sheet, record id).
type Slice struct {
	Sheet    string
	RecordID string
	Columns  []SliceColumn
}

// SliceColumn is one output column of a slice.
type SliceColumn struct {
	Name string
	Entry
}

// Column returns the named output column of the slice.
func (s *Slice) Column(name string) (SliceColumn, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return SliceColumn{}, false
}

// ReferencedTables returns the distinct input tables referenced by the slice,
// in encounter order.
func (s *Slice) ReferencedTables() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range s.Columns {
		for _, ref := range c.References {
			if _, ok := seen[ref.Table]; ok {
				continue
			}
			seen[ref.Table] = struct{}{}
			out = append(out, ref.Table)
		}
	}
	return out
}
