// Package highlight implements multi-select highlighting of output columns.
//
// State is an ordered toggle set. Reduce applies one event and returns a new
// state; Derive recomputes the complete visual view from a state. Colors are
// assigned by position in the selection, so removing an earlier selection
// shifts the colors of every later one.
package highlight

import "slices"

// State is the ordered set of selected output columns.
// The zero value is the empty (initial) state.
type State struct {
	selected []string
}

// NewState returns a state with the given columns selected in order.
// Repeated columns are toggled, exactly as if clicked in sequence.
func NewState(columns ...string) State {
	var s State
	for _, c := range columns {
		s = Reduce(s, Toggle{Column: c})
	}
	return s
}

// Selected returns a copy of the selection, oldest first.
func (s State) Selected() []string {
	return slices.Clone(s.selected)
}

// Contains reports whether a column is selected.
func (s State) Contains(column string) bool {
	return slices.Contains(s.selected, column)
}

// IndexOf returns the slot of a selected column, or -1.
func (s State) IndexOf(column string) int {
	return slices.Index(s.selected, column)
}

// Len returns the number of selected columns.
func (s State) Len() int {
	return len(s.selected)
}

// Empty reports whether nothing is selected.
func (s State) Empty() bool {
	return len(s.selected) == 0
}

// Event is a user interaction accepted by Reduce.
type Event interface {
	event()
}

// Toggle adds the column if absent and removes it if present.
type Toggle struct {
	Column string
}

// Clear resets the selection.
type Clear struct{}

func (Toggle) event() {}
func (Clear) event()  {}

// Reduce applies an event to a state. The input state is never modified.
func Reduce(s State, e Event) State {
	switch ev := e.(type) {
	case Toggle:
		if i := s.IndexOf(ev.Column); i >= 0 {
			if len(s.selected) == 1 {
				return State{}
			}
			return State{selected: slices.Delete(slices.Clone(s.selected), i, i+1)}
		}
		next := make([]string, 0, len(s.selected)+1)
		next = append(next, s.selected...)
		return State{selected: append(next, ev.Column)}
	case Clear:
		return State{}
	default:
		return s
	}
}
