package cards

import (
	"errors"
	"fmt"
)

// ErrDuplicateUID is returned when a table names the same UID twice.
var ErrDuplicateUID = errors.New("duplicate card uid")

// Entry maps one card UID to the command it triggers.
type Entry struct {
	UID     string
	Name    string
	Command []string
}

// Table is an immutable UID lookup table. Build one with New, Load or Parse;
// use With to derive a modified copy.
type Table struct {
	entries map[string]Entry
	order   []string
}

// New builds a table from entries, rejecting duplicate or incomplete ones.
func New(entries []Entry) (*Table, error) {
	t := &Table{
		entries: make(map[string]Entry, len(entries)),
		order:   make([]string, 0, len(entries)),
	}
	for _, e := range entries {
		if err := validate(e); err != nil {
			return nil, err
		}
		if _, ok := t.entries[e.UID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateUID, e.UID)
		}
		t.entries[e.UID] = clone(e)
		t.order = append(t.order, e.UID)
	}
	return t, nil
}

func validate(e Entry) error {
	if e.UID == "" {
		return fmt.Errorf("card %q: empty uid", e.Name)
	}
	if len(e.Command) == 0 || e.Command[0] == "" {
		return fmt.Errorf("card %s: empty command", e.UID)
	}
	return nil
}

func clone(e Entry) Entry {
	e.Command = append([]string(nil), e.Command...)
	return e
}

// Lookup finds a card by its exact UID.
func (t *Table) Lookup(uid string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[uid]
	if !ok {
		return Entry{}, false
	}
	return clone(e), true
}

// Len returns the number of cards in the table.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Entries returns the cards in the order they were loaded.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.order))
	for _, uid := range t.order {
		out = append(out, clone(t.entries[uid]))
	}
	return out
}

// With returns a copy of the table with e added, or replacing the card with
// the same UID.
func (t *Table) With(e Entry) (*Table, error) {
	if err := validate(e); err != nil {
		return nil, err
	}
	entries := t.Entries()
	replaced := false
	for i := range entries {
		if entries[i].UID == e.UID {
			entries[i] = e
			replaced = true
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	return New(entries)
}
