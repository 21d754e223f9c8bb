// Package datatable holds the list-screen state shared by master-data
// views: search, single-column sort, row selection and the row being edited
// inline. A Table is not safe for concurrent use.
package datatable

import (
	"fmt"
	"slices"
	"strings"
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

type Column[T any] struct {
	Key   string
	Title string
	Value func(T) string
	// Less overrides the default case-insensitive comparison of Value.
	Less func(a, b T) bool
}

type Table[T any] struct {
	id      func(T) string
	columns []Column[T]

	rows     []T
	query    string
	sortKey  string
	sortDir  Direction
	selected map[string]struct{}
	editing  string
}

func New[T any](id func(T) string, columns ...Column[T]) *Table[T] {
	return &Table[T]{
		id:       id,
		columns:  columns,
		selected: make(map[string]struct{}),
	}
}

func (t *Table[T]) Columns() []Column[T] {
	return t.columns
}

// SetRows replaces the data set. Selected or edited ids that no longer exist
// are dropped.
func (t *Table[T]) SetRows(rows []T) {
	t.rows = slices.Clone(rows)
	t.prune()
}

func (t *Table[T]) All() []T {
	return slices.Clone(t.rows)
}

func (t *Table[T]) Len() int {
	return len(t.rows)
}

func (t *Table[T]) Find(id string) (T, bool) {
	i := t.index(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return t.rows[i], true
}

// Upsert replaces the row with the same id or appends it.
func (t *Table[T]) Upsert(row T) {
	if i := t.index(t.id(row)); i >= 0 {
		t.rows[i] = row
		return
	}
	t.rows = append(t.rows, row)
}

// Update applies fn to the row with id and reports whether it exists.
func (t *Table[T]) Update(id string, fn func(*T)) bool {
	i := t.index(id)
	if i < 0 {
		return false
	}
	fn(&t.rows[i])
	return true
}

func (t *Table[T]) Remove(ids ...string) int {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
		delete(t.selected, id)
		if t.editing == id {
			t.editing = ""
		}
	}

	before := len(t.rows)
	t.rows = slices.DeleteFunc(t.rows, func(row T) bool {
		_, ok := drop[t.id(row)]
		return ok
	})
	return before - len(t.rows)
}

func (t *Table[T]) Search(query string) {
	t.query = strings.TrimSpace(query)
}

func (t *Table[T]) Query() string {
	return t.query
}

// SortBy sorts on key. Picking the current key again flips the direction;
// a new key starts ascending.
func (t *Table[T]) SortBy(key string) error {
	if t.column(key) == nil {
		return fmt.Errorf("unknown column %q", key)
	}

	if t.sortKey == key {
		if t.sortDir == Asc {
			t.sortDir = Desc
		} else {
			t.sortDir = Asc
		}
		return nil
	}

	t.sortKey = key
	t.sortDir = Asc
	return nil
}

// SetSort sets key and direction explicitly; an empty key disables sorting.
func (t *Table[T]) SetSort(key string, dir Direction) error {
	if key != "" && t.column(key) == nil {
		return fmt.Errorf("unknown column %q", key)
	}
	t.sortKey = key
	t.sortDir = dir
	return nil
}

func (t *Table[T]) Sort() (string, Direction) {
	return t.sortKey, t.sortDir
}

// Rows returns the visible rows: filtered by the search query, then sorted.
func (t *Table[T]) Rows() []T {
	out := make([]T, 0, len(t.rows))
	needle := strings.ToLower(t.query)
	for _, row := range t.rows {
		if needle == "" || t.matches(row, needle) {
			out = append(out, row)
		}
	}

	col := t.column(t.sortKey)
	if col == nil {
		return out
	}

	less := col.Less
	if less == nil {
		less = func(a, b T) bool {
			return strings.ToLower(col.Value(a)) < strings.ToLower(col.Value(b))
		}
	}
	slices.SortStableFunc(out, func(a, b T) int {
		switch {
		case less(a, b):
			return t.flip(-1)
		case less(b, a):
			return t.flip(1)
		default:
			return 0
		}
	})
	return out
}

func (t *Table[T]) Toggle(id string) bool {
	if _, ok := t.selected[id]; ok {
		delete(t.selected, id)
		return false
	}
	if t.index(id) < 0 {
		return false
	}
	t.selected[id] = struct{}{}
	return true
}

func (t *Table[T]) IsSelected(id string) bool {
	_, ok := t.selected[id]
	return ok
}

// SelectAll selects every visible row, or clears the selection when all of
// them are already selected.
func (t *Table[T]) SelectAll() {
	visible := t.Rows()
	if len(visible) == 0 {
		return
	}

	all := true
	for _, row := range visible {
		if !t.IsSelected(t.id(row)) {
			all = false
			break
		}
	}

	if all {
		t.ClearSelection()
		return
	}
	for _, row := range visible {
		t.selected[t.id(row)] = struct{}{}
	}
}

func (t *Table[T]) ClearSelection() {
	clear(t.selected)
}

// Selected returns the selected ids in data-set order.
func (t *Table[T]) Selected() []string {
	out := make([]string, 0, len(t.selected))
	for _, row := range t.rows {
		if id := t.id(row); t.IsSelected(id) {
			out = append(out, id)
		}
	}
	return out
}

// ToggleEdit puts the row with id into edit mode, or leaves edit mode when
// it is already being edited. Only one row is edited at a time; starting on
// another row ends the previous edit. It reports whether id is now being
// edited.
func (t *Table[T]) ToggleEdit(id string) bool {
	if t.editing == id {
		t.editing = ""
		return false
	}
	if t.index(id) < 0 {
		return false
	}
	t.editing = id
	return true
}

func (t *Table[T]) IsEditing(id string) bool {
	return id != "" && t.editing == id
}

// Editing returns the id of the row in edit mode.
func (t *Table[T]) Editing() (string, bool) {
	return t.editing, t.editing != ""
}

func (t *Table[T]) CancelEdit() {
	t.editing = ""
}

func (t *Table[T]) matches(row T, needle string) bool {
	for _, col := range t.columns {
		if strings.Contains(strings.ToLower(col.Value(row)), needle) {
			return true
		}
	}
	return false
}

func (t *Table[T]) column(key string) *Column[T] {
	for i := range t.columns {
		if t.columns[i].Key == key {
			return &t.columns[i]
		}
	}
	return nil
}

func (t *Table[T]) index(id string) int {
	return slices.IndexFunc(t.rows, func(row T) bool { return t.id(row) == id })
}

func (t *Table[T]) flip(n int) int {
	if t.sortDir == Desc {
		return -n
	}
	return n
}

func (t *Table[T]) prune() {
	for id := range t.selected {
		if t.index(id) < 0 {
			delete(t.selected, id)
		}
	}
	if t.editing != "" && t.index(t.editing) < 0 {
		t.editing = ""
	}
}
