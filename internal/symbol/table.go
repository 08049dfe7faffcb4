package symbol

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("variable not found")
	ErrIndexOutOfRange = errors.New("variable index out of range")
)

// Vector is the storage type of vector variables and vector results.
type Vector [3]float64

// Variable is one registered binding. Value points at a slot allocated once
// per variable, so its address stays valid while the registry grows.
type Variable[T comparable] struct {
	Original string
	Used     string
	Value    *T
	Needed   bool
}

// keywords cannot be used as identifiers by the expression language.
var keywords = []string{
	"in", "and", "or", "not", "nil", "true", "false", "let", "matches",
	"contains", "startsWith", "endsWith", "if", "else",
}

// names is the used-name namespace shared by every registry of a Table.
type names struct {
	taken map[string]struct{}
}

func (n *names) claim(original string) string {
	used := uniqueName(SanitizeName(original), n.taken)
	n.taken[used] = struct{}{}
	return used
}

func (n *names) release(used string) {
	delete(n.taken, used)
}

// Registry stores the variables of one kind, indexable by position and by
// original name. Growth is append-only.
type Registry[T comparable] struct {
	entries []*Variable[T]
	index   map[string]int
	names   *names
}

func newRegistry[T comparable](n *names) *Registry[T] {
	return &Registry[T]{
		index: make(map[string]int),
		names: n,
	}
}

// Set stores value under name. added reports that a new variable was
// registered; changed reports that the stored value differs from before.
func (r *Registry[T]) Set(name string, value T) (added, changed bool) {
	if i, ok := r.index[name]; ok {
		changed, _ = r.SetAt(i, value)
		return false, changed
	}

	slot := new(T)
	*slot = value
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, &Variable[T]{
		Original: name,
		Used:     r.names.claim(name),
		Value:    slot,
	})
	return true, true
}

// SetAt overwrites the value of the i-th variable in place.
func (r *Registry[T]) SetAt(i int, value T) (changed bool, err error) {
	v, err := r.lookup(i)
	if err != nil {
		return false, err
	}
	if *v.Value == value {
		return false, nil
	}
	*v.Value = value
	return true, nil
}

func (r *Registry[T]) Get(name string) (T, error) {
	i, ok := r.index[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return *r.entries[i].Value, nil
}

func (r *Registry[T]) GetAt(i int) (T, error) {
	v, err := r.lookup(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return *v.Value, nil
}

// IndexOf returns the position of the variable registered as name.
func (r *Registry[T]) IndexOf(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

func (r *Registry[T]) Len() int {
	return len(r.entries)
}

// At returns the i-th variable, or nil when i is out of range.
func (r *Registry[T]) At(i int) *Variable[T] {
	if i < 0 || i >= len(r.entries) {
		return nil
	}
	return r.entries[i]
}

func (r *Registry[T]) NameAt(i int) (string, error) {
	v, err := r.lookup(i)
	if err != nil {
		return "", err
	}
	return v.Original, nil
}

func (r *Registry[T]) UsedNameAt(i int) (string, error) {
	v, err := r.lookup(i)
	if err != nil {
		return "", err
	}
	return v.Used, nil
}

func (r *Registry[T]) NeededAt(i int) (bool, error) {
	v, err := r.lookup(i)
	if err != nil {
		return false, err
	}
	return v.Needed, nil
}

// Reset drops every variable and gives their used names back to the table.
func (r *Registry[T]) Reset() {
	for _, v := range r.entries {
		r.names.release(v.Used)
	}
	r.entries = nil
	r.index = make(map[string]int)
}

func (r *Registry[T]) resetNeeded() {
	for _, v := range r.entries {
		v.Needed = false
	}
}

func (r *Registry[T]) lookup(i int) (*Variable[T], error) {
	if i < 0 || i >= len(r.entries) {
		return nil, fmt.Errorf("%w: %d (count %d)", ErrIndexOutOfRange, i, len(r.entries))
	}
	return r.entries[i], nil
}

// Table holds the scalar and vector registries. Original names are
// separate per kind, used names are unique across both since the engine
// sees a single namespace.
type Table struct {
	Scalars *Registry[float64]
	Vectors *Registry[Vector]
	names   *names
}

// NewTable returns an empty Table. Keywords of the expression language and
// the given reserved names are never handed out as used names.
func NewTable(reserved ...string) *Table {
	n := &names{taken: make(map[string]struct{}, len(keywords)+len(reserved))}
	for _, k := range keywords {
		n.taken[k] = struct{}{}
	}
	for _, r := range reserved {
		n.taken[r] = struct{}{}
	}
	return &Table{
		Scalars: newRegistry[float64](n),
		Vectors: newRegistry[Vector](n),
		names:   n,
	}
}

// Lookup resolves an original name to its used name, scalars first.
func (t *Table) Lookup(original string) (string, bool) {
	if i, ok := t.Scalars.IndexOf(original); ok {
		return t.Scalars.entries[i].Used, true
	}
	if i, ok := t.Vectors.IndexOf(original); ok {
		return t.Vectors.entries[i].Used, true
	}
	return "", false
}

func (t *Table) ResetNeeded() {
	t.Scalars.resetNeeded()
	t.Vectors.resetNeeded()
}

func (t *Table) Reset() {
	t.Scalars.Reset()
	t.Vectors.Reset()
}
