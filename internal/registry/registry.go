// Package registry keeps handle records (buttons, controllers) keyed by
// generated identifiers.
package registry

import (
	"strconv"
	"sync/atomic"

	"github.com/arko-chat/paybridge/internal/bridgeerr"
	"github.com/puzpuzpuz/xsync/v4"
)

// IDFormat turns a sequence number into the identifier handed to hosts.
type IDFormat func(n uint64) string

// Decimal formats ids as "1", "2", ... which hosts may echo back as numbers.
func Decimal(n uint64) string { return strconv.FormatUint(n, 10) }

// Prefixed formats ids as prefix+n, e.g. "c1".
func Prefixed(prefix string) IDFormat {
	return func(n uint64) string { return prefix + strconv.FormatUint(n, 10) }
}

// Registry maps ids to records of type T. T should be a value type: Update
// hands the mutation a copy and only stores it if the mutation succeeds, so
// reference fields inside T must be replaced rather than mutated in place.
//
// Ids come from a counter that only moves forward, so a freed id is never
// handed out again for the lifetime of the registry.
type Registry[T any] struct {
	kind    string
	format  IDFormat
	seq     atomic.Uint64
	records *xsync.Map[string, T]
}

func New[T any](kind string, format IDFormat) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		format:  format,
		records: xsync.NewMap[string, T](),
	}
}

func (r *Registry[T]) Kind() string { return r.kind }

// Create stores rec under a fresh id.
func (r *Registry[T]) Create(rec T) string {
	id := r.format(r.seq.Add(1))
	r.records.Store(id, rec)
	return id
}

// CreateWith reserves an id, builds the record with it and stores the record
// only if build succeeds. A failed build leaves the registry unchanged; the
// reserved id is simply skipped.
func (r *Registry[T]) CreateWith(build func(id string) (T, error)) (string, T, error) {
	id := r.format(r.seq.Add(1))
	rec, err := build(id)
	if err != nil {
		var zero T
		return "", zero, err
	}
	r.records.Store(id, rec)
	return id, rec, nil
}

func (r *Registry[T]) Get(id string) (T, error) {
	rec, ok := r.records.Load(id)
	if !ok {
		var zero T
		return zero, bridgeerr.NotFound(r.kind, id)
	}
	return rec, nil
}

// Update applies fn to a copy of the record and stores the result atomically
// with respect to other operations on the same id. If fn returns an error the
// stored record is left untouched and the error is returned.
func (r *Registry[T]) Update(id string, fn func(rec *T) error) (T, error) {
	var (
		found bool
		fnErr error
	)
	actual, _ := r.records.Compute(id, func(old T, loaded bool) (T, xsync.ComputeOp) {
		if !loaded {
			return old, xsync.CancelOp
		}
		found = true
		next := old
		if err := fn(&next); err != nil {
			fnErr = err
			return old, xsync.CancelOp
		}
		return next, xsync.UpdateOp
	})
	if !found {
		var zero T
		return zero, bridgeerr.NotFound(r.kind, id)
	}
	if fnErr != nil {
		var zero T
		return zero, fnErr
	}
	return actual, nil
}

// Remove deletes id and reports whether it existed.
func (r *Registry[T]) Remove(id string) bool {
	_, ok := r.records.LoadAndDelete(id)
	return ok
}

// Take deletes id and returns the record it held.
func (r *Registry[T]) Take(id string) (T, error) {
	rec, ok := r.records.LoadAndDelete(id)
	if !ok {
		var zero T
		return zero, bridgeerr.NotFound(r.kind, id)
	}
	return rec, nil
}

// RemoveAll deletes every record and returns how many were removed.
func (r *Registry[T]) RemoveAll() int {
	return len(r.TakeAll())
}

// TakeAll deletes every record and returns the ones it removed.
func (r *Registry[T]) TakeAll() []T {
	var out []T
	r.records.Range(func(id string, _ T) bool {
		if rec, ok := r.records.LoadAndDelete(id); ok {
			out = append(out, rec)
		}
		return true
	})
	return out
}

func (r *Registry[T]) Len() int {
	return r.records.Size()
}

func (r *Registry[T]) Range(fn func(id string, rec T) bool) {
	r.records.Range(fn)
}
