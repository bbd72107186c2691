package columns

import (
	"fmt"
	"reflect"
	"sync"
)

// Registry caches struct metadata per type. Types are parsed on first use.
type Registry struct {
	cache sync.Map // map[reflect.Type]*Metadata
}

var global = &Registry{}

// For returns the metadata of the struct v points to, or of v's element type when v
// is a pointer to a slice of structs or struct pointers.
func For(v any) (*Metadata, error) {
	return global.Get(reflect.TypeOf(v))
}

// Get returns the metadata of t after dereferencing pointers and slices.
func (r *Registry) Get(t reflect.Type) (*Metadata, error) {
	if t == nil {
		return nil, fmt.Errorf("expected a struct pointer, got nil")
	}
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}

	if cached, ok := r.cache.Load(t); ok {
		return cached.(*Metadata), nil
	}

	m, err := parse(t)
	if err != nil {
		return nil, err
	}
	actual, _ := r.cache.LoadOrStore(t, m)
	return actual.(*Metadata), nil
}

// Clear drops every cached entry. Tests only.
func (r *Registry) Clear() {
	r.cache.Clear()
}
