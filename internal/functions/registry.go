package functions

import "slices"

// A function added to a connection, with its application order.
type Registered struct {
	Ordinal  int    // Position in application order; larger runs later.
	Name     string // Dotted name the function was loaded from.
	Fn       any    // Loaded value, after any log-aware indirection.
	LogAware bool   // Whether Fn came from a log-aware factory.
}

// Ordered store of functions registered on one connection.
//
// Entries are keyed by name. Adding a name that is already present
// replaces the entry and gives it a fresh ordinal, moving it to the end of
// application order.
type Registry struct {
	entries map[string]Registered
	next    int
}

// Creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registered)}
}

// Stores fn under name at the next ordinal and returns that ordinal.
func (r *Registry) Add(name string, fn any, logAware bool) int {
	ordinal := r.next
	r.entries[name] = Registered{
		Ordinal:  ordinal,
		Name:     name,
		Fn:       fn,
		LogAware: logAware,
	}
	r.next++
	return ordinal
}

// Removes every entry and restarts ordinals at zero.
func (r *Registry) Reset() {
	clear(r.entries)
	r.next = 0
}

// Returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Returns the registered functions sorted by ordinal.
func (r *Registry) Ordered() []Registered {
	out := make([]Registered, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Registered) int {
		return a.Ordinal - b.Ordinal
	})
	return out
}
