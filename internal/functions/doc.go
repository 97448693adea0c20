// Resolves, stores and invokes user functions by dotted name.
//
// A [Catalog] maps names of the form "container.leaf" to Go values. It is
// populated at startup with [Catalog.Register] and, when a plugin directory
// is configured, falls back to opening "<dir>/<container>.so" with the
// standard plugin package and looking the leaf symbol up there.
//
// Functions come in three shapes: [MapFunc], [ReduceFunc] and
// [ValidateFunc]. A catalog entry of type [LogAware] is a factory that is
// called once, at load time, with a [Reporter]; the value it returns is the
// function actually used. This lets user code emit log events on the
// connection that loaded it without holding the connection itself.
//
// A [Registry] is the per-connection ordered store of map functions added
// with add_fun. It is not safe for concurrent use; each connection owns
// its own.
//
// Example usage:
//
//	catalog := functions.NewCatalog()
//	catalog.Register("mod", "myfun", functions.MapFunc(func(doc functions.Document, emit functions.Emit) error {
//	    emit("k", 1)
//	    return nil
//	}))
//
//	fn, _, err := catalog.Load("mod.myfun", reporter)
//	if err != nil {
//	    return err
//	}
//
//	rows, err := functions.CallMap(fn, doc)
package functions
