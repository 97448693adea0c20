// Package server implements the relaxd query server.
//
// The server listens on a TCP address for connections from the host
// database. Each connection gets its own goroutine and its own function
// registry; nothing is shared between connections except the read-only
// function catalog. Within a connection, lines are handled strictly in
// order: a line is read, decoded, dispatched and its reply written before
// the next line is read.
//
// Supported commands are reset, add_fun, map_doc, reduce, rereduce and
// validate. No single malformed line or failing user function closes a
// connection; failures are reported on the stream as an error envelope, a
// log event or a plain text line, and the loop moves on. Only the peer
// closing the transport ends a session.
//
// Example usage:
//
//	catalog := functions.NewCatalog()
//	builtin.Register(catalog)
//
//	srv, err := server.New(server.Config{
//	    Address: "127.0.0.1:5936",
//	    Catalog: catalog,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	return srv.Wait()
package server
