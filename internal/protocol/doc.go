// Implements the wire format spoken between the host database and relaxd.
//
// Every inbound line is a JSON array whose first element names a command
// and whose remaining elements are the command's arguments:
//
//	["add_fun", "mod.myfun"]
//	["map_doc", {"_id": "x"}]
//
// Every outbound line is a single JSON value. Replies, error envelopes and
// log events share the stream and are told apart by shape:
//
//	[[["k", 1]]]
//	{"error": "FunctionNotFound", "reason": "function \"mod.x\" not found"}
//	{"log": "boom"}
//
// Failures that do not fit the standardized envelope are written as a
// plain text line produced by [Describe].
package protocol
