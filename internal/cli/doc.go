// Parses flags and configures logging for the relaxd daemon.
//
// The daemon accepts the following flags:
//
//	-q, --quiet            Suppress informational output.
//	-v, --verbose          Enable verbose output.
//	-d, --debug            Enable debug output.
//	-c, --config=PATH      Settings file ($RELAXD_CONFIG).
//
// and the following commands:
//
//	start [-l HOST:PORT] [-p DIR]   Run the query server.
//	functions                       List the built-in functions.
//	version                         Show version information.
//
// Flags override build-time defaults set via linker flags. Listen address
// and plugin directory resolve as flag, then environment, then settings
// file, then built-in default.
package cli
