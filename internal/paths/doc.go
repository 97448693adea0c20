// Provides platform-appropriate paths for the daemon.
//
// Paths follow XDG conventions on Linux and platform-native conventions on
// macOS and Windows, with "relaxd" as the subdirectory under each base.
package paths
