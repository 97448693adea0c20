package functions

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extension of Go plugin files.
const pluginExt = ".so"

// Maps a dotted container name to a plugin file below dir.
//
// Each dotted segment becomes a directory level, so "acme.views" resolves
// to "<dir>/acme/views.so". Segments must be non-empty and may not contain
// path separators or parent references.
func pluginPath(dir, container string) (string, error) {
	segments := strings.Split(container, separator)
	for _, s := range segments {
		if s == "" || s == ".." || strings.ContainsAny(s, `/\`) {
			return "", fmt.Errorf("%w: invalid container %q", ErrPlugin, container)
		}
	}
	return filepath.Join(dir, filepath.Join(segments...)+pluginExt), nil
}
