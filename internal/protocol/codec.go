package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Line terminator used for every outbound line.
const newline = byte(10)

// Serializes v into exactly one output line.
//
// Raw newline and carriage-return bytes in the serialized text are replaced
// with a space, so the result holds a single terminating newline and no
// other line breaks.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	data := bytes.TrimRight(buf.Bytes(), "\n")
	data = oneLine(data)
	return append(data, newline), nil
}

// Replaces raw line breaks with spaces.
func oneLine(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		if b == '\n' || b == '\r' {
			b = ' '
		}
		out[i] = b
	}
	return out
}

// Formats err as the catch-all textual dump written for failures outside
// the standardized envelope.
//
// The output is "<Kind>: <message>" on a single line, terminated by a
// newline.
func Describe(err error) []byte {
	text := Kind(err) + ": " + err.Error()
	text = strings.NewReplacer("\n", " ", "\r", " ").Replace(text)
	return append([]byte(text), newline)
}
