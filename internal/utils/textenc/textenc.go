// Package textenc resolves text encodings by name and decodes process output
// without ever failing on malformed input.
package textenc

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Default is the encoding used when none is configured.
const Default = "utf-8"

// Lookup returns the encoding for a WHATWG/IANA name like `utf-8`, `latin1`
// or `windows-1252`. An empty name is UTF-8.
func Lookup(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unicode.UTF8, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}

	return enc, nil
}

// Decode converts raw bytes into a string. Byte sequences that can't be decoded
// are replaced by U+FFFD.
func Decode(data []byte, enc encoding.Encoding) string {
	if enc == nil {
		enc = unicode.UTF8
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		// Decoders replace malformed input, errors here are not expected. Fall
		// back to a plain UTF-8 repair.
		return strings.ToValidUTF8(string(data), "�")
	}

	return string(out)
}

// DecodeUTF8 is Decode using UTF-8.
func DecodeUTF8(data []byte) string {
	return Decode(data, unicode.UTF8)
}

// Encoder returns an encoder that replaces runes the encoding can't represent
// instead of failing.
func Encoder(enc encoding.Encoding) *encoding.Encoder {
	return encoding.ReplaceUnsupported(enc.NewEncoder())
}
