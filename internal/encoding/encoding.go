package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// SampleSize is how many leading bytes Detect examines
const SampleSize = 8 * 1024

// Codec decodes raw line bytes into displayable strings.
// A Codec is a pure value; it holds no file state and is safe to share.
type Codec struct {
	name string
	enc  encoding.Encoding
}

var (
	utf8BOM    = []byte{0xef, 0xbb, 0xbf}
	utf16LEBOM = []byte{0xff, 0xfe}
	utf16BEBOM = []byte{0xfe, 0xff}
)

// UTF8 is the default codec used when detection is inconclusive
func UTF8() Codec {
	return Codec{name: "utf-8"}
}

// ByName returns the codec for a user-selected encoding name,
// falling back to UTF-8 for unknown names
func ByName(name string) Codec {
	switch strings.ToLower(name) {
	case "utf-16le", "utf16le":
		return Codec{name: "utf-16le", enc: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)}
	case "utf-16be", "utf16be":
		return Codec{name: "utf-16be", enc: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)}
	case "latin-1", "latin1", "iso-8859-1":
		return Codec{name: "latin-1", enc: charmap.ISO8859_1}
	default:
		return UTF8()
	}
}

// Detect sniffs a codec from the leading bytes of a file. It checks byte
// order marks first, then a NUL-distribution heuristic for BOM-less UTF-16,
// then UTF-8 validity. High-byte content that is not valid UTF-8 is treated
// as Latin-1. Empty or inconclusive input defaults to UTF-8.
func Detect(sample []byte) Codec {
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}
	if len(sample) == 0 {
		return UTF8()
	}

	switch {
	case bytes.HasPrefix(sample, utf8BOM):
		return UTF8()
	case bytes.HasPrefix(sample, utf16LEBOM):
		return ByName("utf-16le")
	case bytes.HasPrefix(sample, utf16BEBOM):
		return ByName("utf-16be")
	}

	if name, ok := sniffUTF16(sample); ok {
		return ByName(name)
	}

	if utf8.Valid(sample) {
		return UTF8()
	}
	return ByName("latin-1")
}

// sniffUTF16 looks for the NUL pattern of BOM-less UTF-16 ASCII text:
// mostly-zero odd bytes means little endian, mostly-zero even bytes big endian.
func sniffUTF16(sample []byte) (string, bool) {
	if len(sample) < 4 {
		return "", false
	}
	n := len(sample) &^ 1
	var evenNul, oddNul int
	for i := 0; i < n; i += 2 {
		if sample[i] == 0 {
			evenNul++
		}
		if sample[i+1] == 0 {
			oddNul++
		}
	}
	pairs := n / 2
	if oddNul*10 >= pairs*8 && evenNul*10 < pairs {
		return "utf-16le", true
	}
	if evenNul*10 >= pairs*8 && oddNul*10 < pairs {
		return "utf-16be", true
	}
	return "", false
}

// Name returns the codec's encoding name
func (c Codec) Name() string {
	if c.name == "" {
		return "utf-8"
	}
	return c.name
}

// Decode converts raw line bytes to a string. Malformed sequences become
// U+FFFD; decode problems never escape as errors. Lines arrive here after
// byte-level newline splitting, so for UTF-16 input the stray NUL halves of
// the newline pair are trimmed before decoding.
func (c Codec) Decode(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}

	if c.enc == nil {
		raw = bytes.TrimPrefix(raw, utf8BOM)
		if utf8.Valid(raw) {
			return string(raw)
		}
		return strings.ToValidUTF8(string(raw), "�")
	}

	trimmed := raw
	if strings.HasPrefix(c.name, "utf-16") {
		trimmed = bytes.Trim(raw, "\x00")
		trimmed = bytes.TrimPrefix(trimmed, utf16LEBOM)
		trimmed = bytes.TrimPrefix(trimmed, utf16BEBOM)
	}

	decoded, err := c.enc.NewDecoder().Bytes(trimmed)
	if err != nil {
		return strings.ToValidUTF8(string(trimmed), "�")
	}
	return string(decoded)
}
