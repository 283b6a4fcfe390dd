// Package encoding provides text encoding utilities for asset names.
package encoding

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// Supported name encodings.
const (
	UTF8        = "utf-8"
	EUCKR       = "euc-kr"
	Windows1252 = "windows-1252"
)

// Lookup returns the text encoding for a configured name.
// UTF-8 returns a nil encoding, meaning bytes are used as-is.
func Lookup(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", UTF8, "utf8":
		return nil, nil
	case EUCKR, "euckr", "cp949":
		return korean.EUCKR, nil
	case Windows1252, "cp1252", "latin1":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("unsupported name encoding %q", name)
	}
}

// Decode converts raw bytes in enc to a UTF-8 string.
// Returns the original bytes as a string if conversion fails.
func Decode(enc encoding.Encoding, data []byte) string {
	if enc == nil {
		return string(data)
	}
	result, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// EUCKRToUTF8 converts EUC-KR encoded bytes to UTF-8 string.
func EUCKRToUTF8(data []byte) string {
	return Decode(korean.EUCKR, data)
}

// TrimNullString removes trailing null bytes and converts to string.
func TrimNullString(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data)
}

// FixedString copies s into a null-padded field of the given size.
// Longer names are cut at a UTF-8 rune boundary.
func FixedString(s string, size int) []byte {
	result := make([]byte, size)
	if len(s) >= size {
		cut := size - 1
		for cut > 0 && !isRuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	copy(result, s)
	return result
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
