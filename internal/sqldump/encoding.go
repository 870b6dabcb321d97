package sqldump

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncodings is the candidate order tried by Normalize. The order is a
// contract: changing it changes which encoding wins on ambiguous byte
// sequences and must be treated as a breaking change.
var DefaultEncodings = []string{"utf-8", "utf-8-sig", "cp950", "big5", "utf-16le", "utf-16be"}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// legacyDecoders maps candidate names to their x/text decoders. cp950 is
// Microsoft's Big5 superset; the Big5 tables cover both candidates.
var legacyDecoders = map[string]encoding.Encoding{
	"cp950":    traditionalchinese.Big5,
	"big5":     traditionalchinese.Big5,
	"utf-16le": unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be": unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// Normalize decodes data by trying each candidate encoding in order and
// returns the first clean decode with all carriage returns removed. The
// second result is false when every candidate failed and the lossy UTF-8
// fallback (invalid sequences replaced with U+FFFD) was used instead.
// Normalize never fails; it always returns usable text.
func Normalize(data []byte, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		candidates = DefaultEncodings
	}
	for _, name := range candidates {
		if text, ok := tryDecode(data, name); ok {
			return stripCR(text), true
		}
	}
	return stripCR(strings.ToValidUTF8(string(data), "�")), false
}

func tryDecode(data []byte, name string) (string, bool) {
	switch name {
	case "utf-8":
		if utf8.Valid(data) {
			return string(data), true
		}
		return "", false
	case "utf-8-sig":
		if !bytes.HasPrefix(data, utf8BOM) {
			return "", false
		}
		rest := data[len(utf8BOM):]
		if utf8.Valid(rest) {
			return string(rest), true
		}
		return "", false
	default:
		enc, ok := legacyDecoders[name]
		if !ok {
			return "", false
		}
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", false
		}
		// The x/text decoders substitute U+FFFD for undecodable input
		// instead of returning an error, so its presence marks a failed
		// candidate.
		if bytes.ContainsRune(out, utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
}

func stripCR(s string) string {
	return strings.ReplaceAll(s, "\r", "")
}
