package dispatcher

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// charsetFallbackOrder is the trial sequence spec.md §4.F prescribes when
// the server supplied no usable charset: the first candidate that
// produces valid output wins.
var charsetFallbackOrder = []string{
	"iso-8859-1",
	"utf-8",
	"windows-1251",
	"windows-1252",
	"iso-8859-15",
	"iso-8859-9",
	"ascii",
}

var namedEncodings = map[string]encoding.Encoding{
	"iso-8859-1":   charmap.ISO8859_1,
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"iso-8859-15":  charmap.ISO8859_15,
	"iso-8859-9":   charmap.ISO8859_9,
}

// decodeBody decodes body to text, preferring declaredCharset if the
// server supplied one; otherwise it walks charsetFallbackOrder and
// accepts the first candidate that decodes cleanly. Returns ok=false if
// every candidate failed.
func decodeBody(body []byte, declaredCharset string) (string, bool) {
	if declaredCharset != "" {
		if text, ok := decodeWith(body, declaredCharset); ok {
			return text, true
		}
	}
	for _, name := range charsetFallbackOrder {
		if text, ok := decodeWith(body, name); ok {
			return text, true
		}
	}
	return "", false
}

func decodeWith(body []byte, name string) (string, bool) {
	switch name {
	case "utf-8", "utf8":
		if utf8.Valid(body) {
			return string(body), true
		}
		return "", false
	case "ascii", "us-ascii":
		for _, b := range body {
			if b > 127 {
				return "", false
			}
		}
		return string(body), true
	}

	enc, ok := namedEncodings[name]
	if !ok {
		return "", false
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
