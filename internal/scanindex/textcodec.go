package scanindex

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DecodeText decodes raw file bytes into text using enc. Bytes the encoding
// cannot represent fall back to a latin-1 decode, which is byte-preserving,
// so header names with stray non-ASCII bytes still come through intact.
func DecodeText(enc encoding.Encoding, raw []byte) string {
	if enc != nil {
		if out, err := enc.NewDecoder().Bytes(raw); err == nil {
			return string(out)
		}
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		// latin-1 maps every byte; this path is unreachable in practice.
		return string(raw)
	}
	return string(out)
}
