package convert

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// encodingsByName maps PostgreSQL client_encoding names litepg can decode
// beyond plain UTF-8 to their golang.org/x/text encoding. PostgreSQL's
// own encoding names don't always match Go's (LATIN1 vs ISO-8859-1), so
// this is a small explicit table rather than a generic lookup.
var encodingsByName = map[string]encoding.Encoding{
	"LATIN1":  charmap.ISO8859_1,
	"LATIN2":  charmap.ISO8859_2,
	"LATIN9":  charmap.ISO8859_15,
	"WIN1250": charmap.Windows1250,
	"WIN1251": charmap.Windows1251,
	"WIN1252": charmap.Windows1252,
	"KOI8R":   charmap.KOI8R,
	"KOI8U":   charmap.KOI8U,
}

func decodeNonUTF8(raw []byte, encName string) (string, error) {
	enc, ok := encodingsByName[strings.ToUpper(encName)]
	if !ok {
		// Unknown client_encoding: pass the bytes through as-is rather
		// than failing the whole row over a cosmetic mismatch.
		return string(raw), nil
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s text: %w", encName, err)
	}
	return string(out), nil
}

func encodeNonUTF8(s string, encName string) ([]byte, error) {
	enc, ok := encodingsByName[strings.ToUpper(encName)]
	if !ok {
		return []byte(s), nil
	}
	out, err := enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode %s text: %w", encName, err)
	}
	return out, nil
}
