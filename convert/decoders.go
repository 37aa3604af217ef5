package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

func decodeBool(raw []byte, _ *Converter) (any, error) {
	switch string(raw) {
	case "t":
		return true, nil
	case "f":
		return false, nil
	default:
		return nil, fmt.Errorf("invalid bool literal %q", raw)
	}
}

func decodeInt(raw []byte, _ *Converter) (any, error) {
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer literal %q", raw)
	}
	return n, nil
}

func decodeFloat(raw []byte, _ *Converter) (any, error) {
	s := string(raw)
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid float literal %q", raw)
	}
	return f, nil
}

// decodeNumeric keeps PostgreSQL's arbitrary-precision NUMERIC as its
// original decimal string rather than lossily narrowing to float64;
// callers that want a float can parse it themselves.
func decodeNumeric(raw []byte, _ *Converter) (any, error) {
	return string(raw), nil
}

// decodeText decodes raw using the session's client_encoding, falling
// back to UTF-8 passthrough (the common case — raw is already UTF-8).
func decodeText(raw []byte, c *Converter) (any, error) {
	if c == nil || isUTF8Like(c.encoding) {
		return string(raw), nil
	}
	return decodeNonUTF8(raw, c.encoding)
}

func isUTF8Like(enc string) bool {
	switch strings.ToUpper(enc) {
	case "", "UTF8", "UTF-8", "SQL_ASCII":
		return true
	default:
		return false
	}
}

func decodeBytea(raw []byte, _ *Converter) (any, error) {
	s := string(raw)
	if strings.HasPrefix(s, "\\x") {
		return hexDecode(s[2:])
	}
	return unescapeOctal(s)
}

func decodeUUID(raw []byte, _ *Converter) (any, error) {
	id, err := uuid.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid uuid literal %q: %w", raw, err)
	}
	return id, nil
}

// decodePoint decodes PostgreSQL's "(x,y)" point syntax into a [2]float64.
func decodePoint(raw []byte, _ *Converter) (any, error) {
	s := strings.Trim(string(raw), "()")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid point literal %q", raw)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid point literal %q", raw)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid point literal %q", raw)
	}
	return [2]float64{x, y}, nil
}

// decodeInterval decodes PostgreSQL's verbose interval output style
// ("1 year 2 mons 3 days 04:05:06") into a Go time.Duration via
// parseInterval, which counts a year as 365 days and a month as 30 days
// since an interval's calendar component has no fixed duration.
func decodeInterval(raw []byte, _ *Converter) (any, error) {
	return parseInterval(string(raw))
}
