package fakepg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// coerceLiteral converts a Go literal value to the target fixture DataType,
// a table-driven coercion from a literal to a column's declared type,
// trimmed to the handful of literal kinds the fixture's tiny statement
// dispatcher produces.
func coerceLiteral(val any, target DataType) (any, error) {
	switch target {
	case TypeInteger:
		switch v := val.(type) {
		case int64:
			return v, nil
		case float64:
			if v != math.Trunc(v) {
				return nil, &QueryError{Code: "22P02", Message: fmt.Sprintf("invalid input syntax for type integer: %q", fmt.Sprint(val))}
			}
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, &QueryError{Code: "22P02", Message: fmt.Sprintf("invalid input syntax for type integer: %q", v)}
			}
			return n, nil
		}

	case TypeFloat:
		switch v := val.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, &QueryError{Code: "22P02", Message: fmt.Sprintf("invalid input syntax for type float: %q", v)}
			}
			return f, nil
		}

	case TypeText:
		switch v := val.(type) {
		case string:
			return v, nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case bool:
			if v {
				return "true", nil
			}
			return "false", nil
		}

	case TypeBoolean:
		switch v := val.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "true", "t", "1":
				return true, nil
			case "false", "f", "0":
				return false, nil
			}
		}

	case TypeTimestamp:
		if s, ok := val.(string); ok {
			t, err := parseTimestamp(s)
			if err != nil {
				return nil, &QueryError{Code: "22P02", Message: fmt.Sprintf("invalid input syntax for type timestamp: %q", s)}
			}
			return t, nil
		}
	}

	return nil, &QueryError{Code: "22P02", Message: fmt.Sprintf("cannot cast %T to %s", val, target)}
}
