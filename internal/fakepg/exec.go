package fakepg

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	createTableRe = regexp.MustCompile(`(?is)^CREATE TABLE (\w+)\s*\((.*)\)$`)
	insertRe      = regexp.MustCompile(`(?is)^INSERT INTO (\w+)\s*VALUES\s*\((.*)\)$`)
	selectStarRe  = regexp.MustCompile(`(?is)^SELECT \* FROM (\w+)(?:\s+ORDER BY (\w+))?$`)
	selectExprRe  = regexp.MustCompile(`(?is)^SELECT (.+?)(?:\s+AS\s+(\w+))?$`)
	arithRe       = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(\+|-|\*|/)\s*(-?\d+(?:\.\d+)?)$`)
	castRe        = regexp.MustCompile(`(?i)::\w+`)
	pgEnumRe      = regexp.MustCompile(`(?i)pg_enum`)
	raiseNoticeRe = regexp.MustCompile(`(?is)RAISE NOTICE '([^']*)'`)
)

// execute dispatches a single (already-substituted) SQL statement against
// the fixture store, a plain string-in/Result-out call trimmed to the
// handful of statement shapes this fixture's test scenarios exercise. It
// is not a real SQL engine — it pattern-matches statement shapes rather
// than parsing.
func (s *store) execute(query string) (*execResult, error) {
	query = strings.TrimSpace(query)

	if pgEnumRe.MatchString(query) {
		return s.execPgEnumQuery(), nil
	}

	if m := createTableRe.FindStringSubmatch(query); m != nil {
		return s.execCreateTable(m[1], m[2])
	}
	if m := insertRe.FindStringSubmatch(query); m != nil {
		return s.execInsert(m[1], m[2])
	}
	if m := selectStarRe.FindStringSubmatch(query); m != nil {
		return s.execSelectStar(m[1], m[2])
	}
	if m := selectExprRe.FindStringSubmatch(query); m != nil {
		return s.execSelectExpr(m[1], m[2])
	}
	return nil, &QueryError{Code: "42601", Message: fmt.Sprintf("syntax error: unsupported statement %q", query)}
}

func (s *store) execCreateTable(name, colSpec string) (*execResult, error) {
	var cols []ColumnDef
	for _, part := range splitTopLevel(colSpec, ',') {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) < 2 {
			return nil, &QueryError{Code: "42601", Message: "syntax error in column definition"}
		}
		dt, err := parseDataType(fields[1])
		if err != nil {
			return nil, err
		}
		cols = append(cols, ColumnDef{Name: fields[0], DataType: dt})
	}
	if err := s.createTable(&TableDef{Name: name, Columns: cols}); err != nil {
		return nil, err
	}
	return &execResult{Tag: "CREATE TABLE"}, nil
}

func parseDataType(name string) (DataType, error) {
	switch strings.ToUpper(name) {
	case "INT", "INTEGER", "BIGINT", "INT4", "INT8":
		return TypeInteger, nil
	case "TEXT", "VARCHAR":
		return TypeText, nil
	case "BOOL", "BOOLEAN":
		return TypeBoolean, nil
	case "TIMESTAMP":
		return TypeTimestamp, nil
	case "FLOAT", "DOUBLE", "FLOAT8":
		return TypeFloat, nil
	default:
		return 0, &QueryError{Code: "42704", Message: fmt.Sprintf("type %q does not exist", name)}
	}
}

func (s *store) execInsert(table, valueSpec string) (*execResult, error) {
	s.mu.Lock()
	def, ok := s.tables[table]
	s.mu.Unlock()
	if !ok {
		return nil, &TableNotFoundError{Name: table}
	}

	parts := splitTopLevel(valueSpec, ',')
	if len(parts) != len(def.Columns) {
		return nil, &ValueCountError{Expected: len(def.Columns), Got: len(parts)}
	}
	values := make([]any, len(parts))
	for i, p := range parts {
		lit, err := parseLiteral(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		coerced, err := coerceLiteral(lit, def.Columns[i].DataType)
		if err != nil {
			return nil, err
		}
		values[i] = coerced
	}
	if err := s.insert(table, values); err != nil {
		return nil, err
	}
	return &execResult{Tag: "INSERT 0 1"}, nil
}

func (s *store) execSelectStar(table, orderBy string) (*execResult, error) {
	rows, def, err := s.scan(table)
	if err != nil {
		return nil, err
	}
	if orderBy != "" {
		idx := -1
		for i, c := range def.Columns {
			if strings.EqualFold(c.Name, orderBy) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			sortRowsBy(rows, idx)
		}
	}

	cols := make([]Column, len(def.Columns))
	for i, c := range def.Columns {
		cols[i] = Column{Name: c.Name, TypeOID: c.DataType.oid(), TypeSize: -1}
	}
	out := make([][][]byte, len(rows))
	for i, r := range rows {
		out[i] = make([][]byte, len(r.Values))
		for j, v := range r.Values {
			out[i][j] = encodeText(v)
		}
	}
	return &execResult{
		Columns: cols,
		Rows:    out,
		Tag:     fmt.Sprintf("SELECT %d", len(rows)),
	}, nil
}

func (s *store) execSelectExpr(expr, alias string) (*execResult, error) {
	expr = strings.TrimSpace(castRe.ReplaceAllString(expr, ""))

	var val any
	if m := arithRe.FindStringSubmatch(expr); m != nil {
		_, aErr := strconv.ParseInt(m[1], 10, 64)
		_, bErr := strconv.ParseInt(m[3], 10, 64)
		bothInt := aErr == nil && bErr == nil

		a, _ := strconv.ParseFloat(m[1], 64)
		b, _ := strconv.ParseFloat(m[3], 64)
		var f float64
		switch m[2] {
		case "+":
			f = a + b
		case "-":
			f = a - b
		case "*":
			f = a * b
		case "/":
			if b == 0 {
				return nil, &QueryError{Code: "22012", Message: "division by zero"}
			}
			f = a / b
			bothInt = bothInt && f == float64(int64(f))
		}
		if bothInt {
			val = int64(f)
		} else {
			val = f
		}
	} else {
		lit, err := parseLiteral(expr)
		if err != nil {
			return nil, err
		}
		val = lit
	}

	name := alias
	if name == "" {
		name = "?column?"
	}
	dt := TypeFloat
	switch val.(type) {
	case int64:
		dt = TypeInteger
	case string:
		dt = TypeText
	case bool:
		dt = TypeBoolean
	}
	return &execResult{
		Columns: []Column{{Name: name, TypeOID: dt.oid(), TypeSize: -1}},
		Rows:    [][][]byte{{encodeText(val)}},
		Tag:     "SELECT 1",
	}, nil
}

// execPgEnumQuery fakes a pg_type/pg_enum join, returning one canned enum
// type so convert.LoadEnums has something real to decode in tests.
func (s *store) execPgEnumQuery() *execResult {
	rows := [][][]byte{
		{[]byte("16001"), []byte("mood")},
	}
	return &execResult{
		Columns: []Column{
			{Name: "oid", TypeOID: OIDInt8, TypeSize: 8},
			{Name: "typname", TypeOID: OIDText, TypeSize: -1},
		},
		Rows: rows,
		Tag:  "SELECT 1",
	}
}

func parseLiteral(s string) (any, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, &QueryError{Code: "42601", Message: fmt.Sprintf("cannot parse literal %q", s)}
}

func encodeText(v any) []byte {
	if v == nil {
		return nil
	}
	if b, ok := v.(bool); ok {
		if b {
			return []byte("t")
		}
		return []byte("f")
	}
	return []byte(fmt.Sprint(v))
}

// splitTopLevel splits s on sep, ignoring separators inside single-quoted
// string literals and inside $$...$$ dollar-quoted bodies.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	var cur strings.Builder
	inQuote, inDollar := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' && !inDollar:
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == '$' && !inQuote && i+1 < len(s) && s[i+1] == '$':
			inDollar = !inDollar
			cur.WriteString("$$")
			i++
		case c == sep && !inQuote && !inDollar:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

func sortRowsBy(rows []Row, idx int) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0; j-- {
			if compareForSort(rows[j-1].Values[idx], rows[j].Values[idx]) > 0 {
				rows[j-1], rows[j] = rows[j], rows[j-1]
			} else {
				break
			}
		}
	}
}

func compareForSort(a, b any) int {
	switch av := a.(type) {
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	default:
		return 0
	}
}
