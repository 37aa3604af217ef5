package fakepg

import "fmt"

// DataType identifies a column's data type in the fixture's tiny store.
type DataType uint8

const (
	TypeInteger DataType = iota
	TypeText
	TypeBoolean
	TypeTimestamp
	TypeFloat
)

func (d DataType) String() string {
	switch d {
	case TypeInteger:
		return "INTEGER"
	case TypeText:
		return "TEXT"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeTimestamp:
		return "TIMESTAMP"
	case TypeFloat:
		return "FLOAT"
	default:
		return "UNKNOWN"
	}
}

// oid returns the wire type OID a value of this DataType is reported under.
func (d DataType) oid() int32 {
	switch d {
	case TypeInteger:
		return OIDInt8
	case TypeText:
		return OIDText
	case TypeBoolean:
		return OIDBool
	case TypeTimestamp:
		return OIDTimestamp
	case TypeFloat:
		return OIDFloat8
	default:
		return OIDUnknown
	}
}

// ColumnDef describes a column in a fixture table.
type ColumnDef struct {
	Name     string
	DataType DataType
}

// TableDef describes the schema of a fixture table.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// Row is a single row of data. Values are in column-definition order.
// Each value is one of: int64, float64, string, bool, time.Time, nil (NULL).
type Row struct {
	Values []any
}

// TableExistsError is returned when creating a table that already exists.
type TableExistsError struct{ Name string }

func (e *TableExistsError) Error() string {
	return fmt.Sprintf("relation %q already exists", e.Name)
}

// TableNotFoundError is returned when referencing a table that does not exist.
type TableNotFoundError struct{ Name string }

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("relation %q does not exist", e.Name)
}

// ValueCountError is returned when the number of values doesn't match columns.
type ValueCountError struct{ Expected, Got int }

func (e *ValueCountError) Error() string {
	if e.Got < e.Expected {
		return fmt.Sprintf("INSERT has more target columns than expressions: expected %d, got %d", e.Expected, e.Got)
	}
	return fmt.Sprintf("INSERT has more expressions than target columns: expected %d, got %d", e.Expected, e.Got)
}

// QueryError carries a SQLSTATE code alongside a message, split the same
// way a wire-protocol ErrorResponse's fields are.
type QueryError struct {
	Code    string
	Message string
}

func (e *QueryError) Error() string { return e.Message }
