package fakepg

// Column describes a column in a query result.
type Column struct {
	Name     string
	TypeOID  int32 // PostgreSQL type OID for wire protocol
	TypeSize int16 // type size in bytes (-1 for variable length)
}

// execResult is the outcome of executing a single SQL statement against
// the fixture store.
type execResult struct {
	// Columns is set for SELECT results. nil for non-SELECT.
	Columns []Column

	// Rows holds the result data for SELECT, text-encoded (nil entry means
	// NULL). Outer slice = rows, inner slice = columns.
	Rows [][][]byte

	// Tag is the CommandComplete tag, e.g. "SELECT 2", "INSERT 0 1".
	Tag string
}

// PostgreSQL type OIDs used by the fixture's RowDescription output. These
// match real server OIDs so a client's Converter exercises its actual
// decode path instead of a fixture-only shortcut.
const (
	OIDBool      int32 = 16
	OIDInt8      int32 = 20
	OIDText      int32 = 25
	OIDFloat8    int32 = 701
	OIDUnknown   int32 = 705
	OIDTimestamp int32 = 1114
)
