package litepg

import "litepg/convert"

// enumCatalogQuery joins pg_type and pg_enum to find every enum type the
// server knows about, the same two catalogs psql itself consults for \dT+.
const enumCatalogQuery = `SELECT DISTINCT t.oid, t.typname FROM pg_type t JOIN pg_enum e ON e.enumtypid = t.oid`

// LoadEnums queries pg_type/pg_enum via this connection and registers a
// text decoder for every enum type found, so that columns reported under
// those server-assigned OIDs decode to their label string instead of
// falling back to raw text. It returns the type names it processed.
func (c *Conn) LoadEnums() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	result, err := c.simpleQuery(enumCatalogQuery)
	if err != nil {
		return nil, err
	}

	rows := result.Rows()
	enumRows := make([]convert.EnumRow, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 {
			continue
		}
		oid, ok := row[0].(int64)
		if !ok {
			continue
		}
		name, ok := row[1].(string)
		if !ok {
			continue
		}
		enumRows = append(enumRows, convert.EnumRow{OID: int32(oid), Name: name})
	}

	return c.conv.LoadEnums(enumRows), nil
}
