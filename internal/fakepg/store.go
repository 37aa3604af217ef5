package fakepg

import "sync"

// store is a tiny in-memory table store, the minimum needed to run this
// fixture's end-to-end test scenarios — no WAL, no indexes, no
// concurrency control beyond a single mutex.
type store struct {
	mu     sync.Mutex
	tables map[string]*TableDef
	rows   map[string][]Row
}

func newStore() *store {
	return &store{
		tables: make(map[string]*TableDef),
		rows:   make(map[string][]Row),
	}
}

func (s *store) createTable(def *TableDef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[def.Name]; ok {
		return &TableExistsError{Name: def.Name}
	}
	s.tables[def.Name] = def
	s.rows[def.Name] = nil
	return nil
}

func (s *store) insert(table string, values []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.tables[table]
	if !ok {
		return &TableNotFoundError{Name: table}
	}
	if len(values) != len(def.Columns) {
		return &ValueCountError{Expected: len(def.Columns), Got: len(values)}
	}
	s.rows[table] = append(s.rows[table], Row{Values: values})
	return nil
}

func (s *store) scan(table string) ([]Row, *TableDef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.tables[table]
	if !ok {
		return nil, nil, &TableNotFoundError{Name: table}
	}
	rows := make([]Row, len(s.rows[table]))
	copy(rows, s.rows[table])
	return rows, def, nil
}
