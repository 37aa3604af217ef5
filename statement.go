package litepg

import (
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"math/rand"
	"strconv"
	"strings"
)

// Query runs sql as a simple query, connecting and authenticating
// lazily if the session isn't already open, and returns every row the
// server produced.
func (c *Conn) Query(sql string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}
	return c.simpleQuery(sql)
}

// Execute runs sql as a simple query and returns only its command
// tag(s), discarding any rows. For multi-statement SQL it returns one
// tag per embedded statement, in order.
func (c *Conn) Execute(sql string) ([]string, error) {
	result, err := c.Query(sql)
	if err != nil {
		return nil, err
	}
	return result.CommandTags(), nil
}

// PreparedStatement is a server-side statement created by Prepare. It
// may be executed any number of times with different bound parameters;
// each execution returns its own SubResult.
type PreparedStatement struct {
	conn   *Conn
	sql    string
	handle *preparedHandle
}

// Name returns the server-side statement name.
func (ps *PreparedStatement) Name() string { return ps.handle.name }

// ParamOIDs returns the parameter type OIDs the server inferred.
func (ps *PreparedStatement) ParamOIDs() []int32 {
	oids := make([]int32, len(ps.handle.paramDescs))
	for i, d := range ps.handle.paramDescs {
		oids[i] = d.TypeOID
	}
	return oids
}

// ParamDescriptions returns the full parameter descriptions the server
// reported during Describe.
func (ps *PreparedStatement) ParamDescriptions() []ParameterDescription {
	return ps.handle.paramDescs
}

// Prepare parses sql on the server under a statement name: the name
// given, if any, else one derived from sql. When sql is longer than 63
// bytes, the derived name is truncated and suffixed with a hash of the
// full text so it stays within the server's 63-byte statement-name
// limit while remaining collision-resistant.
func (c *Conn) Prepare(sql string, name ...string) (*PreparedStatement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	n := statementName(sql)
	if len(name) > 0 && name[0] != "" {
		n = name[0]
	}

	h, err := c.prepareExtended(n, sql)
	if err != nil {
		return nil, err
	}
	c.preparedNames[sql] = n
	return &PreparedStatement{conn: c, sql: sql, handle: h}, nil
}

// statementName derives a default prepared-statement name from sql: the
// SQL text itself when it already fits in 63 bytes, else a truncated
// prefix plus an 8-hex-digit checksum suffix, matching the layout
// sql[0:62-hexlen] + "_" + hex(hash(sql)).
func statementName(sql string) string {
	if len(sql) <= 63 {
		return sql
	}
	const hexLen = 8
	sum := crc32.ChecksumIEEE([]byte(sql))
	suffix := fmt.Sprintf("%08x", sum)
	prefixLen := 62 - hexLen
	return sql[:prefixLen] + "_" + suffix
}

// Query executes ps with the given parameters, bound as text, and
// returns its rows.
func (ps *PreparedStatement) Query(args ...any) (*SubResult, error) {
	ps.conn.mu.Lock()
	defer ps.conn.mu.Unlock()
	params := make([][]byte, len(args))
	for i, a := range args {
		params[i] = encodeParam(a)
	}
	return ps.conn.executeExtended(ps.handle, params)
}

// Execute runs ps with the given parameters and returns only its
// command tag.
func (ps *PreparedStatement) Execute(args ...any) (string, error) {
	sub, err := ps.Query(args...)
	if err != nil {
		return "", err
	}
	return sub.CommandTag, nil
}

// encodeParam renders a bound parameter in PostgreSQL's text wire
// format. nil encodes as a NULL marker (PutCountedBytes treats a nil
// slice as NULL).
func encodeParam(v any) []byte {
	if v == nil {
		return nil
	}
	switch t := v.(type) {
	case bool:
		if t {
			return []byte("t")
		}
		return []byte("f")
	case []byte:
		return t
	default:
		return []byte(fmt.Sprint(v))
	}
}

// Format builds a client-side statement by substituting $1, $2, … in
// template with args, each quoted as a safe SQL literal. This is the
// string-quoting flavor of parameter binding named in the design notes,
// chosen over extended-query Bind so Format's result is a plain string
// a caller can inspect, log, or pass to Query/Execute directly.
func (c *Conn) Format(template string, args ...any) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(template) {
		if template[i] != '$' {
			b.WriteByte(template[i])
			i++
			continue
		}
		j := i + 1
		for j < len(template) && template[j] >= '0' && template[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(template[i])
			i++
			continue
		}
		n, err := strconv.Atoi(template[i+1 : j])
		if err != nil || n < 1 || n > len(args) {
			return "", &ConfigError{Message: fmt.Sprintf("format placeholder $%s has no matching argument", template[i+1:j])}
		}
		b.WriteString(quoteLiteral(args[n-1]))
		i = j
	}
	return b.String(), nil
}

func quoteLiteral(v any) string {
	if v == nil {
		return "NULL"
	}
	switch t := v.(type) {
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(t)
	case []byte:
		return "E'\\\\x" + hex.EncodeToString(t) + "'"
	default:
		s := fmt.Sprint(v)
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}

// IsWorking probes the connection by executing SELECT {n} AS N for a
// random n, returning true only if the command tag is "SELECT 1" and
// the first row's first field equals n.
func (c *Conn) IsWorking() bool {
	n := rand.Int63()
	result, err := c.Query(fmt.Sprintf("SELECT %d AS n", n))
	if err != nil {
		return false
	}
	if result.CommandTag() != "SELECT 1" {
		return false
	}
	rows := result.Rows()
	if len(rows) != 1 || len(rows[0]) != 1 {
		return false
	}
	got, ok := rows[0][0].(int64)
	return ok && got == n
}
