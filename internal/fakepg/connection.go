package fakepg

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"litepg/internal/fakepg/pgwire"
)

// connection handles the lifecycle of a single client connection: startup
// handshake → authentication → query loop, extended with MD5 authentication
// and the extended-query subprotocol (Parse/Bind/Describe/Execute/Sync).
type connection struct {
	conn   net.Conn
	reader *pgwire.Reader
	writer *pgwire.Writer
	cfg    *Config
	store  *store

	prepared map[string]preparedStmt
}

type preparedStmt struct {
	query     string
	paramOIDs []int32
}

func newConnection(conn net.Conn, cfg *Config, st *store) *connection {
	return &connection{
		conn:     conn,
		reader:   pgwire.NewReader(conn),
		writer:   pgwire.NewWriter(conn),
		cfg:      cfg,
		store:    st,
		prepared: make(map[string]preparedStmt),
	}
}

// Handle runs the full connection lifecycle and closes the connection on return.
func (c *connection) Handle() {
	defer c.conn.Close()

	if err := c.startup(); err != nil {
		log.Printf("fakepg: connection %s: startup: %v", c.conn.RemoteAddr(), err)
		return
	}
	c.queryLoop()
}

// startup performs the PostgreSQL startup handshake and authentication. It
// handles optional SSL negotiation (always refused) and either cleartext or
// MD5 password authentication depending on cfg.AuthMD5.
func (c *connection) startup() error {
	for {
		msg, isSSL, err := c.reader.ReadStartup()
		if err != nil {
			return fmt.Errorf("read startup: %w", err)
		}
		if isSSL {
			if err := c.writer.WriteSSLRefuse(); err != nil {
				return fmt.Errorf("refuse SSL: %w", err)
			}
			if err := c.writer.Flush(); err != nil {
				return err
			}
			continue
		}

		user := msg.Parameters["user"]
		if user != c.cfg.User {
			c.sendFatalError("28000", fmt.Sprintf("authentication failed for user %q", user))
			return fmt.Errorf("unknown user: %s", user)
		}

		if err := c.authenticate(user); err != nil {
			return err
		}

		if err := c.writer.WriteAuthOk(); err != nil {
			return err
		}
		serverParams := [][2]string{
			{"server_version", ServerVersion},
			{"server_encoding", "UTF8"},
			{"client_encoding", "UTF8"},
			{"DateStyle", "ISO, MDY"},
			{"TimeZone", "UTC"},
		}
		for _, p := range serverParams {
			if err := c.writer.WriteParameterStatus(p[0], p[1]); err != nil {
				return err
			}
		}
		if err := c.writer.WriteBackendKeyData(int32(os.Getpid()), 424242); err != nil {
			return err
		}
		if err := c.writer.WriteReadyForQuery(pgwire.TxIdle); err != nil {
			return err
		}
		return c.writer.Flush()
	}
}

func (c *connection) authenticate(user string) error {
	if c.cfg.AuthMD5 {
		var salt [4]byte
		copy(salt[:], []byte{0x01, 0x02, 0x03, 0x04})
		if err := c.writer.WriteAuthMD5Password(salt); err != nil {
			return err
		}
		if err := c.writer.Flush(); err != nil {
			return err
		}
		msgType, payload, err := c.reader.ReadMessage()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if msgType != pgwire.MsgPasswordMessage {
			return fmt.Errorf("expected PasswordMessage, got '%c'", msgType)
		}
		want := "md5" + md5Hex(md5Hex(c.cfg.Password+user)+string(salt[:]))
		got := stripNull(payload)
		if got != want {
			c.sendFatalError("28P01", fmt.Sprintf("password authentication failed for user %q", user))
			return fmt.Errorf("bad md5 response for user: %s", user)
		}
		return nil
	}

	if err := c.writer.WriteAuthCleartextPassword(); err != nil {
		return err
	}
	if err := c.writer.Flush(); err != nil {
		return err
	}
	msgType, payload, err := c.reader.ReadMessage()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if msgType != pgwire.MsgPasswordMessage {
		return fmt.Errorf("expected PasswordMessage, got '%c'", msgType)
	}
	if stripNull(payload) != c.cfg.Password {
		c.sendFatalError("28P01", fmt.Sprintf("password authentication failed for user %q", user))
		return fmt.Errorf("bad password for user: %s", user)
	}
	return nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// queryLoop reads and responds to client messages until the client
// disconnects or a write error occurs.
func (c *connection) queryLoop() {
	for {
		msgType, payload, err := c.reader.ReadMessage()
		if err != nil {
			if err != io.EOF {
				log.Printf("fakepg: connection %s: read: %v", c.conn.RemoteAddr(), err)
			}
			return
		}

		var handlerErr error
		switch msgType {
		case pgwire.MsgQuery:
			handlerErr = c.handleSimpleQuery(stripNull(payload))
		case pgwire.MsgParse:
			handlerErr = c.handleParse(payload)
		case pgwire.MsgBind:
			handlerErr = c.handleBind(payload)
		case pgwire.MsgDescribe:
			handlerErr = c.handleDescribe(payload)
		case pgwire.MsgExecute:
			handlerErr = c.handleExecute(payload)
		case pgwire.MsgSync:
			handlerErr = c.sendReady()
		case pgwire.MsgTerminate:
			return
		default:
			log.Printf("fakepg: connection %s: unsupported message type '%c'", c.conn.RemoteAddr(), msgType)
		}
		if handlerErr != nil {
			log.Printf("fakepg: connection %s: %v", c.conn.RemoteAddr(), handlerErr)
			return
		}
	}
}

// handleSimpleQuery processes a simple-query string, which may contain
// multiple ';'-separated statements, each producing its own
// RowDescription/DataRow/CommandComplete triple before a single
// ReadyForQuery closes the batch.
func (c *connection) handleSimpleQuery(query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		if err := c.writer.WriteEmptyQueryResponse(); err != nil {
			return err
		}
		return c.sendReady()
	}

	for _, stmt := range splitStatements(query) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(stmt), "SET") {
			if err := c.writer.WriteCommandComplete("SET"); err != nil {
				return err
			}
			continue
		}
		if m := raiseNoticeRe.FindStringSubmatch(stmt); m != nil {
			if err := c.writer.WriteNoticeResponse("NOTICE", "00000", m[1]); err != nil {
				return err
			}
			if err := c.writer.WriteCommandComplete("DO"); err != nil {
				return err
			}
			continue
		}
		result, err := c.store.execute(stmt)
		if err != nil {
			code := "42000"
			var qe *QueryError
			if errors.As(err, &qe) {
				code = qe.Code
			}
			if werr := c.writer.WriteErrorResponse("ERROR", code, err.Error()); werr != nil {
				return werr
			}
			return c.sendReady()
		}
		if err := c.writeResult(result); err != nil {
			return err
		}
	}
	return c.sendReady()
}

func (c *connection) writeResult(result *execResult) error {
	if result.Columns != nil {
		cols := make([]pgwire.ColumnInfo, len(result.Columns))
		for i, rc := range result.Columns {
			cols[i] = pgwire.ColumnInfo{
				Name:         rc.Name,
				DataTypeOID:  rc.TypeOID,
				DataTypeSize: rc.TypeSize,
				TypeModifier: -1,
			}
		}
		if err := c.writer.WriteRowDescription(cols); err != nil {
			return err
		}
		for _, row := range result.Rows {
			if err := c.writer.WriteDataRow(row); err != nil {
				return err
			}
		}
	}
	return c.writer.WriteCommandComplete(result.Tag)
}

// handleParse implements the 'P' Parse message: statement-name C-string,
// query C-string, int16 param count, int32 param OIDs.
func (c *connection) handleParse(payload []byte) error {
	cur := pgwire.NewCursor(payload)
	name := cur.CString()
	query := cur.CString()
	n := cur.Int16()
	oids := make([]int32, n)
	for i := range oids {
		oids[i] = cur.Int32()
	}
	c.prepared[name] = preparedStmt{query: query, paramOIDs: oids}
	return c.writer.WriteParseComplete()
}

// handleDescribe implements 'D': a type byte ('S' statement or 'P' portal)
// then a name C-string.
func (c *connection) handleDescribe(payload []byte) error {
	cur := pgwire.NewCursor(payload)
	_ = cur.Byte() // 'S' or 'P'
	name := cur.CString()
	stmt, ok := c.prepared[name]
	if !ok {
		return c.writer.WriteErrorResponse("ERROR", "26000", fmt.Sprintf("prepared statement %q does not exist", name))
	}
	if err := c.writer.WriteParameterDescription(stmt.paramOIDs); err != nil {
		return err
	}
	if isSelectLike(stmt.query) {
		// A real server would inspect the target list; the fixture
		// doesn't know the row shape until Bind, so it emits NoData
		// here and defers the real RowDescription to Execute.
		return c.writer.WriteNoData()
	}
	return c.writer.WriteNoData()
}

// handleBind implements 'B': portal name, statement name, parameter
// format codes, parameter values, result format codes. The fixture only
// needs the bound parameter values, substituted positionally into the
// prepared query text before execution.
func (c *connection) handleBind(payload []byte) error {
	cur := pgwire.NewCursor(payload)
	portal := cur.CString()
	stmtName := cur.CString()

	stmt, ok := c.prepared[stmtName]
	if !ok {
		return c.writer.WriteErrorResponse("ERROR", "26000", fmt.Sprintf("prepared statement %q does not exist", stmtName))
	}

	formatCount := cur.Int16()
	formats := make([]int16, formatCount)
	for i := range formats {
		formats[i] = cur.Int16()
	}
	paramCount := cur.Int16()
	params := make([]string, paramCount)
	for i := range params {
		n := cur.Int32()
		b := cur.Bytes(n)
		params[i] = string(b)
	}
	resultFormatCount := cur.Int16()
	for i := int16(0); i < resultFormatCount; i++ {
		cur.Int16()
	}

	query := substituteParams(stmt.query, params)
	stmt.query = query
	c.prepared["__portal__"+portal] = stmt
	return c.writer.WriteBindComplete()
}

// handleExecute implements 'E': portal name C-string, max-rows int32.
func (c *connection) handleExecute(payload []byte) error {
	cur := pgwire.NewCursor(payload)
	portal := cur.CString()
	_ = cur.Int32() // max rows; the fixture never suspends a portal

	stmt, ok := c.prepared["__portal__"+portal]
	if !ok {
		return c.writer.WriteErrorResponse("ERROR", "34000", fmt.Sprintf("portal %q does not exist", portal))
	}
	result, err := c.store.execute(stmt.query)
	if err != nil {
		code := "42000"
		var qe *QueryError
		if errors.As(err, &qe) {
			code = qe.Code
		}
		return c.writer.WriteErrorResponse("ERROR", code, err.Error())
	}
	return c.writeResult(result)
}

func isSelectLike(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}

// substituteParams replaces $1, $2, ... placeholders in query with the
// bound parameter values exactly as sent (no quoting is added), so the
// result can be re-dispatched through the same statement matcher simple
// queries use.
func substituteParams(query string, params []string) string {
	for i, p := range params {
		placeholder := fmt.Sprintf("$%d", i+1)
		query = strings.ReplaceAll(query, placeholder, p)
	}
	return query
}

// splitStatements splits a simple-query string on ';' at the top level,
// ignoring separators inside single-quoted literals and $$...$$ bodies (so
// a DO block stays one statement) — good enough for the fixture's own test
// statements, not a general SQL tokenizer.
func splitStatements(query string) []string {
	return splitTopLevel(query, ';')
}

// sendReady sends ReadyForQuery and flushes the write buffer.
func (c *connection) sendReady() error {
	if err := c.writer.WriteReadyForQuery(pgwire.TxIdle); err != nil {
		return err
	}
	return c.writer.Flush()
}

// sendFatalError writes a FATAL error response and flushes. Errors are
// logged but not returned since the connection is about to close.
func (c *connection) sendFatalError(code, message string) {
	c.writer.WriteErrorResponse("FATAL", code, message)
	c.writer.Flush()
}

// stripNull removes a trailing null byte from the payload, which is how
// the PG protocol terminates strings in most message types.
func stripNull(b []byte) string {
	if len(b) > 0 && b[len(b)-1] == 0 {
		return string(b[:len(b)-1])
	}
	return string(b)
}
