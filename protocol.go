package litepg

import (
	"fmt"

	"litepg/pgwire"
)

// simpleQuery runs sql through the $Q simple-query cycle and returns
// every sub-result the server produced, in order. The session is left at
// a ReadyForQuery boundary on both success and server-error paths.
func (c *Conn) simpleQuery(sql string) (*Result, error) {
	c.setDeadline()
	b := pgwire.NewEncodedBuilder(len(sql)+1, c.conv.Encoder()).PutCString(sql)
	if err := b.Err(); err != nil {
		c.state = stateClosed
		return nil, &ConfigError{Message: fmt.Sprintf("encode query text: %v", err)}
	}
	if err := c.w.Write(pgwire.Query, b.ToBytes()); err != nil {
		c.state = stateClosed
		return nil, &IoError{Op: "write Query", Err: err}
	}
	c.state = stateInFlight

	result := &Result{}
	var cur SubResult
	var haveCur bool
	var serverErr *ServerError

	for {
		msg, err := c.r.ReadFrom()
		if err != nil {
			c.state = stateClosed
			return nil, &IoError{Op: "read query reply", Err: err}
		}
		switch msg.Tag() {
		case pgwire.RowDescription:
			if haveCur {
				result.SubResults = append(result.SubResults, cur)
			}
			descs, err := c.readRowDescription(msg)
			if err != nil {
				c.state = stateClosed
				return nil, err
			}
			cur = SubResult{Descriptions: descs}
			haveCur = true
		case pgwire.DataRow:
			row, err := c.decodeDataRow(msg, cur.Descriptions)
			if err != nil {
				c.state = stateClosed
				return nil, err
			}
			cur.Rows = append(cur.Rows, row)
		case pgwire.CommandComplete:
			tag, _ := msg.CString()
			cur.CommandTag = tag
			result.SubResults = append(result.SubResults, cur)
			cur = SubResult{}
			haveCur = false
		case pgwire.EmptyQueryResponse:
			result.SubResults = append(result.SubResults, SubResult{})
		case pgwire.ErrorResponse:
			fields, ferr := parseErrorFields(msg)
			if ferr != nil {
				c.state = stateClosed
				return nil, ferr
			}
			serverErr = &ServerError{Fields: fields}
			// Keep draining to $Z per the error-synchronization policy;
			// don't return yet.
		case pgwire.NoticeResponse:
			fields, _ := parseErrorFields(msg)
			c.deliverNotice(fields)
		case pgwire.ReadyForQuery:
			c.state = stateReady
			if serverErr != nil {
				return nil, serverErr
			}
			return result, nil
		default:
			c.state = stateClosed
			return nil, &ProtocolError{Message: fmt.Sprintf("unexpected message %q during simple query", msg.Tag())}
		}
	}
}

func (c *Conn) readRowDescription(msg *pgwire.Message) ([]RowFieldDescription, error) {
	n, err := msg.Int16()
	if err != nil {
		return nil, &ProtocolError{Message: "truncated RowDescription field count"}
	}
	descs := make([]RowFieldDescription, n)
	for i := range descs {
		name, err := msg.CString()
		if err != nil {
			return nil, &ProtocolError{Message: "truncated RowDescription field name"}
		}
		tableOID, _ := msg.Int32()
		attr, _ := msg.Int16()
		typeOID, _ := msg.Int32()
		typeSize, _ := msg.Int16()
		typeMod, _ := msg.Int32()
		format, _ := msg.Int16()
		descs[i] = RowFieldDescription{
			Name:         name,
			TableOID:     tableOID,
			ColumnAttr:   attr,
			TypeOID:      typeOID,
			TypeSize:     typeSize,
			TypeModifier: typeMod,
			FormatCode:   format,
		}
	}
	return descs, nil
}

// decodeDataRow reads a DataRow's int16 field count (which must match
// descs) then, per field, an int32 length (NullLength means NULL, no
// decoder invoked) followed by that many raw bytes handed to the
// converter keyed by the field's type OID.
func (c *Conn) decodeDataRow(msg *pgwire.Message, descs []RowFieldDescription) ([]any, error) {
	n, err := msg.Int16()
	if err != nil {
		return nil, &ProtocolError{Message: "truncated DataRow field count"}
	}
	if int(n) != len(descs) {
		return nil, &ProtocolError{Message: fmt.Sprintf("DataRow has %d fields, expected %d", n, len(descs))}
	}
	row := make([]any, n)
	for i := range row {
		length, err := msg.Int32()
		if err != nil {
			return nil, &ProtocolError{Message: "truncated DataRow field length"}
		}
		if length == pgwire.NullLength {
			row[i] = nil
			continue
		}
		raw, err := msg.Bytes(int(length))
		if err != nil {
			return nil, &ProtocolError{Message: "truncated DataRow field value"}
		}
		v, err := c.conv.Decode(descs[i].TypeOID, raw)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

// preparedHandle is the session-side record of a statement the server has
// parsed: its name plus the parameter and row descriptions Describe
// reported. A PreparedStatement keeps one and reuses it for every
// Bind/Execute it runs.
type preparedHandle struct {
	name       string
	paramDescs []ParameterDescription
	rowDescs   []RowFieldDescription
	noData     bool
}

// prepareExtended runs Parse/Describe/Sync for sql under name, coalescing
// the three messages into one write with WriteNoFlush, and parses the
// ParseComplete/ParameterDescription/RowDescription-or-NoData/ReadyForQuery
// reply sequence.
func (c *Conn) prepareExtended(name, sql string) (*preparedHandle, error) {
	c.setDeadline()

	parseBuilder := pgwire.NewEncodedBuilder(len(sql)+len(name)+8, c.conv.Encoder()).
		PutCString(name).
		PutCString(sql)
	parseBuilder.PutInt16(0) // no parameter type hints; the server infers them
	if err := parseBuilder.Err(); err != nil {
		c.state = stateClosed
		return nil, &ConfigError{Message: fmt.Sprintf("encode Parse text: %v", err)}
	}
	if err := c.w.WriteNoFlush(pgwire.Parse, parseBuilder.ToBytes()); err != nil {
		c.state = stateClosed
		return nil, &IoError{Op: "write Parse", Err: err}
	}

	descBuilder := pgwire.NewEncodedBuilder(len(name)+2, c.conv.Encoder()).PutByte('S').PutCString(name)
	if err := descBuilder.Err(); err != nil {
		c.state = stateClosed
		return nil, &ConfigError{Message: fmt.Sprintf("encode Describe name: %v", err)}
	}
	if err := c.w.WriteNoFlush(pgwire.Describe, descBuilder.ToBytes()); err != nil {
		c.state = stateClosed
		return nil, &IoError{Op: "write Describe", Err: err}
	}

	if err := c.w.Write(pgwire.Sync, nil); err != nil {
		c.state = stateClosed
		return nil, &IoError{Op: "write Sync", Err: err}
	}
	c.state = stateInFlight

	h := &preparedHandle{name: name}
	for {
		msg, err := c.r.ReadFrom()
		if err != nil {
			c.state = stateClosed
			return nil, &IoError{Op: "read prepare reply", Err: err}
		}
		switch msg.Tag() {
		case pgwire.ParseComplete:
			// expected, nothing to record
		case pgwire.ParameterDescription:
			n, _ := msg.Int16()
			h.paramDescs = make([]ParameterDescription, n)
			for i := range h.paramDescs {
				oid, _ := msg.Int32()
				h.paramDescs[i] = ParameterDescription{TypeOID: oid}
			}
		case pgwire.RowDescription:
			descs, err := c.readRowDescription(msg)
			if err != nil {
				c.state = stateClosed
				return nil, err
			}
			h.rowDescs = descs
		case pgwire.NoData:
			h.noData = true
		case pgwire.ErrorResponse:
			fields, ferr := parseErrorFields(msg)
			if ferr != nil {
				c.state = stateClosed
				return nil, ferr
			}
			// Authentication/startup is over by now, so per the
			// error-synchronization policy drain to $Z and surface.
			serverErr := &ServerError{Fields: fields}
			if _, derr := c.drainToReady(); derr != nil {
				return nil, derr
			}
			return nil, serverErr
		case pgwire.NoticeResponse:
			fields, _ := parseErrorFields(msg)
			c.deliverNotice(fields)
		case pgwire.ReadyForQuery:
			c.state = stateReady
			return h, nil
		default:
			c.state = stateClosed
			return nil, &ProtocolError{Message: fmt.Sprintf("unexpected message %q during prepare", msg.Tag())}
		}
	}
}

// executeExtended binds params to a previously prepared statement and
// runs it to completion via Bind/Execute/Sync.
func (c *Conn) executeExtended(h *preparedHandle, params [][]byte) (*SubResult, error) {
	c.setDeadline()

	bindBody := pgwire.NewEncodedBuilder(64, c.conv.Encoder()).
		PutCString(""). // unnamed portal
		PutCString(h.name)
	if err := bindBody.Err(); err != nil {
		c.state = stateClosed
		return nil, &ConfigError{Message: fmt.Sprintf("encode Bind statement name: %v", err)}
	}
	bindBody.PutInt16(0) // no parameter format codes given; all text
	bindBody.PutInt16(int16(len(params)))
	for _, p := range params {
		bindBody.PutCountedBytes(p)
	}
	bindBody.PutInt16(0) // no result format codes given; all text
	if err := c.w.WriteNoFlush(pgwire.Bind, bindBody.ToBytes()); err != nil {
		c.state = stateClosed
		return nil, &IoError{Op: "write Bind", Err: err}
	}

	execBody := pgwire.NewBuilder(8).PutCString("").PutInt32(0) // unnamed portal, no row limit
	if err := c.w.WriteNoFlush(pgwire.Execute, execBody.ToBytes()); err != nil {
		c.state = stateClosed
		return nil, &IoError{Op: "write Execute", Err: err}
	}

	if err := c.w.Write(pgwire.Sync, nil); err != nil {
		c.state = stateClosed
		return nil, &IoError{Op: "write Sync", Err: err}
	}
	c.state = stateInFlight

	sub := &SubResult{Descriptions: h.rowDescs}
	for {
		msg, err := c.r.ReadFrom()
		if err != nil {
			c.state = stateClosed
			return nil, &IoError{Op: "read execute reply", Err: err}
		}
		switch msg.Tag() {
		case pgwire.BindComplete:
			// expected
		case pgwire.RowDescription:
			// A server may defer RowDescription to Execute when Describe
			// reported NoData (it doesn't know the output shape until
			// the statement is actually bound and run).
			descs, err := c.readRowDescription(msg)
			if err != nil {
				c.state = stateClosed
				return nil, err
			}
			sub.Descriptions = descs
		case pgwire.DataRow:
			row, err := c.decodeDataRow(msg, sub.Descriptions)
			if err != nil {
				c.state = stateClosed
				return nil, err
			}
			sub.Rows = append(sub.Rows, row)
		case pgwire.CommandComplete:
			tag, _ := msg.CString()
			sub.CommandTag = tag
		case pgwire.PortalSuspended:
			sub.CommandTag = "PORTAL SUSPENDED"
		case pgwire.ErrorResponse:
			fields, ferr := parseErrorFields(msg)
			if ferr != nil {
				c.state = stateClosed
				return nil, ferr
			}
			serverErr := &ServerError{Fields: fields}
			if _, derr := c.drainToReady(); derr != nil {
				return nil, derr
			}
			return nil, serverErr
		case pgwire.NoticeResponse:
			fields, _ := parseErrorFields(msg)
			c.deliverNotice(fields)
		case pgwire.ReadyForQuery:
			c.state = stateReady
			return sub, nil
		default:
			c.state = stateClosed
			return nil, &ProtocolError{Message: fmt.Sprintf("unexpected message %q during execute", msg.Tag())}
		}
	}
}

// drainToReady reads and discards messages until ReadyForQuery, the
// error-synchronization idiom that keeps a connection reusable after a
// mid-stream ServerError.
func (c *Conn) drainToReady() (bool, error) {
	for {
		msg, err := c.r.ReadFrom()
		if err != nil {
			c.state = stateClosed
			return false, &IoError{Op: "drain to ReadyForQuery", Err: err}
		}
		if msg.Tag() == pgwire.ReadyForQuery {
			c.state = stateReady
			return true, nil
		}
	}
}
