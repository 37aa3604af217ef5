// Package convert decodes PostgreSQL wire-format field values — as sent
// text-encoded in a DataRow — into Go values, keyed by the column's type
// OID. The decoder table is keyed the same way a column-type coercion
// table would be, just pointed the other way: OID in, Go value out.
package convert

import (
	"fmt"
	"strings"
)

// Decoder turns a field's raw text-encoded bytes into a Go value. raw is
// nil only when the caller has already special-cased NULL — decoders are
// never invoked for NULL fields.
type Decoder func(raw []byte, c *Converter) (any, error)

// Converter holds the OID-to-Decoder registry for one session, along with
// the session-reported parameters (client_encoding, TimeZone) that some
// decoders need. The zero value is not usable; construct with New.
type Converter struct {
	decoders map[int32]Decoder
	encoding string
	location *timeLocation
}

// New returns a Converter pre-registered with decoders for every system
// type OID litepg understands natively.
func New() *Converter {
	c := &Converter{
		decoders: make(map[int32]Decoder),
		encoding: "UTF8",
	}
	c.registerBuiltins()
	return c
}

// RegisterOID installs or overrides the decoder used for oid. This is the
// escape hatch for callers that need to decode a type litepg does not
// know about natively — a domain type, an extension type, or an enum
// (see LoadEnums for the common enum case).
func (c *Converter) RegisterOID(oid int32, d Decoder) {
	c.decoders[oid] = d
}

// Decode converts raw into a Go value for the column type identified by
// oid. A nil raw always decodes to a nil any, regardless of oid, mirroring
// the wire format's length-prefix NULL convention. Unknown OIDs fall back
// to returning the raw bytes as a string, so an unrecognized type never
// fails a query outright.
func (c *Converter) Decode(oid int32, raw []byte) (any, error) {
	if raw == nil {
		return nil, nil
	}
	d, ok := c.decoders[oid]
	if !ok {
		return string(raw), nil
	}
	v, err := d(raw, c)
	if err != nil {
		return nil, fmt.Errorf("convert: decode oid %d: %w", oid, err)
	}
	return v, nil
}

// InitializeFrom binds session parameters — client_encoding and TimeZone
// — that affect how later Decode calls interpret raw bytes. Callers pass
// the ParameterStatus map accumulated during startup.
func (c *Converter) InitializeFrom(params map[string]string) error {
	if enc, ok := params["client_encoding"]; ok {
		c.encoding = enc
	}
	if tz, ok := params["TimeZone"]; ok {
		loc, err := loadLocation(tz)
		if err != nil {
			return fmt.Errorf("convert: %w", err)
		}
		c.location = loc
	}
	return nil
}

// Encoder returns a function that encodes a Go string into this
// session's client_encoding, for building outbound message text (Query,
// Parse, statement names). UTF8 — the default, and by far the common
// case — returns s's bytes unchanged.
func (c *Converter) Encoder() func(string) ([]byte, error) {
	enc := c.encoding
	return func(s string) ([]byte, error) {
		if enc == "" || strings.EqualFold(enc, "UTF8") || strings.EqualFold(enc, "UTF-8") {
			return []byte(s), nil
		}
		return encodeNonUTF8(s, enc)
	}
}

// EnumRow is one (oid, typname) pair from a pg_type/pg_enum lookup, as
// returned by a caller's own query against those catalogs.
type EnumRow struct {
	OID  int32
	Name string
}

// LoadEnums registers a text decoder for each row, so that enum-typed
// columns reported under a server-assigned, non-predictable OID decode
// to their label string instead of falling back to raw text. The caller
// (Conn.LoadEnums) owns running the pg_type/pg_enum query; this just
// wires the results in and reports which type names were processed.
func (c *Converter) LoadEnums(rows []EnumRow) []string {
	names := make([]string, len(rows))
	for i, r := range rows {
		c.decoders[r.OID] = decodeText
		names[i] = r.Name
	}
	return names
}

func (c *Converter) registerBuiltins() {
	c.decoders[OIDBool] = decodeBool
	c.decoders[OIDInt2] = decodeInt
	c.decoders[OIDInt4] = decodeInt
	c.decoders[OIDInt8] = decodeInt
	c.decoders[OIDOID] = decodeInt
	c.decoders[OIDFloat4] = decodeFloat
	c.decoders[OIDFloat8] = decodeFloat
	c.decoders[OIDNumeric] = decodeNumeric
	c.decoders[OIDText] = decodeText
	c.decoders[OIDVarchar] = decodeText
	c.decoders[OIDBPChar] = decodeText
	c.decoders[OIDName] = decodeText
	c.decoders[OIDUnknown] = decodeText
	c.decoders[OIDJSON] = decodeText
	c.decoders[OIDJSONB] = decodeText
	c.decoders[OIDBytea] = decodeBytea
	c.decoders[OIDDate] = decodeDate
	c.decoders[OIDTime] = decodeTime
	c.decoders[OIDTimeTz] = decodeTimeTz
	c.decoders[OIDTimestamp] = decodeTimestamp
	c.decoders[OIDTimestampTz] = decodeTimestampTz
	c.decoders[OIDInterval] = decodeInterval
	c.decoders[OIDUUID] = decodeUUID
	c.decoders[OIDPoint] = decodePoint
	c.decoders[OIDInt4Array] = decodeArray(decodeInt)
	c.decoders[OIDInt8Array] = decodeArray(decodeInt)
	c.decoders[OIDTextArray] = decodeArray(decodeText)
}
