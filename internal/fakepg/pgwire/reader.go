package pgwire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrontendMessageSize caps the length field this fixture will believe
// for any single frontend message, startup included. A real server
// enforces some such ceiling too; here it mainly stops a malformed test
// payload from trying to allocate gigabytes.
const maxFrontendMessageSize = 64 << 20

// Reader decodes frontend (client → server) messages off a connection —
// the inbound half of this fixture's wire-protocol handling, paired with
// Writer for the outbound half.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps conn for reading frontend messages.
func NewReader(conn io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(conn)}
}

// ReadStartup reads the very first, untyped message a frontend sends:
// either an SSLRequest (isSSL true, msg nil — the caller replies and then
// calls ReadStartup again for the real startup message) or the startup
// message itself, carrying the protocol version and connection
// parameters (user, database, ...).
func (r *Reader) ReadStartup() (msg *StartupMessage, isSSL bool, err error) {
	var length int32
	if err := binary.Read(r.r, binary.BigEndian, &length); err != nil {
		return nil, false, fmt.Errorf("read startup length: %w", err)
	}
	if length < 8 {
		return nil, false, fmt.Errorf("startup message too short: %d bytes", length)
	}
	if length > maxFrontendMessageSize {
		return nil, false, fmt.Errorf("startup message too large: %d bytes", length)
	}

	body := make([]byte, length-4)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, false, fmt.Errorf("read startup body: %w", err)
	}

	version := int32(binary.BigEndian.Uint32(body[:4]))
	if version == SSLRequestCode {
		return nil, true, nil
	}
	if version != ProtocolVersion {
		return nil, false, fmt.Errorf("unsupported protocol version: %d.%d",
			version>>16, version&0xFFFF)
	}

	startup := &StartupMessage{
		ProtocolVersion: version,
		Parameters:      make(map[string]string),
	}
	cur := NewCursor(body[4:])
	for cur.Remaining() {
		key := cur.CString()
		if key == "" {
			break
		}
		startup.Parameters[key] = cur.CString()
	}
	return startup, false, nil
}

// ReadMessage reads one typed frontend message: a 1-byte tag, a 4-byte
// big-endian length (self-inclusive, per the wire format), and the
// remaining payload.
func (r *Reader) ReadMessage() (msgType byte, payload []byte, err error) {
	msgType, err = r.r.ReadByte()
	if err != nil {
		return 0, nil, err
	}

	var length int32
	if err := binary.Read(r.r, binary.BigEndian, &length); err != nil {
		return 0, nil, fmt.Errorf("read message length: %w", err)
	}
	if length < 4 {
		return 0, nil, fmt.Errorf("message length too short: %d", length)
	}
	if length > maxFrontendMessageSize {
		return 0, nil, fmt.Errorf("message %q too large: %d bytes", msgType, length)
	}

	if length == 4 {
		return msgType, nil, nil
	}
	payload = make([]byte, length-4)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return 0, nil, fmt.Errorf("read message payload: %w", err)
	}
	return msgType, payload, nil
}

// readCString reads a null-terminated string from b, returning the string
// and the bytes following the terminator. Shared with Cursor.CString,
// which wraps the same scan for sequential field-by-field decoding.
func readCString(b []byte) (string, []byte) {
	for i, c := range b {
		if c == 0 {
			return string(b[:i]), b[i+1:]
		}
	}
	return string(b), nil
}
