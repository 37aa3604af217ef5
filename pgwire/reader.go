package pgwire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Reader is the read half of a MessageBuffer: it blocks on a stream until
// a complete backend message has been buffered, then hands it back as a
// reusable Message. The same Message value is overwritten on every call —
// callers must finish decoding one message's fields before calling
// ReadFrom again.
type Reader struct {
	r   *bufio.Reader
	msg Message
}

// NewReader wraps r for reading backend protocol messages.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrom blocks until a complete message has arrived and returns it.
// It fails with an IoError-wrapping error if the stream ends mid-message.
func (r *Reader) ReadFrom() (*Message, error) {
	tag, err := r.r.ReadByte()
	if err != nil {
		return nil, &ioReadError{op: "read message tag", err: err}
	}

	var length int32
	if err := binary.Read(r.r, binary.BigEndian, &length); err != nil {
		return nil, &ioReadError{op: "read message length", err: err}
	}
	if length < 4 {
		return nil, fmt.Errorf("pgwire: message length %d shorter than its own header", length)
	}

	// Reuse the previous message's payload buffer when it is large enough,
	// so a session does not allocate a fresh buffer for every reply.
	n := int(length - 4)
	payload := r.msg.payload[:0]
	if cap(payload) < n {
		payload = make([]byte, n)
	}
	payload = payload[:n]
	if n > 0 {
		if _, err := io.ReadFull(r.r, payload); err != nil {
			return nil, &ioReadError{op: "read message payload", err: err}
		}
	}

	r.msg.tag = tag
	r.msg.payload = payload
	r.msg.pos = 0
	return &r.msg, nil
}

// ReadSSLReply reads the single unframed byte a server sends in reply to
// an SSLRequest: 'S' to proceed with TLS, 'N' to refuse it. This one reply
// predates normal message framing and has no length field.
func (r *Reader) ReadSSLReply() (byte, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return 0, &ioReadError{op: "read SSL reply", err: err}
	}
	return b, nil
}

// Buffered exposes the underlying bufio.Reader so callers can hand it to
// tls.Client when upgrading a connection after a successful SSL reply.
func (r *Reader) Buffered() *bufio.Reader { return r.r }

type ioReadError struct {
	op  string
	err error
}

func (e *ioReadError) Error() string { return fmt.Sprintf("pgwire: %s: %v", e.op, e.err) }
func (e *ioReadError) Unwrap() error { return e.err }
