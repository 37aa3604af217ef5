package pgwire

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Writer is the write half of a MessageBuffer: it frames a tag plus a
// payload built with Builder and sends it to the server. WriteNoFlush lets
// a caller coalesce several messages — e.g. Parse, Bind, Describe,
// Execute, Sync — into a single underlying write, which Flush (called by
// the final Write in the sequence) then sends as one packet.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w for writing frontend protocol messages.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write frames tag and payload as a single message and flushes immediately.
func (w *Writer) Write(tag byte, payload []byte) error {
	if err := w.WriteNoFlush(tag, payload); err != nil {
		return err
	}
	return w.Flush()
}

// WriteNoFlush frames tag and payload and buffers them without flushing,
// for callers coalescing a run of messages into one write.
func (w *Writer) WriteNoFlush(tag byte, payload []byte) error {
	if err := w.w.WriteByte(tag); err != nil {
		return err
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)+4))
	if _, err := w.w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.w.Write(payload)
	return err
}

// WriteStartup sends the untyped startup message: protocol version
// followed by alternating key/value C-strings, terminated by a final nul.
// Startup has no tag byte and no separate flush call is needed by callers
// — it always flushes.
func (w *Writer) WriteStartup(params map[string]string) error {
	b := NewBuilder(64)
	b.PutInt32(ProtocolVersion)
	for k, v := range params {
		b.PutCString(k)
		b.PutCString(v)
	}
	b.PutByte(0)
	return w.writeUntyped(b.ToBytes())
}

// WriteSSLRequest sends the magic SSLRequest in place of a startup message.
func (w *Writer) WriteSSLRequest() error {
	b := NewBuilder(4)
	b.PutInt32(SSLRequestCode)
	return w.writeUntyped(b.ToBytes())
}

// WriteCancelRequest sends a cancel request over a fresh, throwaway
// connection identified by the backend's PID and secret key.
func (w *Writer) WriteCancelRequest(pid, secret int32) error {
	b := NewBuilder(12)
	b.PutInt32(CancelRequestCode)
	b.PutInt32(pid)
	b.PutInt32(secret)
	return w.writeUntyped(b.ToBytes())
}

func (w *Writer) writeUntyped(payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)+4))
	if _, err := w.w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(payload); err != nil {
		return err
	}
	return w.Flush()
}

// Flush sends any buffered, not-yet-flushed messages.
func (w *Writer) Flush() error { return w.w.Flush() }
