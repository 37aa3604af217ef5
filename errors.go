package litepg

import (
	"fmt"

	"litepg/pgwire"
)

// ConfigError reports a problem with the client's configuration or input
// rather than with the server or the connection: a missing user or
// password, an invalid URL or unsupported URL scheme, an authentication
// code the client does not support, or text that cannot be encoded in the
// session's client_encoding. A missing user is caught before dialing; a
// missing password and an unsupported authentication code are only
// detected once the server's AuthenticationRequest has arrived.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return "litepg: config: " + e.Message }

// IoError wraps a socket read/write failure, unexpected EOF, or timeout.
// It is always fatal to the session: the caller must Close and reconnect.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string { return fmt.Sprintf("litepg: io: %s: %v", e.Op, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// ProtocolError reports an unexpected message tag at a point in a state
// machine, e.g. "BindComplete expected". Always fatal to the session.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string { return "litepg: protocol: " + e.Message }

// ServerError wraps a $E ErrorResponse. Fields holds the full
// field-type-byte → value map the server sent, including 'M' (message)
// and 'C' (SQLSTATE).
type ServerError struct {
	Fields map[byte]string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("litepg: server error [%s]: %s", e.SQLState(), e.Message())
}

// Message returns the human-readable 'M' field.
func (e *ServerError) Message() string { return e.Fields['M'] }

// SQLState returns the five-character 'C' field, or "" if absent.
func (e *ServerError) SQLState() string { return e.Fields['C'] }

// SSLError reports a refused SSLRequest or a failed TLS handshake.
type SSLError struct {
	Message string
}

func (e *SSLError) Error() string { return "litepg: ssl: " + e.Message }

// Notice wraps a $N NoticeResponse. It is informational: protocol flow
// continues after a Notice is raised, and callers that don't care about
// notices can ignore it entirely.
type Notice struct {
	Fields map[byte]string
}

func (n *Notice) Error() string { return "litepg: notice: " + n.Fields['M'] }

// Message returns the human-readable 'M' field.
func (n *Notice) Message() string { return n.Fields['M'] }

// parseErrorFields reads the (1-byte field-type, C-string value) pairs
// that make up an ErrorResponse or NoticeResponse payload, terminated by
// a zero field-type byte.
func parseErrorFields(msg *pgwire.Message) (map[byte]string, error) {
	fields := make(map[byte]string)
	for {
		ft, err := msg.Byte()
		if err != nil {
			return nil, &ProtocolError{Message: "truncated error/notice field list"}
		}
		if ft == 0 {
			return fields, nil
		}
		v, err := msg.CString()
		if err != nil {
			return nil, &ProtocolError{Message: "truncated error/notice field value"}
		}
		fields[ft] = v
	}
}
