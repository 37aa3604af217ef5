package litepg

import (
	"crypto/md5"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"litepg/convert"
	"litepg/pgwire"
)

// state is the session's position in the C4 state machine.
type state int

const (
	stateClosed state = iota
	stateOpen
	stateReady
	stateInFlight
)

// Conn is one client session: exactly one serial connection to a
// PostgreSQL server, speaking the frontend half of wire protocol 3.0.
// A Conn is not safe for concurrent use from multiple goroutines — per
// the wire protocol's request/response coupling, a connection represents
// exactly one in-flight operation at a time; callers needing concurrency
// open one Conn per goroutine.
type Conn struct {
	opts *Options

	mu    sync.Mutex
	state state

	conn net.Conn
	r    *pgwire.Reader
	w    *pgwire.Writer

	// backendPID is seeded with a non-zero placeholder before startup so
	// that Conn.Connected can report true once $Z arrives even against a
	// server that omits BackendKeyData ($K) entirely.
	backendPID    int32
	backendSecret int32

	params map[string]string
	ssl    bool

	conv *convert.Converter

	preparedNames map[string]string // sql -> server-side statement name
}

// Open constructs an unconnected Conn from opts. Connect (or the first
// query, which connects lazily) performs the actual handshake.
func Open(opts *Options) *Conn {
	return &Conn{
		opts:          opts,
		state:         stateClosed,
		params:        make(map[string]string),
		preparedNames: make(map[string]string),
		backendPID:    -1, // placeholder: never zero, never a real PID
	}
}

// Connected reports whether the session believes it has a usable
// connection: backendPID has been set (placeholder or real) and the
// state machine has reached Ready or InFlight.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backendPID != 0 && (c.state == stateReady || c.state == stateInFlight)
}

// Connect opens a plain TCP connection and performs startup and
// authentication. It is a no-op if already connected.
func (c *Conn) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(false)
}

// ConnectSSL opens a TCP connection, requests a TLS upgrade via
// SSLRequest, and performs startup and authentication over the TLS
// stream. If the server refuses SSL, it returns an SSLError and the
// connection is not established.
func (c *Conn) ConnectSSL() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(true)
}

func (c *Conn) connectLocked(wantSSL bool) error {
	if c.state != stateClosed {
		return nil
	}
	if c.opts.User == "" {
		return &ConfigError{Message: "user is required"}
	}

	addr := fmt.Sprintf("%s:%d", c.opts.Host, c.opts.Port)
	dialer := net.Dialer{Timeout: c.opts.Timeout}
	netConn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return &IoError{Op: "dial", Err: err}
	}
	c.conn = netConn
	c.r = pgwire.NewReader(netConn)
	c.w = pgwire.NewWriter(netConn)
	c.state = stateOpen

	// conv exists from here on, defaulted to UTF8, so startup's
	// PasswordMessage can already go through its encoder; InitializeFrom
	// below then picks up whatever client_encoding the server reports.
	c.conv = convert.New()

	// The handshake's reads/writes are on the same stream the query paths
	// bound by opts.Timeout use, so a server that stalls during SSL
	// negotiation or authentication must fail the same way a stalled
	// query does, not hang forever.
	c.setDeadline()

	if wantSSL {
		if err := c.upgradeSSL(); err != nil {
			c.closeLocked()
			return err
		}
	}

	if err := c.startup(); err != nil {
		c.closeLocked()
		return err
	}

	if err := c.conv.InitializeFrom(c.params); err != nil {
		c.closeLocked()
		return err
	}

	c.state = stateReady
	return nil
}

// upgradeSSL writes the 8-byte SSLRequest and, on a $S reply, re-wraps
// the underlying net.Conn in a TLS client connection.
func (c *Conn) upgradeSSL() error {
	if err := c.w.WriteSSLRequest(); err != nil {
		return &IoError{Op: "write SSLRequest", Err: err}
	}
	reply, err := c.r.ReadSSLReply()
	if err != nil {
		return &IoError{Op: "read SSL reply", Err: err}
	}
	if reply != 'S' {
		return &SSLError{Message: "SSL not honored"}
	}

	tlsConn := tls.Client(c.conn, &tls.Config{ServerName: c.opts.Host})
	if err := tlsConn.Handshake(); err != nil {
		return &SSLError{Message: fmt.Sprintf("tls handshake: %v", err)}
	}
	c.conn = tlsConn
	c.r = pgwire.NewReader(tlsConn)
	c.w = pgwire.NewWriter(tlsConn)
	c.ssl = true
	return nil
}

// startup sends the startup message, authenticates, and drains
// ParameterStatus/BackendKeyData until ReadyForQuery.
func (c *Conn) startup() error {
	params := map[string]string{"user": c.opts.User}
	if c.opts.Database != "" {
		params["database"] = c.opts.Database
	}
	if err := c.w.WriteStartup(params); err != nil {
		return &IoError{Op: "write startup", Err: err}
	}

	for {
		msg, err := c.r.ReadFrom()
		if err != nil {
			return &IoError{Op: "read during startup", Err: err}
		}
		switch msg.Tag() {
		case pgwire.AuthenticationRequest:
			done, err := c.handleAuth(msg)
			if err != nil {
				return err
			}
			if !done {
				continue
			}
		case pgwire.ParameterStatus:
			k, _ := msg.CString()
			v, _ := msg.CString()
			c.params[k] = v
		case pgwire.BackendKeyData:
			pid, _ := msg.Int32()
			secret, _ := msg.Int32()
			c.backendPID = pid
			c.backendSecret = secret
		case pgwire.ErrorResponse:
			fields, ferr := parseErrorFields(msg)
			if ferr != nil {
				return ferr
			}
			return &ServerError{Fields: fields}
		case pgwire.NoticeResponse:
			// Informational only; startup keeps going.
			fields, _ := parseErrorFields(msg)
			c.deliverNotice(fields)
		case pgwire.ReadyForQuery:
			return nil
		default:
			return &ProtocolError{Message: fmt.Sprintf("unexpected message %q during startup", msg.Tag())}
		}
	}
}

// handleAuth dispatches one AuthenticationRequest payload. done is true
// once the code is AuthOK; false when a reply (PasswordMessage) was sent
// and the caller should read the next message.
func (c *Conn) handleAuth(msg *pgwire.Message) (done bool, err error) {
	code, err := msg.Int32()
	if err != nil {
		return false, &ProtocolError{Message: "truncated AuthenticationRequest"}
	}
	switch pgwire.AuthCode(code) {
	case pgwire.AuthOK:
		return true, nil
	case pgwire.AuthCleartext:
		if c.opts.Password == "" {
			return false, &ConfigError{Message: "server requires a password but none was configured"}
		}
		b := pgwire.NewEncodedBuilder(len(c.opts.Password)+1, c.conv.Encoder()).PutCString(c.opts.Password)
		if err := b.Err(); err != nil {
			return false, &ConfigError{Message: fmt.Sprintf("encode password: %v", err)}
		}
		if err := c.w.Write(pgwire.PasswordMessage, b.ToBytes()); err != nil {
			return false, &IoError{Op: "write cleartext password", Err: err}
		}
		return false, nil
	case pgwire.AuthMD5:
		if c.opts.Password == "" {
			return false, &ConfigError{Message: "server requires a password but none was configured"}
		}
		saltBytes, err := msg.Bytes(4)
		if err != nil {
			return false, &ProtocolError{Message: "truncated MD5 salt"}
		}
		hashed := md5Password(c.opts.User, c.opts.Password, saltBytes)
		b := pgwire.NewEncodedBuilder(len(hashed)+1, c.conv.Encoder()).PutCString(hashed)
		if err := b.Err(); err != nil {
			return false, &ConfigError{Message: fmt.Sprintf("encode password: %v", err)}
		}
		if err := c.w.Write(pgwire.PasswordMessage, b.ToBytes()); err != nil {
			return false, &IoError{Op: "write md5 password", Err: err}
		}
		return false, nil
	default:
		return false, &ConfigError{Message: fmt.Sprintf("unsupported authentication code %d", code)}
	}
}

// md5Password computes "md5" || hex(md5(hex(md5(password||user)) || salt)),
// PostgreSQL's MD5 authentication response.
func md5Password(user, password string, salt []byte) string {
	inner := md5.Sum([]byte(password + user))
	innerHex := hex.EncodeToString(inner[:])
	outer := md5.Sum(append([]byte(innerHex), salt...))
	return "md5" + hex.EncodeToString(outer[:])
}

// Close sends a best-effort Terminate ($X) and releases the socket. It
// is safe to call on an already-closed Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Conn) closeLocked() error {
	if c.state == stateClosed {
		return nil
	}
	if c.w != nil {
		_ = c.w.Write(pgwire.Terminate, nil)
	}
	var err error
	if c.conn != nil {
		err = c.conn.Close()
	}
	c.state = stateClosed
	c.conn = nil
	return err
}

// ServerVersion parses the server_version ParameterStatus captured during
// startup (e.g. "15.4 (Debian 15.4-1)") into a comparable major/minor pair,
// alongside the raw string as reported. major and minor are both 0 if the
// session has not connected yet or the server never sent server_version.
func (c *Conn) ServerVersion() (major, minor int, raw string) {
	c.mu.Lock()
	raw = c.params["server_version"]
	c.mu.Unlock()

	numeric := raw
	if i := strings.IndexByte(raw, ' '); i >= 0 {
		numeric = raw[:i]
	}
	parts := strings.SplitN(numeric, ".", 3)
	if len(parts) > 0 {
		major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		minor, _ = strconv.Atoi(parts[1])
	}
	return major, minor, raw
}

// deliverNotice invokes opts.OnNotice, if set, with a Notice built from a
// parsed NoticeResponse field map. fields may be nil if the field map
// itself failed to parse; the notice is still non-fatal, so the protocol
// loop that called this keeps running either way.
func (c *Conn) deliverNotice(fields map[byte]string) {
	if c.opts.OnNotice != nil {
		c.opts.OnNotice(&Notice{Fields: fields})
	}
}

func (c *Conn) setDeadline() {
	if c.conn != nil && c.opts.Timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.opts.Timeout))
	}
}

// ensureConnected connects lazily if the session is currently closed, the
// "reconnect on next query is automatic" behavior the statement API
// promises.
func (c *Conn) ensureConnected() error {
	if c.state != stateClosed {
		return nil
	}
	if c.ssl {
		return c.connectLocked(true)
	}
	return c.connectLocked(false)
}
