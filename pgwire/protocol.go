// Package pgwire implements the frontend half of the PostgreSQL
// frontend/backend wire protocol, version 3.0: framing messages on a byte
// stream (MessageBuffer) and building their typed payloads (MessageBuilder).
//
// This is the client-role counterpart to the server-role framing used by
// the fixture server's own pgwire package (see internal/fakepg/pgwire):
// where that package reads untyped/typed frontend messages and writes
// backend replies, this one writes frontend requests and reads backend
// replies. The framing idiom — tag byte, big-endian length inclusive of
// itself, payload, and a bufio-backed Reader/Writer pair with typed
// int16/int32/C-string helpers —
// is the same.
package pgwire

import "strconv"

// ProtocolVersion is protocol 3.0, encoded as major<<16 | minor.
const ProtocolVersion int32 = 3 << 16

// SSLRequestCode is the magic value sent in place of a protocol version to
// request a TLS upgrade before startup.
const SSLRequestCode int32 = 80877103

// CancelRequestCode is the magic value sent in place of a protocol version
// on a throwaway connection used to cancel a running query.
const CancelRequestCode int32 = 80877102

// Frontend (client → server) message tags.
const (
	Bind            byte = 'B'
	Close           byte = 'C'
	CopyFail        byte = 'f'
	Describe        byte = 'D'
	Execute         byte = 'E'
	Flush           byte = 'H'
	FunctionCall    byte = 'F'
	Parse           byte = 'P'
	PasswordMessage byte = 'p'
	Query           byte = 'Q'
	Sync            byte = 'S'
	Terminate       byte = 'X'
)

// Backend (server → client) message tags.
const (
	AuthenticationRequest byte = 'R'
	BackendKeyData        byte = 'K'
	BindComplete          byte = '2'
	CloseComplete         byte = '3'
	CommandComplete       byte = 'C'
	DataRow               byte = 'D'
	EmptyQueryResponse    byte = 'I'
	ErrorResponse         byte = 'E'
	NoData                byte = 'n'
	NoticeResponse        byte = 'N'
	NotificationResponse  byte = 'A'
	ParameterDescription  byte = 't'
	ParameterStatus       byte = 'S'
	ParseComplete         byte = '1'
	PortalSuspended       byte = 's'
	ReadyForQuery         byte = 'Z'
	RowDescription        byte = 'T'
)

// AuthCode identifies the sub-type of an AuthenticationRequest message.
type AuthCode int32

const (
	AuthOK           AuthCode = 0
	AuthKerberosV5   AuthCode = 2
	AuthCleartext    AuthCode = 3
	AuthMD5          AuthCode = 5
	AuthGSS          AuthCode = 7
	AuthGSSContinue  AuthCode = 8
	AuthSSPI         AuthCode = 9
	AuthSASL         AuthCode = 10
	AuthSASLContinue AuthCode = 11
	AuthSASLFinal    AuthCode = 12
)

func (a AuthCode) String() string {
	switch a {
	case AuthOK:
		return "ok"
	case AuthCleartext:
		return "cleartext"
	case AuthMD5:
		return "md5"
	default:
		return "unsupported(" + strconv.Itoa(int(a)) + ")"
	}
}

// TransactionStatus is the single byte carried in ReadyForQuery.
type TransactionStatus byte

const (
	TxIdle   TransactionStatus = 'I'
	TxInTx   TransactionStatus = 'T'
	TxFailed TransactionStatus = 'E'
)

// NullLength is the wire-format sentinel for a NULL field value: a field
// length of 0xFFFFFFFF (-1 as a signed int32) denotes NULL.
const NullLength int32 = -1
