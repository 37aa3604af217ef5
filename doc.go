// Package litepg is a lightweight PostgreSQL client speaking the
// frontend half of the wire protocol version 3.0 directly: startup,
// cleartext/MD5 authentication, simple and extended query, and SSL
// upgrade, without going through cgo or an existing driver.
//
// A Conn represents exactly one serial session. It connects lazily on
// first use and reconnects automatically after Close; callers needing
// concurrency should open one Conn per goroutine rather than share one.
//
//	conn := litepg.Open(litepg.DefaultOptions())
//	result, err := conn.Query("SELECT 1")
package litepg
