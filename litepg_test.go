package litepg

import (
	"context"
	"net"
	"testing"
	"time"

	"litepg/internal/fakepg"
)

// startFixture launches an in-process fixture server, registers its
// shutdown with t.Cleanup, and returns ready-to-use Options for it.
func startFixture(t *testing.T, cfg *fakepg.Config) *Options {
	t.Helper()
	srv := fakepg.New(cfg)
	go func() {
		_ = srv.ListenAndServe()
	}()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	var port int
	for i := 0; i < 200; i++ {
		if addr := srv.Addr(); addr != nil {
			port = addr.(*net.TCPAddr).Port
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if port == 0 {
		t.Fatal("fixture server did not start")
	}

	return &Options{
		Host:     "127.0.0.1",
		Port:     port,
		User:     cfg.User,
		Password: cfg.Password,
		Timeout:  5 * time.Second,
	}
}

func TestConnectAndSimpleQuery(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	result, err := conn.Query("SELECT 42 AS n")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.CommandTag() != "SELECT 1" {
		t.Fatalf("expected command tag %q, got %q", "SELECT 1", result.CommandTag())
	}
	rows := result.Rows()
	if len(rows) != 1 || rows[0][0] != int64(42) {
		t.Fatalf("expected [[42]], got %v", rows)
	}
}

func TestCreateInsertSelectOrdered(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	if _, err := conn.Execute("CREATE TABLE t(id INT, name TEXT, enabled BOOL)"); err != nil {
		t.Fatalf("CREATE TABLE: %v", err)
	}
	if _, err := conn.Execute("INSERT INTO t VALUES (2, 'bar', false)"); err != nil {
		t.Fatalf("INSERT 2: %v", err)
	}
	if _, err := conn.Execute("INSERT INTO t VALUES (1, 'foo', true)"); err != nil {
		t.Fatalf("INSERT 1: %v", err)
	}

	result, err := conn.Query("SELECT * FROM t ORDER BY id")
	if err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	rows := result.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0][0] != int64(1) || rows[0][1] != "foo" || rows[0][2] != true {
		t.Fatalf("unexpected row 0: %v", rows[0])
	}
	if rows[1][0] != int64(2) || rows[1][1] != "bar" || rows[1][2] != false {
		t.Fatalf("unexpected row 1: %v", rows[1])
	}
}

func TestPrepareExecuteDistinctParams(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	ps, err := conn.Prepare("SELECT $1::int + $2::int")
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	sub, err := ps.Query(2, 3)
	if err != nil {
		t.Fatalf("first Query: %v", err)
	}
	if len(sub.Rows) != 1 || sub.Rows[0][0] != int64(5) {
		t.Fatalf("expected [[5]], got %v", sub.Rows)
	}

	sub, err = ps.Query(10, 20)
	if err != nil {
		t.Fatalf("second Query: %v", err)
	}
	if len(sub.Rows) != 1 || sub.Rows[0][0] != int64(30) {
		t.Fatalf("expected [[30]], got %v", sub.Rows)
	}
}

func TestSSLRefused(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	err := conn.ConnectSSL()
	if err == nil {
		t.Fatal("expected an SSLError")
	}
	if _, ok := err.(*SSLError); !ok {
		t.Fatalf("expected *SSLError, got %T: %v", err, err)
	}
}

func TestMD5Authentication(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p", AuthMD5: true})
	conn := Open(opts)
	defer conn.Close()

	if err := conn.Connect(); err != nil {
		t.Fatalf("Connect with MD5 auth: %v", err)
	}
	if !conn.Connected() {
		t.Fatal("expected Connected() to report true after MD5 auth")
	}
}

func TestDivisionByZeroThenRecover(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	_, err := conn.Query("SELECT 1/0")
	if err == nil {
		t.Fatal("expected a ServerError")
	}
	serverErr, ok := err.(*ServerError)
	if !ok {
		t.Fatalf("expected *ServerError, got %T: %v", err, err)
	}
	if serverErr.SQLState() != "22012" {
		t.Fatalf("expected SQLSTATE 22012, got %q", serverErr.SQLState())
	}

	result, err := conn.Query("SELECT 1")
	if err != nil {
		t.Fatalf("query after error: %v", err)
	}
	if result.CommandTag() != "SELECT 1" {
		t.Fatalf("expected SELECT 1, got %q", result.CommandTag())
	}
}

func TestEmptySQL(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	result, err := conn.Query("")
	if err != nil {
		t.Fatalf("Query(\"\"): %v", err)
	}
	if len(result.SubResults) != 1 || len(result.Rows()) != 0 {
		t.Fatalf("expected one empty sub-result, got %+v", result.SubResults)
	}
}

func TestMultiStatement(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	result, err := conn.Query("SELECT 1; SELECT 2;")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	tags := result.CommandTags()
	if len(tags) != 2 || tags[0] != "SELECT 1" || tags[1] != "SELECT 1" {
		t.Fatalf("expected two SELECT 1 tags, got %v", tags)
	}
	if len(result.SubResults) != 2 {
		t.Fatalf("expected two sub-results, got %d", len(result.SubResults))
	}
}

func TestStatementNameHashingBoundary(t *testing.T) {
	long := ""
	for len(long) <= 64 {
		long += "select 1 /* padding to exceed sixty-three characters */ "
	}
	name := statementName(long)
	if len(name) != 63 {
		t.Fatalf("expected a 63-byte name, got %d: %q", len(name), name)
	}

	other := long + "x"
	name2 := statementName(other)
	if name == name2 {
		t.Fatalf("expected different names for different long SQL texts")
	}
}

func TestIsWorking(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	if !conn.IsWorking() {
		t.Fatal("expected IsWorking to report true against a healthy fixture")
	}
}

func TestFormatQuotesValuesSafely(t *testing.T) {
	conn := Open(DefaultOptions())
	sql, err := conn.Format("SELECT * FROM t WHERE name = $1 AND id = $2", "o'brien", 5)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	want := "SELECT * FROM t WHERE name = 'o''brien' AND id = 5"
	if sql != want {
		t.Fatalf("expected %q, got %q", want, sql)
	}
}

func TestServerVersion(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	if err := conn.Connect(); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	major, minor, raw := conn.ServerVersion()
	if major != 16 || minor != 3 {
		t.Fatalf("expected 16.3, got %d.%d (raw %q)", major, minor, raw)
	}
	if raw != "16.3" {
		t.Fatalf("expected raw %q, got %q", "16.3", raw)
	}
}

func TestServerVersionBeforeConnect(t *testing.T) {
	conn := Open(DefaultOptions())
	major, minor, raw := conn.ServerVersion()
	if major != 0 || minor != 0 || raw != "" {
		t.Fatalf("expected zero value before connecting, got %d.%d %q", major, minor, raw)
	}
}

func TestOnNoticeCallback(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	var got *Notice
	opts.OnNotice = func(n *Notice) { got = n }
	conn := Open(opts)
	defer conn.Close()

	_, err := conn.Execute("DO $$ BEGIN RAISE NOTICE 'hello from fixture'; END $$")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got == nil {
		t.Fatal("expected OnNotice to be invoked")
	}
	if got.Message() != "hello from fixture" {
		t.Fatalf("expected notice message %q, got %q", "hello from fixture", got.Message())
	}
}

func TestLoadEnumsRunsCatalogQuery(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	names, err := conn.LoadEnums()
	if err != nil {
		t.Fatalf("LoadEnums: %v", err)
	}
	if len(names) != 1 || names[0] != "mood" {
		t.Fatalf("expected [\"mood\"], got %v", names)
	}

	result, err := conn.Query("SELECT 1 AS n")
	if err != nil {
		t.Fatalf("query after LoadEnums: %v", err)
	}
	if result.CommandTag() != "SELECT 1" {
		t.Fatalf("expected SELECT 1 after LoadEnums, got %q", result.CommandTag())
	}
}

func TestReconnectAfterClose(t *testing.T) {
	opts := startFixture(t, &fakepg.Config{User: "u", Password: "p"})
	conn := Open(opts)
	defer conn.Close()

	if _, err := conn.Query("SELECT 1"); err != nil {
		t.Fatalf("first query: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := conn.Query("SELECT 2"); err != nil {
		t.Fatalf("query after close should reconnect automatically: %v", err)
	}
}
