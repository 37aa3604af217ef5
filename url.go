package litepg

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgpassfile"
	"github.com/jackc/pgservicefile"
)

// Options holds everything needed to open a connection, populated from a
// psql:// URL, explicit setters, or environment variables, in that order
// of precedence when a caller merges all three via ParseURL followed by
// WithEnvFallback.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Timeout  time.Duration
	SSL      bool

	// OnNotice, when set, is called with every NoticeResponse the server
	// sends during this connection's lifetime — a non-fatal notification
	// (e.g. a NOTICE-level message from a PL/pgSQL function) that
	// otherwise has no way to reach a caller, since it never produces an
	// error return from Query/Execute. Called synchronously from
	// whichever goroutine is driving the connection at the time.
	OnNotice func(*Notice)
}

// DefaultOptions returns the defaults named in the URL/configuration
// table: host localhost, port 5432, a 10 second timeout, SSL disabled.
func DefaultOptions() *Options {
	return &Options{
		Host:    "localhost",
		Port:    5432,
		Timeout: 10 * time.Second,
	}
}

// ParseURL parses a psql://[user[:password]@]host[:port][/database] URL
// into Options, starting from DefaultOptions for anything the URL omits.
// Any scheme other than "psql" is a ConfigError.
func ParseURL(raw string) (*Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("invalid connection url: %v", err)}
	}
	if u.Scheme != "psql" {
		return nil, &ConfigError{Message: fmt.Sprintf("unsupported url scheme %q, want psql", u.Scheme)}
	}

	opts := DefaultOptions()
	if u.Host != "" {
		opts.Host = u.Hostname()
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, &ConfigError{Message: fmt.Sprintf("invalid port %q", p)}
		}
		opts.Port = port
	}
	if u.User != nil {
		opts.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			opts.Password = pw
		}
	}
	if len(u.Path) > 1 {
		opts.Database = u.Path[1:]
	}
	return opts, nil
}

// WithEnvFallback fills in User, Password, and Database from LITEPG_USER,
// LITEPG_PASSWORD, and LITEPG_DATABASE when the URL left them empty,
// the usual flag-then-env-var precedence.
func (o *Options) WithEnvFallback() *Options {
	if o.User == "" {
		o.User = envStr("LITEPG_USER", "")
	}
	if o.Password == "" {
		o.Password = envStr("LITEPG_PASSWORD", "")
	}
	if o.Database == "" {
		o.Database = envStr("LITEPG_DATABASE", "")
	}
	return o
}

// WithPgpass fills in Password, when still empty, by looking up
// host:port:database:user in a PostgreSQL .pgpass file (the path given,
// or $HOME/.pgpass when path is ""; the Windows
// %APPDATA%/postgresql/pgpass.conf location is not consulted).
// A missing or unreadable file is not an error — it simply leaves
// Password unset.
func (o *Options) WithPgpass(path string) *Options {
	if o.Password != "" {
		return o
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return o
		}
		path = home + "/.pgpass"
	}
	pf, err := pgpassfile.ReadPassfile(path)
	if err != nil {
		return o
	}
	if password := pf.FindPassword(o.Host, strconv.Itoa(o.Port), o.Database, o.User); password != "" {
		o.Password = password
	}
	return o
}

// WithService fills in Host while it is still the default "localhost",
// Port while it is still 0 or the default 5432, and User/Database while
// they are empty, from a named stanza of a PostgreSQL .pg_service.conf file (the path
// given, or ~/.pg_service.conf when path is ""). A missing file or
// service name is not an error.
func (o *Options) WithService(path, service string) *Options {
	if service == "" {
		return o
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return o
		}
		path = home + "/.pg_service.conf"
	}
	sf, err := pgservicefile.ReadServicefile(path)
	if err != nil {
		return o
	}
	svc, err := sf.GetService(service)
	if err != nil {
		return o
	}
	if v, ok := svc.Settings["host"]; ok && o.Host == "localhost" {
		o.Host = v
	}
	if v, ok := svc.Settings["port"]; ok && (o.Port == 0 || o.Port == 5432) {
		if port, err := strconv.Atoi(v); err == nil {
			o.Port = port
		}
	}
	if v, ok := svc.Settings["user"]; ok && o.User == "" {
		o.User = v
	}
	if v, ok := svc.Settings["dbname"]; ok && o.Database == "" {
		o.Database = v
	}
	return o
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
