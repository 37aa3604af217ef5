package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"litepg"
	"litepg/internal/fakepg"
)

func main() {
	fmt.Println("litepg concurrency test")
	fmt.Println("=======================")

	port, shutdown := startServer()
	defer shutdown()

	fmt.Printf("Starting fixture server on port %d...\n\n", port)

	passed, failed := 0, 0
	for _, sc := range []struct {
		name string
		fn   func(int) bool
	}{
		{"Setup", scenarioSetup},
		{"Concurrent reads", scenarioConcurrentReads},
		{"Reads during writes", scenarioReadsDuringWrites},
		{"Concurrent writes", scenarioConcurrentWrites},
	} {
		if sc.fn(port) {
			passed++
		} else {
			failed++
		}
	}

	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func startServer() (port int, shutdown func()) {
	cfg := &fakepg.Config{
		Port:     0, // OS-assigned
		User:     "admin",
		Password: "test",
	}
	srv := fakepg.New(cfg)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			fatalf("server: %v", err)
		}
	}()

	for i := 0; i < 100; i++ {
		if addr := srv.Addr(); addr != nil {
			port = addr.(*net.TCPAddr).Port
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if port == 0 {
		fatalf("server did not start within 1s")
	}

	shutdown = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
	return port, shutdown
}

// connect opens its own litepg.Conn: every goroutine in this tool gets
// exactly one, never sharing a connection across goroutines, matching
// litepg's one-serial-session-per-connection model.
func connect(port int) *litepg.Conn {
	opts := &litepg.Options{
		Host:     "127.0.0.1",
		Port:     port,
		User:     "admin",
		Password: "test",
		Timeout:  5 * time.Second,
	}
	conn := litepg.Open(opts)
	if err := conn.Connect(); err != nil {
		fatalf("connect: %v", err)
	}
	return conn
}

func scenarioSetup(port int) bool {
	start := time.Now()
	conn := connect(port)
	defer conn.Close()

	if _, err := conn.Execute("CREATE TABLE conc (id INT, val TEXT)"); err != nil {
		return fail("Setup", "CREATE TABLE: %v", err)
	}

	for i := 1; i <= 100; i++ {
		_, err := conn.Execute(fmt.Sprintf("INSERT INTO conc VALUES (%d, 'row%d')", i, i))
		if err != nil {
			return fail("Setup", "INSERT %d: %v", i, err)
		}
	}

	result, err := conn.Query("SELECT * FROM conc")
	if err != nil {
		return fail("Setup", "SELECT: %v", err)
	}
	if len(result.Rows()) != 100 {
		return fail("Setup", "expected 100 rows, got %d", len(result.Rows()))
	}

	return pass("Setup", "created table, inserted 100 rows", time.Since(start))
}

func rowCount(conn *litepg.Conn) (int, error) {
	result, err := conn.Query("SELECT * FROM conc")
	if err != nil {
		return 0, err
	}
	return len(result.Rows()), nil
}

func scenarioConcurrentReads(port int) bool {
	start := time.Now()
	const goroutines = 10
	const queriesPerGoroutine = 50

	var wg sync.WaitGroup
	var errCount atomic.Int64

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := connect(port)
			defer conn.Close()

			for q := 0; q < queriesPerGoroutine; q++ {
				n, err := rowCount(conn)
				if err != nil || n != 100 {
					errCount.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	errs := errCount.Load()
	total := goroutines * queriesPerGoroutine
	if errs > 0 {
		return fail("Concurrent reads", "%d errors out of %d queries", errs, total)
	}
	return pass("Concurrent reads",
		fmt.Sprintf("%d goroutines × %d queries = %d total, 0 errors", goroutines, queriesPerGoroutine, total),
		time.Since(start))
}

func scenarioReadsDuringWrites(port int) bool {
	start := time.Now()
	const readers = 10

	var wg sync.WaitGroup
	var errCount atomic.Int64
	var minCount, maxCount atomic.Int64
	minCount.Store(999999)

	wg.Add(1)
	go func() {
		defer wg.Done()
		conn := connect(port)
		defer conn.Close()

		for i := 101; i <= 200; i++ {
			_, err := conn.Execute(fmt.Sprintf("INSERT INTO conc VALUES (%d, 'row%d')", i, i))
			if err != nil {
				errCount.Add(1)
			}
		}
	}()

	for g := 0; g < readers; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := connect(port)
			defer conn.Close()

			for q := 0; q < 50; q++ {
				count, err := rowCount(conn)
				if err != nil {
					errCount.Add(1)
					continue
				}
				for {
					cur := minCount.Load()
					if int64(count) >= cur || minCount.CompareAndSwap(cur, int64(count)) {
						break
					}
				}
				for {
					cur := maxCount.Load()
					if int64(count) <= cur || maxCount.CompareAndSwap(cur, int64(count)) {
						break
					}
				}
			}
		}()
	}
	wg.Wait()

	errs := errCount.Load()
	lo, hi := minCount.Load(), maxCount.Load()

	if errs > 0 {
		return fail("Reads during writes", "%d errors", errs)
	}
	if lo < 100 || hi > 200 {
		return fail("Reads during writes", "counts out of range: [%d..%d]", lo, hi)
	}

	conn := connect(port)
	defer conn.Close()
	finalCount, _ := rowCount(conn)
	if finalCount != 200 {
		return fail("Reads during writes", "final count %d, expected 200", finalCount)
	}

	return pass("Reads during writes",
		fmt.Sprintf("100 rows inserted while reading, counts in [%d..%d], 0 errors", lo, hi),
		time.Since(start))
}

func scenarioConcurrentWrites(port int) bool {
	start := time.Now()
	const goroutines = 10
	const rowsPerGoroutine = 10

	var wg sync.WaitGroup
	var errCount atomic.Int64

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			conn := connect(port)
			defer conn.Close()

			base := 201 + g*rowsPerGoroutine
			for i := 0; i < rowsPerGoroutine; i++ {
				id := base + i
				_, err := conn.Execute(fmt.Sprintf("INSERT INTO conc VALUES (%d, 'row%d')", id, id))
				if err != nil {
					errCount.Add(1)
				}
			}
		}(g)
	}
	wg.Wait()

	errs := errCount.Load()
	if errs > 0 {
		return fail("Concurrent writes", "%d insert errors", errs)
	}

	conn := connect(port)
	defer conn.Close()
	count, _ := rowCount(conn)
	if count != 300 {
		return fail("Concurrent writes", "final count %d, expected 300", count)
	}

	return pass("Concurrent writes",
		fmt.Sprintf("%d goroutines × %d rows = %d inserts, final count %d",
			goroutines, rowsPerGoroutine, goroutines*rowsPerGoroutine, count),
		time.Since(start))
}

func pass(name, detail string, d time.Duration) bool {
	fmt.Printf("[PASS] %s: %s (%dms)\n", name, detail, d.Milliseconds())
	return true
}

func fail(name, format string, args ...any) bool {
	fmt.Printf("[FAIL] %s: %s\n", name, fmt.Sprintf(format, args...))
	return false
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal: "+format+"\n", args...)
	os.Exit(2)
}
