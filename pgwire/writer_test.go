package pgwire

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

var errEncodeBoom = errors.New("boom")

func TestWriterWriteFramesMessage(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	b := NewBuilder(8).PutCString("SELECT 1")
	if err := w.Write(Query, b.ToBytes()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := buf.Bytes()
	if got[0] != Query {
		t.Fatalf("expected tag %c, got %c", Query, got[0])
	}
	r := NewReader(bytes.NewReader(got))
	msg, err := r.ReadFrom()
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	s, err := msg.CString()
	if err != nil || s != "SELECT 1" {
		t.Fatalf("expected %q, got %q, %v", "SELECT 1", s, err)
	}
}

func TestWriterCoalescesNoFlush(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteNoFlush(Parse, []byte("p")); err != nil {
		t.Fatalf("WriteNoFlush Parse: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected nothing written before Flush, got %d bytes", buf.Len())
	}
	if err := w.WriteNoFlush(Sync, nil); err != nil {
		t.Fatalf("WriteNoFlush Sync: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected coalesced bytes after Flush")
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	msg, err := r.ReadFrom()
	if err != nil || msg.Tag() != Parse {
		t.Fatalf("expected first message Parse, got %c, %v", msg.Tag(), err)
	}
	msg, err = r.ReadFrom()
	if err != nil || msg.Tag() != Sync {
		t.Fatalf("expected second message Sync, got %c, %v", msg.Tag(), err)
	}
}

func TestWriterStartupRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	err := w.WriteStartup(map[string]string{"user": "alice"})
	if err != nil {
		t.Fatalf("WriteStartup: %v", err)
	}
	if buf.Len() < 8 {
		t.Fatalf("startup message too short: %d bytes", buf.Len())
	}
	want := []byte{0, 0, 0, 20, 0, 3, 0, 0, 'u', 's', 'e', 'r', 0, 'a', 'l', 'i', 'c', 'e', 0, 0}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("expected startup bytes %v, got %v", want, buf.Bytes())
	}
}

func TestWriterSSLRequest(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteSSLRequest(); err != nil {
		t.Fatalf("WriteSSLRequest: %v", err)
	}
	if buf.Len() != 8 {
		t.Fatalf("expected 8-byte SSLRequest, got %d", buf.Len())
	}
}

func TestBuilderCountedBytesNull(t *testing.T) {
	b := NewBuilder(4)
	b.PutCountedBytes(nil)
	got := b.ToBytes()
	want := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected NULL sentinel %v, got %v", want, got)
	}
}

func TestBuilderCountedBytesValue(t *testing.T) {
	b := NewBuilder(4)
	b.PutCountedBytes([]byte("hi"))
	got := b.ToBytes()
	want := []byte{0x00, 0x00, 0x00, 0x02, 'h', 'i'}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestEncodedBuilderAppliesEncoder(t *testing.T) {
	b := NewEncodedBuilder(8, func(s string) ([]byte, error) {
		return []byte(strings.ToUpper(s)), nil
	})
	b.PutCString("select 1")
	if err := b.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	want := append([]byte("SELECT 1"), 0)
	if !bytes.Equal(b.ToBytes(), want) {
		t.Fatalf("expected %q, got %q", want, b.ToBytes())
	}
}

func TestEncodedBuilderRecordsFirstError(t *testing.T) {
	b := NewEncodedBuilder(8, func(s string) ([]byte, error) {
		return nil, errEncodeBoom
	})
	b.PutCString("x")
	if b.Err() != errEncodeBoom {
		t.Fatalf("expected recorded encoder error, got %v", b.Err())
	}
	if len(b.ToBytes()) != 0 {
		t.Fatalf("expected no bytes appended on encode failure, got %v", b.ToBytes())
	}
}
