package pgwire

import "testing"

func TestMessageCString(t *testing.T) {
	m := &Message{tag: 'T', payload: []byte("hello\x00world\x00")}
	s, err := m.CString()
	if err != nil {
		t.Fatalf("CString: %v", err)
	}
	if s != "hello" {
		t.Fatalf("expected %q, got %q", "hello", s)
	}
	s, err = m.CString()
	if err != nil {
		t.Fatalf("CString: %v", err)
	}
	if s != "world" {
		t.Fatalf("expected %q, got %q", "world", s)
	}
	if m.Len() != 0 {
		t.Fatalf("expected 0 remaining, got %d", m.Len())
	}
}

func TestMessageCStringUnterminated(t *testing.T) {
	m := &Message{tag: 'T', payload: []byte("no-terminator")}
	if _, err := m.CString(); err == nil {
		t.Fatal("expected error for unterminated C-string")
	}
}

func TestMessageInt16Int32(t *testing.T) {
	m := &Message{tag: 'D', payload: []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x10}}
	n16, err := m.Int16()
	if err != nil || n16 != 2 {
		t.Fatalf("Int16: got %d, %v", n16, err)
	}
	n32, err := m.Int32()
	if err != nil || n32 != 16 {
		t.Fatalf("Int32: got %d, %v", n32, err)
	}
}

func TestMessageBytesAliasesPayload(t *testing.T) {
	m := &Message{tag: 'D', payload: []byte{1, 2, 3, 4}}
	b, err := m.Bytes(4)
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(b) != 4 || b[0] != 1 || b[3] != 4 {
		t.Fatalf("unexpected bytes: %v", b)
	}
	if &b[0] != &m.payload[0] {
		t.Fatal("expected Bytes to alias the payload, got a copy")
	}
}

func TestMessageReadPastEndFails(t *testing.T) {
	m := &Message{tag: 'D', payload: []byte{1, 2}}
	if _, err := m.Int32(); err == nil {
		t.Fatal("expected error reading int32 past a 2-byte payload")
	}
}

func TestMessageResetRewindsCursor(t *testing.T) {
	m := &Message{tag: 'E', payload: []byte{0xAA}}
	if _, err := m.Byte(); err != nil {
		t.Fatalf("Byte: %v", err)
	}
	m.Reset()
	b, err := m.Byte()
	if err != nil || b != 0xAA {
		t.Fatalf("expected to re-read 0xAA after Reset, got %x, %v", b, err)
	}
}
