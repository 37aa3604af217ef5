package convert

import (
	"testing"
	"time"
)

func TestDecodeNull(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDInt4, nil)
	if err != nil || v != nil {
		t.Fatalf("expected nil, nil, got %v, %v", v, err)
	}
}

func TestDecodeBool(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDBool, []byte("t"))
	if err != nil || v != true {
		t.Fatalf("expected true, got %v, %v", v, err)
	}
	v, err = c.Decode(OIDBool, []byte("f"))
	if err != nil || v != false {
		t.Fatalf("expected false, got %v, %v", v, err)
	}
}

func TestDecodeInt(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDInt8, []byte("42"))
	if err != nil || v != int64(42) {
		t.Fatalf("expected 42, got %v, %v", v, err)
	}
}

func TestDecodeFloatSpecials(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDFloat8, []byte("3.5"))
	if err != nil || v != 3.5 {
		t.Fatalf("expected 3.5, got %v, %v", v, err)
	}
	v, err = c.Decode(OIDFloat8, []byte("NaN"))
	if err != nil {
		t.Fatalf("NaN: %v", err)
	}
	if f, ok := v.(float64); !ok || f == f {
		t.Fatalf("expected NaN, got %v", v)
	}
}

func TestDecodeText(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDText, []byte("hello"))
	if err != nil || v != "hello" {
		t.Fatalf("expected hello, got %v, %v", v, err)
	}
}

func TestDecodeUnknownOIDFallsBackToString(t *testing.T) {
	c := New()
	v, err := c.Decode(999999, []byte("whatever"))
	if err != nil || v != "whatever" {
		t.Fatalf("expected passthrough string, got %v, %v", v, err)
	}
}

func TestDecodeByteaHex(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDBytea, []byte("\\x68656c6c6f"))
	if err != nil {
		t.Fatalf("decode bytea: %v", err)
	}
	b, ok := v.([]byte)
	if !ok || string(b) != "hello" {
		t.Fatalf("expected hello, got %v", v)
	}
}

func TestDecodeUUID(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDUUID, []byte("c9f1a1b0-3e2e-4a4d-9b2a-1234567890ab"))
	if err != nil {
		t.Fatalf("decode uuid: %v", err)
	}
	if v.(interface{ String() string }).String() != "c9f1a1b0-3e2e-4a4d-9b2a-1234567890ab" {
		t.Fatalf("unexpected uuid value: %v", v)
	}
}

func TestDecodeTimestamp(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDTimestamp, []byte("2024-03-05 10:30:00"))
	if err != nil {
		t.Fatalf("decode timestamp: %v", err)
	}
	tm, ok := v.(time.Time)
	if !ok || tm.Year() != 2024 || tm.Month() != time.March || tm.Day() != 5 {
		t.Fatalf("unexpected timestamp: %v", v)
	}
}

func TestDecodeArrayOfInt(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDInt4Array, []byte("{1,2,3}"))
	if err != nil {
		t.Fatalf("decode array: %v", err)
	}
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 || arr[1] != int64(2) {
		t.Fatalf("unexpected array: %v", v)
	}
}

func TestDecodeArrayWithNull(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDTextArray, []byte(`{a,NULL,"c,d"}`))
	if err != nil {
		t.Fatalf("decode array: %v", err)
	}
	arr := v.([]any)
	if len(arr) != 3 || arr[0] != "a" || arr[1] != nil || arr[2] != "c,d" {
		t.Fatalf("unexpected array: %v", arr)
	}
}

func TestLoadEnumsRegistersTextDecoder(t *testing.T) {
	c := New()
	c.LoadEnums([]EnumRow{{OID: 16001, Name: "mood"}})
	v, err := c.Decode(16001, []byte("happy"))
	if err != nil || v != "happy" {
		t.Fatalf("expected happy, got %v, %v", v, err)
	}
}

func TestRegisterOIDOverridesDecoder(t *testing.T) {
	c := New()
	c.RegisterOID(OIDInt4, func(raw []byte, _ *Converter) (any, error) {
		return "overridden", nil
	})
	v, err := c.Decode(OIDInt4, []byte("5"))
	if err != nil || v != "overridden" {
		t.Fatalf("expected overridden, got %v, %v", v, err)
	}
}

func TestInitializeFromSetsEncodingAndTimeZone(t *testing.T) {
	c := New()
	err := c.InitializeFrom(map[string]string{
		"client_encoding": "UTF8",
		"TimeZone":        "UTC",
	})
	if err != nil {
		t.Fatalf("InitializeFrom: %v", err)
	}
	if c.encoding != "UTF8" {
		t.Fatalf("expected UTF8, got %q", c.encoding)
	}
	if c.location == nil || c.location.loc != time.UTC {
		t.Fatalf("expected TimeZone UTC to be bound, got %v", c.location)
	}
}

func TestEncoderUTF8Passthrough(t *testing.T) {
	c := New()
	b, err := c.Encoder()("café")
	if err != nil {
		t.Fatalf("Encoder: %v", err)
	}
	if string(b) != "café" {
		t.Fatalf("expected passthrough, got %q", b)
	}
}

func TestEncoderLatin1(t *testing.T) {
	c := New()
	if err := c.InitializeFrom(map[string]string{"client_encoding": "LATIN1"}); err != nil {
		t.Fatalf("InitializeFrom: %v", err)
	}
	b, err := c.Encoder()("café")
	if err != nil {
		t.Fatalf("Encoder: %v", err)
	}
	want := []byte{'c', 'a', 'f', 0xe9}
	if string(b) != string(want) {
		t.Fatalf("expected %v, got %v", want, b)
	}
}

func TestDecodeTimestampTzWholeHourOffset(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDTimestampTz, []byte("2024-03-05 10:30:00+00"))
	if err != nil {
		t.Fatalf("decode timestamptz: %v", err)
	}
	tm, ok := v.(time.Time)
	if !ok || tm.Year() != 2024 || tm.Hour() != 10 {
		t.Fatalf("unexpected timestamptz: %v", v)
	}
}

func TestDecodeTimeTzWholeHourOffset(t *testing.T) {
	c := New()
	v, err := c.Decode(OIDTimeTz, []byte("10:30:00+02"))
	if err != nil {
		t.Fatalf("decode timetz: %v", err)
	}
	tm, ok := v.(time.Time)
	if !ok || tm.Hour() != 10 || tm.Minute() != 30 {
		t.Fatalf("unexpected timetz: %v", v)
	}
}

func TestDecodeIntervalVerbose(t *testing.T) {
	d, err := parseInterval("1 day 04:05:06")
	if err != nil {
		t.Fatalf("parseInterval: %v", err)
	}
	want := 24*time.Hour + 4*time.Hour + 5*time.Minute + 6*time.Second
	if d != want {
		t.Fatalf("expected %v, got %v", want, d)
	}
}
