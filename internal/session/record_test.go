package session

import (
	"errors"
	"testing"
)

func TestRecordRoundTrip(t *testing.T) {
	for _, role := range []Role{RoleUser, RoleAssistant, RoleSystem, RoleDeveloper} {
		r := Record{UserID: "123", Role: role, Message: "hello there"}
		b, err := r.Encode()
		if err != nil {
			t.Fatalf("encode %s: %v", role, err)
		}
		got, err := DecodeRecord(b)
		if err != nil {
			t.Fatalf("decode %s: %v", role, err)
		}
		if got != r {
			t.Fatalf("round trip mismatch: want %+v, got %+v", r, got)
		}
	}
}

func TestRecordRoundTripEmptyMessage(t *testing.T) {
	r := Record{UserID: "bot", Role: RoleAssistant, Message: ""}
	b, err := r.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeRecord(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch: want %+v, got %+v", r, got)
	}
}

func TestRecordWireFormat(t *testing.T) {
	r := Record{UserID: "42", Role: RoleUser, Message: "hi"}
	b, err := r.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"user_id":"42","role":"user","message":"hi"}`
	if string(b) != want {
		t.Fatalf("wire format changed: want %s, got %s", want, b)
	}
}

func TestDecodeRejectsUnknownRole(t *testing.T) {
	_, err := DecodeRecord([]byte(`{"user_id":"1","role":"wizard","message":"x"}`))
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("want ErrCorruptRecord, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeRecord([]byte("not json at all"))
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("want ErrCorruptRecord, got %v", err)
	}
}

func TestEncodeRejectsUnknownRole(t *testing.T) {
	_, err := Record{UserID: "1", Role: "wizard", Message: "x"}.Encode()
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("want ErrCorruptRecord, got %v", err)
	}
}
