package exchange

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestSignRESTDeterministic(t *testing.T) {
	s := NewSigner("key", "secret", "pass")

	a := s.SignREST("2024-01-02T03:04:05.000Z", "GET", "/api/v5/market/tickers?instType=SPOT", "")
	b := s.SignREST("2024-01-02T03:04:05.000Z", "GET", "/api/v5/market/tickers?instType=SPOT", "")
	if a != b {
		t.Errorf("same inputs produced different signatures: %q vs %q", a, b)
	}

	raw, err := base64.StdEncoding.DecodeString(a)
	if err != nil {
		t.Fatalf("signature is not valid base64: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("expected 32-byte HMAC-SHA256 digest, got %d bytes", len(raw))
	}
}

func TestSignRESTVariesWithInputs(t *testing.T) {
	s := NewSigner("key", "secret", "pass")
	base := s.SignREST("ts", "GET", "/path", "")

	variants := []string{
		s.SignREST("ts2", "GET", "/path", ""),
		s.SignREST("ts", "POST", "/path", ""),
		s.SignREST("ts", "GET", "/other", ""),
		s.SignREST("ts", "GET", "/path", "{}"),
		NewSigner("key", "other-secret", "pass").SignREST("ts", "GET", "/path", ""),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d produced the same signature as base", i)
		}
	}
}

func TestSignRESTUppercasesMethod(t *testing.T) {
	s := NewSigner("key", "secret", "pass")
	if s.SignREST("ts", "get", "/path", "") != s.SignREST("ts", "GET", "/path", "") {
		t.Error("method case should not change the signature")
	}
}

func TestSignWSLoginMatchesVerifyPath(t *testing.T) {
	s := NewSigner("key", "secret", "pass")
	// login prehash is timestamp + "GET" + "/users/self/verify"
	if got, want := s.SignWSLogin("1700000000"), s.SignREST("1700000000", "GET", "/users/self/verify", ""); got != want {
		t.Errorf("SignWSLogin = %q, want %q", got, want)
	}
}

func TestSignerReady(t *testing.T) {
	tests := []struct {
		name                        string
		apiKey, secret, passphrase  string
		want                        bool
	}{
		{"all set", "k", "s", "p", true},
		{"missing key", "", "s", "p", false},
		{"missing secret", "k", "", "p", false},
		{"missing passphrase", "k", "s", "", false},
		{"all empty", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewSigner(tt.apiKey, tt.secret, tt.passphrase).Ready(); got != tt.want {
				t.Errorf("Ready() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestISOTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 5, 12, 30, 45, 123_000_000, time.UTC)
	if got, want := ISOTimestamp(ts), "2024-03-05T12:30:45.123Z"; got != want {
		t.Errorf("ISOTimestamp = %q, want %q", got, want)
	}

	// non-UTC inputs are converted, never shifted with an offset suffix
	loc := time.FixedZone("X", 3600)
	if got, want := ISOTimestamp(ts.In(loc)), "2024-03-05T12:30:45.123Z"; got != want {
		t.Errorf("ISOTimestamp in zone = %q, want %q", got, want)
	}
}

func TestWSTimestamp(t *testing.T) {
	ts := time.Unix(1700000000, 999_000_000)
	if got, want := WSTimestamp(ts), "1700000000"; got != want {
		t.Errorf("WSTimestamp = %q, want %q", got, want)
	}
}
