package security

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(16)
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	b, _ := GenerateToken(16)
	if a == b {
		t.Error("tokens should differ")
	}
	raw, err := base64.RawURLEncoding.DecodeString(a)
	if err != nil {
		t.Fatalf("token is not URL-safe base64: %v", err)
	}
	if len(raw) != 16 {
		t.Errorf("decoded length = %d, want 16", len(raw))
	}

	def, _ := GenerateToken(0)
	if raw, _ := base64.RawURLEncoding.DecodeString(def); len(raw) != 32 {
		t.Errorf("default token bytes = %d, want 32", len(raw))
	}
}

func TestSign(t *testing.T) {
	// RFC 4231 test case 2.
	got := Sign("what do ya want for nothing?", "Jefe")
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"
	if got != want {
		t.Errorf("Sign() = %s, want %s", got, want)
	}

	if !VerifySignature("payload", Sign("payload", "k"), "k") {
		t.Error("VerifySignature() rejected a valid signature")
	}
	tests := []struct {
		name, data, sig, secret string
	}{
		{"wrong secret", "payload", Sign("payload", "k"), "other"},
		{"tampered data", "payload!", Sign("payload", "k"), "k"},
		{"empty sig", "payload", "", "k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(tt.data, tt.sig, tt.secret) {
				t.Error("VerifySignature() accepted an invalid signature")
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, salt, err := HashPassword("hunter2", "")
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if len(salt) != 32 {
		t.Errorf("salt length = %d, want 32 hex chars", len(salt))
	}
	if !VerifyPassword("hunter2", hash, salt) {
		t.Error("VerifyPassword() rejected the right password")
	}
	if VerifyPassword("hunter3", hash, salt) {
		t.Error("VerifyPassword() accepted the wrong password")
	}
	if VerifyPassword("hunter2", hash, "") {
		t.Error("VerifyPassword() accepted an empty salt")
	}

	again, sameSalt, _ := HashPassword("hunter2", salt)
	if again != hash || sameSalt != salt {
		t.Error("HashPassword() is not deterministic for a fixed salt")
	}
}

func TestSigner(t *testing.T) {
	const secret = "s3cret"
	var got http.Header
	var verified bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = r.Header.Clone()
		verified = VerifyRequest(r, body, secret)
		if string(body) != `{"name":"x"}` {
			t.Errorf("body = %q", body)
		}
	}))
	defer server.Close()

	signer := NewSigner(server.Client().Transport, secret)
	signer.Now = func() time.Time { return time.Unix(1700000000, 0) }
	client := &http.Client{Transport: signer}

	req, _ := http.NewRequest(http.MethodPost, server.URL+"/items", strings.NewReader(`{"name":"x"}`))
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if !verified {
		t.Error("server could not verify the signature")
	}
	if got.Get(HeaderTimestamp) != "1700000000" {
		t.Errorf("X-Timestamp = %q", got.Get(HeaderTimestamp))
	}
	if got.Get(HeaderNonce) == "" {
		t.Error("X-Nonce missing")
	}
	if _, err := uuid.Parse(got.Get(HeaderRequestID)); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID", got.Get(HeaderRequestID))
	}
	if req.Header.Get(HeaderSignature) != "" {
		t.Error("caller's request was modified")
	}
}

func TestSignerWithoutSecret(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	client := &http.Client{Transport: NewSigner(server.Client().Transport, "")}
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/items", nil)
	req.Header.Set(HeaderRequestID, "fixed-id")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got.Get(HeaderSignature) != "" {
		t.Error("X-Signature set without a secret")
	}
	if got.Get(HeaderRequestID) != "fixed-id" {
		t.Errorf("X-Request-ID = %q, want caller's value", got.Get(HeaderRequestID))
	}
}

func TestHeaders(t *testing.T) {
	h := Headers(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	present := PresentHeaders(rec.Header())
	if len(present) != len(ResponseHeaders) {
		t.Errorf("PresentHeaders() = %v", present)
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options not set")
	}
	if got := PresentHeaders(http.Header{}); len(got) != 0 {
		t.Errorf("PresentHeaders(empty) = %v", got)
	}
}
