package settlement

import (
	"testing"
	"time"
)

func TestVerifierAcceptsValidSignature(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)

	header := SignPayload("whsec_test", time.Now(), payload)
	if err := v.Verify(payload, header); err != nil {
		t.Fatalf("expected signature to verify, got %v", err)
	}
}

func TestVerifierRejectsTamperedPayload(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	header := SignPayload("whsec_test", time.Now(), []byte(`{"amount":100}`))

	if err := v.Verify([]byte(`{"amount":100000}`), header); err != ErrSignatureInvalid {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload("whsec_other", time.Now(), payload)

	if err := v.Verify(payload, header); err != ErrSignatureInvalid {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifierRejectsStaleTimestamp(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload("whsec_test", time.Now().Add(-time.Hour), payload)

	if err := v.Verify(payload, header); err != ErrSignatureInvalid {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifierRejectsMalformedHeader(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	payload := []byte(`{"id":"evt_1"}`)

	for _, header := range []string{"", "t=abc,v1=deadbeef", "v1=deadbeef", "t=1712345678"} {
		if err := v.Verify(payload, header); err != ErrSignatureInvalid {
			t.Fatalf("header %q: expected ErrSignatureInvalid, got %v", header, err)
		}
	}
}

func TestVerifierAcceptsAnyMatchingSignature(t *testing.T) {
	v := NewVerifier("whsec_test", 5*time.Minute)
	payload := []byte(`{"id":"evt_1"}`)

	valid := SignPayload("whsec_test", time.Now(), payload)
	header := valid + ",v1=0000000000000000000000000000000000000000000000000000000000000000"
	if err := v.Verify(payload, header); err != nil {
		t.Fatalf("expected one matching signature to be enough, got %v", err)
	}
}
