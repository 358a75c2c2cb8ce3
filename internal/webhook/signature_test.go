package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyValidSignature(t *testing.T) {
	v := &SignatureVerifier{Secret: "whsec_test"}
	body := []byte(`{"id":"wh_1"}`)
	if !v.Verify(body, sign("whsec_test", body)) {
		t.Fatalf("valid signature rejected")
	}
}

func TestVerifyUppercaseHexAccepted(t *testing.T) {
	v := &SignatureVerifier{Secret: "whsec_test"}
	body := []byte(`{"id":"wh_1"}`)
	sig := sign("whsec_test", body)
	upper := ""
	for _, c := range sig {
		if c >= 'a' && c <= 'f' {
			c = c - 'a' + 'A'
		}
		upper += string(c)
	}
	if !v.Verify(body, upper) {
		t.Fatalf("case of the hex digest must not matter")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	v := &SignatureVerifier{Secret: "whsec_test"}
	body := []byte(`{"id":"wh_1"}`)
	if v.Verify(body, sign("other", body)) {
		t.Fatalf("signature from wrong secret accepted")
	}
}

func TestVerifyTamperedBody(t *testing.T) {
	v := &SignatureVerifier{Secret: "whsec_test"}
	sig := sign("whsec_test", []byte(`{"id":"wh_1"}`))
	if v.Verify([]byte(`{"id":"wh_2"}`), sig) {
		t.Fatalf("tampered body accepted")
	}
}

func TestVerifyMissingSignature(t *testing.T) {
	v := &SignatureVerifier{Secret: "whsec_test"}
	if v.Verify([]byte(`{}`), "") {
		t.Fatalf("empty signature accepted")
	}
}

func TestVerifyEmptySecret(t *testing.T) {
	v := &SignatureVerifier{}
	body := []byte(`{}`)
	if v.Verify(body, sign("", body)) {
		t.Fatalf("verifier without a secret must reject")
	}
}

func TestVerifySkipVerify(t *testing.T) {
	v := &SignatureVerifier{SkipVerify: true}
	if !v.Verify([]byte(`{}`), "garbage") {
		t.Fatalf("skip_verify must accept any signature")
	}
}
