package signature

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"errors"
	"math/big"
	"testing"
	"time"
)

func testCertificate(t *testing.T, subject, issuer pkix.Name) *x509.Certificate {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(424242),
		Subject:      subject,
		Issuer:       issuer,
		NotBefore:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC),
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}
	return cert
}

func TestInspectionResult_SetSigner(t *testing.T) {
	name := pkix.Name{CommonName: "EMPRESA DEMO SAS", Organization: []string{"Empresa Demo"}}
	cert := testCertificate(t, name, name)

	result := NewInspectionResult()
	result.SetSigner(cert)

	if result.Signer == nil {
		t.Fatal("Signer should be set")
	}
	if result.Signer.Name != "EMPRESA DEMO SAS" {
		t.Errorf("Name: got %q", result.Signer.Name)
	}
	if result.Signer.Organization != "Empresa Demo" {
		t.Errorf("Organization: got %q", result.Signer.Organization)
	}
	if result.Signer.SerialNumber != "424242" {
		t.Errorf("SerialNumber: got %q", result.Signer.SerialNumber)
	}
	// Self-signed: issuer equals subject
	if result.Signer.Issuer != "EMPRESA DEMO SAS" {
		t.Errorf("Issuer: got %q", result.Signer.Issuer)
	}
	if result.Certificate != cert {
		t.Error("Certificate should be kept")
	}
}

func TestInspectionResult_SetSignerNil(t *testing.T) {
	result := NewInspectionResult()
	result.SetSigner(nil)
	if result.Signer != nil {
		t.Error("Signer should stay nil")
	}
}

func TestInspectionResult_CheckSigningTime(t *testing.T) {
	signer := &SignerInfo{
		ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	at := func(year int) *time.Time {
		t := time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}

	tests := []struct {
		name     string
		signer   *SignerInfo
		signedAt *time.Time
		covers   bool
		warnings int
	}{
		{"within validity", signer, at(2024), true, 0},
		{"before validity", signer, at(2023), false, 1},
		{"after expiry", signer, at(2026), false, 1},
		{"no signing time", signer, nil, false, 1},
		{"no signer", nil, at(2024), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewInspectionResult()
			result.Signer = tt.signer
			result.SignedAt = tt.signedAt
			result.CheckSigningTime()

			if result.CoversSigningTime != tt.covers {
				t.Errorf("CoversSigningTime: got %v, want %v", result.CoversSigningTime, tt.covers)
			}
			if len(result.Warnings) != tt.warnings {
				t.Errorf("Warnings: got %v", result.Warnings)
			}
		})
	}
}

func TestInspectionResult_ExpiredAt(t *testing.T) {
	result := NewInspectionResult()
	if result.ExpiredAt(time.Now()) {
		t.Error("no signer should never be expired")
	}

	result.Signer = &SignerInfo{
		ValidFrom: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if result.ExpiredAt(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("should be valid in 2024")
	}
	if !result.ExpiredAt(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("should be expired in 2026")
	}
}

func TestInspectionResult_JSONOmitsCertificate(t *testing.T) {
	name := pkix.Name{CommonName: "EMPRESA DEMO SAS"}
	result := NewInspectionResult()
	result.SignatureFound = true
	result.SetSigner(testCertificate(t, name, name))

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if _, ok := decoded["Certificate"]; ok {
		t.Error("certificate should not be serialized")
	}
	if decoded["signature_found"] != true {
		t.Errorf("signature_found: got %v", decoded["signature_found"])
	}
}

func TestSignatureError(t *testing.T) {
	cause := errors.New("bad base64")

	tests := []struct {
		name     string
		err      *SignatureError
		expected string
	}{
		{"no signature", ErrNoSignature(), "[NO_SIGNATURE] no signature found in document"},
		{"no certificate", ErrNoCertificate(), "[NO_CERTIFICATE] certificate: no X509Certificate in signature"},
		{"invalid certificate", ErrInvalidCertificate(cause), "[INVALID_CERTIFICATE] certificate: certificate cannot be decoded (bad base64)"},
		{"malformed", ErrMalformedDocument(cause), "[MALFORMED_DOCUMENT] document is not well-formed XML (bad base64)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.expected {
				t.Errorf("Error(): got %q, want %q", tt.err.Error(), tt.expected)
			}
		})
	}

	if !errors.Is(ErrInvalidCertificate(cause), cause) {
		t.Error("cause should unwrap")
	}
}
