package signature

import (
	"crypto/x509"
	"time"
)

// InspectionResult describes the signature embedded in a document. It
// reports what the signature claims; it does not verify the digest or the
// trust chain.
type InspectionResult struct {
	SignatureFound bool `json:"signature_found"`

	// InExtensions is true when the signature sits inside UBLExtensions,
	// where DIAN documents carry it
	InExtensions bool `json:"in_extensions"`

	// Signature and digest algorithm URIs from SignedInfo
	SignatureMethod string `json:"signature_method,omitempty"`
	DigestMethod    string `json:"digest_method,omitempty"`

	Signer *SignerInfo `json:"signer,omitempty"`

	// XAdES SigningTime
	SignedAt *time.Time `json:"signed_at,omitempty"`

	// CoversSigningTime is true when SignedAt falls inside the certificate
	// validity period
	CoversSigningTime bool `json:"covers_signing_time"`

	Certificate *x509.Certificate `json:"-"`

	Warnings []string `json:"warnings,omitempty"`
}

// SignerInfo contains certificate subject information
type SignerInfo struct {
	// Common name (CN)
	Name string `json:"name"`

	// Organization (O)
	Organization string `json:"organization,omitempty"`

	SerialNumber string `json:"serial_number"`

	// Issuer common name
	Issuer string `json:"issuer"`

	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
}

// NewInspectionResult creates a new empty result
func NewInspectionResult() *InspectionResult {
	return &InspectionResult{
		Warnings: make([]string, 0),
	}
}

// AddWarning adds a warning message to the result
func (r *InspectionResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// SetSigner populates SignerInfo from an x509 certificate
func (r *InspectionResult) SetSigner(cert *x509.Certificate) {
	if cert == nil {
		return
	}
	r.Certificate = cert

	signer := &SignerInfo{
		Name:         cert.Subject.CommonName,
		SerialNumber: cert.SerialNumber.String(),
		ValidFrom:    cert.NotBefore,
		ValidTo:      cert.NotAfter,
	}

	if len(cert.Subject.Organization) > 0 {
		signer.Organization = cert.Subject.Organization[0]
	}

	if cert.Issuer.CommonName != "" {
		signer.Issuer = cert.Issuer.CommonName
	} else if len(cert.Issuer.Organization) > 0 {
		signer.Issuer = cert.Issuer.Organization[0]
	}

	r.Signer = signer
}

// CheckSigningTime sets CoversSigningTime from SignedAt and the signer
// validity period, warning when either is missing or they disagree.
func (r *InspectionResult) CheckSigningTime() {
	r.CoversSigningTime = false
	switch {
	case r.Signer == nil:
		return
	case r.SignedAt == nil:
		r.AddWarning("signature has no signing time")
	case r.SignedAt.Before(r.Signer.ValidFrom):
		r.AddWarning("signed before certificate validity")
	case r.SignedAt.After(r.Signer.ValidTo):
		r.AddWarning("signed after certificate expiry")
	default:
		r.CoversSigningTime = true
	}
}

// ExpiredAt reports whether the signer certificate is outside its
// validity period at t
func (r *InspectionResult) ExpiredAt(t time.Time) bool {
	if r.Signer == nil {
		return false
	}
	return t.After(r.Signer.ValidTo) || t.Before(r.Signer.ValidFrom)
}
