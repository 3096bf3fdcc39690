package signature

import "fmt"

// Error codes for signature inspection
const (
	ErrCodeNoSignature        = "NO_SIGNATURE"
	ErrCodeMalformedDocument  = "MALFORMED_DOCUMENT"
	ErrCodeNoCertificate      = "NO_CERTIFICATE"
	ErrCodeInvalidCertificate = "INVALID_CERTIFICATE"
)

// SignatureError represents signature inspection errors
type SignatureError struct {
	Code    string
	Field   string
	Message string
	Cause   error
}

func (e *SignatureError) Error() string {
	if e.Field != "" && e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Code, e.Field, e.Message, e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *SignatureError) Unwrap() error {
	return e.Cause
}

// NewSignatureError creates a new signature error
func NewSignatureError(code, field, message string, cause error) *SignatureError {
	return &SignatureError{
		Code:    code,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ErrNoSignature returns error when no signature found in document
func ErrNoSignature() *SignatureError {
	return NewSignatureError(ErrCodeNoSignature, "", "no signature found in document", nil)
}

// ErrMalformedDocument returns error when the document cannot be read as XML
func ErrMalformedDocument(cause error) *SignatureError {
	return NewSignatureError(ErrCodeMalformedDocument, "", "document is not well-formed XML", cause)
}

// ErrNoCertificate returns error when the signature carries no X509 certificate
func ErrNoCertificate() *SignatureError {
	return NewSignatureError(ErrCodeNoCertificate, "certificate", "no X509Certificate in signature", nil)
}

// ErrInvalidCertificate returns error when the embedded certificate cannot be decoded
func ErrInvalidCertificate(cause error) *SignatureError {
	return NewSignatureError(ErrCodeInvalidCertificate, "certificate", "certificate cannot be decoded", cause)
}
