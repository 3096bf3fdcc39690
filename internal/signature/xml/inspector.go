package xml

import (
	"context"
	"errors"

	"github.com/rezonia/tax-ledger/internal/signature"
)

// Inspector reports the signer and signing time of UBL documents
type Inspector struct {
	extractor *SignatureExtractor
}

// NewInspector creates a new inspector
func NewInspector() *Inspector {
	return &Inspector{extractor: NewSignatureExtractor()}
}

// Inspect reads the signature of data. A document without a signature
// yields a result with SignatureFound false and no error; malformed XML is
// an error.
func (i *Inspector) Inspect(ctx context.Context, data []byte) (*signature.InspectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := signature.NewInspectionResult()

	extraction, err := i.extractor.Extract(data)
	if err != nil {
		var sigErr *signature.SignatureError
		if errors.As(err, &sigErr) && sigErr.Code == signature.ErrCodeNoSignature {
			return result, nil
		}
		return nil, err
	}

	sig := extraction.SignatureElement
	result.SignatureFound = true
	result.InExtensions = extraction.InExtensions
	result.SignatureMethod = algorithm(sig, "SignatureMethod")
	result.DigestMethod = algorithm(sig, "DigestMethod")

	if !extraction.InExtensions {
		result.AddWarning("signature outside UBLExtensions")
	}

	signedAt, err := ExtractSigningTime(sig)
	if err != nil {
		result.AddWarning(err.Error())
	}
	result.SignedAt = signedAt

	cert, err := ExtractCertificate(sig)
	if err != nil {
		result.AddWarning(err.Error())
		return result, nil
	}
	result.SetSigner(cert)
	result.CheckSigningTime()

	return result, nil
}
